// Package backup snapshots files before the patcher touches them.
//
// Snapshots live in a visible, timestamped directory at the project root
// (.aida-backup/<timestamp>/) mirroring the relative path of every file that
// is about to be modified, byte-for-byte. The snapshot is the independent
// recovery path: whatever happens after it, the user can restore by copying
// files back out.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aida-assistant/aida/internal/fsutil"
)

// Dir is the backup directory name at the project root.
const Dir = ".aida-backup"

// timestampFormat yields sortable snapshot names (20260825-143015).
const timestampFormat = "20060102-150405"

// now is a seam for deterministic snapshot names in tests.
var now = time.Now

// Error is the fatal failure of a snapshot. When the pre-mutation snapshot
// cannot be completed for every file, the whole apply run must abort before
// any write.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backup of %s failed: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Manager creates pre-mutation snapshots for one project.
type Manager struct {
	projectRoot string
}

// NewManager creates a Manager rooted at the given project.
func NewManager(projectRoot string) *Manager {
	return &Manager{projectRoot: projectRoot}
}

// Snapshot copies every named file (paths relative to the project root) into
// a fresh timestamped snapshot directory and returns that directory's
// absolute path. Files that do not exist are skipped — a file about to be
// created has no prior content to preserve. Any copy failure aborts with a
// *Error and the caller must not proceed to mutate.
func (m *Manager) Snapshot(relPaths []string) (string, error) {
	stamp := now().UTC().Format(timestampFormat)
	snapDir := filepath.Join(m.projectRoot, Dir, stamp)

	// A second apply within the same second must not mix snapshots.
	for i := 2; ; i++ {
		if _, err := os.Stat(snapDir); err != nil {
			break
		}
		snapDir = filepath.Join(m.projectRoot, Dir, fmt.Sprintf("%s-%d", stamp, i))
	}

	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		return "", &Error{Path: snapDir, Err: err}
	}

	for _, rel := range relPaths {
		src := filepath.Join(m.projectRoot, filepath.FromSlash(rel))
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		dst := filepath.Join(snapDir, filepath.FromSlash(rel))
		if err := fsutil.CopyFile(src, dst); err != nil {
			return "", &Error{Path: rel, Err: err}
		}
	}

	return snapDir, nil
}
