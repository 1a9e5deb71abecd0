// Package patcher applies a scan's resolved strategies to a project.
//
// The flow is backup-first: every file an apply run may touch is snapshotted
// before the first write, and a snapshot failure aborts the whole run. After
// that, each file is patched independently — one file failing to write never
// stops the others — and the manifest's generator_version marker is advanced
// at the end.
package patcher

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/aida-assistant/aida/internal/backup"
	"github.com/aida-assistant/aida/internal/fsutil"
	"github.com/aida-assistant/aida/internal/project"
	"github.com/aida-assistant/aida/internal/registry"
	"github.com/aida-assistant/aida/internal/scanner"
	"github.com/aida-assistant/aida/internal/templates"
)

// mergeMarker heads the block of canonical entries a merge appends to a
// composite file. User content above it is never rewritten.
const mergeMarker = "# added by aida reconcile"

// --- PatchAction enum ---

// PatchAction is what the patcher did to one file.
type PatchAction string

const (
	ActionCreated      PatchAction = "created"
	ActionUpdated      PatchAction = "updated"
	ActionSkipped      PatchAction = "skipped"
	ActionFailed       PatchAction = "failed"
	ActionManualReview PatchAction = "manual_review"
)

// PatchResult records the outcome for one tracked file. BackupRef points at
// the file's pre-apply copy inside the run's snapshot; it is set only when a
// prior version existed and was replaced.
type PatchResult struct {
	Path      string
	Action    PatchAction
	Message   string
	BackupRef string
}

// Result is the outcome of one apply run.
type Result struct {
	Files      []PatchResult
	BackupPath string
}

// Counts returns the number of files per action.
func (r *Result) Counts() map[PatchAction]int {
	counts := make(map[PatchAction]int)
	for _, f := range r.Files {
		counts[f.Action]++
	}
	return counts
}

// --- Overrides ---

// Overrides carries the caller's strategy choices for an apply run. A path
// override beats a category override, which beats the registry default.
// Overrides only apply to files the registry marks user-overridable; the
// rest are ignored with a log line, never an error.
type Overrides struct {
	PerPath     map[string]registry.MergeStrategy
	PerCategory map[registry.FileCategory]registry.MergeStrategy
}

// ResolveStrategy returns the strategy to use for one file, applying the
// override precedence on top of the scan's resolved strategy.
func ResolveStrategy(d scanner.FileDiff, o *Overrides) registry.MergeStrategy {
	if o == nil {
		return d.Strategy
	}

	requested, source := lookupOverride(d, o)
	if requested == "" {
		return d.Strategy
	}
	if err := registry.ValidateStrategy(requested); err != nil {
		log.Printf("ignoring %s override for %s: %v", source, d.Path, err)
		return d.Strategy
	}
	if d.Errored {
		// Expected or actual content could not be obtained; the scan's
		// manual_review is final or a write could destroy the file.
		log.Printf("ignoring %s override for %s: file content could not be obtained", source, d.Path)
		return d.Strategy
	}
	if !d.Overridable {
		log.Printf("ignoring %s override for %s: file is not user-overridable", source, d.Path)
		return d.Strategy
	}
	return requested
}

func lookupOverride(d scanner.FileDiff, o *Overrides) (registry.MergeStrategy, string) {
	if s, ok := o.PerPath[d.Path]; ok {
		return s, "path"
	}
	if s, ok := o.PerCategory[d.Category]; ok {
		return s, "category"
	}
	return "", ""
}

// --- Patcher ---

// Patcher mutates projects according to a DiffReport. Stateless across runs.
type Patcher struct {
	store project.Store
}

// New creates a Patcher with its dependencies.
func New(store project.Store) *Patcher {
	return &Patcher{store: store}
}

// Apply patches every file in the report according to its resolved strategy.
//
// A backup snapshot of every file that may be written is taken first; if the
// snapshot fails, Apply returns a *backup.Error and the project is untouched.
// Per-file write failures are recorded as ActionFailed results and do not
// abort the run. The generator_version marker is advanced even when some
// files failed — the backup already holds their prior state.
func (p *Patcher) Apply(projectPath string, report *scanner.DiffReport, overrides *Overrides) (*Result, error) {
	toBackup := []string{filepath.ToSlash(filepath.Join(project.AidaDir, project.ManifestFile))}
	for _, d := range report.Files {
		if d.NeedsAction() && willWrite(ResolveStrategy(d, overrides)) {
			toBackup = append(toBackup, d.Path)
		}
	}

	snapDir, err := backup.NewManager(projectPath).Snapshot(toBackup)
	if err != nil {
		return nil, err
	}

	result := &Result{BackupPath: snapDir}
	for _, d := range report.Files {
		r := p.patchFile(projectPath, d, ResolveStrategy(d, overrides))
		if r.Action == ActionUpdated && d.ActualExists {
			r.BackupRef = filepath.Join(snapDir, filepath.FromSlash(d.Path))
		}
		result.Files = append(result.Files, r)
	}

	if err := project.UpdateGeneratorVersion(p.store, projectPath, templates.SetVersion); err != nil {
		result.Files = append(result.Files, PatchResult{
			Path:    filepath.ToSlash(filepath.Join(project.AidaDir, project.ManifestFile)),
			Action:  ActionFailed,
			Message: fmt.Sprintf("updating generator version marker: %v", err),
		})
	}

	return result, nil
}

// willWrite reports whether a strategy can mutate the file on disk.
func willWrite(s registry.MergeStrategy) bool {
	switch s {
	case registry.StrategyOverwrite, registry.StrategyAdd, registry.StrategyMerge:
		return true
	}
	return false
}

// patchFile applies one file's strategy and returns the outcome.
func (p *Patcher) patchFile(projectPath string, d scanner.FileDiff, strategy registry.MergeStrategy) PatchResult {
	if d.Status == scanner.StatusCustomSkip {
		return PatchResult{Path: d.Path, Action: ActionSkipped, Message: "user-authored file, never modified"}
	}
	if d.Status == scanner.StatusUpToDate {
		return PatchResult{Path: d.Path, Action: ActionSkipped, Message: "already up to date"}
	}
	// Second line of defense behind ResolveStrategy: an errored diff has no
	// trustworthy expected content, so nothing may be written from it.
	if d.Errored {
		return PatchResult{Path: d.Path, Action: ActionManualReview, Message: d.DiffSummary}
	}

	switch strategy {
	case registry.StrategySkip:
		return PatchResult{Path: d.Path, Action: ActionSkipped, Message: "skipped by strategy"}
	case registry.StrategyManualReview:
		return PatchResult{Path: d.Path, Action: ActionManualReview, Message: d.DiffSummary}
	case registry.StrategyOverwrite:
		return p.writeExpected(projectPath, d, "replaced with canonical content")
	case registry.StrategyAdd:
		if d.ActualExists {
			return PatchResult{Path: d.Path, Action: ActionSkipped, Message: "existing file left untouched"}
		}
		return p.writeExpected(projectPath, d, "created from canonical template")
	case registry.StrategyMerge:
		return p.merge(projectPath, d)
	default:
		return PatchResult{Path: d.Path, Action: ActionFailed, Message: fmt.Sprintf("unknown strategy %q", strategy)}
	}
}

// writeExpected writes the rendered canonical content atomically.
func (p *Patcher) writeExpected(projectPath string, d scanner.FileDiff, message string) PatchResult {
	abs := filepath.Join(projectPath, filepath.FromSlash(d.Path))
	if err := fsutil.WriteFileAtomic(abs, []byte(d.Expected), 0o644); err != nil {
		return PatchResult{Path: d.Path, Action: ActionFailed, Message: fmt.Sprintf("write failed: %v", err)}
	}
	action := ActionUpdated
	if !d.ActualExists {
		action = ActionCreated
	}
	return PatchResult{Path: d.Path, Action: action, Message: message}
}

// merge dispatches the category-specific merge algorithms.
func (p *Patcher) merge(projectPath string, d scanner.FileDiff) PatchResult {
	if !d.ActualExists {
		return p.writeExpected(projectPath, d, "created from canonical template")
	}

	switch {
	case d.Category == registry.CategoryMetadata:
		// User values were read from the existing manifest and re-rendered,
		// so writing the expected content preserves them while refreshing
		// the schema and version marker.
		return p.writeExpected(projectPath, d, "metadata refreshed, user values preserved")
	case d.Composite == registry.CompositeIgnore:
		return p.appendLines(projectPath, d)
	case d.Composite == registry.CompositeBuild:
		return p.appendTargets(projectPath, d)
	default:
		return PatchResult{Path: d.Path, Action: ActionManualReview,
			Message: fmt.Sprintf("no merge algorithm for category %s", d.Category)}
	}
}

// appendLines merges an ignore-style file by appending the canonical lines
// the file is missing. Existing content is preserved verbatim, order and all.
func (p *Patcher) appendLines(projectPath string, d scanner.FileDiff) PatchResult {
	missing := scanner.MissingLines(d.Expected, d.Actual)
	if len(missing) == 0 {
		return PatchResult{Path: d.Path, Action: ActionSkipped, Message: "already up to date"}
	}

	var b strings.Builder
	b.WriteString(ensureTrailingNewline(d.Actual))
	b.WriteString("\n" + mergeMarker + "\n")
	for _, line := range missing {
		b.WriteString(line + "\n")
	}

	abs := filepath.Join(projectPath, filepath.FromSlash(d.Path))
	if err := fsutil.WriteFileAtomic(abs, []byte(b.String()), filePerm(abs)); err != nil {
		return PatchResult{Path: d.Path, Action: ActionFailed, Message: fmt.Sprintf("write failed: %v", err)}
	}
	return PatchResult{Path: d.Path, Action: ActionUpdated,
		Message: fmt.Sprintf("appended %d canonical entries: %s", len(missing), strings.Join(missing, ", "))}
}

// appendTargets merges a build file by appending the canonical declaration
// blocks for targets the file is missing. Existing targets are never touched,
// even when their recipes differ from the canonical ones.
func (p *Patcher) appendTargets(projectPath string, d scanner.FileDiff) PatchResult {
	missing := scanner.MissingTargets(d.Expected, d.Actual)
	if len(missing) == 0 {
		return PatchResult{Path: d.Path, Action: ActionSkipped, Message: "already up to date"}
	}

	var b strings.Builder
	b.WriteString(ensureTrailingNewline(d.Actual))
	b.WriteString("\n" + mergeMarker + "\n")
	for i, name := range missing {
		block := scanner.TargetBlock(d.Expected, name)
		if block == "" {
			continue
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(block)
	}

	abs := filepath.Join(projectPath, filepath.FromSlash(d.Path))
	if err := fsutil.WriteFileAtomic(abs, []byte(b.String()), filePerm(abs)); err != nil {
		return PatchResult{Path: d.Path, Action: ActionFailed, Message: fmt.Sprintf("write failed: %v", err)}
	}
	return PatchResult{Path: d.Path, Action: ActionUpdated,
		Message: fmt.Sprintf("appended %d canonical targets: %s", len(missing), strings.Join(missing, ", "))}
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// filePerm preserves an existing file's mode on rewrite.
func filePerm(path string) os.FileMode {
	info, err := os.Stat(path)
	if err != nil {
		return 0o644
	}
	return info.Mode().Perm()
}
