// Package history is the persistent log of reconciliation runs.
//
// It uses SQLite, stored under the user's home directory — never inside a
// target project, so reconciling a project adds nothing to it beyond the
// files the registry tracks and the backup snapshots.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Run is one recorded apply run.
type Run struct {
	ID           string `json:"id"`
	ProjectPath  string `json:"project_path"`
	Language     string `json:"language"`
	FilesCreated int    `json:"files_created"`
	FilesUpdated int    `json:"files_updated"`
	FilesSkipped int    `json:"files_skipped"`
	FilesFailed  int    `json:"files_failed"`
	ManualReview int    `json:"manual_review"`
	BackupPath   string `json:"backup_path"`
	CreatedAt    string `json:"created_at"`
}

// Config holds history store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig resolves the data directory: $AIDA_DATA_DIR if set,
// otherwise ~/.aida.
func DefaultConfig() Config {
	if dir := os.Getenv("AIDA_DATA_DIR"); dir != "" {
		return Config{DataDir: dir}
	}
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".aida")}
}

// Store defines run-log persistence. Abstracted so the orchestrator can run
// without a database in tests.
type Store interface {
	Record(run Run) (Run, error)
	Recent(projectPath string, limit int) ([]Run, error)
	Close() error
}

// SQLStore implements Store on SQLite.
type SQLStore struct {
	db *sql.DB
}

// New opens (creating if needed) the history database and runs migrations.
func New(cfg Config) (*SQLStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "history.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &SQLStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id            TEXT PRIMARY KEY,
			project_path  TEXT    NOT NULL,
			language      TEXT    NOT NULL,
			files_created INTEGER NOT NULL DEFAULT 0,
			files_updated INTEGER NOT NULL DEFAULT 0,
			files_skipped INTEGER NOT NULL DEFAULT 0,
			files_failed  INTEGER NOT NULL DEFAULT 0,
			manual_review INTEGER NOT NULL DEFAULT 0,
			backup_path   TEXT    NOT NULL DEFAULT '',
			created_at    TEXT    NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project_path, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record persists one run, assigning its ID and timestamp, and returns the
// stored row.
func (s *SQLStore) Record(run Run) (Run, error) {
	run.ID = uuid.NewString()
	run.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.Exec(`
		INSERT INTO runs (id, project_path, language, files_created, files_updated,
			files_skipped, files_failed, manual_review, backup_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ProjectPath, run.Language, run.FilesCreated, run.FilesUpdated,
		run.FilesSkipped, run.FilesFailed, run.ManualReview, run.BackupPath, run.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("history: record run: %w", err)
	}
	return run, nil
}

// Recent returns the newest runs, most recent first. An empty projectPath
// returns runs across all projects.
func (s *SQLStore) Recent(projectPath string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, project_path, language, files_created, files_updated,
			files_skipped, files_failed, manual_review, backup_path, created_at
		FROM runs`
	args := []any{}
	if projectPath != "" {
		query += " WHERE project_path = ?"
		args = append(args, projectPath)
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ProjectPath, &r.Language, &r.FilesCreated,
			&r.FilesUpdated, &r.FilesSkipped, &r.FilesFailed, &r.ManualReview,
			&r.BackupPath, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
