// Package scanner compares a target project against the canonical template
// set and produces an immutable DiffReport.
//
// Scanning is strictly read-only. Fatal failures (no manifest, unknown
// language) abort before any FileDiff is produced; everything else —
// unreadable files, template failures — is recorded inline on the affected
// file so the rest of the report is still complete.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aida-assistant/aida/internal/project"
	"github.com/aida-assistant/aida/internal/registry"
	"github.com/aida-assistant/aida/internal/templates"
)

// --- FileStatus enum ---

// FileStatus is a tracked file's state relative to its canonical template.
// Exactly one status per tracked file per scan.
type FileStatus string

const (
	StatusMissing    FileStatus = "missing"
	StatusOutdated   FileStatus = "outdated"
	StatusUpToDate   FileStatus = "up_to_date"
	StatusCustomSkip FileStatus = "custom_skip"
)

// --- Error taxonomy ---

// InvalidProjectError means the project manifest is missing or unreadable.
// Fatal: no DiffReport is produced.
type InvalidProjectError struct {
	Err error
}

func (e *InvalidProjectError) Error() string {
	return fmt.Sprintf("invalid project: %v", e.Err)
}

func (e *InvalidProjectError) Unwrap() error { return e.Err }

// UnsupportedLanguageError means the detected language has no registry
// entries. Fatal: no DiffReport is produced.
type UnsupportedLanguageError struct {
	Err error
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language: %v", e.Err)
}

func (e *UnsupportedLanguageError) Unwrap() error { return e.Err }

// --- Value objects ---

// FileDiff describes one tracked file's state. It is a value object, never
// mutated after construction.
//
// Strategy is the resolved strategy at scan time: the registry default,
// except that files whose expected or actual content could not be obtained
// are forced to manual_review so a later apply can never write partial or
// wrong content over them. Errored marks those files; their manual_review
// is final and caller overrides are ignored.
type FileDiff struct {
	Path         string
	Category     registry.FileCategory
	Composite    registry.CompositeKind
	Status       FileStatus
	Strategy     registry.MergeStrategy
	Overridable  bool
	Errored      bool
	Expected     string
	Actual       string
	ActualExists bool
	DiffSummary  string
}

// DiffReport is the immutable result of one scan. Two scans of an unchanged
// project are structurally equal.
type DiffReport struct {
	ProjectPath     string
	Language        registry.Language
	RecordedVersion string
	CurrentVersion  string
	Files           []FileDiff
}

// NeedsAction reports whether the file would be touched or surfaced by an
// apply run: anything not up to date and not a custom skip.
func (d *FileDiff) NeedsAction() bool {
	return d.Status == StatusMissing || d.Status == StatusOutdated
}

// Counts returns the number of files per status.
func (r *DiffReport) Counts() map[FileStatus]int {
	counts := make(map[FileStatus]int)
	for _, f := range r.Files {
		counts[f.Status]++
	}
	return counts
}

// --- Scanner ---

// Scanner reads a project and produces DiffReports. It holds no per-scan
// state; one Scanner may serve many projects.
type Scanner struct {
	store    project.Store
	renderer templates.Renderer
}

// New creates a Scanner with its dependencies.
func New(store project.Store, renderer templates.Renderer) *Scanner {
	return &Scanner{store: store, renderer: renderer}
}

// Scan produces a DiffReport for the project at projectPath. It performs no
// writes under any circumstance.
func (s *Scanner) Scan(projectPath string) (*DiffReport, error) {
	manifest, err := s.store.Load(projectPath)
	if err != nil {
		return nil, &InvalidProjectError{Err: err}
	}

	lang, err := project.DetectLanguage(projectPath)
	if err != nil {
		return nil, &UnsupportedLanguageError{Err: err}
	}

	specs, err := registry.SpecsFor(lang)
	if err != nil {
		return nil, &UnsupportedLanguageError{Err: err}
	}

	vars := project.Variables(manifest, lang)

	report := &DiffReport{
		ProjectPath:     projectPath,
		Language:        lang,
		RecordedVersion: manifest.GeneratorVersion,
		CurrentVersion:  templates.SetVersion,
		Files:           make([]FileDiff, 0, len(specs)),
	}

	for _, spec := range specs {
		report.Files = append(report.Files, s.diffFile(projectPath, spec, vars))
	}

	return report, nil
}

// diffFile builds the FileDiff for a single registry entry.
func (s *Scanner) diffFile(projectPath string, spec registry.FileSpec, vars templates.Variables) FileDiff {
	d := FileDiff{
		Path:        spec.Path,
		Category:    spec.Category,
		Composite:   spec.Composite,
		Strategy:    spec.DefaultStrategy,
		Overridable: spec.UserOverridable,
	}

	absPath := filepath.Join(projectPath, filepath.FromSlash(spec.Path))

	// Custom files are never diffed beyond existence.
	if spec.Category == registry.CategoryCustom {
		d.Status = StatusCustomSkip
		if _, err := os.Stat(absPath); err == nil {
			d.ActualExists = true
		}
		d.DiffSummary = "user-authored file, never modified"
		return d
	}

	expected, renderErr := s.renderer.Render(spec.TemplateID, vars)
	if renderErr != nil {
		d.Status = StatusOutdated
		d.Strategy = registry.StrategyManualReview
		d.Errored = true
		d.DiffSummary = fmt.Sprintf("template render error: %v", renderErr)
		return d
	}
	d.Expected = expected

	actual, readErr := os.ReadFile(absPath)
	switch {
	case readErr == nil:
		d.Actual = string(actual)
		d.ActualExists = true
	case os.IsNotExist(readErr):
		d.Status = StatusMissing
		d.DiffSummary = fmt.Sprintf("new addition: %s file will be created", spec.Category)
		return d
	default:
		d.Status = StatusOutdated
		d.Strategy = registry.StrategyManualReview
		d.Errored = true
		d.DiffSummary = fmt.Sprintf("file read error: %v", readErr)
		return d
	}

	compare(&d, spec)
	return d
}
