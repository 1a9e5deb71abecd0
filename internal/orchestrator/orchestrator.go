// Package orchestrator drives the two-phase reconciliation workflow: a
// read-only plan phase that produces the diff report and the questions worth
// asking, and an apply phase that re-scans, patches, and logs the run.
package orchestrator

import (
	"fmt"
	"log"

	"github.com/aida-assistant/aida/internal/history"
	"github.com/aida-assistant/aida/internal/patcher"
	"github.com/aida-assistant/aida/internal/registry"
	"github.com/aida-assistant/aida/internal/scanner"
)

// Question is a strategy decision surfaced to the caller during planning.
// Only overridable files whose default would destroy local edits produce one.
type Question struct {
	Path    string
	Prompt  string
	Choices []registry.MergeStrategy
	Default registry.MergeStrategy
}

// Plan is the outcome of the read-only phase.
type Plan struct {
	Report    *scanner.DiffReport
	Questions []Question
}

// ReviewItem is one file an apply run left for a human.
type ReviewItem struct {
	Path    string
	Message string
}

// Summary is the outcome of an apply run.
type Summary struct {
	Success      bool
	FilesCreated int
	FilesUpdated int
	FilesSkipped int
	FilesFailed  int
	ManualReview []ReviewItem
	BackupPath   string
}

// Orchestrator wires the scanner, the patcher and the run log. The history
// store may be nil; runs are then simply not recorded.
type Orchestrator struct {
	scanner *scanner.Scanner
	patcher *patcher.Patcher
	runs    history.Store
}

// New creates an Orchestrator with its dependencies.
func New(s *scanner.Scanner, p *patcher.Patcher, runs history.Store) *Orchestrator {
	return &Orchestrator{scanner: s, patcher: p, runs: runs}
}

// Plan scans the project and derives the questions an interactive caller
// should put to the user. It performs no writes.
func (o *Orchestrator) Plan(projectPath string) (*Plan, error) {
	report, err := o.scanner.Scan(projectPath)
	if err != nil {
		return nil, err
	}
	return &Plan{Report: report, Questions: questionsFor(report)}, nil
}

// questionsFor surfaces a choice for every outdated overridable file whose
// default strategy would replace existing content wholesale.
func questionsFor(report *scanner.DiffReport) []Question {
	var qs []Question
	for _, d := range report.Files {
		if d.Status != scanner.StatusOutdated || !d.Overridable {
			continue
		}
		if d.Strategy != registry.StrategyOverwrite {
			continue
		}
		qs = append(qs, Question{
			Path:    d.Path,
			Prompt:  fmt.Sprintf("%s differs from the canonical template. Replace it, or keep the local version?", d.Path),
			Choices: []registry.MergeStrategy{registry.StrategyOverwrite, registry.StrategySkip},
			Default: registry.StrategyOverwrite,
		})
	}
	return qs
}

// Apply re-scans the project and patches it. The fresh scan means a plan is
// advisory: files that changed between plan and apply are handled by their
// current state, never by a stale report.
func (o *Orchestrator) Apply(projectPath string, overrides *patcher.Overrides) (*Summary, error) {
	report, err := o.scanner.Scan(projectPath)
	if err != nil {
		return nil, err
	}

	result, err := o.patcher.Apply(projectPath, report, overrides)
	if err != nil {
		return nil, err
	}

	summary := summarize(result)
	o.record(report, summary)
	return summary, nil
}

func summarize(result *patcher.Result) *Summary {
	s := &Summary{BackupPath: result.BackupPath}
	for _, f := range result.Files {
		switch f.Action {
		case patcher.ActionCreated:
			s.FilesCreated++
		case patcher.ActionUpdated:
			s.FilesUpdated++
		case patcher.ActionSkipped:
			s.FilesSkipped++
		case patcher.ActionFailed:
			s.FilesFailed++
		case patcher.ActionManualReview:
			s.ManualReview = append(s.ManualReview, ReviewItem{Path: f.Path, Message: f.Message})
		}
	}
	s.Success = s.FilesFailed == 0
	return s
}

// record logs the run. Best-effort: a history failure never fails an apply
// that already happened.
func (o *Orchestrator) record(report *scanner.DiffReport, s *Summary) {
	if o.runs == nil {
		return
	}
	_, err := o.runs.Record(history.Run{
		ProjectPath:  report.ProjectPath,
		Language:     string(report.Language),
		FilesCreated: s.FilesCreated,
		FilesUpdated: s.FilesUpdated,
		FilesSkipped: s.FilesSkipped,
		FilesFailed:  s.FilesFailed,
		ManualReview: len(s.ManualReview),
		BackupPath:   s.BackupPath,
	})
	if err != nil {
		log.Printf("recording run history: %v", err)
	}
}
