// Package tools implements the MCP tool handlers for reconciliation.
//
// Each tool is a struct that receives its dependencies at construction and
// exposes Definition for registration plus Handle for execution. Tools format
// their payloads as JSON so the calling assistant can reason over them; fatal
// domain errors become tool error results, not protocol errors.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aida-assistant/aida/internal/orchestrator"
	"github.com/aida-assistant/aida/internal/scanner"
)

// PlanTool handles the aida_plan MCP tool: the read-only phase that reports
// drift and surfaces the strategy questions worth asking the user.
type PlanTool struct {
	orch *orchestrator.Orchestrator
}

// NewPlanTool creates a PlanTool backed by the given orchestrator.
func NewPlanTool(orch *orchestrator.Orchestrator) *PlanTool {
	return &PlanTool{orch: orch}
}

// Definition returns the MCP tool definition for registration.
func (t *PlanTool) Definition() mcp.Tool {
	return mcp.NewTool("aida_plan",
		mcp.WithDescription(
			"Scan a generated project against the canonical templates and report "+
				"which tracked files are missing, outdated or up to date. Read-only: "+
				"no file is modified. Returns the diff report plus the questions to "+
				"put to the user before calling aida_apply.",
		),
		mcp.WithString("project_path",
			mcp.Required(),
			mcp.Description("Absolute path to the project root (the directory holding .aida/aida.json)."),
		),
	)
}

// planFile is the per-file JSON shape of the plan response.
type planFile struct {
	Path        string `json:"path"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Strategy    string `json:"strategy"`
	DiffSummary string `json:"diff_summary,omitempty"`
}

type planQuestion struct {
	Path    string   `json:"path"`
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
	Default string   `json:"default"`
}

type planResponse struct {
	ProjectPath     string         `json:"project_path"`
	Language        string         `json:"language"`
	RecordedVersion string         `json:"recorded_version"`
	CurrentVersion  string         `json:"current_version"`
	Files           []planFile     `json:"files"`
	Questions       []planQuestion `json:"questions"`
}

// Handle processes the aida_plan tool call.
func (t *PlanTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectPath, err := req.RequireString("project_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	plan, err := t.orch.Plan(projectPath)
	if err != nil {
		switch err.(type) {
		case *scanner.InvalidProjectError, *scanner.UnsupportedLanguageError:
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, fmt.Errorf("planning reconciliation: %w", err)
	}

	resp := planResponse{
		ProjectPath:     plan.Report.ProjectPath,
		Language:        string(plan.Report.Language),
		RecordedVersion: plan.Report.RecordedVersion,
		CurrentVersion:  plan.Report.CurrentVersion,
		Files:           make([]planFile, 0, len(plan.Report.Files)),
		Questions:       make([]planQuestion, 0, len(plan.Questions)),
	}
	for _, f := range plan.Report.Files {
		resp.Files = append(resp.Files, planFile{
			Path:        f.Path,
			Category:    string(f.Category),
			Status:      string(f.Status),
			Strategy:    string(f.Strategy),
			DiffSummary: f.DiffSummary,
		})
	}
	for _, q := range plan.Questions {
		choices := make([]string, 0, len(q.Choices))
		for _, c := range q.Choices {
			choices = append(choices, string(c))
		}
		resp.Questions = append(resp.Questions, planQuestion{
			Path:    q.Path,
			Prompt:  q.Prompt,
			Choices: choices,
			Default: string(q.Default),
		})
	}

	payload, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding plan response: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
