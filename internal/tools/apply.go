package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aida-assistant/aida/internal/backup"
	"github.com/aida-assistant/aida/internal/orchestrator"
	"github.com/aida-assistant/aida/internal/patcher"
	"github.com/aida-assistant/aida/internal/registry"
	"github.com/aida-assistant/aida/internal/scanner"
)

// ApplyTool handles the aida_apply MCP tool: the mutating phase that patches
// tracked files according to their resolved strategies.
type ApplyTool struct {
	orch *orchestrator.Orchestrator
}

// NewApplyTool creates an ApplyTool backed by the given orchestrator.
func NewApplyTool(orch *orchestrator.Orchestrator) *ApplyTool {
	return &ApplyTool{orch: orch}
}

// Definition returns the MCP tool definition for registration.
func (t *ApplyTool) Definition() mcp.Tool {
	return mcp.NewTool("aida_apply",
		mcp.WithDescription(
			"Reconcile a generated project with the canonical templates. Backs up "+
				"every file to be modified, then creates missing files, refreshes "+
				"boilerplate and merges composite files according to each file's "+
				"strategy. The project is re-scanned first, so run aida_plan for the "+
				"questions, collect the user's answers, and pass them as overrides.",
		),
		mcp.WithString("project_path",
			mcp.Required(),
			mcp.Description("Absolute path to the project root (the directory holding .aida/aida.json)."),
		),
		mcp.WithObject("path_overrides",
			mcp.Description("Per-file strategy overrides: a map of tracked path to "+
				"skip|overwrite|add|merge|manual_review. Only user-overridable files honor these."),
		),
		mcp.WithObject("category_overrides",
			mcp.Description("Per-category strategy overrides, same values, keyed by file category. "+
				"A path override beats a category override."),
		),
	)
}

type applyReviewItem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type applyResponse struct {
	Success      bool              `json:"success"`
	FilesCreated int               `json:"files_created"`
	FilesUpdated int               `json:"files_updated"`
	FilesSkipped int               `json:"files_skipped"`
	FilesFailed  int               `json:"files_failed"`
	ManualReview []applyReviewItem `json:"manual_review"`
	BackupPath   string            `json:"backup_path"`
}

// Handle processes the aida_apply tool call.
func (t *ApplyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectPath, err := req.RequireString("project_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	overrides := parseOverrides(req.GetArguments())

	summary, err := t.orch.Apply(projectPath, overrides)
	if err != nil {
		switch err.(type) {
		case *scanner.InvalidProjectError, *scanner.UnsupportedLanguageError:
			return mcp.NewToolResultError(err.Error()), nil
		case *backup.Error:
			return mcp.NewToolResultError(fmt.Sprintf("aborted before any write: %v", err)), nil
		}
		return nil, fmt.Errorf("applying reconciliation: %w", err)
	}

	resp := applyResponse{
		Success:      summary.Success,
		FilesCreated: summary.FilesCreated,
		FilesUpdated: summary.FilesUpdated,
		FilesSkipped: summary.FilesSkipped,
		FilesFailed:  summary.FilesFailed,
		ManualReview: make([]applyReviewItem, 0, len(summary.ManualReview)),
		BackupPath:   summary.BackupPath,
	}
	for _, item := range summary.ManualReview {
		resp.ManualReview = append(resp.ManualReview, applyReviewItem{Path: item.Path, Message: item.Message})
	}

	payload, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding apply response: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// parseOverrides extracts the two override maps from the raw tool arguments.
// Unknown keys and non-string values are dropped; validation against the
// strategy enum happens downstream where it can be logged per file.
func parseOverrides(args map[string]any) *patcher.Overrides {
	overrides := &patcher.Overrides{
		PerPath:     map[string]registry.MergeStrategy{},
		PerCategory: map[registry.FileCategory]registry.MergeStrategy{},
	}

	if raw, ok := args["path_overrides"].(map[string]any); ok {
		for path, v := range raw {
			if s, ok := v.(string); ok {
				overrides.PerPath[path] = registry.MergeStrategy(s)
			}
		}
	}
	if raw, ok := args["category_overrides"].(map[string]any); ok {
		for category, v := range raw {
			if s, ok := v.(string); ok {
				overrides.PerCategory[registry.FileCategory(category)] = registry.MergeStrategy(s)
			}
		}
	}

	if len(overrides.PerPath) == 0 && len(overrides.PerCategory) == 0 {
		return nil
	}
	return overrides
}
