package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aida-assistant/aida/internal/history"
)

// HistoryTool handles the aida_history MCP tool: the log of past apply runs.
type HistoryTool struct {
	runs history.Store
}

// NewHistoryTool creates a HistoryTool backed by the given run log. A nil
// store is allowed; the tool then reports that history is unavailable.
func NewHistoryTool(runs history.Store) *HistoryTool {
	return &HistoryTool{runs: runs}
}

// Definition returns the MCP tool definition for registration.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("aida_history",
		mcp.WithDescription(
			"List past reconciliation runs: when they ran, what they changed, and "+
				"where the backup snapshot lives. Useful for finding the backup to "+
				"restore from after an unwanted apply.",
		),
		mcp.WithString("project_path",
			mcp.Description("Filter runs to one project root. Omit for runs across all projects."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of runs to return (default 20)."),
		),
	)
}

// Handle processes the aida_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.runs == nil {
		return mcp.NewToolResultError("run history is unavailable: the history database could not be opened"), nil
	}

	projectPath := req.GetString("project_path", "")
	limit := req.GetInt("limit", 20)

	runs, err := t.runs.Recent(projectPath, limit)
	if err != nil {
		return nil, fmt.Errorf("listing run history: %w", err)
	}
	if runs == nil {
		runs = []history.Run{}
	}

	payload, err := json.MarshalIndent(map[string]any{"runs": runs}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding history response: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
