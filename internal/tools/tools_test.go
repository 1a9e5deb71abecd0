package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aida-assistant/aida/internal/history"
	"github.com/aida-assistant/aida/internal/orchestrator"
	"github.com/aida-assistant/aida/internal/patcher"
	"github.com/aida-assistant/aida/internal/project"
	"github.com/aida-assistant/aida/internal/registry"
	"github.com/aida-assistant/aida/internal/scanner"
	"github.com/aida-assistant/aida/internal/templates"
)

// --- Shared helpers ---

// isErrorResult reports whether a tool result carries an error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func newRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func newTestOrchestrator(t *testing.T, runs history.Store) *orchestrator.Orchestrator {
	t.Helper()
	r, err := templates.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	store := project.NewFileStore()
	return orchestrator.New(scanner.New(store, r), patcher.New(store), runs)
}

// writeGeneratedProject lays down a freshly generated python project.
func writeGeneratedProject(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	m := &project.Manifest{
		Name:             "demo-api",
		Description:      "A demo service",
		Author:           "Ada Lovelace",
		Version:          "0.3.0",
		Language:         "python",
		GeneratorVersion: templates.SetVersion,
	}
	if err := project.NewFileStore().Save(tmpDir, m); err != nil {
		t.Fatalf("setup: save manifest: %v", err)
	}

	r, err := templates.NewRenderer()
	if err != nil {
		t.Fatalf("setup: NewRenderer: %v", err)
	}
	vars := project.Variables(m, registry.LangPython)

	specs, err := registry.SpecsFor(registry.LangPython)
	if err != nil {
		t.Fatalf("setup: SpecsFor: %v", err)
	}
	for _, spec := range specs {
		if spec.TemplateID == "" || spec.Path == ".aida/aida.json" {
			continue
		}
		content, err := r.Render(spec.TemplateID, vars)
		if err != nil {
			t.Fatalf("setup: render %s: %v", spec.TemplateID, err)
		}
		path := filepath.Join(tmpDir, filepath.FromSlash(spec.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("setup: mkdir for %s: %v", spec.Path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("setup: write %s: %v", spec.Path, err)
		}
	}

	return tmpDir
}

// --- PlanTool ---

func TestPlanTool_Definition(t *testing.T) {
	def := NewPlanTool(newTestOrchestrator(t, nil)).Definition()
	if def.Name != "aida_plan" {
		t.Errorf("name = %q, want aida_plan", def.Name)
	}
}

func TestPlanTool_Handle_ReportsDrift(t *testing.T) {
	projectDir := writeGeneratedProject(t)
	if err := os.Remove(filepath.Join(projectDir, "ruff.toml")); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tool := NewPlanTool(newTestOrchestrator(t, nil))
	result, err := tool.Handle(context.Background(), newRequest(map[string]any{"project_path": projectDir}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	var resp struct {
		Language string `json:"language"`
		Files    []struct {
			Path   string `json:"path"`
			Status string `json:"status"`
		} `json:"files"`
		Questions []any `json:"questions"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}

	if resp.Language != "python" {
		t.Errorf("language = %q, want python", resp.Language)
	}
	found := false
	for _, f := range resp.Files {
		if f.Path == "ruff.toml" && f.Status == "missing" {
			found = true
		}
	}
	if !found {
		t.Error("deleted file not reported as missing")
	}
}

func TestPlanTool_Handle_MissingArgument(t *testing.T) {
	tool := NewPlanTool(newTestOrchestrator(t, nil))
	result, err := tool.Handle(context.Background(), newRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Error("missing project_path should produce an error result")
	}
}

func TestPlanTool_Handle_UninitializedProject(t *testing.T) {
	tool := NewPlanTool(newTestOrchestrator(t, nil))
	result, err := tool.Handle(context.Background(), newRequest(map[string]any{"project_path": t.TempDir()}))
	if err != nil {
		t.Fatalf("domain errors must be tool results, not protocol errors: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected an error result")
	}
	if !strings.Contains(getResultText(result), "invalid project") {
		t.Errorf("unexpected error text: %s", getResultText(result))
	}
}

// --- ApplyTool ---

func TestApplyTool_Definition(t *testing.T) {
	def := NewApplyTool(newTestOrchestrator(t, nil)).Definition()
	if def.Name != "aida_apply" {
		t.Errorf("name = %q, want aida_apply", def.Name)
	}
}

func TestApplyTool_Handle_PatchesAndSummarizes(t *testing.T) {
	projectDir := writeGeneratedProject(t)
	if err := os.Remove(filepath.Join(projectDir, "ruff.toml")); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tool := NewApplyTool(newTestOrchestrator(t, nil))
	result, err := tool.Handle(context.Background(), newRequest(map[string]any{"project_path": projectDir}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	var resp struct {
		Success      bool   `json:"success"`
		FilesCreated int    `json:"files_created"`
		BackupPath   string `json:"backup_path"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if !resp.Success {
		t.Error("success = false for a clean run")
	}
	if resp.FilesCreated != 1 {
		t.Errorf("files_created = %d, want 1", resp.FilesCreated)
	}
	if resp.BackupPath == "" {
		t.Error("no backup_path in response")
	}

	if _, err := os.Stat(filepath.Join(projectDir, "ruff.toml")); err != nil {
		t.Errorf("missing file was not created: %v", err)
	}
}

func TestApplyTool_Handle_PathOverride(t *testing.T) {
	projectDir := writeGeneratedProject(t)
	stale := "stale\n"
	if err := os.WriteFile(filepath.Join(projectDir, ".editorconfig"), []byte(stale), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tool := NewApplyTool(newTestOrchestrator(t, nil))
	result, err := tool.Handle(context.Background(), newRequest(map[string]any{
		"project_path":   projectDir,
		"path_overrides": map[string]any{".editorconfig": "skip"},
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	data, err := os.ReadFile(filepath.Join(projectDir, ".editorconfig"))
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if string(data) != stale {
		t.Error("skip override was not honored")
	}
}

func TestApplyTool_Handle_UninitializedProject(t *testing.T) {
	tool := NewApplyTool(newTestOrchestrator(t, nil))
	result, err := tool.Handle(context.Background(), newRequest(map[string]any{"project_path": t.TempDir()}))
	if err != nil {
		t.Fatalf("domain errors must be tool results, not protocol errors: %v", err)
	}
	if !isErrorResult(result) {
		t.Error("expected an error result")
	}
}

func TestParseOverrides(t *testing.T) {
	got := parseOverrides(map[string]any{
		"path_overrides":     map[string]any{".editorconfig": "skip", "bad": 42},
		"category_overrides": map[string]any{"boilerplate": "merge"},
	})
	if got == nil {
		t.Fatal("overrides dropped")
	}
	if got.PerPath[".editorconfig"] != registry.StrategySkip {
		t.Errorf("path override = %v", got.PerPath)
	}
	if _, ok := got.PerPath["bad"]; ok {
		t.Error("non-string override value should be dropped")
	}
	if got.PerCategory[registry.CategoryBoilerplate] != registry.StrategyMerge {
		t.Errorf("category override = %v", got.PerCategory)
	}

	if parseOverrides(map[string]any{}) != nil {
		t.Error("no overrides should yield nil")
	}
}

// --- HistoryTool ---

func TestHistoryTool_Definition(t *testing.T) {
	def := NewHistoryTool(nil).Definition()
	if def.Name != "aida_history" {
		t.Errorf("name = %q, want aida_history", def.Name)
	}
}

func TestHistoryTool_Handle_NilStore(t *testing.T) {
	result, err := NewHistoryTool(nil).Handle(context.Background(), newRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Error("nil store should produce an error result, not a panic")
	}
}

func TestHistoryTool_Handle_ListsRuns(t *testing.T) {
	t.Setenv("AIDA_DATA_DIR", t.TempDir())
	store, err := history.New(history.DefaultConfig())
	if err != nil {
		t.Fatalf("history.New: %v", err)
	}
	defer store.Close()

	if _, err := store.Record(history.Run{ProjectPath: "/tmp/demo", Language: "python", FilesUpdated: 2}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	result, err := NewHistoryTool(store).Handle(context.Background(), newRequest(map[string]any{"project_path": "/tmp/demo"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	var resp struct {
		Runs []history.Run `json:"runs"`
	}
	if err := json.Unmarshal([]byte(getResultText(result)), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if len(resp.Runs) != 1 || resp.Runs[0].FilesUpdated != 2 {
		t.Errorf("runs = %+v, want the one recorded run", resp.Runs)
	}
}
