// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the concrete scanner, patcher and
// stores and injects them into the tools that depend on them. No business
// logic lives here — only wiring.
package server

import (
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/aida-assistant/aida/internal/history"
	"github.com/aida-assistant/aida/internal/orchestrator"
	"github.com/aida-assistant/aida/internal/patcher"
	"github.com/aida-assistant/aida/internal/project"
	"github.com/aida-assistant/aida/internal/scanner"
	"github.com/aida-assistant/aida/internal/templates"
	"github.com/aida-assistant/aida/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools registered.
//
// The returned cleanup function closes the history database and must be
// called on shutdown (typically via defer). It is always non-nil and safe to
// call even if history init failed.
func New() (*server.MCPServer, func(), error) {
	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, noop, fmt.Errorf("creating template renderer: %w", err)
	}

	store := project.NewFileStore()

	// History is an independent subsystem: if its database cannot be opened,
	// plan and apply keep working and runs simply go unrecorded.
	cleanup := noop
	var runs history.Store
	runStore, histErr := history.New(history.DefaultConfig())
	if histErr != nil {
		log.Printf("WARNING: run history disabled: %v", histErr)
	} else {
		runs = runStore
		cleanup = func() {
			if err := runStore.Close(); err != nil {
				log.Printf("WARNING: history store close: %v", err)
			}
		}
	}

	orch := orchestrator.New(scanner.New(store, renderer), patcher.New(store), runs)

	s := server.NewMCPServer(
		"aida",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	planTool := tools.NewPlanTool(orch)
	s.AddTool(planTool.Definition(), planTool.Handle)

	applyTool := tools.NewApplyTool(orch)
	s.AddTool(applyTool.Definition(), applyTool.Handle)

	historyTool := tools.NewHistoryTool(runs)
	s.AddTool(historyTool.Definition(), historyTool.Handle)

	return s, cleanup, nil
}

// noop is the default cleanup when history hasn't been initialized.
func noop() {}

func serverInstructions() string {
	return `AIDA keeps generated projects aligned with their canonical templates.

Workflow:
1. Call aida_plan with the project root. It is read-only and returns the
   drift report plus the questions to ask the user.
2. Put each question to the user and collect their choice.
3. Call aida_apply with the project root and the collected overrides. Every
   file to be modified is backed up first; the response names the backup
   directory and the files that need manual review.

User-authored files (README.md, CLAUDE.md) are never touched. Dependency
manifests are never auto-edited — they come back as manual_review items.
Use aida_history to find past runs and their backup locations.`
}
