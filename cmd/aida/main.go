// AIDA: standards drift reconciliation MCP server
//
// Keeps projects generated from the canonical AIDA templates aligned with
// the current template set: it scans for drift, merges safe changes, and
// flags the rest for human review. Exposed over MCP (stdio) so any AI
// coding tool can drive the plan/apply workflow.
//
// Usage:
//
//	aida serve    # Start MCP server (stdio transport)
//	aida update   # Update to the latest version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	aidaserver "github.com/aida-assistant/aida/internal/server"
	"github.com/aida-assistant/aida/internal/updater"
)

func main() {
	// Best-effort: a .env next to the binary may set AIDA_DATA_DIR.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("aida v%s\n", aidaserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s, cleanup, err := aidaserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check — prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	// Graceful shutdown on interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	_ = ctx // stdio server manages its own lifecycle

	return server.ServeStdio(s)
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. Best-effort — network failures are
// silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(aidaserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  Update available: v%s -> v%s\n"+
				"  Run: aida update\n"+
				"  Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "Checking for updates...\n")

	result := updater.CheckVersion(aidaserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "New version available: v%s -> v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "Downloading...\n")

	if err := updater.SelfUpdate(aidaserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n  You can download manually from:\n  %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "Restart aida to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `aida v%s — standards drift reconciliation MCP server

Usage:
  aida serve      Start the MCP server on stdio
  aida update     Self-update to the latest release
  aida version    Print the version

MCP tools:
  aida_plan       Read-only drift report plus strategy questions
  aida_apply      Backup, patch, and refresh a project's tracked files
  aida_history    List past runs and their backup locations

Environment:
  AIDA_DATA_DIR   Where the run-history database lives (default ~/.aida)
`, aidaserver.Version)
}
