package cli

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for ragdesk.

The TUI lets you chat with your indexed documents, follow the cited sources,
and index, remove, open or delete documents with keyboard navigation.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Send / Select
  Tab      - Switch between prompt and sources
  Esc      - Back / Cancel
  ctrl+c   - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringP("session", "s", "", "chat session ID (default \"default\")")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if err := requireChat(); err != nil {
		return err
	}
	if err := requireIndex(); err != nil {
		return err
	}

	app, err := tui.NewApp(tui.NewPorts(chatService, indexService, documentService, owner()))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	session, err := cmd.Flags().GetString("session")
	if err != nil {
		return fmt.Errorf("getting session flag: %w", err)
	}
	app.WithContext(ctxOf(cmd))
	if session != "" {
		app.WithSession(session)
	}

	// Log lines would tear the alternate screen.
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctxOf(cmd)))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
