// Package cli implements the ragdesk command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// DefaultOwner is used when neither --owner nor RAGDESK_OWNER is set.
const DefaultOwner = "local"

// Command annotations read by setup.
const (
	// skipBootstrap marks commands that run without any services.
	skipBootstrap = "skip-bootstrap"
	// settingsOnly marks commands that only need the settings service.
	settingsOnly = "settings-only"
)

// Options are the global flags passed to the bootstrap function.
type Options struct {
	DataDir   string
	Ephemeral bool
	Verbose   bool
	// SettingsOnly skips building the stores and AI providers.
	SettingsOnly bool
}

// Services are the driving ports the commands call.
//
// AIErr is set when settings load but the AI providers could not be built.
// Document listing and settings still work; indexing and chat report AIErr.
type Services struct {
	Document   driving.DocumentService
	Index      driving.IndexService
	Chat       driving.ChatService
	Settings   driving.SettingsService
	FolderSync driving.FolderSyncService
	AIErr      error
	Close      func()
}

// BootstrapFunc builds the services for one invocation.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, error)

var (
	bootstrap BootstrapFunc
	closeFn   func()

	documentService driving.DocumentService
	indexService    driving.IndexService
	chatService     driving.ChatService
	settingsService driving.SettingsService
	folderSync      driving.FolderSyncService
	aiErr           error

	flagVerbose   bool
	flagOwner     string
	flagDataDir   string
	flagEphemeral bool
)

var rootCmd = &cobra.Command{
	Use:   "ragdesk",
	Short: "Chat with your documents",
	Long: `ragdesk indexes your text, files and web pages into a vector index and
answers questions grounded in them, citing the documents it used.

Configure AI providers with 'ragdesk settings', add documents with
'ragdesk document add-*', index them with 'ragdesk index run' and ask
questions with 'ragdesk chat ask' or the interactive 'ragdesk tui'.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&flagOwner, "owner", "", "owner ID documents and chats belong to (default $RAGDESK_OWNER or \"local\")")
	flags.StringVar(&flagDataDir, "data-dir", "", "directory for the database and stored files (default ~/.ragdesk)")
	flags.BoolVar(&flagEphemeral, "ephemeral", false, "keep everything in memory for this run")
}

// Execute runs the root command and releases the services it used.
func Execute(ctx context.Context) error {
	defer teardown()
	return rootCmd.ExecuteContext(ctx)
}

// SetBootstrap registers the function that wires services before a command runs.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs services directly, bypassing the bootstrap function.
func SetServices(s *Services) {
	documentService = s.Document
	indexService = s.Index
	chatService = s.Chat
	settingsService = s.Settings
	folderSync = s.FolderSync
	aiErr = s.AIErr
	closeFn = s.Close
}

func setup(cmd *cobra.Command, _ []string) error {
	// A missing .env is the common case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Could not load .env: %v", err)
	}
	logger.SetVerbose(flagVerbose)

	if _, skip := cmd.Annotations[skipBootstrap]; skip || bootstrap == nil {
		return nil
	}

	_, only := cmd.Annotations[settingsOnly]
	s, err := bootstrap(ctxOf(cmd), Options{
		DataDir:      flagDataDir,
		Ephemeral:    flagEphemeral,
		Verbose:      flagVerbose,
		SettingsOnly: only,
	})
	if err != nil {
		return err
	}
	SetServices(s)
	return nil
}

func teardown() {
	if closeFn != nil {
		closeFn()
		closeFn = nil
	}
}

// owner resolves the acting owner ID.
func owner() string {
	if flagOwner != "" {
		return flagOwner
	}
	if env := os.Getenv("RAGDESK_OWNER"); env != "" {
		return env
	}
	return DefaultOwner
}

// ctxOf returns the command context, or Background when run outside Execute.
func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// notConfigured wraps aiErr for commands that need the AI providers.
func notConfigured(what string) error {
	if aiErr != nil {
		return fmt.Errorf("%s unavailable: %w", what, aiErr)
	}
	return fmt.Errorf("%s unavailable: %w", what, domain.ErrNotConfigured)
}

func requireDocuments() error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	return nil
}

func requireIndex() error {
	if indexService == nil {
		return notConfigured("index service")
	}
	return nil
}

func requireChat() error {
	if chatService == nil {
		return notConfigured("chat service")
	}
	return nil
}
