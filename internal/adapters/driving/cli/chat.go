package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about your documents",
}

var chatAskCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question",
	Long: `Answers a question from the indexed documents and lists the documents
the answer was grounded in. The question and answer are added to the
session history.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChatAsk,
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the conversation of a session",
	Args:  cobra.NoArgs,
	RunE:  runChatHistory,
}

var chatClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the conversation of a session",
	Args:  cobra.NoArgs,
	RunE:  runChatClear,
}

var chatSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List chat sessions",
	Args:  cobra.NoArgs,
	RunE:  runChatSessions,
}

var chatSession string

func init() {
	chatCmd.PersistentFlags().StringVarP(&chatSession, "session", "s", domain.DefaultSessionID, "chat session ID")

	chatCmd.AddCommand(chatAskCmd)
	chatCmd.AddCommand(chatHistoryCmd)
	chatCmd.AddCommand(chatClearCmd)
	chatCmd.AddCommand(chatSessionsCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChatAsk(cmd *cobra.Command, args []string) error {
	if err := requireChat(); err != nil {
		return err
	}

	question := strings.Join(args, " ")
	answer, err := chatService.Send(ctxOf(cmd), owner(), chatSession, question)
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}

	cmd.Println(answer.Content)
	printSources(cmd, answer.Sources)
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.SourceAttribution) {
	if len(sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, s := range sources {
		cmd.Printf("  [%d] %s (%s, %.0f%%) %s\n", i+1, s.Title, s.Type, s.Score*100, s.DocumentID)
	}
}

func runChatHistory(cmd *cobra.Command, _ []string) error {
	if err := requireChat(); err != nil {
		return err
	}

	messages, err := chatService.History(ctxOf(cmd), owner(), chatSession)
	if errors.Is(err, domain.ErrNotFound) {
		cmd.Printf("No conversation in session %q.\n", chatSession)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if len(messages) == 0 {
		cmd.Printf("No conversation in session %q.\n", chatSession)
		return nil
	}

	for i := range messages {
		m := &messages[i]
		label := "You"
		if m.Role == domain.RoleAssistant {
			label = "Assistant"
		}
		cmd.Printf("%s (%s):\n%s\n", label, m.CreatedAt.Format(timeFormat), m.Content)
		printSources(cmd, m.Sources)
		cmd.Println()
	}
	return nil
}

func runChatClear(cmd *cobra.Command, _ []string) error {
	if err := requireChat(); err != nil {
		return err
	}

	if err := chatService.ClearHistory(ctxOf(cmd), owner(), chatSession); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	cmd.Printf("Cleared session %q.\n", chatSession)
	return nil
}

func runChatSessions(cmd *cobra.Command, _ []string) error {
	if err := requireChat(); err != nil {
		return err
	}

	sessions, err := chatService.Sessions(ctxOf(cmd), owner())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		cmd.Println("No chat sessions.")
		return nil
	}

	for _, s := range sessions {
		cmd.Printf("  %s  %s  (updated %s)\n", s.ID, s.Title, s.UpdatedAt.Format(timeFormat))
	}
	return nil
}
