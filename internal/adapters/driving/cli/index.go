package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
	Long: `Index documents for retrieval, remove them again, or clear the index.

Indexing splits a document into overlapping chunks, embeds each chunk and
stores the vectors. Only documents with status "completed" are used to
answer questions.`,
}

var indexRunCmd = &cobra.Command{
	Use:   "run [doc-id]",
	Short: "Index a document",
	Long:  `Indexes a document, replacing any vectors from an earlier run.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRun,
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove [doc-id]",
	Short: "Remove a document from the index",
	Long:  `Deletes a document's chunks and vectors. The document itself is kept.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRemove,
}

var indexClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every document from the index",
	Long: `Deindexes all of the owner's documents and deletes their chat history.
Documents are kept and can be indexed again.`,
	Args: cobra.NoArgs,
	RunE: runIndexClear,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runIndexList,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status [doc-id]",
	Short: "Show a document's index status",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexStatus,
}

var indexChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "Print the indexed chunks of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexChunks,
}

var clearConfirmed bool

func init() {
	indexClearCmd.Flags().BoolVarP(&clearConfirmed, "yes", "y", false, "confirm clearing the index")

	indexCmd.AddCommand(indexRunCmd)
	indexCmd.AddCommand(indexRemoveCmd)
	indexCmd.AddCommand(indexClearCmd)
	indexCmd.AddCommand(indexListCmd)
	indexCmd.AddCommand(indexStatusCmd)
	indexCmd.AddCommand(indexChunksCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexRun(cmd *cobra.Command, args []string) error {
	if err := requireIndex(); err != nil {
		return err
	}
	return indexAndReport(cmd, args[0])
}

// indexAndReport indexes a document and prints the final status.
// A failed run still prints the recorded status before returning the error.
func indexAndReport(cmd *cobra.Command, documentID string) error {
	cmd.Printf("Indexing %s...\n", documentID)

	status, err := indexService.Index(ctxOf(cmd), owner(), documentID)
	if status != nil {
		printStatus(cmd, status)
	}
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	return nil
}

func runIndexRemove(cmd *cobra.Command, args []string) error {
	if err := requireIndex(); err != nil {
		return err
	}

	status, err := indexService.Deindex(ctxOf(cmd), owner(), args[0])
	if err != nil {
		return fmt.Errorf("failed to remove document from index: %w", err)
	}

	cmd.Printf("Document %s removed from index.\n", args[0])
	printStatus(cmd, status)
	return nil
}

func runIndexClear(cmd *cobra.Command, _ []string) error {
	if err := requireIndex(); err != nil {
		return err
	}
	if !clearConfirmed {
		return fmt.Errorf("%w: pass --yes to clear the index for %s", domain.ErrInvalidInput, owner())
	}

	if err := indexService.ClearAll(ctxOf(cmd), owner()); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	cmd.Println("Index cleared.")
	return nil
}

func runIndexList(cmd *cobra.Command, _ []string) error {
	if err := requireIndex(); err != nil {
		return err
	}

	docs, err := indexService.ListIndexed(ctxOf(cmd), owner())
	if err != nil {
		return fmt.Errorf("failed to list indexed documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No indexed documents.")
		return nil
	}

	printDocuments(cmd, docs)
	cmd.Printf("Total: %d indexed documents\n", len(docs))
	return nil
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	if err := requireIndex(); err != nil {
		return err
	}

	status, err := indexService.Status(ctxOf(cmd), owner(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	printStatus(cmd, status)
	return nil
}

func runIndexChunks(cmd *cobra.Command, args []string) error {
	if err := requireIndex(); err != nil {
		return err
	}

	chunks, err := indexService.Chunks(ctxOf(cmd), owner(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}

	if len(chunks) == 0 {
		cmd.Println("Document is not indexed.")
		return nil
	}

	for _, c := range chunks {
		cmd.Printf("── chunk %d (runes %d-%d) ──\n%s\n\n", c.Index, c.Start, c.End, c.Text)
	}
	return nil
}

func printStatus(cmd *cobra.Command, status *domain.IndexStatus) {
	cmd.Printf("  Status:  %s\n", status.State)
	cmd.Printf("  Chunks:  %d/%d\n", status.ProcessedChunks, status.TotalChunks)
	if status.IndexedAt != nil {
		cmd.Printf("  Indexed: %s\n", status.IndexedAt.Format(timeFormat))
	}
	if status.Error != "" {
		cmd.Printf("  Error:   %s\n", status.Error)
	}
}
