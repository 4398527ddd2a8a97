package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

const timeFormat = "2006-01-02 15:04:05"

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage documents",
	Long:  `Add, list, view, open and delete documents.`,
}

var documentAddTextCmd = &cobra.Command{
	Use:   "add-text [text]",
	Short: "Add a text document",
	Long:  `Adds the given text as a document. Use "-" to read the text from stdin.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocumentAddText,
}

var documentAddFileCmd = &cobra.Command{
	Use:   "add-file [path]",
	Short: "Add a file as a document",
	Long: `Extracts the text of a file and adds it as a document. A copy of the file
is kept in the data directory until the document is deleted.

Supported types: ` + "txt, md, json, csv, pdf, html, docx, eml",
	Args: cobra.ExactArgs(1),
	RunE: runDocumentAddFile,
}

var documentAddURLCmd = &cobra.Command{
	Use:   "add-url [url]",
	Short: "Add a web page as a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentAddURL,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents with their index status",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print document content",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentDetailsCmd = &cobra.Command{
	Use:   "details [doc-id]",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDetails,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document",
	Long:  `Deletes a document together with its chunks, vectors and stored file.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentOpenCmd = &cobra.Command{
	Use:   "open [doc-id]",
	Short: "Open document in default application",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentOpen,
}

var (
	docTitle    string
	docIndexNow bool
)

func init() {
	for _, c := range []*cobra.Command{documentAddTextCmd, documentAddFileCmd, documentAddURLCmd} {
		c.Flags().StringVarP(&docTitle, "title", "t", "", "document title")
		c.Flags().BoolVarP(&docIndexNow, "index", "i", false, "index the document after adding it")
	}

	documentCmd.AddCommand(documentAddTextCmd)
	documentCmd.AddCommand(documentAddFileCmd)
	documentCmd.AddCommand(documentAddURLCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentDetailsCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentOpenCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentAddText(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	return createDocument(cmd, driving.CreateDocumentRequest{Origin: domain.OriginText, Text: text})
}

func runDocumentAddFile(cmd *cobra.Command, args []string) error {
	return createDocument(cmd, driving.CreateDocumentRequest{Origin: domain.OriginFile, FilePath: args[0]})
}

func runDocumentAddURL(cmd *cobra.Command, args []string) error {
	return createDocument(cmd, driving.CreateDocumentRequest{Origin: domain.OriginURL, URL: args[0]})
}

func createDocument(cmd *cobra.Command, req driving.CreateDocumentRequest) error {
	if err := requireDocuments(); err != nil {
		return err
	}
	if docIndexNow {
		if err := requireIndex(); err != nil {
			return err
		}
	}

	req.OwnerID = owner()
	req.Title = docTitle

	doc, err := documentService.Create(ctxOf(cmd), req)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	cmd.Printf("Added document %s (%s)\n", doc.Document.ID, doc.Document.Title)

	if !docIndexNow {
		return nil
	}
	return indexAndReport(cmd, doc.Document.ID)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	docs, err := documentService.List(ctxOf(cmd), owner())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents yet. Add one with 'ragdesk document add-text'.")
		return nil
	}

	printDocuments(cmd, docs)
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func printDocuments(cmd *cobra.Command, docs []domain.IndexedDocument) {
	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %s\n", d.Document.ID)
		cmd.Printf("    Title:  %s\n", d.Document.Title)
		cmd.Printf("    Type:   %s (%s)\n", d.Document.FileType, d.Document.Origin)
		cmd.Printf("    Status: %s", d.Status.State)
		if d.Status.State == domain.IndexCompleted {
			cmd.Printf(" (%d chunks)", d.Status.TotalChunks)
		}
		if d.Status.Error != "" {
			cmd.Printf(": %s", d.Status.Error)
		}
		cmd.Println()
		cmd.Println()
	}
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	doc, err := documentService.Get(ctxOf(cmd), owner(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.Document.ID)
	cmd.Printf("  Title:    %s\n", doc.Document.Title)
	cmd.Printf("  Origin:   %s\n", doc.Document.Origin)
	cmd.Printf("  Type:     %s\n", doc.Document.FileType)
	if doc.Document.URL != "" {
		cmd.Printf("  URL:      %s\n", doc.Document.URL)
	}
	cmd.Printf("  Size:     %d bytes\n", doc.Document.Size)
	cmd.Printf("  Status:   %s\n", doc.Status.State)
	cmd.Printf("  Created:  %s\n", doc.Document.CreatedAt.Format(timeFormat))
	if doc.Status.IndexedAt != nil {
		cmd.Printf("  Indexed:  %s\n", doc.Status.IndexedAt.Format(timeFormat))
	}

	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	doc, err := documentService.Get(ctxOf(cmd), owner(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document content: %w", err)
	}

	cmd.Println(doc.Document.Content)
	return nil
}

func runDocumentDetails(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	details, err := documentService.GetDetails(ctxOf(cmd), owner(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document details: %w", err)
	}

	cmd.Printf("Document Details: %s\n\n", details.ID)
	cmd.Printf("  Title:       %s\n", details.Title)
	cmd.Printf("  Origin:      %s\n", details.Origin)
	cmd.Printf("  Type:        %s\n", details.FileType)
	if details.Location != "" {
		cmd.Printf("  Location:    %s\n", details.Location)
	}
	cmd.Printf("  Size:        %d bytes\n", details.Size)
	cmd.Printf("  Status:      %s\n", details.Status)
	if details.Error != "" {
		cmd.Printf("  Error:       %s\n", details.Error)
	}
	cmd.Printf("  Chunks:      %d\n", details.ChunkCount)
	cmd.Printf("  Created:     %s\n", details.CreatedAt.Format(timeFormat))
	if details.IndexedAt != nil {
		cmd.Printf("  Indexed:     %s\n", details.IndexedAt.Format(timeFormat))
	}

	if len(details.Metadata) > 0 {
		cmd.Println("\n  Metadata:")
		for _, k := range slices.Sorted(maps.Keys(details.Metadata)) {
			cmd.Printf("    %s: %s\n", k, details.Metadata[k])
		}
	}

	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	if err := documentService.Delete(ctxOf(cmd), owner(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}

func runDocumentOpen(cmd *cobra.Command, args []string) error {
	if err := requireDocuments(); err != nil {
		return err
	}

	if err := documentService.Open(ctxOf(cmd), owner(), args[0]); err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}

	cmd.Printf("Opened document %s in default application.\n", args[0])
	return nil
}
