package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question  string `json:"question" jsonschema:"the question to answer from indexed documents"`
	SessionID string `json:"session_id,omitempty" jsonschema:"chat session to record the exchange in (default: default)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string         `json:"answer"`
	Sources []SourceOutput `json:"sources"`
}

// SourceOutput is one document that grounded an answer.
type SourceOutput struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Type       string  `json:"type"`
	Score      float64 `json:"score"`
}

// AddDocumentInput is the input schema for the add_document tool.
type AddDocumentInput struct {
	Text  string `json:"text,omitempty" jsonschema:"plain text content to store"`
	URL   string `json:"url,omitempty" jsonschema:"web page to fetch instead of text"`
	Title string `json:"title,omitempty" jsonschema:"optional title"`
	Index bool   `json:"index,omitempty" jsonschema:"index the document immediately"`
}

// DocumentIDInput names a single document.
type DocumentIDInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document id"`
}

// StatusOutput is the index status of a document.
type StatusOutput struct {
	DocumentID string `json:"document_id"`
	State      string `json:"state"`
	Chunks     int    `json:"chunks"`
	Error      string `json:"error,omitempty"`
	IndexedAt  string `json:"indexed_at,omitempty"`
}

// ListInput is the input schema for the list tool.
type ListInput struct {
	All bool `json:"all,omitempty" jsonschema:"include documents that are not indexed"`
}

// ListOutput lists documents.
type ListOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput summarises a document.
type DocumentOutput struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Origin   string `json:"origin"`
	FileType string `json:"file_type"`
	State    string `json:"state"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the indexed documents, with source attributions",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_document",
		Description: "Store a text snippet or web page as a document, optionally indexing it",
	}, s.handleAddDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index",
		Description: "Index a document so it can ground answers",
	}, s.handleIndex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "deindex",
		Description: "Remove a document from the index without deleting it",
	}, s.handleDeindex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list",
		Description: "List indexed documents",
	}, s.handleList)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Chat.Send(ctx, s.ports.OwnerID, input.SessionID, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	out := AskOutput{
		Answer:  answer.Content,
		Sources: make([]SourceOutput, len(answer.Sources)),
	}
	for i, src := range answer.Sources {
		out.Sources[i] = SourceOutput{
			DocumentID: src.DocumentID,
			Title:      src.Title,
			Type:       src.Type,
			Score:      src.Score,
		}
	}
	return nil, out, nil
}

func (s *Server) handleAddDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddDocumentInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	req := driving.CreateDocumentRequest{
		OwnerID: s.ports.OwnerID,
		Title:   input.Title,
	}
	switch {
	case input.URL != "" && input.Text != "":
		return nil, StatusOutput{}, fmt.Errorf("%w: give either text or url", domain.ErrInvalidInput)
	case input.URL != "":
		req.Origin = domain.OriginURL
		req.URL = input.URL
	default:
		req.Origin = domain.OriginText
		req.Text = input.Text
	}

	doc, err := s.ports.Document.Create(ctx, req)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	if !input.Index {
		return nil, statusOutput(&doc.Status), nil
	}

	status, err := s.ports.Index.Index(ctx, s.ports.OwnerID, doc.Document.ID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, statusOutput(status), nil
}

func (s *Server) handleIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentIDInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status, err := s.ports.Index.Index(ctx, s.ports.OwnerID, input.DocumentID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, statusOutput(status), nil
}

func (s *Server) handleDeindex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentIDInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status, err := s.ports.Index.Deindex(ctx, s.ports.OwnerID, input.DocumentID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, statusOutput(status), nil
}

func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	var (
		docs []domain.IndexedDocument
		err  error
	)
	if input.All {
		docs, err = s.ports.Document.List(ctx, s.ports.OwnerID)
	} else {
		docs, err = s.ports.Index.ListIndexed(ctx, s.ports.OwnerID)
	}
	if err != nil {
		return nil, ListOutput{}, err
	}

	out := ListOutput{Documents: documentOutputs(docs), Count: len(docs)}
	return nil, out, nil
}

func documentOutputs(docs []domain.IndexedDocument) []DocumentOutput {
	out := make([]DocumentOutput, len(docs))
	for i := range docs {
		out[i] = DocumentOutput{
			ID:       docs[i].Document.ID,
			Title:    docs[i].Document.Title,
			Origin:   docs[i].Document.Origin.String(),
			FileType: docs[i].Document.FileType,
			State:    docs[i].Status.State.String(),
		}
	}
	return out
}

func statusOutput(status *domain.IndexStatus) StatusOutput {
	out := StatusOutput{
		DocumentID: status.DocumentID,
		State:      status.State.String(),
		Chunks:     status.TotalChunks,
		Error:      status.Error,
	}
	if status.IndexedAt != nil {
		out.IndexedAt = status.IndexedAt.Format(time.RFC3339)
	}
	return out
}
