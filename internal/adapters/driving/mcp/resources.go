package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// uriScheme is the URI scheme for ragdesk resources.
const uriScheme = "ragdesk://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "All documents with their index state",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Extracted text of a specific document",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sessions/{sessionId}/history",
		Name:        "chat-history",
		Description: "Messages of a chat session in order",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)
}

func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Document.List(ctx, s.ports.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return jsonResource(req.Params.URI, documentOutputs(docs))
}

func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Document.Get(ctx, s.ports.OwnerID, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     doc.Document.Content,
		}},
	}, nil
}

type historyMessage struct {
	Role      string                     `json:"role"`
	Content   string                     `json:"content"`
	Sources   []domain.SourceAttribution `json:"sources,omitempty"`
	CreatedAt string                     `json:"created_at"`
}

func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sessionID := extractSessionID(req.Params.URI)
	if sessionID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	messages, err := s.ports.Chat.History(ctx, s.ports.OwnerID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting history: %w", err)
	}

	out := make([]historyMessage, len(messages))
	for i := range messages {
		out[i] = historyMessage{
			Role:      string(messages[i].Role),
			Content:   messages[i].Content,
			Sources:   messages[i].Sources,
			CreatedAt: messages[i].CreatedAt.Format(time.RFC3339),
		}
	}
	return jsonResource(req.Params.URI, out)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID extracts the document ID from ragdesk://documents/{documentId}.
func extractDocumentID(uri string) string {
	id, ok := strings.CutPrefix(uri, uriScheme+"documents/")
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}

// extractSessionID extracts the session ID from ragdesk://sessions/{sessionId}/history.
func extractSessionID(uri string) string {
	rest, ok := strings.CutPrefix(uri, uriScheme+"sessions/")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, "/history")
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
