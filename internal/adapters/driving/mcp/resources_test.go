package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		uri      string
		expected string
	}{
		{"ragdesk://documents/doc-456", "doc-456"},
		{"file://documents/doc-456", ""},
		{"ragdesk://documents/doc-456/extra", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDocumentID(tt.uri))
		})
	}
}

func TestExtractSessionID(t *testing.T) {
	tests := []struct {
		uri      string
		expected string
	}{
		{"ragdesk://sessions/default/history", "default"},
		{"ragdesk://sessions/default", ""},
		{"ragdesk://sessions/a/b/history", ""},
		{"other://sessions/default/history", ""},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractSessionID(tt.uri))
		})
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	docs := &mockDocumentService{documents: []domain.IndexedDocument{{
		Document: domain.Document{ID: "doc-1", Title: "Sky", Origin: domain.OriginText},
		Status:   domain.IndexStatus{State: domain.IndexCompleted},
	}}}
	server := newTestServer(t, nil, nil, docs)

	result, err := server.handleDocumentsResource(context.Background(), readRequest("ragdesk://documents"))

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	assert.Contains(t, result.Contents[0].Text, `"id": "doc-1"`)
	assert.Contains(t, result.Contents[0].Text, `"state": "completed"`)
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns content", func(t *testing.T) {
		docs := &mockDocumentService{document: &domain.IndexedDocument{
			Document: domain.Document{ID: "doc-1", Content: "The sky is blue."},
		}}
		server := newTestServer(t, nil, nil, docs)

		result, err := server.handleDocumentContentResource(ctx, readRequest("ragdesk://documents/doc-1"))

		require.NoError(t, err)
		assert.Equal(t, "The sky is blue.", result.Contents[0].Text)
		assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
	})

	t.Run("unknown document", func(t *testing.T) {
		docs := &mockDocumentService{err: domain.ErrNotFound}
		server := newTestServer(t, nil, nil, docs)

		_, err := server.handleDocumentContentResource(ctx, readRequest("ragdesk://documents/missing"))
		assert.Error(t, err)
	})

	t.Run("malformed uri", func(t *testing.T) {
		server := newTestServer(t, nil, nil, nil)

		_, err := server.handleDocumentContentResource(ctx, readRequest("ragdesk://documents/"))
		assert.Error(t, err)
	})

	t.Run("store error", func(t *testing.T) {
		docs := &mockDocumentService{err: errors.New("db down")}
		server := newTestServer(t, nil, nil, docs)

		_, err := server.handleDocumentContentResource(ctx, readRequest("ragdesk://documents/doc-1"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestServer_handleHistoryResource(t *testing.T) {
	chat := &mockChatService{history: []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "What colour is the sky?", CreatedAt: time.Now()},
		{
			Role:    domain.RoleAssistant,
			Content: "Blue.",
			Sources: []domain.SourceAttribution{{DocumentID: "doc-1", Title: "Sky", Score: 0.9}},
		},
	}}
	server := newTestServer(t, chat, nil, nil)

	result, err := server.handleHistoryResource(context.Background(), readRequest("ragdesk://sessions/default/history"))

	require.NoError(t, err)
	assert.Equal(t, "default", chat.session)
	text := result.Contents[0].Text
	assert.Contains(t, text, `"role": "user"`)
	assert.Contains(t, text, `"documentId": "doc-1"`)
}
