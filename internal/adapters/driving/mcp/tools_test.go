package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answer with sources", func(t *testing.T) {
		chat := &mockChatService{answer: &domain.Answer{
			Content: "The sky is blue.",
			Sources: []domain.SourceAttribution{
				{DocumentID: "doc-1", Title: "Sky", Type: "txt", Score: 0.91},
			},
		}}
		server := newTestServer(t, chat, nil, nil)

		_, out, err := server.handleAsk(ctx, nil, AskInput{Question: "What colour is the sky?", SessionID: "s1"})

		require.NoError(t, err)
		assert.Equal(t, "The sky is blue.", out.Answer)
		require.Len(t, out.Sources, 1)
		assert.Equal(t, "doc-1", out.Sources[0].DocumentID)
		assert.InDelta(t, 0.91, out.Sources[0].Score, 1e-9)
		assert.Equal(t, "owner-1", chat.owner)
		assert.Equal(t, "s1", chat.session)
	})

	t.Run("propagates errors", func(t *testing.T) {
		chat := &mockChatService{err: domain.ErrRetrievalFailed}
		server := newTestServer(t, chat, nil, nil)

		_, _, err := server.handleAsk(ctx, nil, AskInput{Question: "q"})
		assert.ErrorIs(t, err, domain.ErrRetrievalFailed)
	})
}

func TestServer_handleAddDocument(t *testing.T) {
	ctx := context.Background()
	pending := domain.NewPendingStatus("doc-1", time.Now())
	created := &domain.IndexedDocument{Document: domain.Document{ID: "doc-1"}, Status: pending}

	t.Run("creates text document without indexing", func(t *testing.T) {
		docs := &mockDocumentService{document: created}
		index := &mockIndexService{}
		server := newTestServer(t, nil, index, docs)

		_, out, err := server.handleAddDocument(ctx, nil, AddDocumentInput{Text: "hello"})

		require.NoError(t, err)
		assert.Equal(t, "pending", out.State)
		assert.Equal(t, domain.OriginText, docs.created.Origin)
		assert.Equal(t, "owner-1", docs.created.OwnerID)
		assert.Empty(t, index.indexedID)
	})

	t.Run("creates URL document and indexes it", func(t *testing.T) {
		now := time.Now()
		done := pending.Completed(4, now)
		docs := &mockDocumentService{document: created}
		index := &mockIndexService{status: &done}
		server := newTestServer(t, nil, index, docs)

		_, out, err := server.handleAddDocument(ctx, nil, AddDocumentInput{URL: "https://example.com", Index: true})

		require.NoError(t, err)
		assert.Equal(t, domain.OriginURL, docs.created.Origin)
		assert.Equal(t, "doc-1", index.indexedID)
		assert.Equal(t, "completed", out.State)
		assert.Equal(t, 4, out.Chunks)
		assert.NotEmpty(t, out.IndexedAt)
	})

	t.Run("rejects text and url together", func(t *testing.T) {
		server := newTestServer(t, nil, nil, nil)

		_, _, err := server.handleAddDocument(ctx, nil, AddDocumentInput{Text: "a", URL: "https://example.com"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestServer_handleIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("returns failed status with error", func(t *testing.T) {
		failed := domain.NewPendingStatus("doc-1", time.Now()).Failed("embedding down", 3, time.Now())
		index := &mockIndexService{status: &failed}
		server := newTestServer(t, nil, index, nil)

		_, out, err := server.handleIndex(ctx, nil, DocumentIDInput{DocumentID: "doc-1"})

		require.NoError(t, err)
		assert.Equal(t, "failed", out.State)
		assert.Equal(t, "embedding down", out.Error)
	})

	t.Run("already indexing", func(t *testing.T) {
		index := &mockIndexService{err: domain.ErrAlreadyIndexing}
		server := newTestServer(t, nil, index, nil)

		_, _, err := server.handleIndex(ctx, nil, DocumentIDInput{DocumentID: "doc-1"})
		assert.ErrorIs(t, err, domain.ErrAlreadyIndexing)
	})

	t.Run("deindex", func(t *testing.T) {
		reset := domain.NewPendingStatus("doc-1", time.Now())
		index := &mockIndexService{status: &reset}
		server := newTestServer(t, nil, index, nil)

		_, out, err := server.handleDeindex(ctx, nil, DocumentIDInput{DocumentID: "doc-1"})

		require.NoError(t, err)
		assert.Equal(t, "doc-1", index.removedID)
		assert.Equal(t, "pending", out.State)
	})
}

func TestServer_handleList(t *testing.T) {
	ctx := context.Background()
	completed := domain.IndexedDocument{
		Document: domain.Document{ID: "doc-1", Title: "Sky", Origin: domain.OriginText, FileType: "txt"},
		Status:   domain.IndexStatus{DocumentID: "doc-1", State: domain.IndexCompleted},
	}
	pending := domain.IndexedDocument{
		Document: domain.Document{ID: "doc-2", Title: "Grass", Origin: domain.OriginFile, FileType: "md"},
		Status:   domain.IndexStatus{DocumentID: "doc-2", State: domain.IndexPending},
	}

	t.Run("indexed only by default", func(t *testing.T) {
		index := &mockIndexService{indexed: []domain.IndexedDocument{completed}}
		docs := &mockDocumentService{documents: []domain.IndexedDocument{completed, pending}}
		server := newTestServer(t, nil, index, docs)

		_, out, err := server.handleList(ctx, nil, ListInput{})

		require.NoError(t, err)
		assert.Equal(t, 1, out.Count)
		assert.Equal(t, "completed", out.Documents[0].State)
	})

	t.Run("all documents", func(t *testing.T) {
		docs := &mockDocumentService{documents: []domain.IndexedDocument{completed, pending}}
		server := newTestServer(t, nil, nil, docs)

		_, out, err := server.handleList(ctx, nil, ListInput{All: true})

		require.NoError(t, err)
		assert.Equal(t, 2, out.Count)
		assert.Equal(t, "file", out.Documents[1].Origin)
	})

	t.Run("error", func(t *testing.T) {
		index := &mockIndexService{err: errors.New("db down")}
		server := newTestServer(t, nil, index, nil)

		_, _, err := server.handleList(ctx, nil, ListInput{})
		assert.Error(t, err)
	})
}
