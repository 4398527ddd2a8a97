package mcp

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer   *domain.Answer
	history  []domain.ChatMessage
	err      error
	owner    string
	session  string
	question string
}

func (m *mockChatService) Send(_ context.Context, ownerID, sessionID, message string) (*domain.Answer, error) {
	m.owner, m.session, m.question = ownerID, sessionID, message
	return m.answer, m.err
}

func (m *mockChatService) History(_ context.Context, _, sessionID string) ([]domain.ChatMessage, error) {
	m.session = sessionID
	return m.history, m.err
}

func (m *mockChatService) ClearHistory(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockChatService) Sessions(_ context.Context, _ string) ([]domain.ChatSession, error) {
	return nil, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	status    *domain.IndexStatus
	indexed   []domain.IndexedDocument
	err       error
	indexedID string
	removedID string
}

func (m *mockIndexService) Index(_ context.Context, _, documentID string) (*domain.IndexStatus, error) {
	m.indexedID = documentID
	return m.status, m.err
}

func (m *mockIndexService) Deindex(_ context.Context, _, documentID string) (*domain.IndexStatus, error) {
	m.removedID = documentID
	return m.status, m.err
}

func (m *mockIndexService) ClearAll(_ context.Context, _ string) error {
	return m.err
}

func (m *mockIndexService) ListIndexed(_ context.Context, _ string) ([]domain.IndexedDocument, error) {
	return m.indexed, m.err
}

func (m *mockIndexService) Status(_ context.Context, _, _ string) (*domain.IndexStatus, error) {
	return m.status, m.err
}

func (m *mockIndexService) Chunks(_ context.Context, _, _ string) ([]domain.Chunk, error) {
	return nil, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.IndexedDocument
	document  *domain.IndexedDocument
	err       error
	created   *driving.CreateDocumentRequest
}

func (m *mockDocumentService) Create(_ context.Context, req driving.CreateDocumentRequest) (*domain.IndexedDocument, error) {
	m.created = &req
	return m.document, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _, _ string) (*domain.IndexedDocument, error) {
	return m.document, m.err
}

func (m *mockDocumentService) List(_ context.Context, _ string) ([]domain.IndexedDocument, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) GetDetails(_ context.Context, _, _ string) (*driving.DocumentDetails, error) {
	return nil, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockDocumentService) Open(_ context.Context, _, _ string) error {
	return m.err
}

func newTestServer(t interface{ Fatalf(string, ...any) }, chat *mockChatService, index *mockIndexService, docs *mockDocumentService) *Server {
	if chat == nil {
		chat = &mockChatService{}
	}
	if index == nil {
		index = &mockIndexService{}
	}
	if docs == nil {
		docs = &mockDocumentService{}
	}
	server, err := NewServer(&Ports{Chat: chat, Index: index, Document: docs, OwnerID: "owner-1"})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return server
}
