package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// mockDocumentService is an in-memory driving.DocumentService.
type mockDocumentService struct {
	docs    map[string]*domain.IndexedDocument
	created []driving.CreateDocumentRequest
	deleted []string
	opened  []string
}

func newMockDocumentService() *mockDocumentService {
	return &mockDocumentService{docs: make(map[string]*domain.IndexedDocument)}
}

func (m *mockDocumentService) add(id, title string, state domain.IndexState) {
	m.docs[id] = &domain.IndexedDocument{
		Document: domain.Document{
			ID: id, OwnerID: DefaultOwner, Title: title, Content: "content of " + id,
			Origin: domain.OriginText, FileType: "txt", CreatedAt: time.Now(),
		},
		Status: domain.IndexStatus{DocumentID: id, State: state},
	}
}

func (m *mockDocumentService) Create(_ context.Context, req driving.CreateDocumentRequest) (*domain.IndexedDocument, error) {
	if req.Origin == domain.OriginText && req.Text == "" {
		return nil, domain.ErrInvalidInput
	}
	m.created = append(m.created, req)
	id := "doc-new"
	title := req.Title
	if title == "" {
		title = "Untitled"
	}
	m.add(id, title, domain.IndexPending)
	return m.docs[id], nil
}

func (m *mockDocumentService) Get(_ context.Context, ownerID, documentID string) (*domain.IndexedDocument, error) {
	doc, ok := m.docs[documentID]
	if !ok || !doc.Document.OwnedBy(ownerID) {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockDocumentService) List(_ context.Context, ownerID string) ([]domain.IndexedDocument, error) {
	var out []domain.IndexedDocument
	for _, d := range m.docs {
		if d.Document.OwnedBy(ownerID) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDocumentService) GetDetails(ctx context.Context, ownerID, documentID string) (*driving.DocumentDetails, error) {
	doc, err := m.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	return &driving.DocumentDetails{
		ID:       doc.Document.ID,
		Title:    doc.Document.Title,
		Origin:   doc.Document.Origin,
		FileType: doc.Document.FileType,
		Status:   doc.Status.State,
		Metadata: map[string]string{"manual": "true"},
	}, nil
}

func (m *mockDocumentService) Delete(ctx context.Context, ownerID, documentID string) error {
	if _, err := m.Get(ctx, ownerID, documentID); err != nil {
		return err
	}
	delete(m.docs, documentID)
	m.deleted = append(m.deleted, documentID)
	return nil
}

func (m *mockDocumentService) Open(ctx context.Context, ownerID, documentID string) error {
	if _, err := m.Get(ctx, ownerID, documentID); err != nil {
		return err
	}
	m.opened = append(m.opened, documentID)
	return nil
}

// mockIndexService indexes documents of a mockDocumentService.
type mockIndexService struct {
	docs     *mockDocumentService
	indexErr error
	cleared  []string
}

func (m *mockIndexService) Index(ctx context.Context, ownerID, documentID string) (*domain.IndexStatus, error) {
	doc, err := m.docs.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	if m.indexErr != nil {
		doc.Status = domain.IndexStatus{DocumentID: documentID, State: domain.IndexFailed, Error: m.indexErr.Error()}
		return &doc.Status, m.indexErr
	}
	now := time.Now()
	doc.Status = domain.IndexStatus{
		DocumentID: documentID, State: domain.IndexCompleted,
		TotalChunks: 2, ProcessedChunks: 2, IndexedAt: &now,
	}
	return &doc.Status, nil
}

func (m *mockIndexService) Deindex(ctx context.Context, ownerID, documentID string) (*domain.IndexStatus, error) {
	doc, err := m.docs.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	doc.Status = domain.IndexStatus{DocumentID: documentID, State: domain.IndexPending}
	return &doc.Status, nil
}

func (m *mockIndexService) ClearAll(_ context.Context, ownerID string) error {
	m.cleared = append(m.cleared, ownerID)
	for _, d := range m.docs.docs {
		d.Status.State = domain.IndexPending
	}
	return nil
}

func (m *mockIndexService) ListIndexed(ctx context.Context, ownerID string) ([]domain.IndexedDocument, error) {
	all, _ := m.docs.List(ctx, ownerID)
	var out []domain.IndexedDocument
	for _, d := range all {
		if d.Status.State == domain.IndexCompleted {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockIndexService) Status(ctx context.Context, ownerID, documentID string) (*domain.IndexStatus, error) {
	doc, err := m.docs.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	return &doc.Status, nil
}

func (m *mockIndexService) Chunks(ctx context.Context, ownerID, documentID string) ([]domain.Chunk, error) {
	doc, err := m.docs.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status.State != domain.IndexCompleted {
		return nil, nil
	}
	return []domain.Chunk{
		{DocumentID: documentID, Index: 0, Text: "first", Start: 0, End: 5},
		{DocumentID: documentID, Index: 1, Text: "second", Start: 4, End: 10},
	}, nil
}

// mockChatService answers every question with a fixed reply.
type mockChatService struct {
	history map[string][]domain.ChatMessage
	sendErr error
}

func (m *mockChatService) Send(_ context.Context, _, sessionID, message string) (*domain.Answer, error) {
	m.history[sessionID] = append(m.history[sessionID], domain.ChatMessage{Role: domain.RoleUser, Content: message})
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	answer := &domain.Answer{
		Content: "The sky is blue.",
		Sources: []domain.SourceAttribution{{DocumentID: "doc-1", Title: "Sky facts", Type: "txt", Score: 0.92}},
	}
	m.history[sessionID] = append(m.history[sessionID],
		domain.ChatMessage{Role: domain.RoleAssistant, Content: answer.Content, Sources: answer.Sources})
	return answer, nil
}

func (m *mockChatService) History(_ context.Context, _, sessionID string) ([]domain.ChatMessage, error) {
	msgs, ok := m.history[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return msgs, nil
}

func (m *mockChatService) ClearHistory(_ context.Context, _, sessionID string) error {
	delete(m.history, sessionID)
	return nil
}

func (m *mockChatService) Sessions(context.Context, string) ([]domain.ChatSession, error) {
	sessions := make([]domain.ChatSession, 0, len(m.history))
	for id := range m.history {
		sessions = append(sessions, domain.ChatSession{ID: id, Title: domain.DefaultSessionTitle})
	}
	return sessions, nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	docs  *mockDocumentService
	index *mockIndexService
	chat  *mockChatService
}

// setupTestServices installs mock services and returns a cleanup func.
func setupTestServices() (*testServices, func()) {
	docs := newMockDocumentService()
	docs.add("doc-1", "Sky facts", domain.IndexCompleted)
	docs.add("doc-2", "Grass facts", domain.IndexPending)

	ts := &testServices{
		docs:  docs,
		index: &mockIndexService{docs: docs},
		chat:  &mockChatService{history: make(map[string][]domain.ChatMessage)},
	}
	SetServices(&Services{
		Document: ts.docs,
		Index:    ts.index,
		Chat:     ts.chat,
	})

	return ts, func() {
		SetServices(&Services{})
		docTitle = ""
		docIndexNow = false
		clearConfirmed = false
		chatSession = domain.DefaultSessionID
		watchOnce = false
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"verbose", "owner", "data-dir", "ephemeral"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestOwner_Resolution(t *testing.T) {
	t.Setenv("RAGDESK_OWNER", "")
	flagOwner = ""
	assert.Equal(t, DefaultOwner, owner())

	t.Setenv("RAGDESK_OWNER", "from-env")
	assert.Equal(t, "from-env", owner())

	flagOwner = "from-flag"
	defer func() { flagOwner = "" }()
	assert.Equal(t, "from-flag", owner())
}

func TestSetup_RunsBootstrap(t *testing.T) {
	var got Options
	SetBootstrap(func(_ context.Context, opts Options) (*Services, error) {
		got = opts
		return &Services{}, nil
	})
	defer SetBootstrap(nil)

	_, err := execute(t, "--ephemeral", "--data-dir", "/tmp/rd", "chat", "sessions")

	// chat is unavailable because the bootstrap built no chat service.
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.True(t, got.Ephemeral)
	assert.Equal(t, "/tmp/rd", got.DataDir)
	assert.False(t, got.SettingsOnly)

	flagEphemeral = false
	flagDataDir = ""
	SetServices(&Services{})
}

func TestSetup_SettingsOnlyAnnotation(t *testing.T) {
	var got Options
	SetBootstrap(func(_ context.Context, opts Options) (*Services, error) {
		got = opts
		return &Services{}, nil
	})
	defer SetBootstrap(nil)

	_, err := execute(t, "settings", "show")

	require.Error(t, err)
	assert.True(t, got.SettingsOnly)
}

func TestSetup_VersionSkipsBootstrap(t *testing.T) {
	called := false
	SetBootstrap(func(context.Context, Options) (*Services, error) {
		called = true
		return &Services{}, nil
	})
	defer SetBootstrap(nil)

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "ragdesk version")
	assert.False(t, called)
}

func TestRequireIndex_ReportsAIError(t *testing.T) {
	SetServices(&Services{AIErr: domain.ErrProviderUnavailable})
	defer SetServices(&Services{})

	err := requireIndex()

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
