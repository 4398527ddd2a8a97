package doccontent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// MockIndexService implements driving.IndexService for testing.
type MockIndexService struct {
	ChunksFunc func(ctx context.Context, ownerID, documentID string) ([]domain.Chunk, error)
	calls      int
}

func (m *MockIndexService) Index(context.Context, string, string) (*domain.IndexStatus, error) {
	return nil, nil
}

func (m *MockIndexService) Deindex(context.Context, string, string) (*domain.IndexStatus, error) {
	return nil, nil
}

func (m *MockIndexService) ClearAll(context.Context, string) error { return nil }

func (m *MockIndexService) ListIndexed(context.Context, string) ([]domain.IndexedDocument, error) {
	return nil, nil
}

func (m *MockIndexService) Status(context.Context, string, string) (*domain.IndexStatus, error) {
	return nil, nil
}

func (m *MockIndexService) Chunks(ctx context.Context, ownerID, documentID string) ([]domain.Chunk, error) {
	m.calls++
	if m.ChunksFunc != nil {
		return m.ChunksFunc(ctx, ownerID, documentID)
	}
	return nil, nil
}

func sampleDoc(content string) domain.IndexedDocument {
	return domain.IndexedDocument{
		Document: domain.Document{ID: "doc-1", Title: "Notes", Content: content},
		Status:   domain.IndexStatus{DocumentID: "doc-1", State: domain.IndexCompleted, TotalChunks: 2},
	}
}

func key(s string) tea.KeyMsg {
	if s == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func numberedLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %02d", i+1)
	}
	return strings.Join(lines, "\n")
}

func TestNewView(t *testing.T) {
	view := NewView(styles.DefaultStyles(), &MockIndexService{}, "owner-1")

	require.NotNil(t, view)
	assert.Nil(t, view.Document())
	assert.Nil(t, view.Init())
	assert.Contains(t, view.View(), "Document Content")
	assert.Contains(t, view.View(), "(No content)")
}

func TestNewView_NilStyles(t *testing.T) {
	assert.NotNil(t, NewView(nil, nil, "").styles)
}

func TestView_SetDocument(t *testing.T) {
	view := NewView(nil, nil, "o")
	view.SetDimensions(80, 24)

	view.SetDocument(sampleDoc("hello\nworld"), messages.ViewChat)

	require.NotNil(t, view.Document())
	assert.Equal(t, []string{"hello", "world"}, view.Lines())
	out := view.View()
	assert.Contains(t, out, "Notes")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "[t] chunks")
}

func TestView_UntitledUsesID(t *testing.T) {
	view := NewView(nil, nil, "o")
	doc := sampleDoc("x")
	doc.Document.Title = ""

	view.SetDocument(doc, messages.ViewDocuments)

	assert.Contains(t, view.View(), "doc-1")
}

func TestView_EscReturnsToOrigin(t *testing.T) {
	for _, back := range []messages.ViewType{messages.ViewDocuments, messages.ViewChat} {
		t.Run(back.String(), func(t *testing.T) {
			view := NewView(nil, nil, "o")
			view.SetDocument(sampleDoc("x"), back)

			_, cmd := view.Update(key("esc"))

			require.NotNil(t, cmd)
			assert.Equal(t, messages.ViewChanged{View: back}, cmd())
		})
	}
}

func TestView_Scrolling(t *testing.T) {
	view := NewView(nil, nil, "o")
	view.SetDimensions(80, 16) // 10 visible lines
	view.SetDocument(sampleDoc(numberedLines(30)), messages.ViewDocuments)

	assert.Equal(t, 20, view.maxScrollOffset())

	view.Update(key("k"))
	assert.Equal(t, 0, view.scrollOffset)

	view.Update(key("j"))
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, view.scrollOffset)

	view.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 12, view.scrollOffset)
	view.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 20, view.scrollOffset)

	view.Update(key("j"))
	assert.Equal(t, 20, view.scrollOffset)

	view.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 10, view.scrollOffset)

	view.Update(key("g"))
	assert.Equal(t, 0, view.scrollOffset)
	view.Update(key("G"))
	assert.Equal(t, 20, view.scrollOffset)

	out := view.View()
	assert.Contains(t, out, "line 30")
	assert.NotContains(t, out, "line 20\n")
	assert.Contains(t, out, "[100%] Line 21-30 of 30")
}

func TestView_WrapsLongLines(t *testing.T) {
	view := NewView(nil, nil, "o")
	view.SetDimensions(24, 40) // wrap width 20
	view.SetDocument(sampleDoc(strings.Repeat("é", 45)), messages.ViewDocuments)

	lines := view.Lines()

	require.Len(t, lines, 3)
	assert.Equal(t, strings.Repeat("é", 20), lines[0])
	assert.Equal(t, strings.Repeat("é", 5), lines[2])
}

func TestWrap(t *testing.T) {
	assert.Nil(t, wrap("", 10))
	assert.Equal(t, []string{"a", "", "b"}, wrap("a\n\nb", 10))
	assert.Equal(t, []string{"abcd", "efgh"}, wrap("abcdefgh", 4))
}

func TestView_ToggleChunks(t *testing.T) {
	var owner, docID string
	index := &MockIndexService{ChunksFunc: func(_ context.Context, ownerID, documentID string) ([]domain.Chunk, error) {
		owner, docID = ownerID, documentID
		return []domain.Chunk{
			{DocumentID: "doc-1", Index: 0, Text: "first part", Start: 0, End: 10},
			{DocumentID: "doc-1", Index: 1, Text: "second part", Start: 8, End: 19},
		}, nil
	}}
	view := NewView(nil, index, "owner-1")
	view.SetDimensions(80, 30)
	view.SetDocument(sampleDoc("first part second part"), messages.ViewDocuments)

	_, cmd := view.Update(key("t"))
	require.NotNil(t, cmd)
	assert.True(t, view.ShowingChunks())
	assert.Contains(t, view.View(), "Loading chunks...")

	view.Update(cmd())

	assert.Equal(t, "owner-1", owner)
	assert.Equal(t, "doc-1", docID)
	out := view.View()
	assert.Contains(t, out, "Notes (2 chunks)")
	assert.Contains(t, out, "chunk 1 (runes 0-10)")
	assert.Contains(t, out, "second part")
	assert.Contains(t, out, "[t] full text")

	_, cmd = view.Update(key("t"))
	assert.Nil(t, cmd)
	assert.False(t, view.ShowingChunks())

	_, cmd = view.Update(key("t"))
	assert.Nil(t, cmd, "chunks are cached per document")
	assert.Equal(t, 1, index.calls)
}

func TestView_ChunksNotIndexed(t *testing.T) {
	view := NewView(nil, &MockIndexService{}, "o")
	view.SetDocument(sampleDoc("text"), messages.ViewDocuments)

	_, cmd := view.Update(key("t"))
	view.Update(cmd())

	assert.Contains(t, view.View(), "(Not indexed)")
}

func TestView_ChunksError(t *testing.T) {
	index := &MockIndexService{ChunksFunc: func(context.Context, string, string) ([]domain.Chunk, error) {
		return nil, domain.ErrNotFound
	}}
	view := NewView(nil, index, "o")
	view.SetDocument(sampleDoc("text"), messages.ViewDocuments)

	_, cmd := view.Update(key("t"))
	view.Update(cmd())

	assert.ErrorIs(t, view.Err(), domain.ErrNotFound)
	assert.Contains(t, view.View(), "Error:")
}

func TestView_ChunksWithoutService(t *testing.T) {
	view := NewView(nil, nil, "o")
	view.SetDocument(sampleDoc("text"), messages.ViewDocuments)

	_, cmd := view.Update(key("t"))

	assert.ErrorIs(t, cmd().(messages.ChunksLoaded).Err, ErrNoIndexService)
}

func TestView_IgnoresChunksForOtherDocument(t *testing.T) {
	view := NewView(nil, nil, "o")
	view.SetDocument(sampleDoc("text"), messages.ViewDocuments)

	view.Update(messages.ChunksLoaded{DocumentID: "other", Chunks: []domain.Chunk{{Text: "x"}}})

	assert.Nil(t, view.chunks)
}

func TestView_ErrorOccurred(t *testing.T) {
	view := NewView(nil, nil, "o")

	view.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, view.Err(), "boom")
}

func TestView_WindowSizeRewraps(t *testing.T) {
	view := NewView(nil, nil, "o")
	view.SetDocument(sampleDoc(strings.Repeat("a", 100)), messages.ViewDocuments)

	view.Update(tea.WindowSizeMsg{Width: 54, Height: 20})

	assert.Len(t, view.Lines(), 2)
}
