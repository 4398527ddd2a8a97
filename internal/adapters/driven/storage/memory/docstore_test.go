package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func newDoc(id, owner string, created time.Time) *domain.Document {
	return &domain.Document{
		ID:        id,
		OwnerID:   owner,
		Title:     "Doc " + id,
		Content:   "content of " + id,
		Origin:    domain.OriginText,
		FileType:  "txt",
		Metadata:  map[string]any{"manual": true},
		CreatedAt: created,
	}
}

func TestNewStore(t *testing.T) {
	store := NewStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.documents)
	assert.NotNil(t, store.statuses)
	assert.NotNil(t, store.sessions)
}

func TestStore_CreateDocument(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now()

	doc := newDoc("doc-1", "alice", now)
	require.NoError(t, store.CreateDocument(ctx, doc, domain.NewPendingStatus("doc-1", now)))

	saved, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Doc doc-1", saved.Title)
	assert.Equal(t, true, saved.Metadata["manual"])

	status, err := store.GetStatus(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IndexPending, status.State)

	assert.ErrorIs(t, store.CreateDocument(ctx, doc, domain.NewPendingStatus("doc-1", now)), domain.ErrInvalidInput)
}

func TestStore_GetDocument_ReturnsCopy(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.CreateDocument(ctx, newDoc("doc-1", "alice", time.Now()),
		domain.NewPendingStatus("doc-1", time.Now())))

	first, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	first.Metadata["manual"] = false

	second, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, true, second.Metadata["manual"])
}

func TestStore_GetDocument_NotFound(t *testing.T) {
	_, err := NewStore().GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListDocuments_ByOwnerNewestFirst(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		created := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.CreateDocument(ctx, newDoc(id, "alice", created), domain.NewPendingStatus(id, created)))
	}
	require.NoError(t, store.CreateDocument(ctx, newDoc("z", "bob", base), domain.NewPendingStatus("z", base)))

	docs, err := store.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "c", docs[0].ID)
	assert.Equal(t, "a", docs[2].ID)
}

func TestStore_DeleteDocument_Cascades(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.CreateDocument(ctx, newDoc("doc-1", "alice", now), domain.NewPendingStatus("doc-1", now)))
	require.NoError(t, store.CommitIndex(ctx, domain.NewPendingStatus("doc-1", now).Processing(now).Completed(1, now),
		[]domain.Chunk{{ID: "c1", DocumentID: "doc-1", PointID: "p1"}}))

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))

	_, err := store.GetStatus(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, store.PointIDs())
	assert.ErrorIs(t, store.DeleteDocument(ctx, "doc-1"), domain.ErrNotFound)
}

func TestStore_CommitAndResetIndex(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.CreateDocument(ctx, newDoc("doc-1", "alice", now), domain.NewPendingStatus("doc-1", now)))

	completed := domain.NewPendingStatus("doc-1", now).Processing(now).Completed(2, now)
	chunks := []domain.Chunk{
		{ID: "c2", DocumentID: "doc-1", Index: 1, Text: "second", PointID: "p2"},
		{ID: "c1", DocumentID: "doc-1", Index: 0, Text: "first", PointID: "p1"},
	}
	require.NoError(t, store.CommitIndex(ctx, completed, chunks))

	got, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, []string{"p1", "p2"}, store.PointIDs())

	byPoint, err := store.GetChunksByPointIDs(ctx, []string{"p2", "unknown"})
	require.NoError(t, err)
	require.Len(t, byPoint, 1)
	assert.Equal(t, "second", byPoint[0].Text)

	indexed, err := store.ListIndexed(ctx, "alice", domain.IndexCompleted)
	require.NoError(t, err)
	require.Len(t, indexed, 1)

	require.NoError(t, store.ResetIndex(ctx, completed.Reset(now)))
	got, err = store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	indexed, err = store.ListIndexed(ctx, "alice", domain.IndexCompleted)
	require.NoError(t, err)
	assert.Empty(t, indexed)
}

func TestStore_StatusWritesRequireDocument(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	status := domain.NewPendingStatus("ghost", time.Now())

	assert.ErrorIs(t, store.SetStatus(ctx, status), domain.ErrNotFound)
	assert.ErrorIs(t, store.ResetIndex(ctx, status), domain.ErrNotFound)
	assert.ErrorIs(t, store.CommitIndex(ctx, status, nil), domain.ErrNotFound)
}

func TestStore_ListIndexed_FiltersStates(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.CreateDocument(ctx, newDoc("p", "alice", now), domain.NewPendingStatus("p", now)))
	require.NoError(t, store.CreateDocument(ctx, newDoc("f", "alice", now), domain.NewPendingStatus("f", now)))
	require.NoError(t, store.SetStatus(ctx, domain.NewPendingStatus("f", now).Processing(now).Failed("boom", 0, now)))

	all, err := store.ListIndexed(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := store.ListIndexed(ctx, "alice", domain.IndexFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "boom", failed[0].Status.Error)

	none, err := store.ListIndexed(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a'+n%26)) + string(rune('a'+n/26))
			_ = store.CreateDocument(ctx, newDoc(id, "alice", now), domain.NewPendingStatus(id, now))
			_, _ = store.ListIndexed(ctx, "alice")
		}(i)
	}
	wg.Wait()

	docs, err := store.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, docs, 50)
}
