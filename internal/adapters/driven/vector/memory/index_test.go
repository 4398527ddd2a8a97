package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

func point(id, owner, doc string, v ...float32) driven.VectorPoint {
	return driven.VectorPoint{
		ID:     id,
		Vector: v,
		Payload: map[string]any{
			driven.PayloadOwnerID:    owner,
			driven.PayloadDocumentID: doc,
		},
	}
}

func TestIndex_EnsureCollection(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.EnsureCollection(ctx, 3))
	require.NoError(t, idx.EnsureCollection(ctx, 3))
	assert.ErrorIs(t, idx.EnsureCollection(ctx, 4), domain.ErrInvalidInput)
	assert.ErrorIs(t, New().EnsureCollection(ctx, 0), domain.ErrInvalidInput)
}

func TestIndex_UpsertRejectsWrongDimensions(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.EnsureCollection(ctx, 2))

	err := idx.Upsert(ctx, []driven.VectorPoint{point("a", "o", "d", 1, 0), point("b", "o", "d", 1, 0, 0)})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, idx.Len(), "a rejected batch stores nothing")
}

func TestIndex_SearchOrdersAndFilters(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, []driven.VectorPoint{
		point("near", "alice", "d1", 1, 0),
		point("far", "alice", "d2", 0, 1),
		point("mid", "alice", "d1", 1, 1),
		point("other-owner", "bob", "d1", 1, 0),
	}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 10, driven.VectorFilter{OwnerID: "alice"})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "near", hits[0].ID)
	assert.Equal(t, "mid", hits[1].ID)
	assert.Equal(t, "far", hits[2].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)

	hits, err = idx.Search(ctx, []float32{1, 0}, 1, driven.VectorFilter{OwnerID: "alice", DocumentIDs: []string{"d2"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "far", hits[0].ID)

	hits, err = idx.Search(ctx, []float32{1, 0}, 0, driven.VectorFilter{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_UpsertReplacesAndDeleteIgnoresUnknown(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []driven.VectorPoint{point("a", "o", "d", 1, 0)}))
	require.NoError(t, idx.Upsert(ctx, []driven.VectorPoint{point("a", "o", "d", 0, 1)}))
	assert.Equal(t, 1, idx.Len())

	require.NoError(t, idx.Delete(ctx, []string{"a", "never-existed"}))
	assert.Empty(t, idx.IDs())
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{2, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 0}))
}
