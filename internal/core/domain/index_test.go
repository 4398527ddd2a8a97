package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexState_IsValid(t *testing.T) {
	for _, s := range []IndexState{IndexPending, IndexProcessing, IndexCompleted, IndexFailed} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, IndexState("queued").IsValid())
}

func TestIndexState_CanTransition(t *testing.T) {
	tests := []struct {
		from, to IndexState
		allowed  bool
	}{
		{IndexPending, IndexProcessing, true},
		{IndexPending, IndexCompleted, false},
		{IndexPending, IndexPending, true},
		{IndexProcessing, IndexCompleted, true},
		{IndexProcessing, IndexFailed, true},
		{IndexProcessing, IndexProcessing, false},
		{IndexProcessing, IndexPending, false},
		{IndexCompleted, IndexProcessing, true},
		{IndexCompleted, IndexPending, true},
		{IndexCompleted, IndexFailed, false},
		{IndexFailed, IndexProcessing, true},
		{IndexFailed, IndexPending, true},
		{IndexState("bogus"), IndexPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestIndexStatus_Lifecycle(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	pending := NewPendingStatus("doc-1", now)
	assert.Equal(t, IndexPending, pending.State)
	assert.Nil(t, pending.IndexedAt)

	processing := pending.Processing(now)
	assert.Equal(t, IndexProcessing, processing.State)
	assert.Equal(t, "doc-1", processing.DocumentID)

	completed := processing.Completed(4, now)
	assert.Equal(t, IndexCompleted, completed.State)
	require.NotNil(t, completed.IndexedAt)
	assert.Equal(t, now, *completed.IndexedAt)
	assert.Equal(t, 4, completed.TotalChunks)
	assert.Equal(t, 4, completed.ProcessedChunks)
	assert.Empty(t, completed.Error)

	failed := processing.Failed("boom", 3, now)
	assert.Equal(t, IndexFailed, failed.State)
	assert.Equal(t, "boom", failed.Error)
	assert.Nil(t, failed.IndexedAt)
	assert.Equal(t, 0, failed.ProcessedChunks)

	reset := completed.Reset(now)
	assert.Equal(t, IndexPending, reset.State)
	assert.Nil(t, reset.IndexedAt)
	assert.Zero(t, reset.TotalChunks)
}
