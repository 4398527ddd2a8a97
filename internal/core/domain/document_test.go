package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestContentOrigin_IsValid tests recognised and unknown origins
func TestContentOrigin_IsValid(t *testing.T) {
	tests := []struct {
		origin   ContentOrigin
		expected bool
	}{
		{OriginText, true},
		{OriginFile, true},
		{OriginURL, true},
		{ContentOrigin(""), false},
		{ContentOrigin("email"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.origin), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.origin.IsValid())
		})
	}
}

// TestDocument_OwnedBy tests ownership checks
func TestDocument_OwnedBy(t *testing.T) {
	doc := &Document{ID: "doc-1", OwnerID: "alice", CreatedAt: time.Now()}

	assert.True(t, doc.OwnedBy("alice"))
	assert.False(t, doc.OwnedBy("bob"))

	var missing *Document
	assert.False(t, missing.OwnedBy("alice"))
}

// TestChunk_Fields tests Chunk structure fields
func TestChunk_Fields(t *testing.T) {
	chunk := Chunk{
		ID:         "chunk-1",
		DocumentID: "doc-1",
		Index:      2,
		Text:       "hello",
		Start:      10,
		End:        15,
		PointID:    "point-1",
		Metadata:   map[string]any{"title": "Doc"},
	}

	assert.Equal(t, 2, chunk.Index)
	assert.Equal(t, 5, chunk.End-chunk.Start)
	assert.Equal(t, "point-1", chunk.PointID)
	assert.Equal(t, "Doc", chunk.Metadata["title"])
}
