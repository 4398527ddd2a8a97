package driven

import "context"

// Payload keys written alongside every chunk vector.
const (
	PayloadDocumentID  = "documentId"
	PayloadOwnerID     = "ownerId"
	PayloadChunkIndex  = "chunkIndex"
	PayloadTotalChunks = "totalChunks"
	PayloadTitle       = "title"
	PayloadFileType    = "fileType"
	PayloadContentType = "contentType"
)

// VectorIndex stores chunk embeddings and answers similarity queries.
// The relational stores are authoritative; a VectorIndex is never consulted
// to decide what should exist.
type VectorIndex interface {
	// EnsureCollection prepares storage for vectors of the given size.
	// Calling it on an existing collection is a no-op.
	EnsureCollection(ctx context.Context, dimensions int) error

	// Upsert inserts or replaces points by ID.
	Upsert(ctx context.Context, points []VectorPoint) error

	// Search returns up to k nearest points that match the filter,
	// ordered by descending score.
	Search(ctx context.Context, query []float32, k int, filter VectorFilter) ([]VectorHit, error)

	// Delete removes points by ID. Unknown IDs are not an error.
	Delete(ctx context.Context, ids []string) error

	// Close releases resources.
	Close() error
}

// VectorPoint is one stored embedding.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// VectorFilter restricts a search by payload values.
// Empty fields do not filter.
type VectorFilter struct {
	// OwnerID matches PayloadOwnerID.
	OwnerID string

	// DocumentIDs matches any of the listed PayloadDocumentID values.
	DocumentIDs []string
}

// Matches reports whether a payload satisfies the filter.
// Adapters that filter in process use it to share one definition.
func (f VectorFilter) Matches(payload map[string]any) bool {
	if f.OwnerID != "" {
		owner, _ := payload[PayloadOwnerID].(string)
		if owner != f.OwnerID {
			return false
		}
	}
	if len(f.DocumentIDs) == 0 {
		return true
	}
	docID, _ := payload[PayloadDocumentID].(string)
	for _, id := range f.DocumentIDs {
		if id == docID {
			return true
		}
	}
	return false
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ID is the matched point.
	ID string

	// Score is the cosine similarity (higher is closer).
	Score float64

	// Payload is the metadata stored with the point.
	Payload map[string]any
}
