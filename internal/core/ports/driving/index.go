package driving

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// IndexService places documents into, and removes them from, the vector index.
// Index and Deindex are synchronous and return the final status.
type IndexService interface {
	// Index chunks, embeds and stores a document. Re-indexing replaces
	// the previous chunks. Fails with domain.ErrAlreadyIndexing while
	// another operation holds the document.
	Index(ctx context.Context, ownerID, documentID string) (*domain.IndexStatus, error)

	// Deindex removes a document's chunks and vectors and resets its
	// status to pending. The document itself is kept.
	Deindex(ctx context.Context, ownerID, documentID string) (*domain.IndexStatus, error)

	// ClearAll deindexes every document of the owner and deletes the
	// owner's chat sessions.
	ClearAll(ctx context.Context, ownerID string) error

	// ListIndexed returns the owner's documents in completed status.
	ListIndexed(ctx context.Context, ownerID string) ([]domain.IndexedDocument, error)

	// Status returns the current status of a document.
	Status(ctx context.Context, ownerID, documentID string) (*domain.IndexStatus, error)

	// Chunks returns the stored chunks of a document.
	Chunks(ctx context.Context, ownerID, documentID string) ([]domain.Chunk, error)
}
