package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// DocumentStore persists documents.
type DocumentStore interface {
	// CreateDocument stores a new document together with its initial status.
	// Both rows are written atomically.
	CreateDocument(ctx context.Context, doc *domain.Document, status domain.IndexStatus) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns an owner's documents, newest first.
	ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error)

	// DeleteDocument removes a document, its status and any chunk rows.
	DeleteDocument(ctx context.Context, id string) error
}

// IndexStore persists index statuses and chunks.
// Writes belonging to one indexing attempt are applied atomically.
type IndexStore interface {
	// GetStatus retrieves the status of a document.
	GetStatus(ctx context.Context, documentID string) (*domain.IndexStatus, error)

	// SetStatus overwrites the status of a document.
	SetStatus(ctx context.Context, status domain.IndexStatus) error

	// ListIndexed returns an owner's documents joined with their status,
	// optionally restricted to the given states.
	ListIndexed(ctx context.Context, ownerID string, states ...domain.IndexState) ([]domain.IndexedDocument, error)

	// GetChunks returns a document's chunks ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunksByPointIDs returns the chunks referencing the given vector points.
	// Unknown point IDs are skipped.
	GetChunksByPointIDs(ctx context.Context, pointIDs []string) ([]domain.Chunk, error)

	// CommitIndex replaces a document's chunks and writes its status in one transaction.
	CommitIndex(ctx context.Context, status domain.IndexStatus, chunks []domain.Chunk) error

	// ResetIndex deletes a document's chunks and writes its status in one transaction.
	ResetIndex(ctx context.Context, status domain.IndexStatus) error
}

// ChatStore persists chat sessions and messages.
// Sessions are keyed by owner and session ID.
type ChatStore interface {
	// EnsureSession creates the session if it does not exist and touches its
	// updated time otherwise.
	EnsureSession(ctx context.Context, session *domain.ChatSession) error

	// GetSession retrieves one of an owner's sessions.
	GetSession(ctx context.Context, ownerID, sessionID string) (*domain.ChatSession, error)

	// ListSessions returns an owner's sessions, most recently updated first.
	ListSessions(ctx context.Context, ownerID string) ([]domain.ChatSession, error)

	// AppendMessage adds a message to a session.
	AppendMessage(ctx context.Context, ownerID string, msg *domain.ChatMessage) error

	// ListMessages returns a session's messages in creation order.
	ListMessages(ctx context.Context, ownerID, sessionID string) ([]domain.ChatMessage, error)

	// DeleteMessages removes every message of a session. Idempotent.
	DeleteMessages(ctx context.Context, ownerID, sessionID string) error

	// DeleteOwnerSessions removes every session and message of an owner.
	DeleteOwnerSessions(ctx context.Context, ownerID string) error
}
