package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// DocumentService creates, inspects and deletes documents.
type DocumentService interface {
	// Create ingests content as a new document with a pending index status.
	Create(ctx context.Context, req CreateDocumentRequest) (*domain.IndexedDocument, error)

	// Get retrieves a document with its status.
	Get(ctx context.Context, ownerID, documentID string) (*domain.IndexedDocument, error)

	// List returns all of an owner's documents with their statuses.
	List(ctx context.Context, ownerID string) ([]domain.IndexedDocument, error)

	// GetDetails returns display metadata for a document.
	GetDetails(ctx context.Context, ownerID, documentID string) (*DocumentDetails, error)

	// Delete removes a document with its chunks, vectors and backing file.
	Delete(ctx context.Context, ownerID, documentID string) error

	// Open opens the document's stored file or URL in the default application.
	Open(ctx context.Context, ownerID, documentID string) error
}

// CreateDocumentRequest describes content to ingest.
// Exactly one of Text, FilePath or URL is used, selected by Origin.
type CreateDocumentRequest struct {
	// OwnerID identifies the user creating the document.
	OwnerID string `validate:"required"`

	// Origin selects how the content is supplied.
	Origin domain.ContentOrigin `validate:"required,oneof=text file url"`

	// Title overrides the derived title.
	Title string `validate:"max=512"`

	// Text is the content of a text document.
	Text string `validate:"required_if=Origin text"`

	// FilePath is the local path of an uploaded file.
	FilePath string `validate:"required_if=Origin file"`

	// FileName is the original filename. Defaults to the base of FilePath.
	FileName string

	// URL is the address of a web page.
	URL string `validate:"required_if=Origin url,omitempty,url"`

	// Metadata is merged into the document metadata.
	Metadata map[string]any
}

// DocumentDetails provides a standardised view of document metadata.
type DocumentDetails struct {
	// ID is the unique document identifier.
	ID string

	// Title is the document title.
	Title string

	// Origin is how the content was supplied.
	Origin domain.ContentOrigin

	// FileType is the short type tag.
	FileType string

	// Location is the URL or original filename.
	Location string

	// Size is the original content size in bytes.
	Size int64

	// Status is the current index state.
	Status domain.IndexState

	// Error is the last indexing error, if any.
	Error string

	// ChunkCount is the number of stored chunks.
	ChunkCount int

	// CreatedAt is when the document was created.
	CreatedAt time.Time

	// IndexedAt is when indexing last completed.
	IndexedAt *time.Time

	// Metadata contains flattened key-value pairs for display.
	Metadata map[string]string
}
