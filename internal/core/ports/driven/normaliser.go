package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// Normaliser transforms raw content into plain text.
// Each normaliser handles specific MIME types (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts text and metadata from raw content.
	Normalise(ctx context.Context, raw *domain.RawContent) (*domain.Extraction, error)
}

// NormaliserRegistry selects the appropriate normaliser for raw content.
type NormaliserRegistry interface {
	// Normalise transforms raw content using the best matching normaliser.
	Normalise(ctx context.Context, raw *domain.RawContent) (*domain.Extraction, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}

// ContentExtractor turns uploaded files and web pages into plain text.
type ContentExtractor interface {
	// ExtractFile reads the file at path. name is the original filename and
	// decides the content type.
	ExtractFile(ctx context.Context, path, name string) (*domain.Extraction, error)

	// ExtractURL fetches and extracts a web page.
	ExtractURL(ctx context.Context, url string) (*domain.Extraction, error)
}

// Chunker splits normalised text into overlapping spans.
// Implementations must be deterministic.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Split returns the spans covering text. Empty text yields no spans.
	Split(text string) []domain.ChunkSpan
}
