package domain

import "time"

// ContentOrigin records how a document's content entered the system.
type ContentOrigin string

// Supported content origins.
const (
	// OriginText is content typed or pasted directly by the user.
	OriginText ContentOrigin = "text"

	// OriginFile is content extracted from an uploaded file.
	OriginFile ContentOrigin = "file"

	// OriginURL is content fetched from a web page.
	OriginURL ContentOrigin = "url"
)

// IsValid returns true if the origin is recognised.
func (o ContentOrigin) IsValid() bool {
	switch o {
	case OriginText, OriginFile, OriginURL:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (o ContentOrigin) String() string {
	return string(o)
}

// Well-known document metadata keys.
const (
	MetaOriginalName = "original_name"
	MetaURL          = "url"
	MetaFetchedAt    = "fetched_at"
	MetaManual       = "manual"
)

// Document is a unit of uploaded content owned by one user.
// Documents are immutable once created; they are only ever deleted.
type Document struct {
	// ID is the unique identifier.
	ID string

	// OwnerID identifies the user that owns the document.
	OwnerID string

	// Title is the human-readable name.
	Title string

	// Content is the normalised plain text used for chunking.
	Content string

	// Origin is how the content was supplied.
	Origin ContentOrigin

	// FileType is the short type tag (txt, md, pdf, html, ...).
	FileType string

	// FilePath points at the stored copy of an uploaded file, if any.
	FilePath string

	// URL is the source address for url documents.
	URL string

	// Metadata holds origin-specific fields such as the original filename.
	Metadata map[string]any

	// Size is the size of the original content in bytes.
	Size int64

	// CreatedAt is when the document was created.
	CreatedAt time.Time
}

// OwnedBy reports whether the document belongs to ownerID.
func (d *Document) OwnedBy(ownerID string) bool {
	return d != nil && d.OwnerID == ownerID
}

// ChunkSpan is one window produced by a chunker, before it is embedded.
type ChunkSpan struct {
	// Index is the 0-based ordinal within the document.
	Index int

	// Text is the chunk content.
	Text string

	// Start is the rune offset of the first character in the source text.
	Start int

	// End is the rune offset one past the last character.
	End int
}

// Chunk is an indexed span of a document, backed by exactly one vector.
// Chunks are never mutated; a re-index replaces them wholesale.
type Chunk struct {
	// ID is the unique identifier.
	ID string

	// DocumentID references the parent document.
	DocumentID string

	// Index is the 0-based ordinal within the document.
	Index int

	// Text is the chunk content.
	Text string

	// Start and End are rune offsets into the document content.
	Start int
	End   int

	// Metadata holds the document metadata inherited at index time.
	Metadata map[string]any

	// PointID is the identifier of the vector in the vector index.
	PointID string

	// CreatedAt is when the chunk was written.
	CreatedAt time.Time
}

// Extraction is the normalised output of a content extractor.
type Extraction struct {
	// Text is the plain text content.
	Text string

	// Title is a title discovered in the content, if any.
	Title string

	// FileType is the short type tag for the content.
	FileType string

	// Size is the size of the raw input in bytes.
	Size int64

	// Metadata holds extractor-specific fields.
	Metadata map[string]any
}

// IndexedDocument pairs a document with its current index status.
type IndexedDocument struct {
	Document Document
	Status   IndexStatus
}
