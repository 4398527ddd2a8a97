package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file or content type with no extractor.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrAlreadyIndexing indicates another index operation holds the document.
	ErrAlreadyIndexing = errors.New("document is already being indexed")

	// ErrEmptyContent indicates the chunker produced no chunks.
	ErrEmptyContent = errors.New("document has no indexable content")

	// ErrProviderUnavailable indicates an embedding, vector or LLM call failed or timed out.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRetrievalFailed indicates answering failed after the user turn was recorded.
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrInconsistentState indicates relational and vector state disagree.
	ErrInconsistentState = errors.New("inconsistent index state")

	// ErrInvalidTransition indicates an index state change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid index state transition")

	// ErrNotConfigured indicates a required provider has not been set up.
	ErrNotConfigured = errors.New("not configured")
)
