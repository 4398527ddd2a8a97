package domain

import "time"

// IndexState is a node of the per-document indexing state machine.
type IndexState string

// Index states.
const (
	IndexPending    IndexState = "pending"
	IndexProcessing IndexState = "processing"
	IndexCompleted  IndexState = "completed"
	IndexFailed     IndexState = "failed"
)

// IsValid returns true if the state is recognised.
func (s IndexState) IsValid() bool {
	switch s {
	case IndexPending, IndexProcessing, IndexCompleted, IndexFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s IndexState) String() string {
	return string(s)
}

// CanTransition reports whether the state machine permits moving from s to next.
//
//	pending    -> processing | pending
//	processing -> completed | failed
//	completed  -> processing | pending
//	failed     -> processing | pending
func (s IndexState) CanTransition(next IndexState) bool {
	switch s {
	case IndexPending:
		return next == IndexProcessing || next == IndexPending
	case IndexProcessing:
		return next == IndexCompleted || next == IndexFailed
	case IndexCompleted, IndexFailed:
		return next == IndexProcessing || next == IndexPending
	default:
		return false
	}
}

// IndexStatus tracks indexing progress for exactly one document.
type IndexStatus struct {
	// DocumentID references the document.
	DocumentID string

	// State is the current state machine node.
	State IndexState

	// Error is the failure message. Set only when State is failed.
	Error string

	// IndexedAt is when indexing completed. Set only when State is completed.
	IndexedAt *time.Time

	// TotalChunks is the number of chunks the chunker produced.
	TotalChunks int

	// ProcessedChunks is the number of chunks embedded and stored.
	ProcessedChunks int

	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time
}

// NewPendingStatus returns the initial status created alongside a document.
func NewPendingStatus(documentID string, now time.Time) IndexStatus {
	return IndexStatus{
		DocumentID: documentID,
		State:      IndexPending,
		UpdatedAt:  now,
	}
}

// Processing returns a copy of the status moved into processing.
func (s IndexStatus) Processing(now time.Time) IndexStatus {
	return IndexStatus{
		DocumentID: s.DocumentID,
		State:      IndexProcessing,
		UpdatedAt:  now,
	}
}

// Completed returns a copy of the status marked completed with chunk counts.
func (s IndexStatus) Completed(chunks int, now time.Time) IndexStatus {
	at := now
	return IndexStatus{
		DocumentID:      s.DocumentID,
		State:           IndexCompleted,
		IndexedAt:       &at,
		TotalChunks:     chunks,
		ProcessedChunks: chunks,
		UpdatedAt:       now,
	}
}

// Failed returns a copy of the status marked failed with the error message.
func (s IndexStatus) Failed(msg string, total int, now time.Time) IndexStatus {
	return IndexStatus{
		DocumentID:  s.DocumentID,
		State:       IndexFailed,
		Error:       msg,
		TotalChunks: total,
		UpdatedAt:   now,
	}
}

// Reset returns a pending status with all progress cleared.
func (s IndexStatus) Reset(now time.Time) IndexStatus {
	return NewPendingStatus(s.DocumentID, now)
}
