// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewChat is the question prompt and conversation.
	ViewChat
	// ViewDocuments lists the owner's documents with their index state.
	ViewDocuments
	// ViewDocContent shows document content.
	ViewDocContent
	// ViewDocDetails shows document metadata.
	ViewDocDetails
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewChat:
		return "chat"
	case ViewDocuments:
		return "documents"
	case ViewDocContent:
		return "doc_content"
	case ViewDocDetails:
		return "doc_details"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// QuestionAsked is sent when the user submits a question.
type QuestionAsked struct {
	Question string
}

// ChatAnswered carries the answer to a question.
type ChatAnswered struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// HistoryLoaded carries the messages of the current session.
type HistoryLoaded struct {
	Messages []domain.ChatMessage
	Err      error
}

// HistoryCleared signals the current session was emptied.
type HistoryCleared struct {
	Err error
}

// DocumentsLoaded carries the owner's documents.
type DocumentsLoaded struct {
	Documents []domain.IndexedDocument
	Err       error
}

// DocumentSelected signals a document was chosen for the content view.
type DocumentSelected struct {
	Document domain.IndexedDocument
}

// SourceSelected signals a cited source was chosen from an answer.
type SourceSelected struct {
	DocumentID string
}

// DocumentLoaded carries a document fetched by ID.
type DocumentLoaded struct {
	Document *domain.IndexedDocument
	Err      error
}

// DocumentDetailsLoaded carries the metadata of a document.
type DocumentDetailsLoaded struct {
	DocumentID string
	Details    *driving.DocumentDetails
	Err        error
}

// DocumentIndexed signals an index run finished.
type DocumentIndexed struct {
	DocumentID string
	Status     *domain.IndexStatus
	Err        error
}

// DocumentDeindexed signals a document's chunks were removed.
type DocumentDeindexed struct {
	DocumentID string
	Status     *domain.IndexStatus
	Err        error
}

// DocumentDeleted signals a document was removed.
type DocumentDeleted struct {
	DocumentID string
	Err        error
}

// DocumentOpened signals the document was handed to the system opener.
type DocumentOpened struct {
	DocumentID string
	Err        error
}

// IndexCleared signals every document was deindexed.
type IndexCleared struct {
	Err error
}

// ChunksLoaded carries the stored chunks of a document.
type ChunksLoaded struct {
	DocumentID string
	Chunks     []domain.Chunk
	Err        error
}
