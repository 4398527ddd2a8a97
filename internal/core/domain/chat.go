package domain

import "time"

// DefaultSessionID is used when a caller does not name a session.
const DefaultSessionID = "default"

// DefaultSessionTitle is the title given to new chat sessions.
const DefaultSessionTitle = "Chat Session"

// ChatRole identifies the author of a chat message.
type ChatRole string

// Chat roles.
const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// SourceAttribution links an answer to a document that grounded it.
type SourceAttribution struct {
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	Type       string  `json:"type"`
	Score      float64 `json:"relevanceScore"`
}

// ChatMessage is one append-only turn of a conversation.
type ChatMessage struct {
	ID        string
	SessionID string
	Role      ChatRole
	Content   string
	Sources   []SourceAttribution
	CreatedAt time.Time
}

// ChatSession groups the messages of one conversation for an owner.
type ChatSession struct {
	ID        string
	OwnerID   string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Answer is the result of a grounded retrieval.
type Answer struct {
	Content   string
	Sources   []SourceAttribution
	Timestamp time.Time
}

// NoRelevantInformation is the reply given when retrieval finds no context.
const NoRelevantInformation = "I couldn't find any relevant information in the indexed documents. " +
	"Please make sure your documents are indexed and contain information related to your query."

// GroundedAnswerPrompt is the default system prompt for grounded answers.
// The %s placeholder receives the retrieved context block.
const GroundedAnswerPrompt = `You are an AI assistant that answers questions based on the provided context from documents.
Only answer based on the available context from the documents.
If the context doesn't contain relevant information, say so clearly.

Context:
%s`
