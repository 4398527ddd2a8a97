package driving

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// ChatService answers questions from indexed documents and keeps history.
type ChatService interface {
	// Send records the question, retrieves context and returns a grounded answer.
	// An empty sessionID selects domain.DefaultSessionID.
	Send(ctx context.Context, ownerID, sessionID, message string) (*domain.Answer, error)

	// History returns the messages of a session in order.
	History(ctx context.Context, ownerID, sessionID string) ([]domain.ChatMessage, error)

	// ClearHistory deletes the messages of a session. Idempotent.
	ClearHistory(ctx context.Context, ownerID, sessionID string) error

	// Sessions lists the owner's chat sessions.
	Sessions(ctx context.Context, ownerID string) ([]domain.ChatSession, error)
}
