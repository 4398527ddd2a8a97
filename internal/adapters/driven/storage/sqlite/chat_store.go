package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// ==================== Chat Store ====================

// chatStore implements driven.ChatStore.
type chatStore struct {
	store *Store
}

var _ driven.ChatStore = (*chatStore)(nil)

// EnsureSession creates the session or touches its updated time.
func (s *chatStore) EnsureSession(ctx context.Context, session *domain.ChatSession) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (owner_id, id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, id) DO UPDATE SET updated_at = excluded.updated_at
	`, session.OwnerID, session.ID, session.Title, session.CreatedAt.UTC(), session.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// GetSession retrieves one of an owner's sessions.
func (s *chatStore) GetSession(ctx context.Context, ownerID, sessionID string) (*domain.ChatSession, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT owner_id, id, title, created_at, updated_at
		FROM chat_sessions WHERE owner_id = ? AND id = ?
	`, ownerID, sessionID)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return session, err
}

// ListSessions returns an owner's sessions, most recently updated first.
func (s *chatStore) ListSessions(ctx context.Context, ownerID string) ([]domain.ChatSession, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT owner_id, id, title, created_at, updated_at
		FROM chat_sessions WHERE owner_id = ?
		ORDER BY updated_at DESC, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ChatSession //nolint:prealloc // size unknown from query
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// AppendMessage adds a message to an existing session.
func (s *chatStore) AppendMessage(ctx context.Context, ownerID string, msg *domain.ChatMessage) error {
	sources := msg.Sources
	if sources == nil {
		sources = []domain.SourceAttribution{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, owner_id, session_id, role, content, sources, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, ownerID, msg.SessionID, string(msg.Role), msg.Content, string(sourcesJSON), msg.CreatedAt.UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("appending to session %s: %w", msg.SessionID, domain.ErrNotFound)
		}
		return fmt.Errorf("saving message: %w", err)
	}
	return nil
}

// ListMessages returns a session's messages in creation order.
func (s *chatStore) ListMessages(ctx context.Context, ownerID, sessionID string) ([]domain.ChatMessage, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, sources, created_at
		FROM chat_messages
		WHERE owner_id = ? AND session_id = ?
		ORDER BY seq
	`, ownerID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ChatMessage //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			msg         domain.ChatMessage
			role        string
			sourcesJSON string
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &sourcesJSON, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Role = domain.ChatRole(role)
		if sourcesJSON != "" && sourcesJSON != "[]" {
			if err := json.Unmarshal([]byte(sourcesJSON), &msg.Sources); err != nil {
				return nil, fmt.Errorf("unmarshalling sources: %w", err)
			}
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return messages, nil
}

// DeleteMessages removes every message of a session.
func (s *chatStore) DeleteMessages(ctx context.Context, ownerID, sessionID string) error {
	if _, err := s.store.db.ExecContext(ctx,
		"DELETE FROM chat_messages WHERE owner_id = ? AND session_id = ?", ownerID, sessionID); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	return nil
}

// DeleteOwnerSessions removes every session of an owner. Messages cascade.
func (s *chatStore) DeleteOwnerSessions(ctx context.Context, ownerID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM chat_sessions WHERE owner_id = ?", ownerID); err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}
	return nil
}

func scanSession(row scanner) (*domain.ChatSession, error) {
	var session domain.ChatSession
	if err := row.Scan(&session.OwnerID, &session.ID, &session.Title,
		&session.CreatedAt, &session.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return &session, nil
}
