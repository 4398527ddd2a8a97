package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// ==================== Chat Store ====================

// EnsureSession creates the session or touches its updated time.
func (s *Store) EnsureSession(_ context.Context, session *domain.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{owner: session.OwnerID, session: session.ID}
	if existing, ok := s.sessions[key]; ok {
		existing.UpdatedAt = session.UpdatedAt
		s.sessions[key] = existing
		return nil
	}
	s.sessions[key] = *session
	return nil
}

// GetSession retrieves one of an owner's sessions.
func (s *Store) GetSession(_ context.Context, ownerID, sessionID string) (*domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionKey{owner: ownerID, session: sessionID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &session, nil
}

// ListSessions returns an owner's sessions, most recently updated first.
func (s *Store) ListSessions(_ context.Context, ownerID string) ([]domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.ChatSession
	for key, session := range s.sessions {
		if key.owner == ownerID {
			result = append(result, session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// AppendMessage adds a message to a session.
func (s *Store) AppendMessage(_ context.Context, ownerID string, msg *domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{owner: ownerID, session: msg.SessionID}
	if _, ok := s.sessions[key]; !ok {
		return domain.ErrNotFound
	}
	stored := *msg
	stored.Sources = slices.Clone(msg.Sources)
	s.messages[key] = append(s.messages[key], stored)
	return nil
}

// ListMessages returns a session's messages in creation order.
func (s *Store) ListMessages(_ context.Context, ownerID, sessionID string) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[sessionKey{owner: ownerID, session: sessionID}]
	out := make([]domain.ChatMessage, len(msgs))
	for i := range msgs {
		out[i] = msgs[i]
		out[i].Sources = slices.Clone(msgs[i].Sources)
	}
	return out, nil
}

// DeleteMessages removes every message of a session.
func (s *Store) DeleteMessages(_ context.Context, ownerID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, sessionKey{owner: ownerID, session: sessionID})
	return nil
}

// DeleteOwnerSessions removes every session and message of an owner.
func (s *Store) DeleteOwnerSessions(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.sessions {
		if key.owner == ownerID {
			delete(s.sessions, key)
			delete(s.messages, key)
		}
	}
	return nil
}
