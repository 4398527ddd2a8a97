package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.DocumentStore = (*Store)(nil)
	_ driven.IndexStore    = (*Store)(nil)
	_ driven.ChatStore     = (*Store)(nil)
)

// Store is an in-memory implementation of the document, index and chat stores.
// One mutex guards every table, so each method is atomic with respect to all
// others. Values are copied on the way in and out.
type Store struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	statuses  map[string]domain.IndexStatus
	chunks    map[string][]domain.Chunk
	sessions  map[sessionKey]domain.ChatSession
	messages  map[sessionKey][]domain.ChatMessage
}

type sessionKey struct {
	owner   string
	session string
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		documents: make(map[string]domain.Document),
		statuses:  make(map[string]domain.IndexStatus),
		chunks:    make(map[string][]domain.Chunk),
		sessions:  make(map[sessionKey]domain.ChatSession),
		messages:  make(map[sessionKey][]domain.ChatMessage),
	}
}

// ==================== Document Store ====================

// CreateDocument stores a new document together with its initial status.
func (s *Store) CreateDocument(_ context.Context, doc *domain.Document, status domain.IndexStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; exists {
		return domain.ErrInvalidInput
	}
	s.documents[doc.ID] = copyDocument(doc)
	s.statuses[doc.ID] = status
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyDocument(&doc)
	return &out, nil
}

// ListDocuments returns an owner's documents, newest first.
func (s *Store) ListDocuments(_ context.Context, ownerID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Document
	for id := range s.documents {
		doc := s.documents[id]
		if doc.OwnerID == ownerID {
			result = append(result, copyDocument(&doc))
		}
	}
	sortNewestFirst(result, func(d domain.Document) domain.Document { return d })
	return result, nil
}

// DeleteDocument removes a document, its status and any chunk rows.
func (s *Store) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.statuses, id)
	delete(s.chunks, id)
	return nil
}

func copyDocument(doc *domain.Document) domain.Document {
	out := *doc
	if doc.Metadata != nil {
		out.Metadata = maps.Clone(doc.Metadata)
	}
	return out
}

// sortNewestFirst orders by creation time descending, then by ID.
func sortNewestFirst[T any](items []T, doc func(T) domain.Document) {
	sort.Slice(items, func(i, j int) bool {
		a, b := doc(items[i]), doc(items[j])
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
