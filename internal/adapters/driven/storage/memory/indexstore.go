package memory

import (
	"context"
	"maps"
	"slices"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// ==================== Index Store ====================

// GetStatus retrieves the status of a document.
func (s *Store) GetStatus(_ context.Context, documentID string) (*domain.IndexStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &status, nil
}

// SetStatus overwrites the status of a document.
func (s *Store) SetStatus(_ context.Context, status domain.IndexStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[status.DocumentID]; !ok {
		return domain.ErrNotFound
	}
	s.statuses[status.DocumentID] = status
	return nil
}

// ListIndexed returns an owner's documents joined with their status.
func (s *Store) ListIndexed(
	_ context.Context, ownerID string, states ...domain.IndexState,
) ([]domain.IndexedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.IndexedDocument
	for id := range s.documents {
		doc := s.documents[id]
		if doc.OwnerID != ownerID {
			continue
		}
		status, ok := s.statuses[id]
		if !ok {
			status = domain.NewPendingStatus(id, doc.CreatedAt)
		}
		if len(states) > 0 && !slices.Contains(states, status.State) {
			continue
		}
		result = append(result, domain.IndexedDocument{Document: copyDocument(&doc), Status: status})
	}
	sortNewestFirst(result, func(d domain.IndexedDocument) domain.Document { return d.Document })
	return result, nil
}

// GetChunks returns a document's chunks ordered by index.
func (s *Store) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyChunks(s.chunks[documentID]), nil
}

// GetChunksByPointIDs returns the chunks referencing the given vector points.
func (s *Store) GetChunksByPointIDs(_ context.Context, pointIDs []string) ([]domain.Chunk, error) {
	want := make(map[string]struct{}, len(pointIDs))
	for _, id := range pointIDs {
		want[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Chunk
	for _, chunks := range s.chunks {
		for i := range chunks {
			if _, ok := want[chunks[i].PointID]; ok {
				result = append(result, copyChunk(&chunks[i]))
			}
		}
	}
	return result, nil
}

// CommitIndex replaces a document's chunks and writes its status.
func (s *Store) CommitIndex(_ context.Context, status domain.IndexStatus, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[status.DocumentID]; !ok {
		return domain.ErrNotFound
	}
	sorted := copyChunks(chunks)
	slices.SortFunc(sorted, func(a, b domain.Chunk) int { return a.Index - b.Index })
	s.chunks[status.DocumentID] = sorted
	s.statuses[status.DocumentID] = status
	return nil
}

// ResetIndex deletes a document's chunks and writes its status.
func (s *Store) ResetIndex(_ context.Context, status domain.IndexStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[status.DocumentID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.chunks, status.DocumentID)
	s.statuses[status.DocumentID] = status
	return nil
}

// PointIDs returns every point ID referenced by a chunk row.
func (s *Store) PointIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, chunks := range s.chunks {
		for i := range chunks {
			ids = append(ids, chunks[i].PointID)
		}
	}
	slices.Sort(ids)
	return ids
}

func copyChunk(c *domain.Chunk) domain.Chunk {
	out := *c
	if c.Metadata != nil {
		out.Metadata = maps.Clone(c.Metadata)
	}
	return out
}

func copyChunks(chunks []domain.Chunk) []domain.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	out := make([]domain.Chunk, len(chunks))
	for i := range chunks {
		out[i] = copyChunk(&chunks[i])
	}
	return out
}
