// Package memory provides an in-process VectorIndex.
package memory

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index keeps vectors in memory and searches them exhaustively.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	points     map[string]driven.VectorPoint
}

// New creates an empty index.
func New() *Index {
	return &Index{points: make(map[string]driven.VectorPoint)}
}

// EnsureCollection fixes the vector size. Re-calling with the same size is a no-op.
func (x *Index) EnsureCollection(_ context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.dimensions != 0 && x.dimensions != dimensions {
		return fmt.Errorf("%w: collection has %d dimensions, not %d",
			domain.ErrInvalidInput, x.dimensions, dimensions)
	}
	x.dimensions = dimensions
	return nil
}

// Upsert inserts or replaces points by ID.
func (x *Index) Upsert(_ context.Context, points []driven.VectorPoint) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for i := range points {
		if x.dimensions != 0 && len(points[i].Vector) != x.dimensions {
			return fmt.Errorf("%w: point %s has %d dimensions, want %d",
				domain.ErrInvalidInput, points[i].ID, len(points[i].Vector), x.dimensions)
		}
	}
	for _, p := range points {
		x.points[p.ID] = driven.VectorPoint{
			ID:      p.ID,
			Vector:  append([]float32(nil), p.Vector...),
			Payload: maps.Clone(p.Payload),
		}
	}
	return nil
}

// Search returns up to k points matching filter, most similar first.
func (x *Index) Search(_ context.Context, query []float32, k int, filter driven.VectorFilter) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(x.points))
	for _, p := range x.points {
		if !filter.Matches(p.Payload) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ID:      p.ID,
			Score:   Cosine(query, p.Vector),
			Payload: maps.Clone(p.Payload),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete removes points by ID. Unknown IDs are ignored.
func (x *Index) Delete(_ context.Context, ids []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		delete(x.points, id)
	}
	return nil
}

// IDs returns the IDs of all stored points, sorted.
func (x *Index) IDs() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ids := make([]string, 0, len(x.points))
	for id := range x.points {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of stored points.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.points)
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is zero
// or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
