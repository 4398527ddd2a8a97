// Package cache memoises embeddings in Redis.
//
// Re-indexing a document re-embeds every chunk, and the same question is
// often asked more than once. Both hit the cache instead of the provider.
// Cache failures are logged and never fail the embedding call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultTTL is how long cached vectors live.
const DefaultTTL = 7 * 24 * time.Hour

// Store is a key-value store for vectors.
type Store interface {
	// GetMany returns the cached vectors for keys. Missing keys are absent
	// from the result.
	GetMany(ctx context.Context, keys []string) (map[string][]float32, error)

	// SetMany stores vectors with the given time to live.
	SetMany(ctx context.Context, entries map[string][]float32, ttl time.Duration) error

	// Close releases resources.
	Close() error
}

// EmbeddingService wraps another EmbeddingService with a cache.
type EmbeddingService struct {
	inner driven.EmbeddingService
	store Store
	ttl   time.Duration
}

// New wraps inner. A non-positive ttl selects DefaultTTL.
func New(inner driven.EmbeddingService, store Store, ttl time.Duration) *EmbeddingService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &EmbeddingService{inner: inner, store: store, ttl: ttl}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch serves cached vectors and embeds the rest in one inner call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = s.key(text)
	}

	cached, err := s.store.GetMany(ctx, keys)
	if err != nil {
		logger.Warn("Embedding cache read failed: %v", err)
		cached = nil
	}

	result := make([][]float32, len(texts))
	var missing []int
	for i, key := range keys {
		if v, ok := cached[key]; ok && len(v) == s.inner.Dimensions() {
			result[i] = v
			continue
		}
		missing = append(missing, i)
	}
	logger.Debug("Embedding cache: %d hits, %d misses", len(texts)-len(missing), len(missing))

	if len(missing) == 0 {
		return result, nil
	}

	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = texts[i]
	}
	fresh, err := s.inner.EmbedBatch(ctx, pending)
	if err != nil {
		return nil, err
	}

	entries := make(map[string][]float32, len(missing))
	for j, i := range missing {
		if j >= len(fresh) {
			break
		}
		result[i] = fresh[j]
		entries[keys[i]] = fresh[j]
	}
	if len(fresh) != len(pending) {
		// Let the caller see the short batch.
		return fresh, nil
	}

	if err := s.store.SetMany(ctx, entries, s.ttl); err != nil {
		logger.Warn("Embedding cache write failed: %v", err)
	}
	return result, nil
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the cache and the wrapped service.
func (s *EmbeddingService) Close() error {
	if err := s.store.Close(); err != nil {
		logger.Warn("Closing embedding cache: %v", err)
	}
	return s.inner.Close()
}

// key namespaces by model and dimensions so a model change never serves stale vectors.
func (s *EmbeddingService) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "ragdesk:embedding:" + s.inner.ModelName() + ":" + itoa(s.inner.Dimensions()) + ":" +
		hex.EncodeToString(sum[:])
}
