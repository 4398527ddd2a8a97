package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder returns the text length as a one-dimensional vector.
type countingEmbedder struct {
	mu     sync.Mutex
	inputs [][]string
	err    error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = append(c.inputs, texts)
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int              { return 1 }
func (c *countingEmbedder) ModelName() string            { return "counting" }
func (c *countingEmbedder) Ping(_ context.Context) error { return nil }
func (c *countingEmbedder) Close() error                 { return nil }

// mapStore is an in-memory Store.
type mapStore struct {
	mu     sync.Mutex
	data   map[string][]float32
	ttl    time.Duration
	getErr error
	setErr error
	closed bool
}

func (m *mapStore) GetMany(_ context.Context, keys []string) (map[string][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make(map[string][]float32)
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *mapStore) SetMany(_ context.Context, entries map[string][]float32, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if m.data == nil {
		m.data = make(map[string][]float32)
	}
	for k, v := range entries {
		m.data[k] = v
	}
	m.ttl = ttl
	return nil
}

func (m *mapStore) Close() error {
	m.closed = true
	return nil
}

func TestEmbedBatch_ServesHitsAndEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{}
	store := &mapStore{}
	svc := New(inner, store, 0)
	ctx := context.Background()

	first, err := svc.EmbedBatch(ctx, []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, first)
	assert.Equal(t, DefaultTTL, store.ttl)

	second, err := svc.EmbedBatch(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}, {1}}, second)

	require.Len(t, inner.inputs, 2)
	assert.Equal(t, []string{"ccc"}, inner.inputs[1])

	// Fully cached batches skip the provider.
	_, err = svc.Embed(ctx, "ccc")
	require.NoError(t, err)
	assert.Len(t, inner.inputs, 2)
}

func TestEmbedBatch_CacheFailuresFallThrough(t *testing.T) {
	inner := &countingEmbedder{}
	store := &mapStore{getErr: errors.New("down"), setErr: errors.New("down")}
	svc := New(inner, store, time.Minute)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"abc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3}}, vectors)
}

func TestEmbedBatch_ProviderErrorPropagates(t *testing.T) {
	cause := errors.New("provider down")
	svc := New(&countingEmbedder{err: cause}, &mapStore{}, 0)

	_, err := svc.EmbedBatch(context.Background(), []string{"abc"})
	assert.ErrorIs(t, err, cause)
}

func TestKey_NamespacedByModel(t *testing.T) {
	svc := New(&countingEmbedder{}, &mapStore{}, 0)
	key := svc.key("hello")
	assert.True(t, strings.HasPrefix(key, "ragdesk:embedding:counting:1:"))
	assert.NotEqual(t, key, svc.key("hello!"))
}

func TestClose_ClosesStore(t *testing.T) {
	store := &mapStore{}
	require.NoError(t, New(&countingEmbedder{}, store, 0).Close())
	assert.True(t, store.closed)
}

func TestVectorEncoding(t *testing.T) {
	vec := []float32{0, -1.5, 3.25, 1e-7}
	decoded, ok := decodeVector(encodeVector(vec))
	require.True(t, ok)
	assert.Equal(t, vec, decoded)

	_, ok = decodeVector([]byte{1, 2, 3})
	assert.False(t, ok)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore("not-a-url")
	assert.Error(t, err)
}

func TestRedisStore_UnreachableFallsThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	store := NewRedisStoreWithClient(client)
	svc := New(&countingEmbedder{}, store, 0)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"ab"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}}, vectors)
	assert.NoError(t, svc.Close())
}
