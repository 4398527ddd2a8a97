package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/memory"
	vectormem "github.com/custodia-labs/ragdesk/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/postprocessors/chunker"
)

// --- Mock implementations ---

// testVocabulary gives the keyword embedder one dimension per word.
// Dimension 0 is a constant bias so no text embeds to the zero vector.
var testVocabulary = []string{
	"sky", "blue", "grass", "green", "color", "ocean", "deep", "mountain", "tall", "river",
}

var errInjected = errors.New("injected failure")

// mockEmbeddingService embeds texts as keyword counts over testVocabulary.
type mockEmbeddingService struct {
	mu sync.Mutex

	// failOnCall makes the nth EmbedBatch call (1-based) fail. Zero never fails.
	failOnCall int
	// embedErr makes every call fail.
	embedErr error
	// short drops the last vector of every batch.
	short bool
	// block, when set, is waited on inside EmbedBatch.
	block chan struct{}
	// started is closed on the first EmbedBatch call.
	started chan struct{}

	calls     int
	startOnce sync.Once
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.started != nil {
		m.startOnce.Do(func() { close(m.started) })
	}
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()

	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.failOnCall > 0 && call == m.failOnCall {
		return nil, errInjected
	}

	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vectors = append(vectors, keywordVector(text))
	}
	if m.short && len(vectors) > 0 {
		vectors = vectors[:len(vectors)-1]
	}
	return vectors, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(testVocabulary) + 1
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

func (m *mockEmbeddingService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func keywordVector(text string) []float32 {
	vector := make([]float32, len(testVocabulary)+1)
	vector[0] = 1
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, word := range words {
		for i, v := range testVocabulary {
			if word == v {
				vector[i+1]++
			}
		}
	}
	return vector
}

// faultyVectorIndex wraps the in-memory index with injectable failures.
type faultyVectorIndex struct {
	*vectormem.Index

	// failUpsertOnCall makes the nth Upsert call (1-based) fail after
	// writing half of its batch.
	failUpsertOnCall int
	deleteErr        error
	searchErr        error
	// hits, when set, replaces the search result.
	hits []driven.VectorHit

	upserts atomic.Int32
	deletes atomic.Int32
}

func newFaultyVectorIndex() *faultyVectorIndex {
	return &faultyVectorIndex{Index: vectormem.New()}
}

func (f *faultyVectorIndex) Upsert(ctx context.Context, points []driven.VectorPoint) error {
	call := int(f.upserts.Add(1))
	if f.failUpsertOnCall > 0 && call == f.failUpsertOnCall {
		if err := f.Index.Upsert(ctx, points[:len(points)/2]); err != nil {
			return err
		}
		return errInjected
	}
	return f.Index.Upsert(ctx, points)
}

func (f *faultyVectorIndex) Delete(ctx context.Context, ids []string) error {
	f.deletes.Add(1)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Index.Delete(ctx, ids)
}

func (f *faultyVectorIndex) Search(
	ctx context.Context, query []float32, k int, filter driven.VectorFilter,
) ([]driven.VectorHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.hits != nil {
		return f.hits, nil
	}
	return f.Index.Search(ctx, query, k, filter)
}

// mockLLMService records the prompts it receives.
type mockLLMService struct {
	mu sync.Mutex

	reply   string
	err     error
	calls   int
	system  string
	message string
	opts    driven.ChatOptions
}

func (m *mockLLMService) Complete(
	_ context.Context, systemPrompt, userMessage string, opts driven.ChatOptions,
) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.system = systemPrompt
	m.message = userMessage
	m.opts = opts
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockLLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var system, user string
	for _, msg := range messages {
		switch msg.Role {
		case driven.RoleSystem:
			system = msg.Content
		case driven.RoleUser:
			user = msg.Content
		}
	}
	return m.Complete(ctx, system, user, opts)
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

// mockPromptStore serves prompts from a map.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.prompts[name], nil
}

func (m *mockPromptStore) Reload() {}

// mockExtractor returns canned extractions.
type mockExtractor struct {
	file    *domain.Extraction
	page    *domain.Extraction
	err     error
	gotPath string
	gotName string
	gotURL  string
}

func (m *mockExtractor) ExtractFile(_ context.Context, path, name string) (*domain.Extraction, error) {
	m.gotPath, m.gotName = path, name
	if m.err != nil {
		return nil, m.err
	}
	return m.file, nil
}

func (m *mockExtractor) ExtractURL(_ context.Context, url string) (*domain.Extraction, error) {
	m.gotURL = url
	if m.err != nil {
		return nil, m.err
	}
	return m.page, nil
}

// --- Test harness ---

// pipeline wires the services to in-memory stores and the fakes above.
type pipeline struct {
	store     *memory.Store
	vectors   *faultyVectorIndex
	embedder  *mockEmbeddingService
	llm       *mockLLMService
	index     *IndexManager
	retrieval *RetrievalEngine
	documents *DocumentService
	extractor *mockExtractor
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	p := &pipeline{
		store:     memory.NewStore(),
		vectors:   newFaultyVectorIndex(),
		embedder:  &mockEmbeddingService{},
		llm:       &mockLLMService{reply: "The sky is blue."},
		extractor: &mockExtractor{},
	}

	cfg := DefaultIndexConfig()
	cfg.BatchSize = 2
	p.index = NewIndexManager(p.store, p.store, p.store, p.vectors, p.embedder,
		chunker.New(chunker.WithChunkSize(40), chunker.WithOverlap(8)), nil, cfg)
	p.retrieval = NewRetrievalEngine(p.store, p.store, p.vectors, p.embedder, p.llm, DefaultRetrievalConfig())
	p.documents = NewDocumentService(p.store, p.store, p.extractor, nil, p.index)

	require.NoError(t, p.index.Connect(context.Background()))
	return p
}

// addText creates a text document and returns its ID.
func (p *pipeline) addText(t *testing.T, owner, text string) string {
	t.Helper()
	doc, err := p.documents.Create(context.Background(), createText(owner, text))
	require.NoError(t, err)
	return doc.Document.ID
}

// assertConsistent checks that chunk rows and stored vectors name the same points.
func (p *pipeline) assertConsistent(t *testing.T) {
	t.Helper()
	rows := p.store.PointIDs()
	if rows == nil {
		rows = []string{}
	}
	require.Equal(t, rows, p.vectors.IDs(), "chunk rows and vectors disagree")
}

func createText(owner, text string) driving.CreateDocumentRequest {
	return driving.CreateDocumentRequest{OwnerID: owner, Origin: domain.OriginText, Text: text}
}

// longText is long enough to produce several chunks.
const longText = "The sky is blue on a clear day. The ocean is deep and blue as well. " +
	"The mountain is tall and the river runs green through the valley. " +
	"Grass is green in spring. The sky turns grey before rain."
