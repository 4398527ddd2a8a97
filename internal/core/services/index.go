package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

// Ensure IndexManager implements the interface.
var _ driving.IndexService = (*IndexManager)(nil)

// IndexConfig tunes how the IndexManager talks to providers.
type IndexConfig struct {
	// BatchSize is the number of chunks per embedding request and vector upsert.
	BatchSize int

	// Concurrency is the number of embedding batches in flight at once.
	Concurrency int

	// EmbedTimeout bounds each embedding request.
	EmbedTimeout time.Duration

	// VectorTimeout bounds each vector upsert or delete.
	VectorTimeout time.Duration
}

// DefaultIndexConfig returns the default provider tuning.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		BatchSize:     32,
		Concurrency:   2,
		EmbedTimeout:  30 * time.Second,
		VectorTimeout: 15 * time.Second,
	}
}

// IndexManager keeps each document's vectors in step with its IndexStatus.
//
// The relational stores are the single source of truth: vectors are only
// ever added or removed through the point IDs recorded in chunk rows, and
// chunk rows are only written after their vectors are confirmed.
type IndexManager struct {
	docStore   driven.DocumentStore
	indexStore driven.IndexStore
	chatStore  driven.ChatStore
	vectors    driven.VectorIndex
	embedder   driven.EmbeddingService
	chunker    driven.Chunker
	files      driven.FileStore
	cfg        IndexConfig

	locks *docLocks
	now   func() time.Time
}

// NewIndexManager creates a new index manager.
// files may be nil when no backing file copies are kept.
func NewIndexManager(
	docStore driven.DocumentStore,
	indexStore driven.IndexStore,
	chatStore driven.ChatStore,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	chunker driven.Chunker,
	files driven.FileStore,
	cfg IndexConfig,
) *IndexManager {
	defaults := DefaultIndexConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}

	return &IndexManager{
		docStore:   docStore,
		indexStore: indexStore,
		chatStore:  chatStore,
		vectors:    vectors,
		embedder:   embedder,
		chunker:    chunker,
		files:      files,
		cfg:        cfg,
		locks:      newDocLocks(),
		now:        time.Now,
	}
}

// Index chunks, embeds and stores a document, returning the final status.
//
// On failure every vector upserted by this attempt is deleted again, the
// status is recorded as failed, and both the failed status and the error
// are returned.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (m *IndexManager) Index(ctx context.Context, ownerID, documentID string) (*domain.IndexStatus, error) {
	// 1. LOAD AND LOCK
	doc, err := m.ownedDocument(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}

	if !m.locks.tryAcquire(documentID) {
		metrics.IndexRuns.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, fmt.Errorf("index %s: %w", documentID, domain.ErrAlreadyIndexing)
	}
	defer m.locks.release(documentID)

	logger.Section("Index " + documentID)

	current, err := m.currentStatus(ctx, documentID)
	if err != nil {
		return nil, err
	}

	// 2. CLEAR PREVIOUS ATTEMPT AND MARK PROCESSING
	// Existing chunk rows name the vectors to remove. The rows are dropped in
	// the same write that moves the status to processing.
	processing := current.Processing(m.now())
	if err := m.removeIndexed(ctx, documentID, processing); err != nil {
		return nil, err
	}

	// 3. CHUNK
	var spans []domain.ChunkSpan
	if strings.TrimSpace(doc.Content) != "" {
		spans = m.chunker.Split(doc.Content)
	}
	logger.Debug("Chunker %s produced %d chunks for %s", m.chunker.Name(), len(spans), documentID)
	if len(spans) == 0 {
		return m.fail(ctx, processing, 0, nil, fmt.Errorf("chunk %s: %w", documentID, domain.ErrEmptyContent))
	}

	// 4. EMBED
	vectors, err := m.embedSpans(ctx, spans)
	if err != nil {
		return m.fail(ctx, processing, len(spans), nil, err)
	}

	// 5. UPSERT
	// Point IDs are assigned up front so rollback can cover a batch that
	// failed half way through.
	points := m.buildPoints(doc, spans, vectors)
	pointIDs := make([]string, len(points))
	for i := range points {
		pointIDs[i] = points[i].ID
	}
	if err := m.upsertPoints(ctx, points); err != nil {
		return m.fail(ctx, processing, len(spans), pointIDs, err)
	}

	// 6. COMMIT CHUNK ROWS AND STATUS
	chunks := buildChunks(doc, spans, pointIDs, m.now())
	completed := processing.Completed(len(chunks), m.now())
	if err := m.indexStore.CommitIndex(ctx, completed, chunks); err != nil {
		return m.fail(ctx, processing, len(spans), pointIDs, fmt.Errorf("commit index: %w", err))
	}

	metrics.IndexRuns.WithLabelValues(metrics.OutcomeCompleted).Inc()
	metrics.IndexedChunks.Add(float64(len(chunks)))
	logger.Info("Indexed %s: %d chunks", documentID, len(chunks))

	return &completed, nil
}

// Deindex removes a document's chunks and vectors and resets it to pending.
func (m *IndexManager) Deindex(ctx context.Context, ownerID, documentID string) (*domain.IndexStatus, error) {
	if _, err := m.ownedDocument(ctx, ownerID, documentID); err != nil {
		return nil, err
	}

	if !m.locks.tryAcquire(documentID) {
		return nil, fmt.Errorf("deindex %s: %w", documentID, domain.ErrAlreadyIndexing)
	}
	defer m.locks.release(documentID)

	current, err := m.currentStatus(ctx, documentID)
	if err != nil {
		return nil, err
	}

	reset := current.Reset(m.now())
	if err := m.removeIndexed(ctx, documentID, reset); err != nil {
		return nil, err
	}

	logger.Info("Deindexed %s", documentID)
	return &reset, nil
}

// ClearAll deindexes every document of the owner that has index state,
// then deletes the owner's chat sessions. Cached answers may cite vectors
// that no longer exist, so history is purged even if a document could not
// be deindexed. All failures are reported together.
func (m *IndexManager) ClearAll(ctx context.Context, ownerID string) error {
	docs, err := m.indexStore.ListIndexed(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	var errs []error
	cleared := 0
	for i := range docs {
		if docs[i].Status.State == domain.IndexPending {
			continue
		}
		if _, err := m.Deindex(ctx, ownerID, docs[i].Document.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		cleared++
	}

	if err := m.chatStore.DeleteOwnerSessions(ctx, ownerID); err != nil {
		errs = append(errs, fmt.Errorf("delete chat sessions: %w", err))
	}

	logger.Info("Cleared index for %s: %d documents", ownerID, cleared)
	return errors.Join(errs...)
}

// Delete removes a document together with its chunks, vectors and backing file.
func (m *IndexManager) Delete(ctx context.Context, ownerID, documentID string) error {
	doc, err := m.ownedDocument(ctx, ownerID, documentID)
	if err != nil {
		return err
	}

	if !m.locks.tryAcquire(documentID) {
		return fmt.Errorf("delete %s: %w", documentID, domain.ErrAlreadyIndexing)
	}
	defer m.locks.release(documentID)

	current, err := m.currentStatus(ctx, documentID)
	if err != nil {
		return err
	}
	if err := m.removeIndexed(ctx, documentID, current.Reset(m.now())); err != nil {
		return err
	}

	if doc.FilePath != "" && m.files != nil {
		if err := m.files.Remove(ctx, doc.FilePath); err != nil {
			return fmt.Errorf("remove file %s: %w", doc.FilePath, err)
		}
	}

	if err := m.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	logger.Info("Deleted document %s", documentID)
	return nil
}

// ListIndexed returns the owner's documents in completed status.
func (m *IndexManager) ListIndexed(ctx context.Context, ownerID string) ([]domain.IndexedDocument, error) {
	docs, err := m.indexStore.ListIndexed(ctx, ownerID, domain.IndexCompleted)
	if err != nil {
		return nil, fmt.Errorf("list indexed: %w", err)
	}
	return docs, nil
}

// Status returns the current status of a document.
func (m *IndexManager) Status(ctx context.Context, ownerID, documentID string) (*domain.IndexStatus, error) {
	if _, err := m.ownedDocument(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	status, err := m.indexStore.GetStatus(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		pending := domain.NewPendingStatus(documentID, m.now())
		return &pending, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	return status, nil
}

// Chunks returns the stored chunks of a document.
func (m *IndexManager) Chunks(ctx context.Context, ownerID, documentID string) ([]domain.Chunk, error) {
	if _, err := m.ownedDocument(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	chunks, err := m.indexStore.GetChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	return chunks, nil
}

// IsIndexing reports whether an operation currently holds the document.
func (m *IndexManager) IsIndexing(documentID string) bool {
	return m.locks.isHeld(documentID)
}

// ownedDocument loads a document, hiding documents of other owners.
func (m *IndexManager) ownedDocument(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	doc, err := m.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}
	if !doc.OwnedBy(ownerID) {
		return nil, fmt.Errorf("get document %s: %w", documentID, domain.ErrNotFound)
	}
	return doc, nil
}

// currentStatus loads the status of a document the caller holds the lock for.
//
// A processing status seen by a lock holder belongs to an attempt that
// never finished (the process died mid-run), so it is treated as failed and
// may be retried.
func (m *IndexManager) currentStatus(ctx context.Context, documentID string) (*domain.IndexStatus, error) {
	status, err := m.indexStore.GetStatus(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("Document %s has no index status, treating as pending", documentID)
		pending := domain.NewPendingStatus(documentID, m.now())
		return &pending, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	if status.State == domain.IndexProcessing {
		logger.Warn("Document %s was left in processing by an interrupted run", documentID)
		interrupted := status.Failed("interrupted", status.TotalChunks, m.now())
		return &interrupted, nil
	}
	return status, nil
}

// removeIndexed deletes the vectors named by a document's chunk rows, then
// deletes the rows and writes next in one transaction.
//
// When the vector delete fails the rows are kept, so a retry can find the
// same point IDs again, and the error is marked ErrInconsistentState since
// some of those vectors may already be gone.
func (m *IndexManager) removeIndexed(ctx context.Context, documentID string, next domain.IndexStatus) error {
	chunks, err := m.indexStore.GetChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get chunks: %w", err)
	}

	if ids := chunkPointIDs(chunks); len(ids) > 0 {
		if err := m.deletePoints(ctx, ids); err != nil {
			logger.Error("Could not delete %d vectors of %s: %v", len(ids), documentID, err)
			return fmt.Errorf("remove vectors of %s: %w: %w", documentID, domain.ErrInconsistentState, err)
		}
		logger.Debug("Deleted %d vectors of %s", len(ids), documentID)
	}

	if err := m.indexStore.ResetIndex(ctx, next); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	return nil
}

// fail rolls back the attempt's vectors and records the failed status.
func (m *IndexManager) fail(
	ctx context.Context,
	processing domain.IndexStatus,
	total int,
	pointIDs []string,
	cause error,
) (*domain.IndexStatus, error) {
	// Cleanup must run even when the caller's context is what failed.
	cleanupCtx := context.WithoutCancel(ctx)

	if len(pointIDs) > 0 {
		if err := m.deletePoints(cleanupCtx, pointIDs); err != nil {
			logger.Error("Rollback of %d vectors for %s failed: %v", len(pointIDs), processing.DocumentID, err)
			cause = errors.Join(cause, fmt.Errorf("%w: rollback left %d vectors: %w",
				domain.ErrInconsistentState, len(pointIDs), err))
		} else {
			metrics.RolledBackPoints.Add(float64(len(pointIDs)))
			logger.Debug("Rolled back %d vectors for %s", len(pointIDs), processing.DocumentID)
		}
	}

	failed := processing.Failed(cause.Error(), total, m.now())
	if err := m.indexStore.SetStatus(cleanupCtx, failed); err != nil {
		logger.Error("Could not record failure for %s: %v", processing.DocumentID, err)
		return nil, errors.Join(cause, fmt.Errorf("record failure: %w", err))
	}

	metrics.IndexRuns.WithLabelValues(metrics.OutcomeFailed).Inc()
	logger.Warn("Indexing %s failed: %v", processing.DocumentID, cause)
	return &failed, cause
}

// embedSpans embeds chunk texts in batches, preserving chunk order.
func (m *IndexManager) embedSpans(ctx context.Context, spans []domain.ChunkSpan) ([][]float32, error) {
	vectors := make([][]float32, len(spans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)

	for start := 0; start < len(spans); start += m.cfg.BatchSize {
		end := min(start+m.cfg.BatchSize, len(spans))
		texts := make([]string, 0, end-start)
		for _, s := range spans[start:end] {
			texts = append(texts, s.Text)
		}

		g.Go(func() error {
			callCtx, cancel := withTimeout(gctx, m.cfg.EmbedTimeout)
			defer cancel()

			began := time.Now()
			batch, err := m.embedder.EmbedBatch(callCtx, texts)
			metrics.ObserveProvider("embedding", "embed_batch", began, err)
			if err != nil {
				return providerErr("embed chunks", err)
			}
			if len(batch) != len(texts) {
				return fmt.Errorf("embed chunks: %w: got %d vectors for %d texts",
					domain.ErrProviderUnavailable, len(batch), len(texts))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// upsertPoints writes points in batches.
func (m *IndexManager) upsertPoints(ctx context.Context, points []driven.VectorPoint) error {
	for start := 0; start < len(points); start += m.cfg.BatchSize {
		end := min(start+m.cfg.BatchSize, len(points))

		callCtx, cancel := withTimeout(ctx, m.cfg.VectorTimeout)
		began := time.Now()
		err := m.vectors.Upsert(callCtx, points[start:end])
		metrics.ObserveProvider("vector", "upsert", began, err)
		cancel()
		if err != nil {
			return providerErr("upsert vectors", err)
		}
	}
	return nil
}

// deletePoints removes points. Absent points are not an error.
func (m *IndexManager) deletePoints(ctx context.Context, ids []string) error {
	callCtx, cancel := withTimeout(ctx, m.cfg.VectorTimeout)
	defer cancel()

	began := time.Now()
	err := m.vectors.Delete(callCtx, ids)
	metrics.ObserveProvider("vector", "delete", began, err)
	if err != nil {
		return providerErr("delete vectors", err)
	}
	return nil
}

func (m *IndexManager) buildPoints(doc *domain.Document, spans []domain.ChunkSpan, vectors [][]float32) []driven.VectorPoint {
	points := make([]driven.VectorPoint, len(spans))
	for i, s := range spans {
		points[i] = driven.VectorPoint{
			ID:     uuid.New().String(),
			Vector: vectors[i],
			Payload: map[string]any{
				driven.PayloadDocumentID:  doc.ID,
				driven.PayloadOwnerID:     doc.OwnerID,
				driven.PayloadChunkIndex:  s.Index,
				driven.PayloadTotalChunks: len(spans),
				driven.PayloadTitle:       doc.Title,
				driven.PayloadFileType:    doc.FileType,
				driven.PayloadContentType: doc.Origin.String(),
			},
		}
	}
	return points
}

func buildChunks(doc *domain.Document, spans []domain.ChunkSpan, pointIDs []string, now time.Time) []domain.Chunk {
	chunks := make([]domain.Chunk, len(spans))
	for i, s := range spans {
		meta := make(map[string]any, len(doc.Metadata)+2)
		maps.Copy(meta, doc.Metadata)
		meta["title"] = doc.Title
		meta["file_type"] = doc.FileType

		chunks[i] = domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Index:      s.Index,
			Text:       s.Text,
			Start:      s.Start,
			End:        s.End,
			Metadata:   meta,
			PointID:    pointIDs[i],
			CreatedAt:  now,
		}
	}
	return chunks
}

func chunkPointIDs(chunks []domain.Chunk) []string {
	ids := make([]string, 0, len(chunks))
	for i := range chunks {
		if chunks[i].PointID != "" {
			ids = append(ids, chunks[i].PointID)
		}
	}
	return ids
}

// Connect prepares the vector collection for the embedder's dimensions.
// It must be called once before the first Index.
func (m *IndexManager) Connect(ctx context.Context) error {
	callCtx, cancel := withTimeout(ctx, m.cfg.VectorTimeout)
	defer cancel()

	if err := m.vectors.EnsureCollection(callCtx, m.embedder.Dimensions()); err != nil {
		return providerErr("ensure collection", err)
	}
	return nil
}
