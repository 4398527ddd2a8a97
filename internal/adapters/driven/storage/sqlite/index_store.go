package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// ==================== Index Store ====================

// indexStore implements driven.IndexStore.
type indexStore struct {
	store *Store
}

var _ driven.IndexStore = (*indexStore)(nil)

const chunkColumns = `id, document_id, position, content, start_offset, end_offset, metadata, point_id, created_at`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// GetStatus retrieves the status of a document.
func (s *indexStore) GetStatus(ctx context.Context, documentID string) (*domain.IndexStatus, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, state, error, indexed_at, total_chunks, processed_chunks, updated_at
		FROM index_status WHERE document_id = ?
	`, documentID)

	var (
		status    domain.IndexStatus
		state     string
		indexedAt sql.NullTime
	)
	if err := row.Scan(&status.DocumentID, &state, &status.Error, &indexedAt,
		&status.TotalChunks, &status.ProcessedChunks, &status.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning status: %w", err)
	}
	status.State = domain.IndexState(state)
	if indexedAt.Valid {
		t := indexedAt.Time
		status.IndexedAt = &t
	}
	return &status, nil
}

// SetStatus overwrites the status of a document.
func (s *indexStore) SetStatus(ctx context.Context, status domain.IndexStatus) error {
	return upsertStatus(ctx, s.store.db, status)
}

// ListIndexed returns an owner's documents joined with their status.
func (s *indexStore) ListIndexed(
	ctx context.Context, ownerID string, states ...domain.IndexState,
) ([]domain.IndexedDocument, error) {
	query := `
		SELECT d.id, d.owner_id, d.title, d.content, d.origin, d.file_type, d.file_path, d.url,
		       d.metadata, d.size, d.created_at,
		       COALESCE(st.state, 'pending'), COALESCE(st.error, ''), st.indexed_at,
		       COALESCE(st.total_chunks, 0), COALESCE(st.processed_chunks, 0), st.updated_at
		FROM documents d
		LEFT JOIN index_status st ON st.document_id = d.id
		WHERE d.owner_id = ?`
	args := []any{ownerID}
	if len(states) > 0 {
		query += ` AND COALESCE(st.state, 'pending') IN (` + placeholders(len(states)) + `)`
		for _, state := range states {
			args = append(args, state.String())
		}
	}
	query += ` ORDER BY d.created_at DESC, d.id`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying indexed documents: %w", err)
	}
	defer rows.Close()

	var result []domain.IndexedDocument //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			item         domain.IndexedDocument
			origin       string
			metadataJSON string
			state        string
			indexedAt    sql.NullTime
			updatedAt    sql.NullTime
		)
		doc := &item.Document
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.Content, &origin, &doc.FileType,
			&doc.FilePath, &doc.URL, &metadataJSON, &doc.Size, &doc.CreatedAt,
			&state, &item.Status.Error, &indexedAt,
			&item.Status.TotalChunks, &item.Status.ProcessedChunks, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning indexed document: %w", err)
		}

		doc.Origin = domain.ContentOrigin(origin)
		if doc.Metadata, err = unmarshalMap(metadataJSON); err != nil {
			return nil, err
		}

		item.Status.DocumentID = doc.ID
		item.Status.State = domain.IndexState(state)
		if indexedAt.Valid {
			t := indexedAt.Time
			item.Status.IndexedAt = &t
		}
		item.Status.UpdatedAt = doc.CreatedAt
		if updatedAt.Valid {
			item.Status.UpdatedAt = updatedAt.Time
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating indexed documents: %w", err)
	}
	return result, nil
}

// GetChunks returns a document's chunks ordered by index.
func (s *indexStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+chunkColumns+` FROM chunks
		WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	return collectChunks(rows)
}

// GetChunksByPointIDs returns the chunks referencing the given vector points.
func (s *indexStore) GetChunksByPointIDs(ctx context.Context, pointIDs []string) ([]domain.Chunk, error) {
	if len(pointIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(pointIDs))
	for i, id := range pointIDs {
		args[i] = id
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+chunkColumns+` FROM chunks
		WHERE point_id IN (`+placeholders(len(pointIDs))+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by point: %w", err)
	}
	return collectChunks(rows)
}

// CommitIndex replaces a document's chunks and writes its status in one transaction.
func (s *indexStore) CommitIndex(ctx context.Context, status domain.IndexStatus, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", status.DocumentID); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (`+chunkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		chunk := &chunks[i]
		metadataJSON, err := marshalMap(chunk.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Index, chunk.Text,
			chunk.Start, chunk.End, metadataJSON, chunk.PointID, chunk.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("saving chunk %d: %w", chunk.Index, err)
		}
	}

	if err := upsertStatus(ctx, tx, status); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ResetIndex deletes a document's chunks and writes its status in one transaction.
func (s *indexStore) ResetIndex(ctx context.Context, status domain.IndexStatus) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", status.DocumentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	if err := upsertStatus(ctx, tx, status); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// upsertStatus writes a status row. A missing document is reported as
// domain.ErrNotFound.
func upsertStatus(ctx context.Context, db execer, status domain.IndexStatus) error {
	updatedAt := status.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO index_status (document_id, state, error, indexed_at, total_chunks, processed_chunks, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			state = excluded.state,
			error = excluded.error,
			indexed_at = excluded.indexed_at,
			total_chunks = excluded.total_chunks,
			processed_chunks = excluded.processed_chunks,
			updated_at = excluded.updated_at
	`, status.DocumentID, status.State.String(), status.Error, nullTime(status.IndexedAt),
		status.TotalChunks, status.ProcessedChunks, updatedAt.UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("saving status of %s: %w", status.DocumentID, domain.ErrNotFound)
		}
		return fmt.Errorf("saving status: %w", err)
	}
	return nil
}

func collectChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			chunk        domain.Chunk
			metadataJSON string
		)
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Text,
			&chunk.Start, &chunk.End, &metadataJSON, &chunk.PointID, &chunk.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		metadata, err := unmarshalMap(metadataJSON)
		if err != nil {
			return nil, err
		}
		chunk.Metadata = metadata
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
