package pgvector

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

func newMockIndex(t *testing.T) (*Index, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	idx, err := New(db, "vectors")
	require.NoError(t, err)
	return idx, mock
}

func TestNew_ValidatesTableName(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	idx, err := New(db, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable, idx.table)

	_, err = New(db, "vectors; DROP TABLE users")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestEnsureCollection(t *testing.T) {
	idx, mock := newMockIndex(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE EXTENSION IF NOT EXISTS vector`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS vectors`) + `(?s).*embedding vector\(768\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX IF NOT EXISTS vectors_owner_idx`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX IF NOT EXISTS vectors_embedding_idx`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, idx.EnsureCollection(context.Background(), 768))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureCollection_ErrorIsUnavailable(t *testing.T) {
	idx, mock := newMockIndex(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE EXTENSION IF NOT EXISTS vector`)).
		WillReturnError(driver.ErrBadConn)

	err := idx.EnsureCollection(context.Background(), 768)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestUpsert(t *testing.T) {
	idx, mock := newMockIndex(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO vectors (id, owner_id, document_id, payload, embedding)`))
	prep.ExpectExec().
		WithArgs("p1", "alice", "doc-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("p2", "alice", "doc-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payload := map[string]any{driven.PayloadOwnerID: "alice", driven.PayloadDocumentID: "doc-1"}
	err := idx.Upsert(context.Background(), []driven.VectorPoint{
		{ID: "p1", Vector: []float32{1, 0}, Payload: payload},
		{ID: "p2", Vector: []float32{0, 1}, Payload: payload},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_RollsBackOnError(t *testing.T) {
	idx, mock := newMockIndex(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO vectors`))
	prep.ExpectExec().WillReturnError(driver.ErrBadConn)
	mock.ExpectRollback()

	err := idx.Upsert(context.Background(), []driven.VectorPoint{{ID: "p1", Vector: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_WithFilter(t *testing.T) {
	idx, mock := newMockIndex(t)

	query := `SELECT id, payload, 1 - (embedding <=> $1) AS score FROM vectors ` +
		`WHERE owner_id = $2 AND document_id IN ($3, $4) ORDER BY embedding <=> $1 LIMIT $5`
	rows := sqlmock.NewRows([]string{"id", "payload", "score"}).
		AddRow("p1", []byte(`{"documentId":"doc-1","chunkIndex":0}`), 0.93).
		AddRow("p2", []byte(`{"documentId":"doc-2","chunkIndex":4}`), 0.52)
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(sqlmock.AnyArg(), "alice", "doc-1", "doc-2", 3).
		WillReturnRows(rows)

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 3, driven.VectorFilter{
		OwnerID:     "alice",
		DocumentIDs: []string{"doc-1", "doc-2"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p1", hits[0].ID)
	assert.InDelta(t, 0.93, hits[0].Score, 1e-9)
	assert.Equal(t, "doc-2", hits[1].Payload[driven.PayloadDocumentID])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_NoFilter(t *testing.T) {
	idx, mock := newMockIndex(t)

	query := `SELECT id, payload, 1 - (embedding <=> $1) AS score FROM vectors ORDER BY embedding <=> $1 LIMIT $2`
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(sqlmock.AnyArg(), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "payload", "score"}))

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 1, driven.VectorFilter{})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	idx, mock := newMockIndex(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM vectors WHERE id IN ($1, $2)`)).
		WithArgs("p1", "p2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, idx.Delete(context.Background(), []string{"p1", "p2"}))
	require.NoError(t, idx.Delete(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildWhere(t *testing.T) {
	where, args := buildWhere(driven.VectorFilter{DocumentIDs: []string{"a"}}, 2)
	assert.Equal(t, " WHERE document_id IN ($2)", where)
	assert.Equal(t, []any{"a"}, args)

	where, args = buildWhere(driven.VectorFilter{}, 2)
	assert.Empty(t, where)
	assert.Nil(t, args)
}
