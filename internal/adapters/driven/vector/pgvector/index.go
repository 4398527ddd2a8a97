// Package pgvector provides a VectorIndex adapter backed by Postgres and the
// pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultTable is the table used when no collection name is configured.
const DefaultTable = "chunk_vectors"

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// Config holds configuration for the pgvector index.
type Config struct {
	// DSN is the Postgres connection string.
	DSN string

	// Table is the table holding vectors (default: chunk_vectors).
	Table string

	// ConnectTimeout bounds the initial ping (default: 10s).
	ConnectTimeout time.Duration
}

// Index stores one row per point with a vector column and a jsonb payload.
// Owner and document IDs are copied into their own columns for filtering.
type Index struct {
	db    *sql.DB
	table string
}

// Open connects to Postgres through the pgx driver.
func Open(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: pgvector DSN is empty", domain.ErrNotConfigured)
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %w", domain.ErrProviderUnavailable, err)
	}

	return New(db, cfg.Table)
}

// New wraps an open database handle.
func New(db *sql.DB, table string) (*Index, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidInput, table)
	}
	return &Index{db: db, table: table}, nil
}

// EnsureCollection creates the extension, table and HNSW index if missing.
func (x *Index) EnsureCollection(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	document_id TEXT NOT NULL,
	payload JSONB NOT NULL DEFAULT '{}',
	embedding vector(%d) NOT NULL
)`, x.table, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_owner_idx ON %s (owner_id, document_id)`, x.table, x.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`,
			x.table, x.table),
	}
	for _, stmt := range stmts {
		if _, err := x.db.ExecContext(ctx, stmt); err != nil {
			return unavailable("ensure collection", err)
		}
	}
	return nil
}

// Upsert inserts or replaces points by ID in one transaction.
func (x *Index) Upsert(ctx context.Context, points []driven.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, document_id, payload, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			document_id = EXCLUDED.document_id,
			payload = EXCLUDED.payload,
			embedding = EXCLUDED.embedding
	`, x.table))
	if err != nil {
		return unavailable("prepare upsert", err)
	}
	defer stmt.Close()

	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("%w: marshal payload of %s: %w", domain.ErrInvalidInput, p.ID, err)
		}
		owner, _ := p.Payload[driven.PayloadOwnerID].(string)
		docID, _ := p.Payload[driven.PayloadDocumentID].(string)

		if _, err := stmt.ExecContext(ctx, p.ID, owner, docID, payload, pgvector.NewVector(p.Vector)); err != nil {
			return unavailable("upsert point "+p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit upsert", err)
	}
	return nil
}

// Search returns up to k nearest points by cosine distance.
func (x *Index) Search(ctx context.Context, query []float32, k int, f driven.VectorFilter) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	where, args := buildWhere(f, 2)
	args = append([]any{pgvector.NewVector(query)}, args...)
	args = append(args, k)

	q := fmt.Sprintf(`SELECT id, payload, 1 - (embedding <=> $1) AS score FROM %s%s ORDER BY embedding <=> $1 LIMIT $%d`,
		x.table, where, len(args))

	rows, err := x.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, unavailable("search", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var (
			hit     driven.VectorHit
			payload []byte
		)
		if err := rows.Scan(&hit.ID, &payload, &hit.Score); err != nil {
			return nil, unavailable("scan hit", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &hit.Payload); err != nil {
				return nil, fmt.Errorf("decode payload of %s: %w", hit.ID, err)
			}
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate hits", err)
	}
	return hits, nil
}

// Delete removes points by ID. Unknown IDs are ignored.
func (x *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders, args := inList(ids, 1)
	q := fmt.Sprintf(`DELETE FROM %s WHERE id IN (%s)`, x.table, placeholders)
	if _, err := x.db.ExecContext(ctx, q, args...); err != nil {
		return unavailable("delete points", err)
	}
	return nil
}

// Close closes the database handle.
func (x *Index) Close() error {
	return x.db.Close()
}

// buildWhere renders the filter with placeholders numbered from first.
func buildWhere(f driven.VectorFilter, first int) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.OwnerID != "" {
		clauses = append(clauses, fmt.Sprintf("owner_id = $%d", first))
		args = append(args, f.OwnerID)
		first++
	}
	if len(f.DocumentIDs) > 0 {
		placeholders, docArgs := inList(f.DocumentIDs, first)
		clauses = append(clauses, "document_id IN ("+placeholders+")")
		args = append(args, docArgs...)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func inList(values []string, first int) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = fmt.Sprintf("$%d", first+i)
		args[i] = v
	}
	return strings.Join(placeholders, ", "), args
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: pgvector %s: %w", domain.ErrProviderUnavailable, op, err)
}
