// Package qdrant provides a VectorIndex adapter for Qdrant's REST API.
package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/apierr"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/jsonapi"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "documents"
	DefaultTimeout    = 15 * time.Second
)

// Config holds configuration for the Qdrant index.
type Config struct {
	// URL is the Qdrant base URL (default: http://localhost:6333).
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Collection is the collection name (default: documents).
	Collection string

	// Timeout is the request timeout (default: 15s).
	Timeout time.Duration
}

// Index stores vectors in a Qdrant collection with cosine distance.
type Index struct {
	api        *jsonapi.Client
	collection string
}

// New creates a new Qdrant index.
func New(cfg Config) *Index {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["api-key"] = cfg.APIKey
	}
	return &Index{
		api:        jsonapi.New(jsonapi.Config{Provider: "qdrant", BaseURL: cfg.URL, Timeout: cfg.Timeout, Headers: headers}),
		collection: cfg.Collection,
	}
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors vectorParams `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
	Filter      *filter   `json:"filter,omitempty"`
}

type filter struct {
	Must []condition `json:"must"`
}

type condition struct {
	Key   string `json:"key"`
	Match match  `json:"match"`
}

type match struct {
	Value any      `json:"value,omitempty"`
	Any   []string `json:"any,omitempty"`
}

type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// EnsureCollection creates the collection unless it already exists.
// An existing collection with a different vector size is an error.
func (x *Index) EnsureCollection(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}

	var info collectionInfo
	err := x.api.Get(ctx, x.collectionPath(), &info)
	switch {
	case err == nil:
		if size := info.Result.Config.Params.Vectors.Size; size != 0 && size != dimensions {
			return fmt.Errorf("%w: collection %s has %d dimensions, not %d",
				domain.ErrInvalidInput, x.collection, size, dimensions)
		}
		return nil
	case apierr.StatusCode(err) != http.StatusNotFound:
		return err
	}

	body := map[string]any{"vectors": vectorParams{Size: dimensions, Distance: "Cosine"}}
	if err := x.api.Send(ctx, http.MethodPut, x.collectionPath(), body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// Upsert inserts or replaces points by ID and waits for the write.
func (x *Index) Upsert(ctx context.Context, points []driven.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	body := struct {
		Points []point `json:"points"`
	}{Points: make([]point, len(points))}
	for i, p := range points {
		body.Points[i] = point{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}

	if err := x.api.Send(ctx, http.MethodPut, x.collectionPath()+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// Search returns up to k nearest points matching the filter.
func (x *Index) Search(ctx context.Context, query []float32, k int, f driven.VectorFilter) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	req := searchRequest{Vector: query, Limit: k, WithPayload: true, Filter: buildFilter(f)}

	var resp searchResponse
	if err := x.api.Post(ctx, x.collectionPath()+"/points/search", req, &resp); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	hits := make([]driven.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, driven.VectorHit{
			ID:      fmt.Sprint(r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return hits, nil
}

// Delete removes points by ID. Qdrant ignores unknown IDs.
func (x *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"points": ids}
	err := x.api.Post(ctx, x.collectionPath()+"/points/delete?wait=true", body, nil)
	if apierr.StatusCode(err) == http.StatusNotFound {
		// No collection means no points.
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

// Close releases resources.
func (x *Index) Close() error {
	x.api.Close()
	return nil
}

func (x *Index) collectionPath() string {
	return "/collections/" + url.PathEscape(x.collection)
}

func buildFilter(f driven.VectorFilter) *filter {
	var must []condition
	if f.OwnerID != "" {
		must = append(must, condition{Key: driven.PayloadOwnerID, Match: match{Value: f.OwnerID}})
	}
	if len(f.DocumentIDs) > 0 {
		must = append(must, condition{Key: driven.PayloadDocumentID, Match: match{Any: f.DocumentIDs}})
	}
	if len(must) == 0 {
		return nil
	}
	return &filter{Must: must}
}
