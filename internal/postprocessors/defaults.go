package postprocessors

import (
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in chunkers with the registry.
// Call this during application initialisation to enable standard chunkers.
func RegisterDefaults(r *Registry) {
	r.Register(string(chunker.StrategyRecursive), buildChunker(chunker.StrategyRecursive))
	r.Register(string(chunker.StrategyFixed), buildChunker(chunker.StrategyFixed))
}

// buildChunker returns a builder for the given strategy.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 1000)
//   - overlap (int): Overlapping characters between chunks (default: 200)
func buildChunker(strategy chunker.Strategy) BuilderFunc {
	return func(cfg map[string]any) (driven.Chunker, error) {
		opts := []chunker.Option{chunker.WithStrategy(strategy)}

		if cfg != nil {
			if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
				opts = append(opts, chunker.WithChunkSize(size))
			}
			if _, ok := cfg["overlap"]; ok {
				opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
			}
		}

		return chunker.New(opts...), nil
	}
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
