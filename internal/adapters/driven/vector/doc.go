// Package vector holds the VectorIndex adapters.
//
//   - memory: brute-force cosine search in process, for tests and --ephemeral runs
//   - qdrant: Qdrant collections over the REST API
//   - pgvector: a Postgres table with a vector column
//
// All three store the payload keys defined in driven and apply the same
// VectorFilter semantics.
package vector
