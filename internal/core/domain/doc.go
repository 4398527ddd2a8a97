// Package domain defines the core business entities for ragdesk.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Uploaded content owned by a single user
//   - IndexStatus: The per-document indexing state machine
//   - Chunk: A retrievable slice of a document backed by one vector
//   - ChatMessage: One turn of a grounded conversation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
