// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore, IndexStore, ChatStore: Relational records (SQLite)
//   - VectorIndex: Vector storage and similarity search (memory, Qdrant, pgvector)
//   - EmbeddingService: Turns chunk and query text into vectors
//   - LLMService: Produces grounded answers
//   - Chunker: Splits document text into overlapping spans
//   - ContentExtractor: Turns files and URLs into plain text
//
// # Optional Interfaces
//
//   - FileStore: Backing copies of uploaded files. Without it, file documents keep no copy.
//   - PromptStore: User-editable prompts. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
