// Package sqlite provides a SQLite-based implementation of the relational
// store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements three store interfaces
// through a single database connection:
//
//   - DocumentStore: documents and their initial status
//   - IndexStore: index statuses and chunk rows
//   - ChatStore: chat sessions and messages
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.ragdesk/data/ragdesk.db
//
// # Atomicity
//
// Writes that belong to one indexing attempt run in a single transaction, so
// readers never see chunk rows without the matching status.
package sqlite
