// Package driving defines interfaces that external actors (CLI, TUI, MCP) use
// to interact with core services. These are the "driving" ports in hexagonal
// architecture terminology - they drive the application.
//
// Every operation takes the caller's owner ID; documents and chat sessions
// belonging to another owner are reported as domain.ErrNotFound.
//
// Implementations of these interfaces live in internal/core/services.
package driving
