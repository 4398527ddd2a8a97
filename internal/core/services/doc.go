// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IndexManager owns the per-document index state machine, RetrievalEngine
// answers chat questions, and DocumentService handles ingestion.
package services
