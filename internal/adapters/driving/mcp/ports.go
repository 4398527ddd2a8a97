package mcp

import (
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Chat answers questions from indexed documents.
	Chat driving.ChatService

	// Index places documents into the vector index.
	Index driving.IndexService

	// Document creates and lists documents.
	Document driving.DocumentService

	// OwnerID is the user every request acts as.
	OwnerID string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Chat == nil:
		return ErrMissingChatService
	case p.Index == nil:
		return ErrMissingIndexService
	case p.Document == nil:
		return ErrMissingDocumentService
	case p.OwnerID == "":
		return ErrMissingOwner
	}
	return nil
}
