// Package tui provides an interactive terminal user interface for ragdesk.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Chat answers questions and keeps the conversation.
	Chat driving.ChatService

	// Index places documents into the vector index.
	Index driving.IndexService

	// Document lists, inspects and deletes documents.
	Document driving.DocumentService

	// OwnerID scopes every call to one user's data.
	OwnerID string
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	chat driving.ChatService,
	index driving.IndexService,
	document driving.DocumentService,
	ownerID string,
) *Ports {
	return &Ports{
		Chat:     chat,
		Index:    index,
		Document: document,
		OwnerID:  ownerID,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Index == nil {
		return ErrMissingIndexService
	}
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	if p.OwnerID == "" {
		return ErrMissingOwner
	}
	return nil
}
