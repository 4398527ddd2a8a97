// Package mcp exposes ragdesk over the Model Context Protocol so AI
// assistants can ask grounded questions and manage the document index.
package mcp

import "errors"

// Errors returned by NewServer for missing ports.
var (
	ErrMissingChatService     = errors.New("mcp: chat service is required")
	ErrMissingIndexService    = errors.New("mcp: index service is required")
	ErrMissingDocumentService = errors.New("mcp: document service is required")
	ErrMissingOwner           = errors.New("mcp: owner id is required")
)
