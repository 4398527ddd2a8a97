package driving

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// FolderSyncService mirrors a local folder into indexed documents.
// A changed file replaces its document; a removed file deletes it.
type FolderSyncService interface {
	// Sync imports new and changed files and removes documents whose file
	// is gone. It returns after one pass.
	Sync(ctx context.Context, ownerID, root string) (*FolderSyncReport, error)

	// Watch applies changes as they happen until ctx is cancelled.
	// onEvent, if set, is called after every handled change.
	Watch(ctx context.Context, ownerID, root string, onEvent func(FolderEvent)) error
}

// FolderSyncReport summarises one Sync pass.
type FolderSyncReport struct {
	Root      string
	Added     int
	Updated   int
	Removed   int
	Unchanged int
	Failed    int

	// Errors holds one message per failed file.
	Errors []string
}

// FolderEvent describes the outcome of one watched change.
type FolderEvent struct {
	Change     domain.FileChange
	DocumentID string
	Err        error
}
