package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// FolderSource lists and watches the importable files below a root folder.
// Hidden files and directories are skipped.
type FolderSource interface {
	// Root returns the absolute root path.
	Root() string

	// Scan returns the absolute paths of all importable files, sorted.
	Scan(ctx context.Context) ([]string, error)

	// Watch streams changes until ctx is cancelled or Close is called.
	// The channel is closed when watching stops.
	Watch(ctx context.Context) (<-chan domain.FileChange, error)

	// Close stops watching and releases resources.
	Close() error
}
