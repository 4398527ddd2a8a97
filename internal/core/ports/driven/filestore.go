package driven

import (
	"context"
	"io"
)

// FileStore keeps backing copies of uploaded files.
type FileStore interface {
	// Put stores the content under a unique path derived from name.
	// Returns the stored path and the number of bytes written.
	Put(ctx context.Context, name string, r io.Reader) (string, int64, error)

	// Remove deletes a stored file. A missing file is not an error.
	Remove(ctx context.Context, path string) error
}
