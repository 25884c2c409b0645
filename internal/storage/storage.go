package storage

import (
	"context"
	"io"
)

// FileStore accepts an uploaded file and returns a durable public URL.
// Implementations must be safe for concurrent use.
type FileStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
}
