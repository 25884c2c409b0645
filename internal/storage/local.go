package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore persists uploads on the local filesystem and serves them under
// a public base URL (the router mounts the directory as static content).
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates the upload directory if needed and returns a store
// rooted there.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage: upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create upload directory: %w", err)
	}

	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save writes the file under a collision-free name and returns its public URL.
func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + sanitizeExt(filename)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage: close file: %w", err)
	}

	return s.baseURL + "/" + name, nil
}

// sanitizeExt keeps only a plain extension from the client-supplied name.
func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if ext == "" || len(ext) > 10 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}
