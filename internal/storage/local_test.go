package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads/")
	require.NoError(t, err)

	url, err := store.Save(context.Background(), "scan.PDF", strings.NewReader("content"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/uploads/"))
	require.True(t, strings.HasSuffix(url, ".pdf"))

	name := strings.TrimPrefix(url, "/uploads/")
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	require.Equal(t, "content", string(data))
}

func TestLocalStoreIgnoresHostilePaths(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads")
	require.NoError(t, err)

	url, err := store.Save(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)

	name := strings.TrimPrefix(url, "/uploads/")
	require.NotContains(t, name, "/")
	require.NotContains(t, name, "..")

	_, err = os.Stat(filepath.Join(dir, name))
	require.NoError(t, err)
}

func TestLocalStoreUniqueNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	first, err := store.Save(context.Background(), "a.png", strings.NewReader("1"))
	require.NoError(t, err)
	second, err := store.Save(context.Background(), "a.png", strings.NewReader("2"))
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestLocalStoreCancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Save(ctx, "a.png", strings.NewReader("1"))
	require.Error(t, err)
}

func TestLocalStoreRequiresDirectory(t *testing.T) {
	_, err := NewLocalStore("  ", "/uploads")
	require.Error(t, err)
}
