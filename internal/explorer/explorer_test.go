package explorer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/onlymatt/gateway/internal/explorer"
	registrystore "github.com/onlymatt/gateway/internal/registry/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("beta"), 0o644))
	// A sibling outside the root that must never be reachable.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(root), "secret.txt"), []byte("no"), 0o644))
	return root
}

func TestListRoot(t *testing.T) {
	e := explorer.New(newRoot(t), 0)

	listing, err := e.List(context.Background(), "", explorer.ListOptions{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, 3, listing.Total)
	assert.False(t, listing.Truncated)
	require.Len(t, listing.Entries, 3)
	assert.Equal(t, "a.txt", listing.Entries[0].Path)
	assert.Equal(t, int64(5), listing.Entries[0].Size)
	assert.Equal(t, "sub", listing.Entries[1].Path)
	assert.True(t, listing.Entries[1].IsDir)
	assert.Equal(t, "sub/b.txt", listing.Entries[2].Path)
}

func TestListSubdirectory(t *testing.T) {
	e := explorer.New(newRoot(t), 0)

	listing, err := e.List(context.Background(), "sub", explorer.ListOptions{Recursive: true})
	require.NoError(t, err)
	require.Len(t, listing.Entries, 1)
	assert.Equal(t, "sub/b.txt", listing.Entries[0].Path)
	assert.Equal(t, "b.txt", listing.Entries[0].Name)
}

func TestListSingleFile(t *testing.T) {
	e := explorer.New(newRoot(t), 0)

	listing, err := e.List(context.Background(), "a.txt", explorer.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Total)
	require.Len(t, listing.Entries, 1)
	assert.Equal(t, "a.txt", listing.Entries[0].Name)
	assert.False(t, listing.Entries[0].IsDir)
}

func TestListLimitOffsetTruncated(t *testing.T) {
	e := explorer.New(newRoot(t), 0)
	ctx := context.Background()

	listing, err := e.List(ctx, "", explorer.ListOptions{Limit: 2, Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, 3, listing.Total)
	assert.True(t, listing.Truncated)
	require.Len(t, listing.Entries, 2)
	assert.Equal(t, "a.txt", listing.Entries[0].Path)

	listing, err = e.List(ctx, "", explorer.ListOptions{Limit: 2, Offset: 2, Recursive: true})
	require.NoError(t, err)
	assert.False(t, listing.Truncated)
	require.Len(t, listing.Entries, 1)
	assert.Equal(t, "sub/b.txt", listing.Entries[0].Path)
}

func TestListNonRecursive(t *testing.T) {
	e := explorer.New(newRoot(t), 0)

	listing, err := e.List(context.Background(), "", explorer.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Total, "sub/b.txt is below the first level")
	require.Len(t, listing.Entries, 2)
	assert.Equal(t, "a.txt", listing.Entries[0].Path)
	assert.Equal(t, "sub", listing.Entries[1].Path)
}

func TestMaxResultsCapsLimit(t *testing.T) {
	e := explorer.New(newRoot(t), 2)

	listing, err := e.List(context.Background(), "", explorer.ListOptions{Limit: 100, Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, 3, listing.Total)
	assert.True(t, listing.Truncated)
	assert.Len(t, listing.Entries, 2)
}

func TestTraversalNeverEscapesRoot(t *testing.T) {
	e := explorer.New(newRoot(t), 0)
	ctx := context.Background()

	// Escape attempts are folded back inside the root, so the sibling
	// secret.txt must be unreachable under every spelling.
	for _, p := range []string{"../secret.txt", "sub/../../secret.txt", "/etc/passwd", "..", "../.."} {
		listing, err := e.List(ctx, p, explorer.ListOptions{Recursive: true})
		if err == nil {
			for _, entry := range listing.Entries {
				assert.NotContains(t, entry.Name, "secret", "path %q escaped the root", p)
			}
			continue
		}
		var notFoundErr *registrystore.NotFoundError
		var validationErr *registrystore.ValidationError
		if !errors.As(err, &notFoundErr) && !errors.As(err, &validationErr) {
			t.Fatalf("path %q: unexpected error %v", p, err)
		}
	}
}

func TestUnknownPathNotFound(t *testing.T) {
	e := explorer.New(newRoot(t), 0)

	_, err := e.List(context.Background(), "missing/dir", explorer.ListOptions{})
	var notFoundErr *registrystore.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	assert.Equal(t, "missing/dir", notFoundErr.ID)
}
