package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	locator, err := store.Put(ctx, "owner-1", "report.pdf", strings.NewReader("hello"), 5)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(locator, "owner-1/"))
	require.True(t, strings.HasSuffix(locator, ".pdf"))

	ok, err := store.Exists(ctx, locator)
	require.NoError(t, err)
	require.True(t, ok)

	rc, err := store.Get(ctx, locator)
	require.NoError(t, err)
	cnt, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "hello", string(cnt))

	require.NoError(t, store.Delete(ctx, locator))

	ok, err = store.Exists(ctx, locator)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = store.Get(ctx, locator)
	require.True(t, errors.Is(err, ErrNotExist))

	// deleting a missing blob is not an error
	require.NoError(t, store.Delete(ctx, locator))

	// path traversal rejected
	_, err = store.Put(ctx, "owner-1", "../../etc/passwd", strings.NewReader("x"), 1)
	require.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestFSStore(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	testStore(t, store)
}

func TestFSStoreDistinctLocators(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	first, err := store.Put(ctx, "u", "a.txt", strings.NewReader("1"), 1)
	require.NoError(t, err)
	second, err := store.Put(ctx, "u", "a.txt", strings.NewReader("2"), 1)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}
