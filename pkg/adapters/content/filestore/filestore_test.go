package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/content/filestore"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
)

func newStore(t *testing.T) *filestore.FileStore {
	t.Helper()
	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestFileStore_PutGet_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	payload := []byte("package main\n\nfunc main() {}\n\x00\xff binary-safe")

	require.NoError(t, store.Put(ctx, "snippets/abc.txt", payload))

	got, err := store.Get(ctx, "snippets/abc.txt")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Join(store.Root(), "snippets"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_Get_NotFound(t *testing.T) {
	store := newStore(t)

	_, err := store.Get(context.Background(), "snippets/missing.txt")
	assert.ErrorIs(t, err, domain.ErrContentNotFound)
}

func TestFileStore_Delete_IsIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "snippets/abc.txt", []byte("x")))

	require.NoError(t, store.Delete(ctx, "snippets/abc.txt"))
	require.NoError(t, store.Delete(ctx, "snippets/abc.txt"))

	_, err := store.Get(ctx, "snippets/abc.txt")
	assert.ErrorIs(t, err, domain.ErrContentNotFound)
}

func TestFileStore_Put_RefusesExistingKey(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "snippets/abc.txt", []byte("first")))

	err := store.Put(ctx, "snippets/abc.txt", []byte("second"))
	assert.ErrorIs(t, err, domain.ErrContentExists)

	got, err := store.Get(ctx, "snippets/abc.txt")
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	entries, err := os.ReadDir(filepath.Join(store.Root(), "snippets"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_RejectsEscapingKeys(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../outside.txt", "snippets/../../x", "/etc/passwd"} {
		t.Run(key, func(t *testing.T) {
			err := store.Put(ctx, key, []byte("x"))
			assert.ErrorIs(t, err, domain.ErrInvalidKey)
		})
	}
}

func TestFileStore_ConcurrentPuts(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := domain.ContentKey(string(rune('a' + i)))
			assert.NoError(t, store.Put(ctx, key, []byte(key)))
		}()
	}
	wg.Wait()

	for i := range 20 {
		key := domain.ContentKey(string(rune('a' + i)))
		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, key, string(got))
	}
}

func TestFileStore_RespectsContextCancellation(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, "snippets/a.txt", []byte("x")), context.Canceled)
	_, err := store.Get(ctx, "snippets/a.txt")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Delete(ctx, "snippets/a.txt"), context.Canceled)
}
