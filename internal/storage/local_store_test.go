package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybervault/cybervault/internal/events"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()

	store, err := NewLocalStore(t.TempDir(), events.Discard())
	require.NoError(t, err)
	return store
}

func TestLocalStore_WriteRead(t *testing.T) {
	store := newTestStore(t)

	data := []byte("encrypted payload bytes")
	require.NoError(t, store.Write("blob-1", data))

	got, err := store.Read("blob-1")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalStore_ReadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Read("no-such-blob")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestLocalStore_Overwrite(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write("blob-1", []byte("first")))
	require.NoError(t, store.Write("blob-1", []byte("second")))

	got, err := store.Read("blob-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestLocalStore_Delete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write("blob-1", []byte("data")))
	require.NoError(t, store.Delete("blob-1"))

	_, err := store.Read("blob-1")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	// Deleting again is not an error.
	assert.NoError(t, store.Delete("blob-1"))
}

func TestLocalStore_Exists(t *testing.T) {
	store := newTestStore(t)

	exists, err := store.Exists("blob-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Write("blob-1", []byte("data")))

	exists, err = store.Exists("blob-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalStore_List(t *testing.T) {
	store := newTestStore(t)

	refs, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, refs)

	require.NoError(t, store.Write("blob-a", []byte("a")))
	require.NoError(t, store.Write("blob-b", []byte("b")))

	refs, err = store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"blob-a", "blob-b"}, refs)
}

func TestLocalStore_RejectsBadRefs(t *testing.T) {
	store := newTestStore(t)

	for _, ref := range []string{"", "../escape", "a/b", `a\b`, "..", "x..y"} {
		assert.Error(t, store.Write(ref, []byte("data")), "ref %q", ref)
	}
}

func TestLocalStore_MaxBlobSize(t *testing.T) {
	store := newTestStore(t)
	store.SetMaxBlobSize(8)

	assert.Error(t, store.Write("big", make([]byte, 9)))
	assert.NoError(t, store.Write("ok", make([]byte, 8)))
}

func TestLocalStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, events.Discard())
	require.NoError(t, err)

	require.NoError(t, store.Write("blob-1", []byte("data")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp.")
	}
	assert.FileExists(t, filepath.Join(dir, "blob-1"))
}
