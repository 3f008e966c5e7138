package protocol

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "artifacts"))
	require.NoError(t, err)

	payload := []byte{0x01, 0x02, 0x03}
	require.NoError(t, store.Put("public-key", payload))

	got, err := store.Get("public-key")
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFileStoreWriteOnce(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put("context", []byte("a")))
	require.Error(t, store.Put("context", []byte("b")))

	got, err := store.Get("context")
	require.NoError(t, err)
	require.Equal(t, []byte("a"), got)
}

func TestFileStoreMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("switch-key")
	require.ErrorIs(t, err, ErrArtifactMissing)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put("rotation-key", []byte("keys")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "rotation-key", entries[0].Name())
}

func TestMemStoreSemantics(t *testing.T) {
	store := NewMemStore()

	payload := []byte("blob")
	require.NoError(t, store.Put("context", payload))
	require.Error(t, store.Put("context", payload), "write-once")

	// The store must hold its own copy.
	payload[0] = 'X'
	got, err := store.Get("context")
	require.NoError(t, err)
	require.Equal(t, []byte("blob"), got)

	_, err = store.Get("absent")
	require.ErrorIs(t, err, ErrArtifactMissing)

	store.Delete("context")
	_, err = store.Get("context")
	require.ErrorIs(t, err, ErrArtifactMissing)
}
