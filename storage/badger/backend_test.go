package badger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/cruisekb/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	backend, err := OpenBackend(dir, false, nil)
	require.NoError(t, err)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_PathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := OpenBackend(file, false, nil)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	err = backend.WithTx(func(tx *badger.Txn) error { return nil }, false)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestDeletePrefixes(t *testing.T) {
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)
	defer backend.Close()

	// More keys than one delete chunk
	total := deleteChunkSize + 250
	err = backend.WithTx(func(tx *badger.Txn) error {
		for i := range total {
			if err := tx.Set(makePositionKey("tst:", uint64(i)), []byte("v")); err != nil {
				return err
			}
		}
		if err := tx.Set([]byte("tstseq"), []byte("keep")); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	require.NoError(t, err)

	count, err := backend.countPrefix([]byte("tst:"))
	require.NoError(t, err)
	require.Equal(t, total, count)

	require.NoError(t, backend.deletePrefixes([]byte("tst:")))

	count, err = backend.countPrefix([]byte("tst:"))
	require.NoError(t, err)
	assert.Zero(t, count)

	err = backend.WithTx(func(tx *badger.Txn) error {
		value, err := getValue(tx, []byte("tstseq"))
		require.NoError(t, err)
		assert.Equal(t, "keep", string(value))
		return nil
	}, false)
	require.NoError(t, err)
}

func TestGetValue_NotFound(t *testing.T) {
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)
	defer backend.Close()

	err = backend.WithTx(func(tx *badger.Txn) error {
		_, err := getValue(tx, []byte("missing"))
		return err
	}, false)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}
