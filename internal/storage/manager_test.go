package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "export")
	require.NoError(t, err)
	return store
}

func TestNewLocalStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "exports")
	_, err := NewLocalStore(dir, "export")
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestLocalStore_Save(t *testing.T) {
	store := createTestStore(t)

	info, err := store.Save("capture.log", strings.NewReader("a:1\nb:2\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "capture.log", info.Name)
	assert.Equal(t, int64(8), info.Size)
	assert.Equal(t, "export", info.Kind)

	path, err := store.GetFilePath(info.ID)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a:1\nb:2\n", string(data))
}

func TestLocalStore_SaveBytes(t *testing.T) {
	store := createTestStore(t)

	info, err := store.SaveBytes("dump.csv", []byte("x"))
	require.NoError(t, err)

	got, err := store.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, info, got)
}

func TestLocalStore_List(t *testing.T) {
	store := createTestStore(t)

	first, _ := store.SaveBytes("first", nil)
	time.Sleep(2 * time.Millisecond)
	second, _ := store.SaveBytes("second", nil)

	list, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	list, err = store.List(1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLocalStore_Delete(t *testing.T) {
	store := createTestStore(t)

	info, _ := store.SaveBytes("gone", []byte("bye"))
	path, _ := store.GetFilePath(info.ID)

	require.NoError(t, store.Delete(info.ID))
	assert.NoFileExists(t, path)

	assert.ErrorIs(t, store.Delete(info.ID), ErrFileNotFound)
	_, err := store.Get(info.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = store.GetFilePath(info.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}
