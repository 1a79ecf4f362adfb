package statestore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tiss-greeter/greetd-backend/internal/statestore"
)

func newStoreIn(t *testing.T, dir string) *statestore.Store {
	t.Helper()
	t.Setenv("XDG_STATE_HOME", dir)
	return statestore.New()
}

func TestReadMissingFileIsEmpty(t *testing.T) {
	store := newStoreIn(t, t.TempDir())
	require.Equal(t, statestore.State{}, store.Read())
}

func TestReadMalformedFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	store := newStoreIn(t, dir)

	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o700))
	require.NoError(t, os.WriteFile(store.Path(), []byte("not json"), 0o600))

	require.Equal(t, statestore.State{}, store.Read())
}

func TestMergePreservesUnspecifiedFields(t *testing.T) {
	store := newStoreIn(t, t.TempDir())

	require.NoError(t, store.Merge(statestore.State{LastSessionID: "niri"}))
	require.NoError(t, store.Merge(statestore.State{LastProfileID: "work"}))

	got := store.Read()
	require.Equal(t, "niri", got.LastSessionID)
	require.Equal(t, "work", got.LastProfileID)
	require.Empty(t, got.LastLocale)
}

func TestMergeOverwritesSpecifiedField(t *testing.T) {
	store := newStoreIn(t, t.TempDir())

	require.NoError(t, store.Merge(statestore.State{LastSessionID: "niri"}))
	require.NoError(t, store.Merge(statestore.State{LastSessionID: "sway"}))

	got := store.Read()
	require.Equal(t, "sway", got.LastSessionID)
}

func TestWriteIsAtomic(t *testing.T) {
	store := newStoreIn(t, t.TempDir())
	require.NoError(t, store.Merge(statestore.State{LastLocale: "en_US.UTF-8"}))

	_, err := os.Stat(store.Path() + ".tmp")
	require.True(t, os.IsNotExist(err), "tempfile should not survive a successful write")

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	require.Contains(t, string(data), "en_US.UTF-8")
}
