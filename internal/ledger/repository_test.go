package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store := NewFileStore(path)
	ctx := context.Background()

	ids := []string{"transaction-T1-paid", "withdrawal-W1-approved"}
	require.NoError(t, store.Save(ctx, ids))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids, loaded)
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist.json"))

	ids, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewFileStore(path)
	_, err := store.Load(context.Background())
	assert.Error(t, err)
}

func TestFileStore_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "ledger.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(context.Background(), []string{"transaction-T1-paid"}))

	ids, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"transaction-T1-paid"}, ids)
}

func TestFileStore_SaveNilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestFileStore_OverwriteReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []string{"a"}))
	require.NoError(t, store.Save(ctx, []string{"a", "b"}))

	ids, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}
