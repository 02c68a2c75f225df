package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kv interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

func exerciseKV(t *testing.T, store kv) {
	t.Helper()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, "k", "v1"))
	require.NoError(t, store.Put(ctx, "k", "v2"))

	v, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v2", v)

	require.NoError(t, store.Delete(ctx, "k"))
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Delete(ctx, "k"), "deleting an absent key is not an error")
}

func TestSQLiteRepository(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "finboard.db")

	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	exerciseKV(t, repo)
	assert.NoError(t, repo.HealthCheck(context.Background()))
}

func TestSQLiteRepository_Reopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "finboard.db")

	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	require.NoError(t, repo.Put(ctx, "notion_dashboard_config", `{"token":"ntn_x"}`))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	v, found, err := reopened.Get(ctx, "notion_dashboard_config")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"token":"ntn_x"}`, v)
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}
