package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Rrens/zara-ai/internal/persistence"
	"github.com/Rrens/zara-ai/internal/repository/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKV_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "zara.db")

	kv, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer kv.Close()

	_, err = kv.Get(ctx, "sessions")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	require.NoError(t, kv.Set(ctx, "sessions", []byte(`["a"]`)))
	require.NoError(t, kv.Set(ctx, "sessions", []byte(`["a","b"]`)))

	got, err := kv.Get(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, string(got))

	require.NoError(t, kv.Remove(ctx, "sessions"))
	_, err = kv.Get(ctx, "sessions")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	assert.NoError(t, kv.Ping(ctx))
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "zara.db")

	kv, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "k", []byte("v")))
	require.NoError(t, kv.Close())

	kv, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer kv.Close()

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}
