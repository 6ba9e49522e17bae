package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Rrens/zara-ai/internal/persistence"
	"github.com/Rrens/zara-ai/internal/repository/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKV_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv, err := file.NewKV(t.TempDir())
	require.NoError(t, err)

	_, err = kv.Get(ctx, "sessions")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	require.NoError(t, kv.Set(ctx, "sessions", []byte(`[1]`)))
	require.NoError(t, kv.Set(ctx, "sessions", []byte(`[1,2]`)))

	got, err := kv.Get(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(got))

	require.NoError(t, kv.Remove(ctx, "sessions"))
	require.NoError(t, kv.Remove(ctx, "sessions"))

	_, err = kv.Get(ctx, "sessions")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestKV_KeyEscaping(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	kv, err := file.NewKV(dir)
	require.NoError(t, err)

	require.NoError(t, kv.Set(ctx, "../escape", []byte(`{}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, dir, filepath.Dir(filepath.Join(dir, entries[0].Name())))
}

func TestNewKV_RequiresDir(t *testing.T) {
	_, err := file.NewKV("")
	assert.Error(t, err)
}
