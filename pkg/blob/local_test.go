package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalBackendPutGetExists(t *testing.T) {
	b := NewLocalBackend(t.TempDir())
	ctx := context.Background()

	ok, err := b.Exists(ctx, "CASE-1.zip")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, b.Put(ctx, "CASE-1.zip", []byte("archive bytes")))

	ok, err = b.Exists(ctx, "CASE-1.zip")
	require.NoError(t, err)
	require.True(t, ok)

	data, err := b.Get(ctx, "CASE-1.zip")
	require.NoError(t, err)
	require.Equal(t, []byte("archive bytes"), data)
}

func TestLocalBackendNestedKey(t *testing.T) {
	b := NewLocalBackend(t.TempDir())
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "mirrors/2024/CASE-1.zip", []byte("x")))
	data, err := b.Get(ctx, "mirrors/2024/CASE-1.zip")
	require.NoError(t, err)
	require.Equal(t, []byte("x"), data)
}
