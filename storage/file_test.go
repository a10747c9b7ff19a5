package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "keys")

	backend, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)
	assert.True(t, backend.Available(ctx))
	assert.Equal(t, "file://"+dir, backend.LocationURI())

	_, err = backend.Fetch(ctx, testKey)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	require.NoError(t, backend.Store(ctx, testKey, []byte("v1")))
	require.NoError(t, backend.Store(ctx, testKey, []byte("v2")))
	data, err := backend.Fetch(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data, "store replaces the record")

	require.NoError(t, backend.Store(ctx, "buyer.example.com/k1", []byte("x")))
	// Stray files are ignored when listing.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hi"), 0600))

	names, err := backend.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{testKey, "buyer.example.com/k1"}, names)

	require.NoError(t, backend.Delete(ctx, testKey))
	assert.ErrorIs(t, backend.Delete(ctx, testKey), interfaces.ErrContentNotFound)

	names, err = backend.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"buyer.example.com/k1"}, names)
}

func TestRecordNameEncoding(t *testing.T) {
	for _, name := range []string{testKey, "a/b/c", "../../etc/passwd", "ключ"} {
		encoded := encodeRecordName(name)
		assert.NotContains(t, encoded, "/")
		decoded, err := decodeRecordName(encoded)
		require.NoError(t, err)
		assert.Equal(t, name, decoded)
	}
}
