package blobx_test

import (
	"context"
	"testing"

	"github.com/gostratum/blobx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gostratum/blobx/adapters/local"
)

func TestNew_LocalBackend(t *testing.T) {
	ctx := context.Background()

	cfg := blobx.DefaultConfig()
	cfg.LocalPath = t.TempDir()

	storage, err := blobx.New(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, storage)

	location, err := storage.Save(ctx, "probe.txt", []byte("ok"))
	require.NoError(t, err)
	assert.NotEmpty(t, location)
}

func TestNew_NASBackend(t *testing.T) {
	ctx := context.Background()

	cfg := blobx.DefaultConfig()
	cfg.Backend = blobx.BackendNAS
	cfg.NASPath = t.TempDir()

	storage, err := blobx.New(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, storage)
}

func TestNew_ValidationPrecedesConstruction(t *testing.T) {
	ctx := context.Background()

	t.Run("nas without nas_path", func(t *testing.T) {
		cfg := blobx.DefaultConfig()
		cfg.Backend = blobx.BackendNAS

		_, err := blobx.New(ctx, cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, blobx.ErrInvalidConfig)
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		cfg := blobx.DefaultConfig()
		cfg.Backend = blobx.BackendS3

		_, err := blobx.New(ctx, cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, blobx.ErrInvalidConfig)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := blobx.DefaultConfig()
		cfg.Backend = "gopher"

		_, err := blobx.New(ctx, cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, blobx.ErrInvalidConfig)
	})
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	// Nil config normalizes to the local backend with ./data; point it
	// somewhere disposable instead.
	ctx := context.Background()

	cfg := &blobx.Config{LocalPath: t.TempDir()}
	storage, err := blobx.New(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, storage)
}

func TestRegisteredBackends(t *testing.T) {
	backends := blobx.RegisteredBackends()
	assert.Contains(t, backends, blobx.BackendLocal)
	assert.Contains(t, backends, blobx.BackendNAS)
}
