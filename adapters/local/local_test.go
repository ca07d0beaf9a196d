package local_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/gostratum/blobx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) blobx.Storage {
	t.Helper()

	cfg := blobx.DefaultConfig()
	cfg.LocalPath = t.TempDir()

	storage, err := blobx.New(context.Background(), cfg)
	require.NoError(t, err)
	return storage
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	location, err := storage.Save(ctx, "docs/hello.txt", []byte("Hello, World!"))
	require.NoError(t, err)
	assert.NotEmpty(t, location)

	data, err := storage.Load(ctx, "docs/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello, World!"), data)
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	_, err := storage.Save(ctx, "a.txt", []byte("first"))
	require.NoError(t, err)
	_, err = storage.Save(ctx, "a.txt", []byte("second"))
	require.NoError(t, err)

	data, err := storage.Load(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestSaveStream(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	payload := bytes.Repeat([]byte("0123456789"), 10000)
	_, err := storage.SaveStream(ctx, "big/blob.bin", bytes.NewReader(payload))
	require.NoError(t, err)

	rc, err := storage.LoadStream(ctx, "big/blob.bin")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestLoadMissing(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	_, err := storage.Load(ctx, "nope.txt")
	require.Error(t, err)
	assert.True(t, blobx.IsNotFound(err))

	_, err = storage.LoadStream(ctx, "nope.txt")
	require.Error(t, err)
	assert.True(t, blobx.IsNotFound(err))
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	exists, err := storage.Exists(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = storage.Save(ctx, "a.txt", []byte("x"))
	require.NoError(t, err)

	exists, err = storage.Exists(ctx, "a.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	t.Run("file", func(t *testing.T) {
		_, err := storage.Save(ctx, "del/a.txt", []byte("x"))
		require.NoError(t, err)

		deleted, err := storage.Delete(ctx, "del/a.txt")
		require.NoError(t, err)
		assert.True(t, deleted)

		exists, err := storage.Exists(ctx, "del/a.txt")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("directory recursively", func(t *testing.T) {
		_, err := storage.Save(ctx, "tree/x/a.txt", []byte("x"))
		require.NoError(t, err)
		_, err = storage.Save(ctx, "tree/y/b.txt", []byte("y"))
		require.NoError(t, err)

		deleted, err := storage.Delete(ctx, "tree")
		require.NoError(t, err)
		assert.True(t, deleted)

		exists, err := storage.Exists(ctx, "tree/x/a.txt")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("missing is not an error", func(t *testing.T) {
		deleted, err := storage.Delete(ctx, "ghost.txt")
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestDeleteRootKeepsHandleUsable(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	_, err := storage.Save(ctx, "a/b.txt", []byte("x"))
	require.NoError(t, err)

	deleted, err := storage.Delete(ctx, "")
	require.NoError(t, err)
	assert.True(t, deleted)

	paths, err := storage.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, paths)

	// The root directory survives; new writes need no re-initialization.
	_, err = storage.Save(ctx, "c.txt", []byte("y"))
	require.NoError(t, err)

	deleted, err = storage.Delete(ctx, "c.txt")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = storage.Delete(ctx, "")
	require.NoError(t, err)
	assert.False(t, deleted, "an empty root has nothing to remove")
}

func TestList(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	for _, p := range []string{"docs/a.txt", "docs/sub/b.txt", "other/c.txt"} {
		_, err := storage.Save(ctx, p, []byte("x"))
		require.NoError(t, err)
	}

	t.Run("directory prefix recurses", func(t *testing.T) {
		paths, err := storage.List(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, []string{"docs/a.txt", "docs/sub/b.txt"}, paths)
	})

	t.Run("file prefix yields itself", func(t *testing.T) {
		paths, err := storage.List(ctx, "docs/a.txt")
		require.NoError(t, err)
		assert.Equal(t, []string{"docs/a.txt"}, paths)
	})

	t.Run("existing empty directory yields empty", func(t *testing.T) {
		_, err := storage.Save(ctx, "vacant/seed.txt", []byte("x"))
		require.NoError(t, err)
		_, err = storage.Delete(ctx, "vacant/seed.txt")
		require.NoError(t, err)

		paths, err := storage.List(ctx, "vacant")
		require.NoError(t, err)
		assert.Empty(t, paths)
		assert.NotNil(t, paths)
	})

	t.Run("missing prefix yields empty", func(t *testing.T) {
		paths, err := storage.List(ctx, "absent")
		require.NoError(t, err)
		assert.Empty(t, paths)
		assert.NotNil(t, paths)
	})

	t.Run("empty prefix lists everything", func(t *testing.T) {
		paths, err := storage.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"docs/a.txt", "docs/sub/b.txt", "other/c.txt"}, paths)
	})
}

func TestStat(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	_, err := storage.Save(ctx, "info/hello.txt", []byte("Hello, World!"))
	require.NoError(t, err)

	st, err := storage.Stat(ctx, "info/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(13), st.Size)
	assert.False(t, st.IsDir)
	assert.False(t, st.ModifiedAt.IsZero())
	assert.Contains(t, st.ContentType, "text/plain")

	_, err = storage.Stat(ctx, "info/absent.txt")
	require.Error(t, err)
	assert.True(t, blobx.IsNotFound(err))
}

func TestURL(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	_, err := storage.Save(ctx, "u/a.txt", []byte("x"))
	require.NoError(t, err)

	u, err := storage.URL(ctx, "u/a.txt", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"), "got %q", u)
	assert.True(t, strings.HasSuffix(u, "/u/a.txt"), "got %q", u)
}

func TestPathTraversalRejected(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	for _, p := range []string{"../escape.txt", "a/../../escape.txt", "/etc/passwd"} {
		_, err := storage.Save(ctx, p, []byte("x"))
		require.Error(t, err, "path %q", p)
		assert.ErrorIs(t, err, blobx.ErrInvalidPath, "path %q", p)
	}
}

func TestContextCancellation(t *testing.T) {
	storage := newTestStorage(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.Save(ctx, "a.txt", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, blobx.ErrAborted)
}

func TestNASBackend(t *testing.T) {
	ctx := context.Background()

	cfg := blobx.DefaultConfig()
	cfg.Backend = blobx.BackendNAS
	cfg.NASPath = t.TempDir()

	storage, err := blobx.New(ctx, cfg)
	require.NoError(t, err)

	_, err = storage.Save(ctx, "shared/report.pdf", []byte("pdf-bytes"))
	require.NoError(t, err)

	data, err := storage.Load(ctx, "shared/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf-bytes"), data)
}
