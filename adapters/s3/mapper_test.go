package s3

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gostratum/blobx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapS3Error(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, MapS3Error(nil, "load", "a.txt"))
	})

	t.Run("context canceled", func(t *testing.T) {
		err := MapS3Error(context.Canceled, "load", "a.txt")
		assert.ErrorIs(t, err, blobx.ErrAborted)
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		err := MapS3Error(context.DeadlineExceeded, "load", "a.txt")
		assert.ErrorIs(t, err, blobx.ErrTimeout)
	})

	t.Run("no such key", func(t *testing.T) {
		err := MapS3Error(&types.NoSuchKey{}, "load", "a.txt")
		assert.True(t, blobx.IsNotFound(err))
	})

	t.Run("no such bucket", func(t *testing.T) {
		err := MapS3Error(&types.NoSuchBucket{}, "list", "")
		assert.True(t, blobx.IsNotFound(err))
	})

	t.Run("head not found", func(t *testing.T) {
		err := MapS3Error(&types.NotFound{}, "stat", "a.txt")
		assert.True(t, blobx.IsNotFound(err))
	})

	t.Run("bucket already exists", func(t *testing.T) {
		err := MapS3Error(&types.BucketAlreadyExists{}, "save", "a.txt")
		assert.ErrorIs(t, err, blobx.ErrConflict)
	})

	t.Run("message fallback not found", func(t *testing.T) {
		err := MapS3Error(errors.New("the specified key does not exist"), "load", "a.txt")
		assert.True(t, blobx.IsNotFound(err))
	})

	t.Run("message fallback timeout", func(t *testing.T) {
		err := MapS3Error(errors.New("request timeout while connecting"), "save", "a.txt")
		assert.ErrorIs(t, err, blobx.ErrTimeout)
	})

	t.Run("unknown error wrapped with op and path", func(t *testing.T) {
		cause := errors.New("wire melted")
		err := MapS3Error(cause, "save", "a/b.txt")

		var storageErr *blobx.StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "save", storageErr.Op)
		assert.Equal(t, "a/b.txt", storageErr.Path)
		assert.ErrorIs(t, err, cause)
	})
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "not found", err: fmt.Errorf("wrap: %w", blobx.ErrNotFound), want: false},
		{name: "invalid config", err: fmt.Errorf("wrap: %w", blobx.ErrInvalidConfig), want: false},
		{name: "invalid path", err: fmt.Errorf("wrap: %w", blobx.ErrInvalidPath), want: false},
		{name: "conflict", err: fmt.Errorf("wrap: %w", blobx.ErrConflict), want: false},
		{name: "timeout", err: fmt.Errorf("wrap: %w", blobx.ErrTimeout), want: true},
		{name: "unknown defaults to retry", err: errors.New("mystery"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

func TestWrapError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, WrapError(nil, "save", "a.txt"))
	})

	t.Run("wraps plain errors", func(t *testing.T) {
		err := WrapError(errors.New("boom"), "save", "a.txt")

		var storageErr *blobx.StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "save", storageErr.Op)
	})

	t.Run("does not double wrap", func(t *testing.T) {
		inner := &blobx.StorageError{Op: "load", Path: "a.txt", Err: blobx.ErrNotFound}
		assert.Same(t, error(inner), WrapError(inner, "save", "b.txt"))
	})
}
