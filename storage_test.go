package blobx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "simple", in: "a/b.txt", want: "a/b.txt"},
		{name: "redundant separators", in: "a//b/./c.txt", want: "a/b/c.txt"},
		{name: "backslashes normalized", in: `a\b\c.txt`, want: "a/b/c.txt"},
		{name: "trailing slash", in: "a/b/", want: "a/b"},
		{name: "internal dotdot resolved", in: "a/b/../c.txt", want: "a/c.txt"},
		{name: "empty", in: "", want: ""},
		{name: "dot", in: ".", want: ""},
		{name: "absolute rejected", in: "/etc/passwd", wantErr: true},
		{name: "absolute backslash rejected", in: `\windows\system32`, wantErr: true},
		{name: "escape rejected", in: "../secret", wantErr: true},
		{name: "nested escape rejected", in: "a/../../secret", wantErr: true},
		{name: "bare dotdot rejected", in: "..", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanPath(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStorageError(t *testing.T) {
	t.Run("formats with path", func(t *testing.T) {
		err := &StorageError{Op: "load", Path: "a/b.txt", Err: ErrNotFound}
		assert.Contains(t, err.Error(), "load")
		assert.Contains(t, err.Error(), "a/b.txt")
	})

	t.Run("formats without path", func(t *testing.T) {
		err := &StorageError{Op: "list", Err: ErrTimeout}
		assert.Contains(t, err.Error(), "list")
	})

	t.Run("unwraps to sentinel", func(t *testing.T) {
		err := &StorageError{Op: "load", Path: "x", Err: ErrNotFound}
		assert.ErrorIs(t, err, ErrNotFound)
		assert.True(t, IsNotFound(err))
	})

	t.Run("unwraps through nested wrapping", func(t *testing.T) {
		inner := fmt.Errorf("bucket gone: %w", ErrNotFound)
		err := &StorageError{Op: "stat", Path: "x", Err: inner}
		assert.True(t, IsNotFound(err))
	})

	t.Run("IsInvalidConfig", func(t *testing.T) {
		err := fmt.Errorf("wrap: %w", ErrInvalidConfig)
		assert.True(t, IsInvalidConfig(err))
		assert.False(t, IsInvalidConfig(errors.New("other")))
	})
}
