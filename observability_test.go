package blobx

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceOperation_NoBackends(t *testing.T) {
	ins := NewInstrumenter(nil, nil)

	called := false
	err := ins.TraceOperation(context.Background(), "save", "a/b.txt", func(ctx context.Context) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called, "wrapped function should run even without metrics or tracer")
}

func TestTraceOperation_PropagatesError(t *testing.T) {
	ins := NewInstrumenter(nil, nil)

	wantErr := errors.New("backend down")
	err := ins.TraceOperation(context.Background(), "load", "a/b.txt", func(ctx context.Context) error {
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
}

func TestRecorders_NilMetricsNoPanic(t *testing.T) {
	ins := NewInstrumenter(nil, nil)

	ins.RecordOperationSize("save", 1024)
	ins.RecordMultipartOperation("upload", 3)
	ins.RecordListOperation(42)
	ins.RecordPresignOperation("url")
}

func TestInstrument_NilInstrumenterPassthrough(t *testing.T) {
	s := &staticStorage{}
	assert.Same(t, Storage(s), Instrument(s, nil))
}

func TestInstrument_Delegates(t *testing.T) {
	ctx := context.Background()
	inner := &staticStorage{}
	wrapped := Instrument(inner, NewInstrumenter(nil, nil))

	location, err := wrapped.Save(ctx, "a.txt", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "static://a.txt", location)

	data, err := wrapped.Load(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	deleted, err := wrapped.Delete(ctx, "a.txt")
	require.NoError(t, err)
	assert.True(t, deleted)

	exists, err := wrapped.Exists(ctx, "a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	paths, err := wrapped.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, paths)

	u, err := wrapped.URL(ctx, "a.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, "static://a.txt", u)

	st, err := wrapped.Stat(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(7), st.Size)
}

// staticStorage returns canned values; it exists to verify the decorator
// forwards calls and results untouched.
type staticStorage struct{}

func (s *staticStorage) Save(ctx context.Context, path string, data []byte) (string, error) {
	return "static://" + path, nil
}

func (s *staticStorage) SaveStream(ctx context.Context, path string, r io.Reader) (string, error) {
	return "static://" + path, nil
}

func (s *staticStorage) Load(ctx context.Context, path string) ([]byte, error) {
	return []byte("payload"), nil
}

func (s *staticStorage) LoadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	return io.NopCloser(nil), nil
}

func (s *staticStorage) Delete(ctx context.Context, path string) (bool, error) { return true, nil }

func (s *staticStorage) Exists(ctx context.Context, path string) (bool, error) { return true, nil }

func (s *staticStorage) List(ctx context.Context, prefix string) ([]string, error) {
	return []string{"a.txt"}, nil
}

func (s *staticStorage) URL(ctx context.Context, path string, opts *URLOptions) (string, error) {
	return "static://" + path, nil
}

func (s *staticStorage) Stat(ctx context.Context, path string) (Stat, error) {
	return Stat{Path: path, Size: 7}, nil
}
