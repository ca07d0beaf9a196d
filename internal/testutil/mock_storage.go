// Package testutil provides in-memory test doubles for blobx consumers.
package testutil

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gostratum/blobx"
)

// MockStorage is a thread-safe in-memory implementation of blobx.Storage for
// testing.
type MockStorage struct {
	mu      sync.RWMutex
	objects map[string]*mockObject // path -> object
}

type mockObject struct {
	data       []byte
	modifiedAt time.Time
	createdAt  time.Time
	etag       string
}

var _ blobx.Storage = (*MockStorage)(nil)

// NewMockStorage creates a new in-memory mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		objects: make(map[string]*mockObject),
	}
}

// Len returns the number of stored blobs.
func (m *MockStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MockStorage) normalize(op, p string) (string, error) {
	key, err := blobx.CleanPath(p)
	if err != nil {
		return "", &blobx.StorageError{Op: op, Path: p, Err: err}
	}
	return key, nil
}

func (m *MockStorage) Save(ctx context.Context, p string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &blobx.StorageError{Op: "save", Path: p, Err: err}
	}

	key, err := m.normalize("save", p)
	if err != nil {
		return "", err
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	created := now
	if prev, exists := m.objects[key]; exists {
		created = prev.createdAt
	}
	m.objects[key] = &mockObject{
		data:       stored,
		modifiedAt: now,
		createdAt:  created,
		etag:       generateETag(stored),
	}

	return "mock://" + key, nil
}

func (m *MockStorage) SaveStream(ctx context.Context, p string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", &blobx.StorageError{Op: "save_stream", Path: p, Err: err}
	}
	return m.Save(ctx, p, data)
}

func (m *MockStorage) Load(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &blobx.StorageError{Op: "load", Path: p, Err: err}
	}

	key, err := m.normalize("load", p)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, exists := m.objects[key]
	if !exists {
		return nil, &blobx.StorageError{Op: "load", Path: p, Err: blobx.ErrNotFound}
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, nil
}

func (m *MockStorage) LoadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	data, err := m.Load(ctx, p)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStorage) Delete(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &blobx.StorageError{Op: "delete", Path: p, Err: err}
	}

	key, err := m.normalize("delete", p)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.objects[key]; exists {
		delete(m.objects, key)
		return true, nil
	}

	// Treat the key as a container and remove everything beneath it.
	removed := false
	for stored := range m.objects {
		if key == "" || strings.HasPrefix(stored, key+"/") {
			delete(m.objects, stored)
			removed = true
		}
	}
	return removed, nil
}

func (m *MockStorage) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &blobx.StorageError{Op: "exists", Path: p, Err: err}
	}

	key, err := m.normalize("exists", p)
	if err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, exists := m.objects[key]; exists {
		return true, nil
	}
	for stored := range m.objects {
		if strings.HasPrefix(stored, key+"/") {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockStorage) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &blobx.StorageError{Op: "list", Path: prefix, Err: err}
	}

	key, err := m.normalize("list", prefix)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := []string{}
	for stored := range m.objects {
		if key == "" || stored == key || strings.HasPrefix(stored, key+"/") {
			paths = append(paths, stored)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *MockStorage) URL(ctx context.Context, p string, _ *blobx.URLOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &blobx.StorageError{Op: "url", Path: p, Err: err}
	}

	key, err := m.normalize("url", p)
	if err != nil {
		return "", err
	}

	return "https://mock-storage.example.com/" + key + "?signature=mock", nil
}

func (m *MockStorage) Stat(ctx context.Context, p string) (blobx.Stat, error) {
	if err := ctx.Err(); err != nil {
		return blobx.Stat{}, &blobx.StorageError{Op: "stat", Path: p, Err: err}
	}

	key, err := m.normalize("stat", p)
	if err != nil {
		return blobx.Stat{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, exists := m.objects[key]
	if !exists {
		return blobx.Stat{}, &blobx.StorageError{Op: "stat", Path: p, Err: blobx.ErrNotFound}
	}

	return blobx.Stat{
		Path:       p,
		Size:       int64(len(obj.data)),
		CreatedAt:  obj.createdAt,
		ModifiedAt: obj.modifiedAt,
		ETag:       obj.etag,
		Location:   "mock://" + key,
	}, nil
}

// generateETag creates an MD5-based ETag matching the S3 convention.
func generateETag(data []byte) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%x", md5.Sum(data)))
}
