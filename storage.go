package blobx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Domain Errors - use errors.Is for checking
var (
	// ErrNotFound indicates the addressed path does not exist under the root
	ErrNotFound = errors.New("blobx: blob not found")

	// ErrInvalidConfig indicates the storage configuration is invalid or
	// incomplete for the selected backend
	ErrInvalidConfig = errors.New("blobx: invalid configuration")

	// ErrInvalidPath indicates the blob path is absolute or escapes the root
	ErrInvalidPath = errors.New("blobx: invalid blob path")

	// ErrAborted indicates the operation was aborted (context cancellation)
	ErrAborted = errors.New("blobx: operation aborted")

	// ErrTimeout indicates the operation timed out
	ErrTimeout = errors.New("blobx: operation timeout")

	// ErrConflict indicates the operation conflicts with backend state
	// (e.g., bucket already exists)
	ErrConflict = errors.New("blobx: conflict")

	// ErrTooLarge indicates the payload exceeds a backend limit
	ErrTooLarge = errors.New("blobx: payload too large")
)

// StorageError wraps underlying errors with additional context
type StorageError struct {
	Op   string // operation that failed
	Path string // blob path (if applicable)
	Err  error  // underlying error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("blobx %s %q: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("blobx %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if an error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidConfig checks if an error is or wraps ErrInvalidConfig
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// Stat contains blob metadata
type Stat struct {
	// Path is the relative blob path the metadata was read for
	Path string

	// Size is the blob size in bytes
	Size int64

	// CreatedAt is the creation timestamp. Zero when the backend cannot
	// provide it (object stores typically only report last-modified).
	CreatedAt time.Time

	// ModifiedAt is when the blob was last modified
	ModifiedAt time.Time

	// IsDir reports whether the path denotes a container rather than a blob
	// (local/NAS only)
	IsDir bool

	// ETag is the content-integrity tag, when the backend provides one
	ETag string

	// ContentType is the MIME type, when the backend provides one
	ContentType string

	// Location is the backend-specific locator string. Callers may log it
	// but must not parse it.
	Location string
}

// URLOptions configures URL generation
type URLOptions struct {
	// Expiry is how long a presigned URL remains valid. Ignored by backends
	// that return plain file:// URLs. Zero means the configured default.
	Expiry time.Duration
}

// Storage is the uniform contract every backend implements. All paths are
// relative keys resolved against the backend's root; no path may escape the
// root via traversal.
//
// Individual calls are independent and hold no per-call state on the
// handle, so one Storage instance may be shared by concurrent callers.
// Cross-operation atomicity is not guaranteed: concurrent writers to the
// same path resolve by last-writer-wins.
type Storage interface {
	// Save writes (or overwrites) the blob at path, creating intermediate
	// containers implicitly. It returns a backend-specific locator string.
	Save(ctx context.Context, path string, data []byte) (string, error)

	// SaveStream is Save for an open byte stream, without buffering the
	// whole payload in memory where the backend allows. It does not close r.
	SaveStream(ctx context.Context, path string, r io.Reader) (string, error)

	// Load returns the full blob, or ErrNotFound if path does not exist.
	Load(ctx context.Context, path string) ([]byte, error)

	// LoadStream returns a reader for the blob, or ErrNotFound if path does
	// not exist. The caller must close the reader on every exit path.
	LoadStream(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the blob (or, for local/NAS, a container recursively).
	// It reports whether anything was removed; a missing path is (false, nil),
	// never an error.
	Delete(ctx context.Context, path string) (bool, error)

	// Exists probes for the path. A missing path is (false, nil), never an
	// error; a backend fault that prevents the probe is returned as an error.
	Exists(ctx context.Context, path string) (bool, error)

	// List enumerates every blob path under prefix. A prefix naming a single
	// blob yields exactly that path; a missing prefix yields an empty slice,
	// not an error. Each call re-enumerates.
	List(ctx context.Context, prefix string) ([]string, error)

	// URL returns a dereferenceable locator for the blob: a file:// URL for
	// local/NAS, a time-limited presigned URL for object storage.
	URL(ctx context.Context, path string, opts *URLOptions) (string, error)

	// Stat returns blob metadata, or ErrNotFound if path does not exist.
	Stat(ctx context.Context, path string) (Stat, error)
}

// CleanPath normalizes a blob path to a slash-separated relative key and
// rejects paths that are absolute or escape the root via traversal.
func CleanPath(p string) (string, error) {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidPath, p)
	}

	cleaned := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q escapes the storage root", ErrInvalidPath, p)
	}

	return cleaned, nil
}
