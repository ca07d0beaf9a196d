// Package local implements the blobx.Storage contract on a local filesystem
// root. The same implementation serves the "nas" backend, rooted at a network
// mount instead of a local data directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/gostratum/blobx"
	"github.com/gostratum/core/logx"
)

func init() {
	blobx.Register(blobx.BackendLocal, New)
	blobx.Register(blobx.BackendNAS, New)
}

// Storage implements blobx.Storage on a directory tree.
type Storage struct {
	root    string
	logger  logx.Logger
	verbose bool
}

var _ blobx.Storage = (*Storage)(nil)

// New creates a filesystem storage rooted at the configured directory. The
// root (with parents) is created if it does not exist. For the "nas" backend
// the root is the configured NAS path and is never defaulted.
func New(ctx context.Context, cfg *blobx.Config, opts ...blobx.Option) (blobx.Storage, error) {
	_, options := blobx.GetEffectiveConfig(cfg, opts...)

	root := cfg.LocalPath
	if cfg.Backend == blobx.BackendNAS {
		root = cfg.NASPath
	}
	if root == "" {
		return nil, fmt.Errorf("%w: no root directory configured for backend %q", blobx.ErrInvalidConfig, cfg.Backend)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve root %q: %v", blobx.ErrInvalidConfig, root, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, &blobx.StorageError{Op: "init", Path: root, Err: err}
	}

	s := &Storage{
		root:    abs,
		logger:  options.GetLogger(),
		verbose: cfg.EnableLogging,
	}

	s.debug("filesystem storage initialized", "root", abs, "backend", cfg.Backend)
	return s, nil
}

// Root returns the absolute root directory.
func (s *Storage) Root() string { return s.root }

func (s *Storage) debug(msg string, args ...any) {
	if s.verbose {
		s.logger.Debug(msg, blobx.ArgsToFields(args...)...)
	}
}

// resolve normalizes a blob path and maps it under the root.
func (s *Storage) resolve(op, p string) (string, error) {
	key, err := blobx.CleanPath(p)
	if err != nil {
		return "", &blobx.StorageError{Op: op, Path: p, Err: err}
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// ctxGuard converts a cancelled or expired context into a domain error.
func ctxGuard(ctx context.Context, op, path string) error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return &blobx.StorageError{Op: op, Path: path, Err: blobx.ErrTimeout}
	default:
		return &blobx.StorageError{Op: op, Path: path, Err: blobx.ErrAborted}
	}
}

func (s *Storage) Save(ctx context.Context, path string, data []byte) (string, error) {
	if err := ctxGuard(ctx, "save", path); err != nil {
		return "", err
	}

	full, err := s.resolve("save", path)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", &blobx.StorageError{Op: "save", Path: path, Err: err}
	}
	if err := os.WriteFile(full, data, 0o640); err != nil {
		return "", &blobx.StorageError{Op: "save", Path: path, Err: err}
	}

	s.debug("saved blob", "path", path, "size", len(data))
	return full, nil
}

func (s *Storage) SaveStream(ctx context.Context, path string, r io.Reader) (string, error) {
	if err := ctxGuard(ctx, "save_stream", path); err != nil {
		return "", err
	}

	full, err := s.resolve("save_stream", path)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", &blobx.StorageError{Op: "save_stream", Path: path, Err: err}
	}

	// Stream into a uniquely named sibling and rename into place so readers
	// never observe a half-written blob.
	tmp := filepath.Join(dir, "."+filepath.Base(full)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", &blobx.StorageError{Op: "save_stream", Path: path, Err: err}
	}

	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, full)
	}
	if err != nil {
		os.Remove(tmp)
		return "", &blobx.StorageError{Op: "save_stream", Path: path, Err: err}
	}

	s.debug("saved blob stream", "path", path, "size", written)
	return full, nil
}

func (s *Storage) Load(ctx context.Context, path string) ([]byte, error) {
	if err := ctxGuard(ctx, "load", path); err != nil {
		return nil, err
	}

	full, err := s.resolve("load", path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &blobx.StorageError{Op: "load", Path: path, Err: blobx.ErrNotFound}
		}
		return nil, &blobx.StorageError{Op: "load", Path: path, Err: err}
	}

	s.debug("loaded blob", "path", path, "size", len(data))
	return data, nil
}

func (s *Storage) LoadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctxGuard(ctx, "load_stream", path); err != nil {
		return nil, err
	}

	full, err := s.resolve("load_stream", path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &blobx.StorageError{Op: "load_stream", Path: path, Err: blobx.ErrNotFound}
		}
		return nil, &blobx.StorageError{Op: "load_stream", Path: path, Err: err}
	}
	return f, nil
}

func (s *Storage) Delete(ctx context.Context, path string) (bool, error) {
	if err := ctxGuard(ctx, "delete", path); err != nil {
		return false, err
	}

	full, err := s.resolve("delete", path)
	if err != nil {
		return false, err
	}

	// The empty path resolves to the root. Clear its contents but keep the
	// root directory itself so the handle stays usable.
	if full == s.root {
		entries, err := os.ReadDir(full)
		if err != nil {
			return false, &blobx.StorageError{Op: "delete", Path: path, Err: err}
		}
		for _, entry := range entries {
			if err := os.RemoveAll(filepath.Join(full, entry.Name())); err != nil {
				return false, &blobx.StorageError{Op: "delete", Path: path, Err: err}
			}
		}
		s.debug("cleared storage root", "entries", len(entries))
		return len(entries) > 0, nil
	}

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &blobx.StorageError{Op: "delete", Path: path, Err: err}
	}

	if info.IsDir() {
		err = os.RemoveAll(full)
	} else {
		err = os.Remove(full)
	}
	if err != nil {
		return false, &blobx.StorageError{Op: "delete", Path: path, Err: err}
	}

	s.debug("deleted blob", "path", path, "dir", info.IsDir())
	return true, nil
}

func (s *Storage) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctxGuard(ctx, "exists", path); err != nil {
		return false, err
	}

	full, err := s.resolve("exists", path)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &blobx.StorageError{Op: "exists", Path: path, Err: err}
	}
	return true, nil
}

// List enumerates blob paths under prefix. A prefix naming a single blob
// yields exactly that path; a directory yields every file beneath it; a
// missing prefix yields an empty slice.
func (s *Storage) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctxGuard(ctx, "list", prefix); err != nil {
		return nil, err
	}

	full, err := s.resolve("list", prefix)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, &blobx.StorageError{Op: "list", Path: prefix, Err: err}
	}

	if !info.IsDir() {
		rel, err := filepath.Rel(s.root, full)
		if err != nil {
			return nil, &blobx.StorageError{Op: "list", Path: prefix, Err: err}
		}
		return []string{filepath.ToSlash(rel)}, nil
	}

	paths := []string{}
	err = filepath.WalkDir(full, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &blobx.StorageError{Op: "list", Path: prefix, Err: err}
	}

	sort.Strings(paths)
	s.debug("listed blobs", "prefix", prefix, "count", len(paths))
	return paths, nil
}

// URL returns a file:// URL for the blob. URLOptions are ignored; local URLs
// do not expire.
func (s *Storage) URL(ctx context.Context, path string, _ *blobx.URLOptions) (string, error) {
	if err := ctxGuard(ctx, "url", path); err != nil {
		return "", err
	}

	full, err := s.resolve("url", path)
	if err != nil {
		return "", err
	}

	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(full)}
	return u.String(), nil
}

func (s *Storage) Stat(ctx context.Context, path string) (blobx.Stat, error) {
	if err := ctxGuard(ctx, "stat", path); err != nil {
		return blobx.Stat{}, err
	}

	full, err := s.resolve("stat", path)
	if err != nil {
		return blobx.Stat{}, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return blobx.Stat{}, &blobx.StorageError{Op: "stat", Path: path, Err: blobx.ErrNotFound}
		}
		return blobx.Stat{}, &blobx.StorageError{Op: "stat", Path: path, Err: err}
	}

	st := blobx.Stat{
		Path:       path,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		IsDir:      info.IsDir(),
		Location:   full,
	}
	if !info.IsDir() {
		if ct := mime.TypeByExtension(filepath.Ext(full)); ct != "" {
			st.ContentType = ct
		}
	}
	return st, nil
}
