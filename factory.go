package blobx

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a concrete backend from a normalized, validated
// configuration.
type Constructor func(ctx context.Context, cfg *Config, opts ...Option) (Storage, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Constructor)
)

// Register makes a backend constructor available under the given kind.
// Adapters call Register from their init functions; applications blank-import
// only the adapter packages they deploy, so unused backends (and their SDK
// dependencies) stay out of the binary.
func Register(kind string, ctor Constructor) {
	if kind == "" {
		panic("blobx: Register called with empty backend kind")
	}
	if ctor == nil {
		panic("blobx: Register called with nil constructor for " + kind)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[kind]; dup {
		panic("blobx: Register called twice for backend " + kind)
	}
	registry[kind] = ctor
}

// RegisteredBackends returns the sorted list of backend kinds that have been
// registered in this process.
func RegisteredBackends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]string, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// New resolves the configured backend kind to a registered constructor and
// builds the storage. The configuration is normalized and validated first, so
// kind-specific requirements (a NAS root for "nas", a bucket for "s3") fail
// fast with ErrInvalidConfig before any backend code runs.
func New(ctx context.Context, cfg *Config, opts ...Option) (Storage, error) {
	cfg = cfg.Normalize()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	registryMu.RLock()
	ctor, ok := registry[cfg.Backend]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no constructor registered for backend %q (missing adapter import?)",
			ErrInvalidConfig, cfg.Backend)
	}

	return ctor(ctx, cfg, opts...)
}
