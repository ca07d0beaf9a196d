package blobx

import (
	"context"
	"fmt"

	"github.com/gostratum/core/configx"
	"github.com/gostratum/core/logx"
	"github.com/gostratum/metricsx"
	"github.com/gostratum/tracingx"
	"go.uber.org/fx"
)

// Module provides the storage module for fx.
// This base module provides configuration and observability, but does NOT
// include a concrete storage backend. You must include an adapter module
// (e.g., local.Module() or s3.Module()) to get a working Storage.
//
// Example usage:
//
//	app := core.New(
//	    blobx.Module(),
//	    s3.Module(),  // Include the S3 adapter
//	    fx.Invoke(func(storage blobx.Storage) {
//	        // Use storage...
//	    }),
//	)
func Module() fx.Option {
	return fx.Module("blobx",
		fx.Provide(
			NewConfig,
			NewObservabilityInstrumenter,
		),
		fx.Invoke(registerLifecycleIfAvailable),
	)
}

// NewConfig creates a new configuration from the configx loader
func NewConfig(loader configx.Loader) (*Config, error) {
	cfg := DefaultConfig()
	if err := loader.Bind(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg = cfg.Normalize()
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ObservabilityDeps defines optional observability dependencies
type ObservabilityDeps struct {
	fx.In

	Metrics metricsx.Metrics `optional:"true"`
	Tracer  tracingx.Tracer  `optional:"true"`
}

// NewObservabilityInstrumenter creates an instrumenter for storage operations
func NewObservabilityInstrumenter(deps ObservabilityDeps) *Instrumenter {
	return NewInstrumenter(deps.Metrics, deps.Tracer)
}

// LifecycleParams defines parameters for lifecycle management
type LifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Storage   Storage     `optional:"true"` // Only present when an adapter is included
	Logger    logx.Logger `optional:"true"`
}

// registerLifecycleIfAvailable registers shutdown hooks for graceful cleanup
// when a storage implementation is available (i.e., when an adapter module is
// included)
func registerLifecycleIfAvailable(params LifecycleParams) {
	if params.Storage == nil {
		if params.Logger != nil {
			params.Logger.Debug("blobx module loaded without storage adapter")
		}
		return
	}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if params.Logger != nil {
				params.Logger.Info("blobx module started")
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if params.Logger != nil {
				params.Logger.Info("blobx module stopping")
			}

			// If storage implements io.Closer, close it
			if closer, ok := params.Storage.(interface{ Close() error }); ok {
				if err := closer.Close(); err != nil {
					if params.Logger != nil {
						params.Logger.Error("Error closing storage", ArgsToFields("error", err)...)
					}
					return err
				}
			}

			if params.Logger != nil {
				params.Logger.Info("blobx module stopped")
			}
			return nil
		},
	})
}

// WithCustomStorage provides a concrete Storage instance to the FX graph.
// Useful for tests or for applications that construct storage outside of
// adapter modules.
func WithCustomStorage(s Storage) fx.Option {
	return fx.Supply(fx.Annotate(s, fx.As(new(Storage))))
}
