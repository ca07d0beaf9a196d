package s3

import (
	"context"
	"io"
	"sync"

	"github.com/gostratum/blobx"
	"github.com/gostratum/core"
	"github.com/gostratum/core/logx"
	"go.uber.org/fx"
)

// Module returns an fx.Module which provides the S3 storage implementation.
// Consumers opt in explicitly (s3.Module()) alongside the base blobx.Module().
func Module() fx.Option {
	return fx.Module("blobx-s3",
		fx.Provide(
			provideProxy,
			func(p *lifecycleProxy) blobx.Storage { return p },
		),
		// Readiness probe for the configured bucket
		fx.Provide(
			fx.Annotated{
				Target: func(p *lifecycleProxy) core.Check {
					return &s3HealthCheck{client: p.clientManager}
				},
				Group: "health_checkers",
			},
		),
	)
}

type proxyParams struct {
	fx.In

	Config *blobx.Config
	Logger logx.Logger `optional:"true"`
}

// provideProxy defers client construction to OnStart so the lifecycle context
// governs credential resolution and the connectivity probe. Until then the
// proxy blocks callers and surfaces any startup error.
func provideProxy(lc fx.Lifecycle, params proxyParams) *lifecycleProxy {
	var opts []blobx.Option
	if params.Logger != nil {
		opts = append(opts, blobx.WithLogger(params.Logger))
	}

	proxy := &lifecycleProxy{}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s, err := New(ctx, params.Config, opts...)
			if err != nil {
				proxy.setErr(err)
				return err
			}
			proxy.setStorage(s)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if s := proxy.get(); s != nil {
				return s.Close()
			}
			return nil
		},
	})

	return proxy
}

// lifecycleProxy is a Storage implementation that waits for the real storage
// to be created during the FX OnStart hook. It returns an error if startup
// failed.
type lifecycleProxy struct {
	mu      sync.RWMutex
	storage *Storage
	err     error
	ready   chan struct{}
}

var _ blobx.Storage = (*lifecycleProxy)(nil)

func (p *lifecycleProxy) init() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready == nil {
		p.ready = make(chan struct{})
	}
}

func (p *lifecycleProxy) setStorage(s *Storage) {
	p.init()
	p.mu.Lock()
	p.storage = s
	close(p.ready)
	p.mu.Unlock()
}

func (p *lifecycleProxy) setErr(err error) {
	p.init()
	p.mu.Lock()
	p.err = err
	close(p.ready)
	p.mu.Unlock()
}

func (p *lifecycleProxy) wait() error {
	p.init()
	<-p.ready
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

func (p *lifecycleProxy) get() *Storage {
	p.mu.RLock()
	s := p.storage
	p.mu.RUnlock()
	return s
}

// clientManager returns the underlying client manager once startup completed,
// or nil before that.
func (p *lifecycleProxy) clientManager() *ClientManager {
	if s := p.get(); s != nil {
		return s.client
	}
	return nil
}

// The following methods implement the blobx.Storage interface by delegating
// to the underlying storage after startup completes.

func (p *lifecycleProxy) Save(ctx context.Context, path string, data []byte) (string, error) {
	if err := p.wait(); err != nil {
		return "", err
	}
	return p.get().Save(ctx, path, data)
}

func (p *lifecycleProxy) SaveStream(ctx context.Context, path string, r io.Reader) (string, error) {
	if err := p.wait(); err != nil {
		return "", err
	}
	return p.get().SaveStream(ctx, path, r)
}

func (p *lifecycleProxy) Load(ctx context.Context, path string) ([]byte, error) {
	if err := p.wait(); err != nil {
		return nil, err
	}
	return p.get().Load(ctx, path)
}

func (p *lifecycleProxy) LoadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := p.wait(); err != nil {
		return nil, err
	}
	return p.get().LoadStream(ctx, path)
}

func (p *lifecycleProxy) Delete(ctx context.Context, path string) (bool, error) {
	if err := p.wait(); err != nil {
		return false, err
	}
	return p.get().Delete(ctx, path)
}

func (p *lifecycleProxy) Exists(ctx context.Context, path string) (bool, error) {
	if err := p.wait(); err != nil {
		return false, err
	}
	return p.get().Exists(ctx, path)
}

func (p *lifecycleProxy) List(ctx context.Context, prefix string) ([]string, error) {
	if err := p.wait(); err != nil {
		return nil, err
	}
	return p.get().List(ctx, prefix)
}

func (p *lifecycleProxy) URL(ctx context.Context, path string, opts *blobx.URLOptions) (string, error) {
	if err := p.wait(); err != nil {
		return "", err
	}
	return p.get().URL(ctx, path, opts)
}

func (p *lifecycleProxy) Stat(ctx context.Context, path string) (blobx.Stat, error) {
	if err := p.wait(); err != nil {
		return blobx.Stat{}, err
	}
	return p.get().Stat(ctx, path)
}
