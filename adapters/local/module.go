package local

import (
	"context"

	"github.com/gostratum/blobx"
	"github.com/gostratum/core/logx"
	"go.uber.org/fx"
)

// Module returns an fx.Module which provides the filesystem storage
// implementation. Consumers opt in explicitly (local.Module()) alongside the
// base blobx.Module().
func Module() fx.Option {
	return fx.Module("blobx-local",
		fx.Provide(provideStorage),
	)
}

type storageParams struct {
	fx.In

	Config *blobx.Config
	Logger logx.Logger `optional:"true"`
}

// provideStorage builds the filesystem storage eagerly; creating the root
// directory is cheap and needs no lifecycle gating.
func provideStorage(params storageParams) (blobx.Storage, error) {
	var opts []blobx.Option
	if params.Logger != nil {
		opts = append(opts, blobx.WithLogger(params.Logger))
	}
	return New(context.Background(), params.Config, opts...)
}
