//go:build wireinject

package app

import (
	"context"

	"github.com/a7exd/cheap-flights-finder/internal/config"

	"github.com/google/wire"
)

func buildAppWithWire(ctx context.Context, cfg *config.Config) (*App, error) {
	wire.Build(provideAppBuilder, provideAppFromBuilder)
	return nil, nil
}
