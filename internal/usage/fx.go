package usage

import (
	"github.com/civicgrid/civicbill/internal/usage/service"
	"github.com/civicgrid/civicbill/internal/usage/store"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(store.NewStore),
	fx.Provide(service.NewService),
)
