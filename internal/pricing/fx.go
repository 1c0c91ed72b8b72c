package pricing

import (
	"github.com/civicgrid/civicbill/internal/pricing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing.service",
	fx.Provide(service.NewPriceCache),
	fx.Provide(service.NewService),
)
