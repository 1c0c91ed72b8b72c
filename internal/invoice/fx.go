package invoice

import (
	"github.com/civicgrid/civicbill/internal/invoice/render"
	"github.com/civicgrid/civicbill/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(
		service.NewService,
		fx.Annotate(render.NewHTMLRenderer, fx.As(new(render.Renderer))),
	),
)
