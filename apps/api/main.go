// API-only instance: serves the billing HTTP surface without the scheduler,
// for horizontally scaled deployments where one cmd/civicbill instance owns
// migrations, seeding and the recurring billing passes.
package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/civicgrid/civicbill/internal/clock"
	"github.com/civicgrid/civicbill/internal/config"
	"github.com/civicgrid/civicbill/internal/customer"
	"github.com/civicgrid/civicbill/internal/events"
	"github.com/civicgrid/civicbill/internal/invoice"
	"github.com/civicgrid/civicbill/internal/ledger"
	"github.com/civicgrid/civicbill/internal/observability"
	"github.com/civicgrid/civicbill/internal/overview"
	"github.com/civicgrid/civicbill/internal/pricing"
	"github.com/civicgrid/civicbill/internal/server"
	"github.com/civicgrid/civicbill/internal/usage"
	"github.com/civicgrid/civicbill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		fx.Provide(events.NewOutbox),

		pricing.Module,
		usage.Module,
		ledger.Module,
		invoice.Module,
		overview.Module,
		customer.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
