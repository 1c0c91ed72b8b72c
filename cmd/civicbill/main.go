package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/civicgrid/civicbill/internal/clock"
	"github.com/civicgrid/civicbill/internal/config"
	"github.com/civicgrid/civicbill/internal/customer"
	"github.com/civicgrid/civicbill/internal/events"
	"github.com/civicgrid/civicbill/internal/invoice"
	"github.com/civicgrid/civicbill/internal/ledger"
	"github.com/civicgrid/civicbill/internal/migration"
	"github.com/civicgrid/civicbill/internal/observability"
	"github.com/civicgrid/civicbill/internal/overview"
	"github.com/civicgrid/civicbill/internal/pricing"
	"github.com/civicgrid/civicbill/internal/scheduler"
	"github.com/civicgrid/civicbill/internal/seed"
	"github.com/civicgrid/civicbill/internal/server"
	"github.com/civicgrid/civicbill/internal/usage"
	"github.com/civicgrid/civicbill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		fx.Provide(events.NewOutbox),

		fx.Invoke(func(conn *gorm.DB, log *zap.Logger, cfg config.Config, genID *snowflake.Node) error {
			ctx := context.Background()
			if err := migration.Run(ctx, conn, log); err != nil {
				return err
			}
			return seed.Run(ctx, conn, log, cfg, genID)
		}),

		pricing.Module,
		usage.Module,
		ledger.Module,
		invoice.Module,
		overview.Module,
		customer.Module,
		scheduler.Module,

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
