package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drivelane/drivelane/internal/booking"
	"github.com/drivelane/drivelane/internal/catalog"
	"github.com/drivelane/drivelane/internal/clock"
	"github.com/drivelane/drivelane/internal/config"
	"github.com/drivelane/drivelane/internal/enrollment"
	"github.com/drivelane/drivelane/internal/events"
	"github.com/drivelane/drivelane/internal/logger"
	"github.com/drivelane/drivelane/internal/migration"
	"github.com/drivelane/drivelane/internal/observability/tracing"
	"github.com/drivelane/drivelane/internal/reconcile"
	"github.com/drivelane/drivelane/internal/seed"
	"github.com/drivelane/drivelane/internal/server"
	"github.com/drivelane/drivelane/internal/session"
	"github.com/drivelane/drivelane/pkg/db"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) error {
			_, err := tracing.NewProvider(lc, tracing.Config{
				Enabled:          cfg.TracingEnabled,
				ServiceName:      "drivelane",
				ServiceVersion:   version,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.TracingExporterEndpoint,
				SamplingRatio:    cfg.TracingSamplingRatio,
			}, log)
			return err
		}),
		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			if err := migration.RunMigrations(conn); err != nil {
				return err
			}
			if cfg.SeedDemoData {
				return seed.EnsureDemoCatalog(conn)
			}
			return nil
		}),
		clock.Module,
		events.Module,
		catalog.Module,
		enrollment.Module,
		session.Module,
		booking.Module,
		reconcile.Module,
		server.Module,
	)
	app.Run()
}
