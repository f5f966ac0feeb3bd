package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fuelrecon/internal/clock"
	"github.com/smallbiznis/fuelrecon/internal/config"
	"github.com/smallbiznis/fuelrecon/internal/migration"
	"github.com/smallbiznis/fuelrecon/internal/observability"
	"github.com/smallbiznis/fuelrecon/internal/product"
	"github.com/smallbiznis/fuelrecon/internal/pump"
	"github.com/smallbiznis/fuelrecon/internal/reading"
	"github.com/smallbiznis/fuelrecon/internal/reconciliation"
	"github.com/smallbiznis/fuelrecon/internal/runlock"
	"github.com/smallbiznis/fuelrecon/internal/scheduler"
	"github.com/smallbiznis/fuelrecon/internal/server"
	"github.com/smallbiznis/fuelrecon/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		runlock.Module,

		// Functional Domains
		product.Module,
		pump.Module,
		reading.Module,
		reconciliation.Module,

		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNodeID)
}
