package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/internal/clock"
	"github.com/fitretto/gymbill/internal/config"
	"github.com/fitretto/gymbill/internal/migration"
	"github.com/fitretto/gymbill/internal/observability"
	"github.com/fitretto/gymbill/internal/server"
	"github.com/fitretto/gymbill/pkg/db"
	"github.com/fitretto/gymbill/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
