package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	"github.com/sponsorhub/sponsorhub/internal/migration"
	"github.com/sponsorhub/sponsorhub/internal/observability"
	"github.com/sponsorhub/sponsorhub/internal/scheduler"
	"github.com/sponsorhub/sponsorhub/internal/server"
	"github.com/sponsorhub/sponsorhub/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
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
