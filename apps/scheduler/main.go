package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/sponsorhub/sponsorhub/internal/auth"
	"github.com/sponsorhub/sponsorhub/internal/authorization"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	"github.com/sponsorhub/sponsorhub/internal/config"
	"github.com/sponsorhub/sponsorhub/internal/invitation"
	"github.com/sponsorhub/sponsorhub/internal/observability"
	"github.com/sponsorhub/sponsorhub/internal/profile"
	"github.com/sponsorhub/sponsorhub/internal/promotion"
	"github.com/sponsorhub/sponsorhub/internal/providers/email"
	"github.com/sponsorhub/sponsorhub/internal/ratelimit"
	"github.com/sponsorhub/sponsorhub/internal/scheduler"
	"github.com/sponsorhub/sponsorhub/internal/slack"
	"github.com/sponsorhub/sponsorhub/internal/sponsor"
	"github.com/sponsorhub/sponsorhub/pkg/db"
	"go.uber.org/fx"
)

// Standalone sweep worker for deployments that keep the portal and the cron
// loop on separate processes. No HTTP server.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		authorization.Module,
		auth.Module,
		email.Module,
		profile.Module,
		sponsor.Module,
		promotion.Module,
		invitation.Module,
		slack.Module,
		ratelimit.Module,

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
