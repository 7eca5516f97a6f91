package slack

import (
	blogdomain "github.com/sponsorhub/sponsorhub/internal/blog/domain"
	"github.com/sponsorhub/sponsorhub/internal/config"
	promotiondomain "github.com/sponsorhub/sponsorhub/internal/promotion/domain"
	"github.com/sponsorhub/sponsorhub/internal/slack/repository"
	"github.com/sponsorhub/sponsorhub/internal/slack/service"
	sponsordomain "github.com/sponsorhub/sponsorhub/internal/sponsor/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newClient(cfg config.Config, log *zap.Logger) service.Client {
	if cfg.SlackBotToken == "" {
		log.Warn("slack bot token not configured, outbound notifications will fail soft")
	}
	return service.NewClient(cfg.SlackBotToken)
}

var Module = fx.Module("slack.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(newClient),
	fx.Provide(service.NewNotifier),
	fx.Provide(func(n *service.Notifier) promotiondomain.Publisher { return n }),
	fx.Provide(func(n *service.Notifier) blogdomain.Publisher { return n }),
	fx.Provide(func(n *service.Notifier) sponsordomain.Publisher { return n }),
)
