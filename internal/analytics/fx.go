package analytics

import (
	"github.com/sponsorhub/sponsorhub/internal/analytics/repository"
	"github.com/sponsorhub/sponsorhub/internal/analytics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
