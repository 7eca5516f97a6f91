package promotion

import (
	"github.com/sponsorhub/sponsorhub/internal/promotion/repository"
	"github.com/sponsorhub/sponsorhub/internal/promotion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("promotion.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
