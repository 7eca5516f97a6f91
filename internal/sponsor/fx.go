package sponsor

import (
	"github.com/sponsorhub/sponsorhub/internal/sponsor/repository"
	"github.com/sponsorhub/sponsorhub/internal/sponsor/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sponsor.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
