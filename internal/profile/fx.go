package profile

import (
	"github.com/sponsorhub/sponsorhub/internal/profile/repository"
	"github.com/sponsorhub/sponsorhub/internal/profile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("profile.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
