package invitation

import (
	"github.com/sponsorhub/sponsorhub/internal/invitation/repository"
	"github.com/sponsorhub/sponsorhub/internal/invitation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitation.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
