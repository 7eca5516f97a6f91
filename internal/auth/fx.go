package auth

import (
	"github.com/sponsorhub/sponsorhub/internal/auth/repository"
	"github.com/sponsorhub/sponsorhub/internal/auth/service"
	"github.com/sponsorhub/sponsorhub/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)
