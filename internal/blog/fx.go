package blog

import (
	"github.com/sponsorhub/sponsorhub/internal/blog/repository"
	"github.com/sponsorhub/sponsorhub/internal/blog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("blog.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
