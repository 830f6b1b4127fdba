package shop

import (
	"github.com/smallbiznis/tradebooks/internal/shop/domain"
	"github.com/smallbiznis/tradebooks/internal/shop/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("shop",
	fx.Provide(repository.Provide),
	fx.Provide(func(r domain.Repository) domain.Directory { return r }),
)
