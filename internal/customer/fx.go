package customer

import (
	"github.com/smallbiznis/tradebooks/internal/customer/domain"
	"github.com/smallbiznis/tradebooks/internal/customer/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("customer",
	fx.Provide(repository.Provide),
	fx.Provide(func(r domain.Repository) domain.Directory { return r }),
)
