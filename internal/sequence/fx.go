package sequence

import (
	"github.com/smallbiznis/tradebooks/internal/sequence/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence.service",
	fx.Provide(service.NewService),
)
