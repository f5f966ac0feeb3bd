package pump

import (
	"github.com/smallbiznis/fuelrecon/internal/pump/repository"
	"github.com/smallbiznis/fuelrecon/internal/pump/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pump.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
