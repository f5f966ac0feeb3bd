package reconciliation

import (
	"github.com/smallbiznis/fuelrecon/internal/reconciliation/repository"
	"github.com/smallbiznis/fuelrecon/internal/reconciliation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconciliation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewSettingsProvider),
	fx.Provide(service.New),
)
