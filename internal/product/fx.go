package product

import (
	"github.com/smallbiznis/fuelrecon/internal/product/repository"
	"github.com/smallbiznis/fuelrecon/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewPriceLookup),
)
