package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	productdomain "github.com/smallbiznis/fuelrecon/internal/product/domain"
	"gorm.io/gorm"
)

type priceLookup struct {
	repo productdomain.Repository
}

func NewPriceLookup(repo productdomain.Repository) productdomain.PriceLookup {
	return &priceLookup{repo: repo}
}

// CurrentUnitPrice fails with ErrPriceNotFound for unknown, inactive or
// unpriced products.
func (l *priceLookup) CurrentUnitPrice(ctx context.Context, db *gorm.DB, productID snowflake.ID) (decimal.Decimal, error) {
	if productID == 0 {
		return decimal.Zero, productdomain.ErrPriceNotFound
	}
	product, err := l.repo.FindByID(ctx, db, productID)
	if err != nil {
		return decimal.Zero, err
	}
	if product == nil || !product.Active || !product.UnitPrice.IsPositive() {
		return decimal.Zero, productdomain.ErrPriceNotFound
	}
	return product.UnitPrice, nil
}
