package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*FuelProduct, error)
	Get(ctx context.Context, id snowflake.ID) (*FuelProduct, error)
	List(ctx context.Context, stationID snowflake.ID) ([]FuelProduct, error)
	UpdateUnitPrice(ctx context.Context, id snowflake.ID, unitPrice string) (*FuelProduct, error)
}

// PriceLookup resolves the unit price a product sells at right now.
type PriceLookup interface {
	CurrentUnitPrice(ctx context.Context, db *gorm.DB, productID snowflake.ID) (decimal.Decimal, error)
}

type CreateRequest struct {
	StationID snowflake.ID
	Code      string
	Name      string
	UnitPrice string
	Currency  string
}

var (
	ErrInvalidStation   = errors.New("invalid_station_id")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidUnitPrice = errors.New("invalid_unit_price")
	ErrInvalidCurrency  = errors.New("invalid_currency")
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("product_not_found")
	ErrCodeTaken        = errors.New("product_code_taken")
	ErrPriceNotFound    = errors.New("unit_price_not_found")
)
