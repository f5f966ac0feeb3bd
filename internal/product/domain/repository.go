package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *FuelProduct) error
	UpdatePrice(ctx context.Context, db *gorm.DB, product *FuelProduct) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FuelProduct, error)
	ListByStation(ctx context.Context, db *gorm.DB, stationID snowflake.ID) ([]FuelProduct, error)
}
