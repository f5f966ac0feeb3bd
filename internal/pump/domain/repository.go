package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, pump *Pump) error
	Update(ctx context.Context, db *gorm.DB, pump *Pump) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Pump, error)
	ListByStation(ctx context.Context, db *gorm.DB, stationID snowflake.ID) ([]Pump, error)
	ListActiveByStation(ctx context.Context, db *gorm.DB, stationID snowflake.ID) ([]Pump, error)
	ListStationsWithActivePumps(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error)
}
