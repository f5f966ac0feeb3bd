package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reading *MeterReading) error
	Update(ctx context.Context, db *gorm.DB, reading *MeterReading) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MeterReading, error)
	ListByPumpDate(ctx context.Context, db *gorm.DB, pumpID snowflake.ID, date time.Time) ([]MeterReading, error)
	FindLatestClosingBefore(ctx context.Context, db *gorm.DB, pumpID snowflake.ID, date time.Time) (*MeterReading, error)
	DeleteSynthesized(ctx context.Context, db *gorm.DB, stationID snowflake.ID, date time.Time) (int64, error)
}
