package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCalculation(ctx context.Context, db *gorm.DB, calc *DailyCalculation) error
	UpdateCalculation(ctx context.Context, db *gorm.DB, calc *DailyCalculation) error
	FindCalculationByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*DailyCalculation, error)
	FindCalculation(ctx context.Context, db *gorm.DB, pumpID snowflake.ID, date time.Time) (*DailyCalculation, error)
	ListCalculations(ctx context.Context, db *gorm.DB, stationID snowflake.ID, date time.Time) ([]DailyCalculation, error)
	ListCalculationsInRange(ctx context.Context, db *gorm.DB, stationID snowflake.ID, from, to time.Time) ([]DailyCalculation, error)
	DeleteCalculations(ctx context.Context, db *gorm.DB, stationID snowflake.ID, date time.Time) (int64, error)
	ListPendingApprovals(ctx context.Context, db *gorm.DB, stationID snowflake.ID, from, to *time.Time) ([]DailyCalculation, error)

	// ListRecentActual returns up to limit non-estimated calculations strictly
	// before the given date, newest first.
	ListRecentActual(ctx context.Context, db *gorm.DB, pumpID snowflake.ID, before time.Time, limit int) ([]DailyCalculation, error)
	// ListActualHistory returns non-estimated calculations of a pump in [from, to].
	ListActualHistory(ctx context.Context, db *gorm.DB, pumpID snowflake.ID, from, to time.Time) ([]DailyCalculation, error)

	UpsertSummary(ctx context.Context, db *gorm.DB, summary *StationDailySummary) error
	FindSummary(ctx context.Context, db *gorm.DB, stationID snowflake.ID, date time.Time) (*StationDailySummary, error)

	UpsertRun(ctx context.Context, db *gorm.DB, run *ReconciliationRun) error
	FindRun(ctx context.Context, db *gorm.DB, stationID snowflake.ID, date time.Time) (*ReconciliationRun, error)
}
