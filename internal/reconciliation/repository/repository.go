package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() recondomain.Repository {
	return &repo{}
}

const calculationColumns = `id, station_id, pump_id, product_id, business_date, opening_reading, closing_reading,
	volume_dispensed, unit_price, total_revenue, has_rollover, rollover_value, rollover_ambiguous,
	deviation_percent, baseline_volume, baseline_sample_size, is_estimated, calculation_method,
	calculated_by, approval_status, approval_notes, approved_by, approved_at, confirmed_by, confirmed_at,
	created_at, updated_at`

func (r *repo) InsertCalculation(ctx context.Context, db *gorm.DB, c *recondomain.DailyCalculation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO daily_calculations (`+calculationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.StationID,
		c.PumpID,
		c.ProductID,
		c.BusinessDate,
		c.OpeningReading,
		c.ClosingReading,
		c.VolumeDispensed,
		c.UnitPrice,
		c.TotalRevenue,
		c.HasRollover,
		c.RolloverValue,
		c.RolloverAmbiguous,
		c.DeviationPercent,
		c.BaselineVolume,
		c.BaselineSampleSize,
		c.IsEstimated,
		c.Method,
		c.CalculatedBy,
		c.ApprovalStatus,
		c.ApprovalNotes,
		c.ApprovedBy,
		c.ApprovedAt,
		c.ConfirmedBy,
		c.ConfirmedAt,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

// UpdateCalculation rewrites the mutable part of a calculation. Identity
// columns (pump, date, station) never change.
func (r *repo) UpdateCalculation(ctx context.Context, db *gorm.DB, c *recondomain.DailyCalculation) error {
	return db.WithContext(ctx).Exec(
		`UPDATE daily_calculations
		 SET opening_reading = ?, closing_reading = ?, volume_dispensed = ?, total_revenue = ?,
		     has_rollover = ?, rollover_value = ?, rollover_ambiguous = ?,
		     deviation_percent = ?, baseline_volume = ?, baseline_sample_size = ?,
		     is_estimated = ?, calculation_method = ?, approval_status = ?, approval_notes = ?,
		     approved_by = ?, approved_at = ?, confirmed_by = ?, confirmed_at = ?, updated_at = ?
		 WHERE id = ?`,
		c.OpeningReading,
		c.ClosingReading,
		c.VolumeDispensed,
		c.TotalRevenue,
		c.HasRollover,
		c.RolloverValue,
		c.RolloverAmbiguous,
		c.DeviationPercent,
		c.BaselineVolume,
		c.BaselineSampleSize,
		c.IsEstimated,
		c.Method,
		c.ApprovalStatus,
		c.ApprovalNotes,
		c.ApprovedBy,
		c.ApprovedAt,
		c.ConfirmedBy,
		c.ConfirmedAt,
		c.UpdatedAt,
		c.ID,
	).Error
}

func (r *repo) FindCalculationByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*recondomain.DailyCalculation, error) {
	return r.findOne(ctx, db, `SELECT `+calculationColumns+` FROM daily_calculations WHERE id = ?`, id)
}

func (r *repo) FindCalculation(ctx context.Context, db *gorm.DB, pumpID snowflake.ID, date time.Time) (*recondomain.DailyCalculation, error) {
	return r.findOne(ctx, db,
		`SELECT `+calculationColumns+` FROM daily_calculations WHERE pump_id = ? AND business_date = ?`,
		pumpID, date,
	)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*recondomain.DailyCalculation, error) {
	var calc recondomain.DailyCalculation
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&calc).Error; err != nil {
		return nil, err
	}
	if calc.ID == 0 {
		return nil, nil
	}
	return &calc, nil
}

func (r *repo) list(ctx context.Context, db *gorm.DB, query string, args ...any) ([]recondomain.DailyCalculation, error) {
	var calcs []recondomain.DailyCalculation
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&calcs).Error; err != nil {
		return nil, err
	}
	return calcs, nil
}

func (r *repo) ListCalculations(ctx context.Context, db *gorm.DB, stationID snowflake.ID, date time.Time) ([]recondomain.DailyCalculation, error) {
	return r.list(ctx, db,
		`SELECT `+calculationColumns+` FROM daily_calculations
		 WHERE station_id = ? AND business_date = ?
		 ORDER BY pump_id ASC`,
		stationID, date,
	)
}

func (r *repo) ListCalculationsInRange(ctx context.Context, db *gorm.DB, stationID snowflake.ID, from, to time.Time) ([]recondomain.DailyCalculation, error) {
	return r.list(ctx, db,
		`SELECT `+calculationColumns+` FROM daily_calculations
		 WHERE station_id = ? AND business_date >= ? AND business_date <= ?
		 ORDER BY business_date ASC, pump_id ASC`,
		stationID, from, to,
	)
}

func (r *repo) DeleteCalculations(ctx context.Context, db *gorm.DB, stationID snowflake.ID, date time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM daily_calculations WHERE station_id = ? AND business_date = ?`,
		stationID, date,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListPendingApprovals(ctx context.Context, db *gorm.DB, stationID snowflake.ID, from, to *time.Time) ([]recondomain.DailyCalculation, error) {
	query := `SELECT ` + calculationColumns + ` FROM daily_calculations
		 WHERE station_id = ? AND is_estimated = ? AND approval_status = ?`
	args := []any{stationID, true, recondomain.ApprovalPending}
	if from != nil {
		query += ` AND business_date >= ?`
		args = append(args, *from)
	}
	if to != nil {
		query += ` AND business_date <= ?`
		args = append(args, *to)
	}
	query += ` ORDER BY business_date ASC, pump_id ASC`
	return r.list(ctx, db, query, args...)
}

func (r *repo) ListRecentActual(ctx context.Context, db *gorm.DB, pumpID snowflake.ID, before time.Time, limit int) ([]recondomain.DailyCalculation, error) {
	return r.list(ctx, db,
		`SELECT `+calculationColumns+` FROM daily_calculations
		 WHERE pump_id = ? AND is_estimated = ? AND business_date < ?
		 ORDER BY business_date DESC
		 LIMIT ?`,
		pumpID, false, before, limit,
	)
}

func (r *repo) ListActualHistory(ctx context.Context, db *gorm.DB, pumpID snowflake.ID, from, to time.Time) ([]recondomain.DailyCalculation, error) {
	return r.list(ctx, db,
		`SELECT `+calculationColumns+` FROM daily_calculations
		 WHERE pump_id = ? AND is_estimated = ? AND business_date >= ? AND business_date <= ?
		 ORDER BY business_date ASC`,
		pumpID, false, from, to,
	)
}

// UpsertSummary inserts or replaces the summary of (station, business date).
// The stored id and created_at of an existing row are kept.
func (r *repo) UpsertSummary(ctx context.Context, db *gorm.DB, s *recondomain.StationDailySummary) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "station_id"}, {Name: "business_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_volume",
			"total_revenue",
			"average_unit_price",
			"pump_count",
			"estimated_count",
			"estimated_volume",
			"failed_count",
			"breakdown",
			"updated_at",
		}),
	}).Create(s).Error
}

func (r *repo) FindSummary(ctx context.Context, db *gorm.DB, stationID snowflake.ID, date time.Time) (*recondomain.StationDailySummary, error) {
	var summary recondomain.StationDailySummary
	err := db.WithContext(ctx).Raw(
		`SELECT id, station_id, business_date, total_volume, total_revenue, average_unit_price,
		        pump_count, estimated_count, estimated_volume, failed_count, breakdown, created_at, updated_at
		 FROM station_daily_summaries WHERE station_id = ? AND business_date = ?`,
		stationID, date,
	).Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	if summary.ID == 0 {
		return nil, nil
	}
	return &summary, nil
}

func (r *repo) UpsertRun(ctx context.Context, db *gorm.DB, run *recondomain.ReconciliationRun) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "station_id"}, {Name: "business_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"run_key",
			"state",
			"started_at",
			"completed_at",
			"succeeded_count",
			"skipped_count",
			"failed_count",
			"failures",
			"last_error",
			"updated_at",
		}),
	}).Create(run).Error
}

func (r *repo) FindRun(ctx context.Context, db *gorm.DB, stationID snowflake.ID, date time.Time) (*recondomain.ReconciliationRun, error) {
	var run recondomain.ReconciliationRun
	err := db.WithContext(ctx).Raw(
		`SELECT id, station_id, business_date, run_key, state, started_at, completed_at,
		        succeeded_count, skipped_count, failed_count, failures, last_error, created_at, updated_at
		 FROM reconciliation_runs WHERE station_id = ? AND business_date = ?`,
		stationID, date,
	).Scan(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == 0 {
		return nil, nil
	}
	return &run, nil
}
