package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	readingdomain "github.com/smallbiznis/fuelrecon/internal/reading/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() readingdomain.Repository {
	return &repo{}
}

const readingColumns = `id, station_id, pump_id, business_date, reading_type, value, recorded_by, recorded_at,
	is_estimated, estimation_method, original_value, modified_by, modified_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *readingdomain.MeterReading) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO meter_readings (`+readingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.StationID,
		m.PumpID,
		m.BusinessDate,
		m.ReadingType,
		m.Value,
		m.RecordedBy,
		m.RecordedAt,
		m.IsEstimated,
		m.EstimationMethod,
		m.OriginalValue,
		m.ModifiedBy,
		m.ModifiedAt,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, m *readingdomain.MeterReading) error {
	return db.WithContext(ctx).Exec(
		`UPDATE meter_readings
		 SET value = ?, is_estimated = ?, estimation_method = ?, original_value = ?,
		     modified_by = ?, modified_at = ?, updated_at = ?
		 WHERE id = ?`,
		m.Value,
		m.IsEstimated,
		m.EstimationMethod,
		m.OriginalValue,
		m.ModifiedBy,
		m.ModifiedAt,
		m.UpdatedAt,
		m.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*readingdomain.MeterReading, error) {
	var reading readingdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+` FROM meter_readings WHERE id = ?`,
		id,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) ListByPumpDate(ctx context.Context, db *gorm.DB, pumpID snowflake.ID, date time.Time) ([]readingdomain.MeterReading, error) {
	var readings []readingdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+` FROM meter_readings
		 WHERE pump_id = ? AND business_date = ?
		 ORDER BY reading_type DESC`,
		pumpID,
		date,
	).Scan(&readings).Error
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *repo) FindLatestClosingBefore(ctx context.Context, db *gorm.DB, pumpID snowflake.ID, date time.Time) (*readingdomain.MeterReading, error) {
	var reading readingdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+` FROM meter_readings
		 WHERE pump_id = ? AND reading_type = ? AND business_date < ?
		 ORDER BY business_date DESC
		 LIMIT 1`,
		pumpID,
		readingdomain.TypeClosing,
		date,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

// DeleteSynthesized removes readings the estimation engine generated for a
// station-day. Operator-entered readings are kept.
func (r *repo) DeleteSynthesized(ctx context.Context, db *gorm.DB, stationID snowflake.ID, date time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM meter_readings
		 WHERE station_id = ? AND business_date = ? AND is_estimated = ? AND estimation_method = ?`,
		stationID,
		date,
		true,
		readingdomain.EstimationHistoricalAverage,
	)
	return res.RowsAffected, res.Error
}
