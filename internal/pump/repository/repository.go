package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	pumpdomain "github.com/smallbiznis/fuelrecon/internal/pump/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() pumpdomain.Repository {
	return &repo{}
}

const pumpColumns = `id, station_id, number, product_id, meter_capacity, installed_at, status, is_active, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *pumpdomain.Pump) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO pumps (`+pumpColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.StationID,
		p.Number,
		p.ProductID,
		p.MeterCapacity,
		p.InstalledAt,
		p.Status,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, p *pumpdomain.Pump) error {
	return db.WithContext(ctx).Exec(
		`UPDATE pumps
		 SET number = ?, product_id = ?, meter_capacity = ?, status = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		p.Number,
		p.ProductID,
		p.MeterCapacity,
		p.Status,
		p.IsActive,
		p.UpdatedAt,
		p.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*pumpdomain.Pump, error) {
	var pump pumpdomain.Pump
	err := db.WithContext(ctx).Raw(
		`SELECT `+pumpColumns+` FROM pumps WHERE id = ?`,
		id,
	).Scan(&pump).Error
	if err != nil {
		return nil, err
	}
	if pump.ID == 0 {
		return nil, nil
	}
	return &pump, nil
}

func (r *repo) ListByStation(ctx context.Context, db *gorm.DB, stationID snowflake.ID) ([]pumpdomain.Pump, error) {
	var pumps []pumpdomain.Pump
	err := db.WithContext(ctx).Raw(
		`SELECT `+pumpColumns+` FROM pumps WHERE station_id = ? ORDER BY number ASC, id ASC`,
		stationID,
	).Scan(&pumps).Error
	if err != nil {
		return nil, err
	}
	return pumps, nil
}

func (r *repo) ListActiveByStation(ctx context.Context, db *gorm.DB, stationID snowflake.ID) ([]pumpdomain.Pump, error) {
	var pumps []pumpdomain.Pump
	err := db.WithContext(ctx).Raw(
		`SELECT `+pumpColumns+` FROM pumps
		 WHERE station_id = ? AND is_active = ? AND status = ?
		 ORDER BY number ASC, id ASC`,
		stationID,
		true,
		pumpdomain.StatusActive,
	).Scan(&pumps).Error
	if err != nil {
		return nil, err
	}
	return pumps, nil
}

func (r *repo) ListStationsWithActivePumps(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT station_id FROM pumps
		 WHERE is_active = ? AND status = ?
		 ORDER BY station_id ASC`,
		true,
		pumpdomain.StatusActive,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
