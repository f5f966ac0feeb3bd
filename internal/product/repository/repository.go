package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	productdomain "github.com/smallbiznis/fuelrecon/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() productdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *productdomain.FuelProduct) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO fuel_products (id, station_id, code, name, unit_price, currency, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.StationID,
		p.Code,
		p.Name,
		p.UnitPrice,
		p.Currency,
		p.Active,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) UpdatePrice(ctx context.Context, db *gorm.DB, p *productdomain.FuelProduct) error {
	return db.WithContext(ctx).Exec(
		`UPDATE fuel_products SET unit_price = ?, updated_at = ? WHERE id = ?`,
		p.UnitPrice,
		p.UpdatedAt,
		p.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*productdomain.FuelProduct, error) {
	var product productdomain.FuelProduct
	err := db.WithContext(ctx).Raw(
		`SELECT id, station_id, code, name, unit_price, currency, active, created_at, updated_at
		 FROM fuel_products WHERE id = ?`,
		id,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) ListByStation(ctx context.Context, db *gorm.DB, stationID snowflake.ID) ([]productdomain.FuelProduct, error) {
	var products []productdomain.FuelProduct
	err := db.WithContext(ctx).Raw(
		`SELECT id, station_id, code, name, unit_price, currency, active, created_at, updated_at
		 FROM fuel_products WHERE station_id = ? ORDER BY code ASC`,
		stationID,
	).Scan(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
