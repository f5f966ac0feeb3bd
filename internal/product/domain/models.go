package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// FuelProduct is a fuel grade sold at a station.
type FuelProduct struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	StationID snowflake.ID    `json:"station_id" gorm:"not null;uniqueIndex:ux_fuel_products_station_code,priority:1"`
	Code      string          `json:"code" gorm:"type:text;not null;uniqueIndex:ux_fuel_products_station_code,priority:2"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	Currency  string          `json:"currency" gorm:"type:text;not null"`
	Active    bool            `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (FuelProduct) TableName() string { return "fuel_products" }
