package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive      Status = "active"
	StatusMaintenance Status = "maintenance"
	StatusCalibration Status = "calibration"
	StatusRepair      Status = "repair"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusMaintenance, StatusCalibration, StatusRepair:
		return true
	default:
		return false
	}
}

// Pump is the configuration of one physical dispenser and its meter.
type Pump struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	StationID     snowflake.ID    `json:"station_id" gorm:"not null;index:idx_pumps_station"`
	Number        string          `json:"number" gorm:"type:text;not null"`
	ProductID     *snowflake.ID   `json:"product_id,omitempty" gorm:"index"`
	MeterCapacity decimal.Decimal `json:"meter_capacity" gorm:"type:decimal(14,3);not null"`
	InstalledAt   *time.Time      `json:"installed_at,omitempty" gorm:"type:date"`
	Status        Status          `json:"status" gorm:"type:text;not null"`
	IsActive      bool            `json:"is_active" gorm:"not null;default:true"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Pump) TableName() string { return "pumps" }

// Reconcilable reports whether the pump takes part in daily reconciliation.
func (p Pump) Reconcilable() bool {
	return p.IsActive && p.Status == StatusActive
}
