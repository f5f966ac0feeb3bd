package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeOpening Type = "opening"
	TypeClosing Type = "closing"
)

func (t Type) Valid() bool {
	return t == TypeOpening || t == TypeClosing
}

type EstimationMethod string

const (
	EstimationTransactionBased  EstimationMethod = "transaction_based"
	EstimationHistoricalAverage EstimationMethod = "historical_average"
	EstimationManual            EstimationMethod = "manual"
)

func (m EstimationMethod) Valid() bool {
	switch m {
	case EstimationTransactionBased, EstimationHistoricalAverage, EstimationManual:
		return true
	default:
		return false
	}
}

// MeterReading is one physical or synthesized meter value for a pump-day.
// At most one reading exists per (pump, business date, type).
type MeterReading struct {
	ID               snowflake.ID        `json:"id" gorm:"primaryKey"`
	StationID        snowflake.ID        `json:"station_id" gorm:"not null;index:idx_meter_readings_station_date,priority:1"`
	PumpID           snowflake.ID        `json:"pump_id" gorm:"not null;uniqueIndex:ux_meter_readings_pump_date_type,priority:1"`
	BusinessDate     time.Time           `json:"business_date" gorm:"type:date;not null;uniqueIndex:ux_meter_readings_pump_date_type,priority:2;index:idx_meter_readings_station_date,priority:2"`
	ReadingType      Type                `json:"reading_type" gorm:"type:text;not null;uniqueIndex:ux_meter_readings_pump_date_type,priority:3"`
	Value            decimal.Decimal     `json:"value" gorm:"type:decimal(14,3);not null"`
	RecordedBy       string              `json:"recorded_by" gorm:"type:text;not null"`
	RecordedAt       time.Time           `json:"recorded_at" gorm:"not null"`
	IsEstimated      bool                `json:"is_estimated" gorm:"not null;default:false"`
	EstimationMethod *EstimationMethod   `json:"estimation_method,omitempty" gorm:"type:text"`
	OriginalValue    decimal.NullDecimal `json:"original_value" gorm:"type:decimal(14,3)"`
	ModifiedBy       *string             `json:"modified_by,omitempty" gorm:"type:text"`
	ModifiedAt       *time.Time          `json:"modified_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time           `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (MeterReading) TableName() string { return "meter_readings" }

// ApplyCorrection replaces the value. The first original value survives
// repeated corrections and a corrected reading no longer counts as estimated.
func (m *MeterReading) ApplyCorrection(value decimal.Decimal, actor string, at time.Time) {
	if !m.OriginalValue.Valid {
		m.OriginalValue = decimal.NewNullDecimal(m.Value)
	}
	m.Value = value
	m.IsEstimated = false
	m.EstimationMethod = nil
	m.ModifiedBy = &actor
	m.ModifiedAt = &at
	m.UpdatedAt = at
}

// Pair picks the opening and closing reading out of a pump-day's readings.
func Pair(readings []MeterReading) (opening, closing *MeterReading) {
	for i := range readings {
		switch readings[i].ReadingType {
		case TypeOpening:
			opening = &readings[i]
		case TypeClosing:
			closing = &readings[i]
		}
	}
	return opening, closing
}
