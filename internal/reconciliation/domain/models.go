// Package domain contains the reconciliation records and the contracts the
// reconciliation engine is consumed through.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Method string

const (
	MethodMeterReadings  Method = "meter_readings"
	MethodEstimated      Method = "estimated"
	MethodManualOverride Method = "manual_override"
)

type ApprovalStatus string

const (
	ApprovalNotRequired ApprovalStatus = "not_required"
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalApproved    ApprovalStatus = "approved"
	ApprovalRejected    ApprovalStatus = "rejected"
)

// DailyCalculation is the reconciled result for one pump on one business date.
type DailyCalculation struct {
	ID                 snowflake.ID        `json:"id" gorm:"primaryKey"`
	StationID          snowflake.ID        `json:"station_id" gorm:"not null;index:idx_daily_calculations_station_date,priority:1"`
	PumpID             snowflake.ID        `json:"pump_id" gorm:"not null;uniqueIndex:ux_daily_calculations_pump_date,priority:1"`
	ProductID          *snowflake.ID       `json:"product_id,omitempty"`
	BusinessDate       time.Time           `json:"business_date" gorm:"type:date;not null;uniqueIndex:ux_daily_calculations_pump_date,priority:2;index:idx_daily_calculations_station_date,priority:2"`
	OpeningReading     decimal.Decimal     `json:"opening_reading" gorm:"type:decimal(14,3);not null"`
	ClosingReading     decimal.Decimal     `json:"closing_reading" gorm:"type:decimal(14,3);not null"`
	VolumeDispensed    decimal.Decimal     `json:"volume_dispensed" gorm:"type:decimal(14,3);not null"`
	UnitPrice          decimal.Decimal     `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	TotalRevenue       decimal.Decimal     `json:"total_revenue" gorm:"type:decimal(16,2);not null"`
	HasRollover        bool                `json:"has_rollover" gorm:"not null;default:false"`
	RolloverValue      decimal.NullDecimal `json:"rollover_value" gorm:"type:decimal(14,3)"`
	RolloverAmbiguous  bool                `json:"rollover_ambiguous" gorm:"not null;default:false"`
	DeviationPercent   decimal.Decimal     `json:"deviation_percent" gorm:"type:decimal(10,2);not null"`
	BaselineVolume     decimal.NullDecimal `json:"baseline_volume" gorm:"type:decimal(14,3)"`
	BaselineSampleSize int                 `json:"baseline_sample_size" gorm:"not null;default:0"`
	IsEstimated        bool                `json:"is_estimated" gorm:"not null;default:false"`
	Method             Method              `json:"calculation_method" gorm:"column:calculation_method;type:text;not null"`
	CalculatedBy       string              `json:"calculated_by" gorm:"type:text;not null"`
	ApprovalStatus     ApprovalStatus      `json:"approval_status" gorm:"type:text;not null;index"`
	ApprovalNotes      *string             `json:"approval_notes,omitempty" gorm:"type:text"`
	ApprovedBy         *string             `json:"approved_by,omitempty" gorm:"type:text"`
	ApprovedAt         *time.Time          `json:"approved_at,omitempty"`
	ConfirmedBy        *string             `json:"confirmed_by,omitempty" gorm:"type:text"`
	ConfirmedAt        *time.Time          `json:"confirmed_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time           `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (DailyCalculation) TableName() string { return "daily_calculations" }

// StationDailySummary aggregates every successful pump calculation of a station-day.
type StationDailySummary struct {
	ID               snowflake.ID    `json:"id" gorm:"primaryKey"`
	StationID        snowflake.ID    `json:"station_id" gorm:"not null;uniqueIndex:ux_station_daily_summaries_station_date,priority:1"`
	BusinessDate     time.Time       `json:"business_date" gorm:"type:date;not null;uniqueIndex:ux_station_daily_summaries_station_date,priority:2"`
	TotalVolume      decimal.Decimal `json:"total_volume" gorm:"type:decimal(16,3);not null"`
	TotalRevenue     decimal.Decimal `json:"total_revenue" gorm:"type:decimal(18,2);not null"`
	AverageUnitPrice decimal.Decimal `json:"average_unit_price" gorm:"type:decimal(12,4);not null"`
	PumpCount        int             `json:"pump_count" gorm:"not null"`
	EstimatedCount   int             `json:"estimated_count" gorm:"not null"`
	EstimatedVolume  decimal.Decimal `json:"estimated_volume" gorm:"type:decimal(16,3);not null"`
	FailedCount      int             `json:"failed_count" gorm:"not null"`
	Breakdown        datatypes.JSON  `json:"breakdown" gorm:"type:jsonb"`
	CreatedAt        time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (StationDailySummary) TableName() string { return "station_daily_summaries" }

// PumpContribution is one entry of StationDailySummary.Breakdown.
type PumpContribution struct {
	PumpID           string          `json:"pump_id"`
	CalculationID    string          `json:"calculation_id"`
	Volume           decimal.Decimal `json:"volume"`
	Revenue          decimal.Decimal `json:"revenue"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	IsEstimated      bool            `json:"is_estimated"`
	HasRollover      bool            `json:"has_rollover"`
	DeviationPercent decimal.Decimal `json:"deviation_percent"`
	Method           Method          `json:"method"`
}

type RunState string

const (
	RunNotStarted RunState = "not_started"
	RunComputing  RunState = "computing"
	RunCompleted  RunState = "completed"
)

// ReconciliationRun tracks the state machine of one (station, date).
type ReconciliationRun struct {
	ID             snowflake.ID   `json:"id" gorm:"primaryKey"`
	StationID      snowflake.ID   `json:"station_id" gorm:"not null;uniqueIndex:ux_reconciliation_runs_station_date,priority:1"`
	BusinessDate   time.Time      `json:"business_date" gorm:"type:date;not null;uniqueIndex:ux_reconciliation_runs_station_date,priority:2"`
	RunKey         string         `json:"run_key" gorm:"type:text;not null"`
	State          RunState       `json:"state" gorm:"type:text;not null"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	SucceededCount int            `json:"succeeded_count" gorm:"not null;default:0"`
	SkippedCount   int            `json:"skipped_count" gorm:"not null;default:0"`
	FailedCount    int            `json:"failed_count" gorm:"not null;default:0"`
	Failures       datatypes.JSON `json:"failures" gorm:"type:jsonb"`
	LastError      *string        `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (ReconciliationRun) TableName() string { return "reconciliation_runs" }

// DeviationRecord is one pump-day whose volume strays from its rolling baseline.
type DeviationRecord struct {
	CalculationID    snowflake.ID    `json:"calculation_id"`
	StationID        snowflake.ID    `json:"station_id"`
	PumpID           snowflake.ID    `json:"pump_id"`
	BusinessDate     time.Time       `json:"business_date"`
	VolumeDispensed  decimal.Decimal `json:"volume_dispensed"`
	BaselineVolume   decimal.Decimal `json:"baseline_volume"`
	SampleSize       int             `json:"sample_size"`
	DeviationPercent decimal.Decimal `json:"deviation_percent"`
	IsEstimated      bool            `json:"is_estimated"`
}
