package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PumpFailure records why one pump could not be reconciled.
type PumpFailure struct {
	PumpID snowflake.ID `json:"pump_id"`
	Reason string       `json:"reason"`
	Err    error        `json:"-"`
}

// BatchResult separates the pumps of a station run that produced a new
// calculation from the ones that failed.
type BatchResult struct {
	Succeeded []snowflake.ID `json:"succeeded"`
	Failed    []PumpFailure  `json:"failed"`
}

// Err returns a *PartialBatchFailure when any pump failed, nil otherwise.
func (b BatchResult) Err() error {
	if len(b.Failed) == 0 {
		return nil
	}
	failed := make([]PumpFailure, len(b.Failed))
	copy(failed, b.Failed)
	return &PartialBatchFailure{Failed: failed}
}

// CalculateResult is the outcome of CalculateForDate. CalculatedCount counts
// every calculation present for the station-day after the run, including the
// ones an earlier run produced; NewlyCalculated counts only this run's inserts.
type CalculateResult struct {
	BatchResult

	StationID       snowflake.ID       `json:"station_id"`
	BusinessDate    time.Time          `json:"business_date"`
	RunKey          string             `json:"run_key"`
	CalculatedCount int                `json:"calculated_count"`
	NewlyCalculated int                `json:"newly_calculated"`
	Skipped         []snowflake.ID     `json:"skipped"`
	TotalVolume     decimal.Decimal    `json:"total_volume"`
	TotalRevenue    decimal.Decimal    `json:"total_revenue"`
	Calculations    []DailyCalculation `json:"calculations"`
}
