package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"github.com/smallbiznis/fuelrecon/pkg/quantity"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type totals struct {
	volume  decimal.Decimal
	revenue decimal.Decimal
}

func sumCalculations(calcs []recondomain.DailyCalculation) totals {
	t := totals{volume: decimal.Zero, revenue: decimal.Zero}
	for _, c := range calcs {
		t.volume = t.volume.Add(c.VolumeDispensed)
		t.revenue = t.revenue.Add(c.TotalRevenue)
	}
	t.volume = quantity.Volume(t.volume)
	t.revenue = quantity.Money(t.revenue)
	return t
}

// buildSummary aggregates calcs. The average unit price is volume weighted
// and falls back to the plain mean when nothing was dispensed.
func buildSummary(id snowflake.ID, stationID snowflake.ID, date time.Time, calcs []recondomain.DailyCalculation, failed int, now time.Time) (*recondomain.StationDailySummary, error) {
	t := sumCalculations(calcs)

	estimatedVolume := decimal.Zero
	estimatedCount := 0
	prices := make([]decimal.Decimal, 0, len(calcs))
	breakdown := make([]recondomain.PumpContribution, 0, len(calcs))
	for _, c := range calcs {
		prices = append(prices, c.UnitPrice)
		if c.IsEstimated {
			estimatedCount++
			estimatedVolume = estimatedVolume.Add(c.VolumeDispensed)
		}
		breakdown = append(breakdown, recondomain.PumpContribution{
			PumpID:           c.PumpID.String(),
			CalculationID:    c.ID.String(),
			Volume:           c.VolumeDispensed,
			Revenue:          c.TotalRevenue,
			UnitPrice:        c.UnitPrice,
			IsEstimated:      c.IsEstimated,
			HasRollover:      c.HasRollover,
			DeviationPercent: c.DeviationPercent,
			Method:           c.Method,
		})
	}

	avgPrice := decimal.Zero
	if t.volume.IsPositive() {
		avgPrice = t.revenue.Div(t.volume)
	} else if mean, ok := quantity.Mean(prices); ok {
		avgPrice = mean
	}

	raw, err := json.Marshal(breakdown)
	if err != nil {
		return nil, err
	}

	return &recondomain.StationDailySummary{
		ID:               id,
		StationID:        stationID,
		BusinessDate:     date,
		TotalVolume:      t.volume,
		TotalRevenue:     t.revenue,
		AverageUnitPrice: quantity.Price(avgPrice),
		PumpCount:        len(calcs),
		EstimatedCount:   estimatedCount,
		EstimatedVolume:  quantity.Volume(estimatedVolume),
		FailedCount:      failed,
		Breakdown:        datatypes.JSON(raw),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// refreshSummary rebuilds the station summary from stored calculations.
func (s *Service) refreshSummary(ctx context.Context, tx *gorm.DB, stationID snowflake.ID, date time.Time, failed int) (*recondomain.StationDailySummary, error) {
	calcs, err := s.repo.ListCalculations(ctx, tx, stationID, date)
	if err != nil {
		return nil, err
	}
	summary, err := buildSummary(s.genID.Generate(), stationID, date, calcs, failed, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpsertSummary(ctx, tx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}
