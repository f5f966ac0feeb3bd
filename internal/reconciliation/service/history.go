package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	readingdomain "github.com/smallbiznis/fuelrecon/internal/reading/domain"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"github.com/smallbiznis/fuelrecon/internal/reconciliation/deviation"
	"gorm.io/gorm"
)

// txHistory serves estimation history from inside one pump transaction.
type txHistory struct {
	tx       *gorm.DB
	repo     recondomain.Repository
	readings readingdomain.Repository
}

func (h txHistory) RecentActualVolumes(ctx context.Context, pumpID snowflake.ID, before time.Time, limit int) ([]decimal.Decimal, error) {
	calcs, err := h.repo.ListRecentActual(ctx, h.tx, pumpID, before, limit)
	if err != nil {
		return nil, err
	}
	volumes := make([]decimal.Decimal, 0, len(calcs))
	for _, c := range calcs {
		volumes = append(volumes, c.VolumeDispensed)
	}
	return volumes, nil
}

func (h txHistory) PreviousClosing(ctx context.Context, pumpID snowflake.ID, before time.Time) (decimal.NullDecimal, error) {
	reading, err := h.readings.FindLatestClosingBefore(ctx, h.tx, pumpID, before)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	if reading == nil {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(reading.Value), nil
}

type deviationSource struct {
	db   *gorm.DB
	repo recondomain.Repository
}

func (d deviationSource) ListCalculationsInRange(ctx context.Context, stationID snowflake.ID, from, to time.Time) ([]recondomain.DailyCalculation, error) {
	return d.repo.ListCalculationsInRange(ctx, d.db, stationID, from, to)
}

// analyzeDeviation annotates a pump-day with its deviation from the rolling
// average of the preceding physically measured days.
func (s *Service) analyzeDeviation(ctx context.Context, tx *gorm.DB, pumpID snowflake.ID, date time.Time, volume decimal.Decimal, windowDays int) (deviation.Result, error) {
	from, to := deviation.Window(date, windowDays)
	history, err := s.repo.ListActualHistory(ctx, tx, pumpID, from, to)
	if err != nil {
		return deviation.Result{}, err
	}
	samples := make([]deviation.Sample, 0, len(history))
	for _, h := range history {
		samples = append(samples, deviation.Sample{
			BusinessDate: h.BusinessDate,
			Volume:       h.VolumeDispensed,
			IsEstimated:  h.IsEstimated,
		})
	}
	return deviation.Analyze(volume, date, windowDays, samples), nil
}

func applyDeviation(calc *recondomain.DailyCalculation, res deviation.Result) {
	calc.DeviationPercent = res.DeviationPercent
	calc.BaselineSampleSize = res.SampleSize
	if res.HasBaseline() {
		calc.BaselineVolume = decimal.NewNullDecimal(res.Baseline)
	} else {
		calc.BaselineVolume = decimal.NullDecimal{}
	}
}
