// Package deviation measures how far a pump-day's volume strays from the
// pump's rolling average of physically measured days.
package deviation

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fuelrecon/pkg/bizdate"
	"github.com/smallbiznis/fuelrecon/pkg/quantity"
)

const DefaultWindowDays = 7

type Sample struct {
	BusinessDate time.Time
	Volume       decimal.Decimal
	IsEstimated  bool
}

type Result struct {
	DeviationPercent decimal.Decimal
	Baseline         decimal.Decimal
	SampleSize       int
}

// HasBaseline is false on cold start; DeviationPercent is then zero.
func (r Result) HasBaseline() bool { return r.SampleSize > 0 }

// Window returns the inclusive date range the baseline of target is drawn
// from: the windowDays days ending the day before target.
func Window(target time.Time, windowDays int) (from, to time.Time) {
	if windowDays < 1 {
		windowDays = DefaultWindowDays
	}
	target = bizdate.Normalize(target)
	return bizdate.AddDays(target, -windowDays), bizdate.AddDays(target, -1)
}

// Analyze never fails. Samples outside the window or derived from estimates
// are ignored.
func Analyze(current decimal.Decimal, target time.Time, windowDays int, history []Sample) Result {
	from, to := Window(target, windowDays)

	volumes := make([]decimal.Decimal, 0, len(history))
	for _, s := range history {
		if s.IsEstimated {
			continue
		}
		date := bizdate.Normalize(s.BusinessDate)
		if date.Before(from) || date.After(to) {
			continue
		}
		volumes = append(volumes, s.Volume)
	}

	avg, ok := quantity.Mean(volumes)
	if !ok {
		return Result{DeviationPercent: decimal.Zero, Baseline: decimal.Zero}
	}
	return Result{
		DeviationPercent: quantity.PercentChange(current, avg),
		Baseline:         quantity.Volume(avg),
		SampleSize:       len(volumes),
	}
}

// Exceeds reports whether |percent| >= threshold.
func Exceeds(percent, threshold decimal.Decimal) bool {
	return percent.Abs().GreaterThanOrEqual(threshold)
}
