// Package estimation fills in missing meter readings of a pump-day from the
// pump's own history.
package estimation

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fuelrecon/pkg/quantity"
)

// History is the read side the engine estimates from.
type History interface {
	// RecentActualVolumes returns up to limit volumes of calculations derived
	// from physical readings, strictly before the given date.
	RecentActualVolumes(ctx context.Context, pumpID snowflake.ID, before time.Time, limit int) ([]decimal.Decimal, error)
	// PreviousClosing returns the latest closing reading before the given date.
	PreviousClosing(ctx context.Context, pumpID snowflake.ID, before time.Time) (decimal.NullDecimal, error)
}

type Settings struct {
	DefaultHistoricalVolume decimal.Decimal
	DefaultOpeningReading   decimal.Decimal
	HistoryLimit            int
}

type Input struct {
	PumpID   snowflake.ID
	Date     time.Time
	Capacity decimal.Decimal
	Opening  decimal.NullDecimal
	Closing  decimal.NullDecimal
}

type OpeningSource string

const (
	OpeningRecorded        OpeningSource = "recorded"
	OpeningFromClosing     OpeningSource = "derived_from_closing"
	OpeningPreviousClosing OpeningSource = "previous_closing"
	OpeningDefault         OpeningSource = "default"
)

type Result struct {
	Opening            decimal.Decimal
	Closing            decimal.Decimal
	HistoricalAverage  decimal.Decimal
	AverageIsDefault   bool
	SynthesizedOpening bool
	SynthesizedClosing bool
	OpeningSource      OpeningSource
	// Volume is the day's dispensed volume. When either side was synthesized
	// it is HistoricalAverage, whatever the folded values suggest.
	Volume decimal.Decimal
}

func (r Result) Synthesized() bool {
	return r.SynthesizedOpening || r.SynthesizedClosing
}

type Engine struct {
	history  History
	settings Settings
}

func New(history History, settings Settings) *Engine {
	if settings.HistoryLimit < 1 {
		settings.HistoryLimit = 30
	}
	return &Engine{history: history, settings: settings}
}

// HistoricalAverage is the mean volume of the pump's last HistoryLimit
// non-estimated days. The configured default is returned with true when no
// such history exists.
func (e *Engine) HistoricalAverage(ctx context.Context, pumpID snowflake.ID, before time.Time) (decimal.Decimal, bool, error) {
	volumes, err := e.history.RecentActualVolumes(ctx, pumpID, before, e.settings.HistoryLimit)
	if err != nil {
		return decimal.Zero, false, err
	}
	if avg, ok := quantity.Mean(volumes); ok {
		return quantity.Volume(avg), false, nil
	}
	return e.settings.DefaultHistoricalVolume, true, nil
}

// Estimate synthesizes whichever of opening and closing is missing. Values
// are folded into [0, capacity) so a synthesized pair wraps like the meter does.
func (e *Engine) Estimate(ctx context.Context, in Input) (Result, error) {
	avg, isDefault, err := e.HistoricalAverage(ctx, in.PumpID, in.Date)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		HistoricalAverage: avg,
		AverageIsDefault:  isDefault,
		OpeningSource:     OpeningRecorded,
	}

	switch {
	case in.Opening.Valid && in.Closing.Valid:
		res.Opening = in.Opening.Decimal
		res.Closing = in.Closing.Decimal

	case in.Opening.Valid:
		res.Opening = in.Opening.Decimal
		res.Closing = e.wrap(in.Opening.Decimal.Add(avg), in.Capacity)
		res.SynthesizedClosing = true

	case in.Closing.Valid:
		res.Closing = in.Closing.Decimal
		res.Opening = e.wrap(in.Closing.Decimal.Sub(avg), in.Capacity)
		res.SynthesizedOpening = true
		res.OpeningSource = OpeningFromClosing

	default:
		previous, err := e.history.PreviousClosing(ctx, in.PumpID, in.Date)
		if err != nil {
			return Result{}, err
		}
		if previous.Valid {
			res.Opening = e.wrap(previous.Decimal, in.Capacity)
			res.OpeningSource = OpeningPreviousClosing
		} else {
			res.Opening = e.wrap(e.settings.DefaultOpeningReading, in.Capacity)
			res.OpeningSource = OpeningDefault
		}
		res.Closing = e.wrap(res.Opening.Add(avg), in.Capacity)
		res.SynthesizedOpening = true
		res.SynthesizedClosing = true
	}
	if res.Synthesized() {
		res.Volume = avg
	} else {
		res.Volume = quantity.Volume(res.Closing.Sub(res.Opening).Abs())
	}
	return res, nil
}

func (e *Engine) wrap(value, capacity decimal.Decimal) decimal.Decimal {
	return quantity.Volume(quantity.Wrap(value, capacity))
}
