package deviation

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
	"github.com/smallbiznis/fuelrecon/pkg/bizdate"
)

// Source lists stored calculations of a station over an inclusive date range.
type Source interface {
	ListCalculationsInRange(ctx context.Context, stationID snowflake.ID, from, to time.Time) ([]recondomain.DailyCalculation, error)
}

type Params struct {
	StationID        snowflake.ID
	From             time.Time
	To               time.Time
	ThresholdPercent decimal.Decimal
	WindowDays       int
}

// Query re-derives deviations from stored history for any threshold and
// window. Stored DeviationPercent values are not consulted.
type Query struct {
	source Source
}

func NewQuery(source Source) *Query {
	return &Query{source: source}
}

func (q *Query) Find(ctx context.Context, p Params) ([]recondomain.DeviationRecord, error) {
	from := bizdate.Normalize(p.From)
	to := bizdate.Normalize(p.To)
	historyFrom, _ := Window(from, p.WindowDays)

	calcs, err := q.source.ListCalculationsInRange(ctx, p.StationID, historyFrom, to)
	if err != nil {
		return nil, err
	}

	byPump := make(map[snowflake.ID][]Sample)
	for _, c := range calcs {
		byPump[c.PumpID] = append(byPump[c.PumpID], Sample{
			BusinessDate: c.BusinessDate,
			Volume:       c.VolumeDispensed,
			IsEstimated:  c.IsEstimated,
		})
	}

	records := make([]recondomain.DeviationRecord, 0)
	for _, c := range calcs {
		date := bizdate.Normalize(c.BusinessDate)
		if date.Before(from) || date.After(to) {
			continue
		}
		res := Analyze(c.VolumeDispensed, date, p.WindowDays, byPump[c.PumpID])
		if !res.HasBaseline() || !Exceeds(res.DeviationPercent, p.ThresholdPercent) {
			continue
		}
		records = append(records, recondomain.DeviationRecord{
			CalculationID:    c.ID,
			StationID:        c.StationID,
			PumpID:           c.PumpID,
			BusinessDate:     date,
			VolumeDispensed:  c.VolumeDispensed,
			BaselineVolume:   res.Baseline,
			SampleSize:       res.SampleSize,
			DeviationPercent: res.DeviationPercent,
			IsEstimated:      c.IsEstimated,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].BusinessDate.Equal(records[j].BusinessDate) {
			return records[i].BusinessDate.Before(records[j].BusinessDate)
		}
		return records[i].PumpID < records[j].PumpID
	})
	return records, nil
}
