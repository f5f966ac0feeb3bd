package estimation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fuelrecon/internal/reconciliation/rollover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyStub struct {
	volumes   []decimal.Decimal
	previous  decimal.NullDecimal
	err       error
	gotLimit  int
	gotBefore time.Time
}

func (h *historyStub) RecentActualVolumes(_ context.Context, _ snowflake.ID, before time.Time, limit int) ([]decimal.Decimal, error) {
	h.gotLimit = limit
	h.gotBefore = before
	if h.err != nil {
		return nil, h.err
	}
	if len(h.volumes) > limit {
		return h.volumes[:limit], nil
	}
	return h.volumes, nil
}

func (h *historyStub) PreviousClosing(context.Context, snowflake.ID, time.Time) (decimal.NullDecimal, error) {
	return h.previous, h.err
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func nd(v string) decimal.NullDecimal { return decimal.NewNullDecimal(d(v)) }

func defaults() Settings {
	return Settings{
		DefaultHistoricalVolume: d("120"),
		DefaultOpeningReading:   d("10000"),
		HistoryLimit:            30,
	}
}

var day = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func TestEstimate_OpeningOnlyAddsHistoricalAverage(t *testing.T) {
	history := &historyStub{volumes: []decimal.Decimal{d("100"), d("140"), d("120")}}
	engine := New(history, defaults())

	res, err := engine.Estimate(context.Background(), Input{
		PumpID:   1,
		Date:     day,
		Capacity: d("999999"),
		Opening:  nd("5000"),
	})
	require.NoError(t, err)

	assert.True(t, res.HistoricalAverage.Equal(d("120")))
	assert.False(t, res.AverageIsDefault)
	assert.True(t, res.Opening.Equal(d("5000")))
	assert.True(t, res.Closing.Equal(d("5120")), res.Closing.String())
	assert.True(t, res.SynthesizedClosing)
	assert.False(t, res.SynthesizedOpening)
	assert.Equal(t, 30, history.gotLimit)
	assert.Equal(t, day, history.gotBefore)
}

func TestEstimate_ClosingOnlySubtractsHistoricalAverage(t *testing.T) {
	engine := New(&historyStub{volumes: []decimal.Decimal{d("80")}}, defaults())

	res, err := engine.Estimate(context.Background(), Input{
		PumpID:   1,
		Date:     day,
		Capacity: d("999999"),
		Closing:  nd("5000"),
	})
	require.NoError(t, err)

	assert.True(t, res.Opening.Equal(d("4920")))
	assert.True(t, res.Closing.Equal(d("5000")))
	assert.True(t, res.SynthesizedOpening)
	assert.Equal(t, OpeningFromClosing, res.OpeningSource)
}

func TestEstimate_BothMissingSeedsFromPreviousClosing(t *testing.T) {
	engine := New(&historyStub{previous: nd("7300.5")}, defaults())

	res, err := engine.Estimate(context.Background(), Input{
		PumpID:   1,
		Date:     day,
		Capacity: d("999999"),
	})
	require.NoError(t, err)

	assert.True(t, res.AverageIsDefault)
	assert.Equal(t, OpeningPreviousClosing, res.OpeningSource)
	assert.True(t, res.Opening.Equal(d("7300.5")))
	assert.True(t, res.Closing.Equal(d("7420.5")))
	assert.True(t, res.SynthesizedOpening)
	assert.True(t, res.SynthesizedClosing)
}

func TestEstimate_BothMissingWithoutHistoryUsesDefaults(t *testing.T) {
	engine := New(&historyStub{}, defaults())

	res, err := engine.Estimate(context.Background(), Input{
		PumpID:   1,
		Date:     day,
		Capacity: d("999999"),
	})
	require.NoError(t, err)

	assert.Equal(t, OpeningDefault, res.OpeningSource)
	assert.True(t, res.Opening.Equal(d("10000")))
	assert.True(t, res.Closing.Equal(d("10120")))
}

func TestEstimate_WrapsAtCapacity(t *testing.T) {
	engine := New(&historyStub{volumes: []decimal.Decimal{d("120")}}, defaults())
	capacity := d("1000")

	res, err := engine.Estimate(context.Background(), Input{
		PumpID:   1,
		Date:     day,
		Capacity: capacity,
		Opening:  nd("950"),
	})
	require.NoError(t, err)
	assert.True(t, res.Closing.Equal(d("70")), res.Closing.String())

	detected := rollover.NewDetector(d("0.5")).Detect(res.Opening, res.Closing, capacity)
	assert.True(t, detected.HasRollover)
	assert.True(t, detected.VolumeDispensed.Equal(res.HistoricalAverage))
	assert.True(t, res.Volume.Equal(res.HistoricalAverage))

	res, err = engine.Estimate(context.Background(), Input{
		PumpID:   1,
		Date:     day,
		Capacity: capacity,
		Closing:  nd("50"),
	})
	require.NoError(t, err)
	assert.True(t, res.Opening.Equal(d("930")), res.Opening.String())
}

func TestEstimate_AverageAboveHalfCapacityKeepsVolume(t *testing.T) {
	history := &historyStub{volumes: []decimal.Decimal{d("600"), d("600"), d("600")}}
	engine := New(history, defaults())
	capacity := d("1000")

	res, err := engine.Estimate(context.Background(), Input{
		PumpID:   1,
		Date:     day,
		Capacity: capacity,
		Opening:  nd("900"),
	})
	require.NoError(t, err)
	assert.True(t, res.Closing.Equal(d("500")), res.Closing.String())
	assert.True(t, res.Volume.Equal(d("600")), res.Volume.String())

	// The plausibility heuristic alone would read this pair as 400.
	guessed := rollover.NewDetector(d("0.5")).Detect(res.Opening, res.Closing, capacity)
	assert.True(t, guessed.Ambiguous)

	known := rollover.Known(res.Opening, res.Closing, capacity, res.Volume)
	assert.True(t, known.VolumeDispensed.Equal(d("600")))
	assert.True(t, known.HasRollover)
	assert.False(t, known.Ambiguous)
}

func TestEstimate_RecordedPairVolumeIsDifference(t *testing.T) {
	engine := New(&historyStub{volumes: []decimal.Decimal{d("600")}}, defaults())

	res, err := engine.Estimate(context.Background(), Input{
		PumpID:   1,
		Date:     day,
		Capacity: d("1000"),
		Opening:  nd("100"),
		Closing:  nd("350"),
	})
	require.NoError(t, err)
	assert.False(t, res.Synthesized())
	assert.True(t, res.Volume.Equal(d("250")))
}

func TestEstimate_HistoryLimitIsHonoured(t *testing.T) {
	history := &historyStub{volumes: []decimal.Decimal{d("10"), d("20"), d("300")}}
	settings := defaults()
	settings.HistoryLimit = 2
	engine := New(history, settings)

	avg, isDefault, err := engine.HistoricalAverage(context.Background(), 1, day)
	require.NoError(t, err)
	assert.False(t, isDefault)
	assert.True(t, avg.Equal(d("15")))
	assert.Equal(t, 2, history.gotLimit)
}

func TestEstimate_PropagatesHistoryErrors(t *testing.T) {
	boom := errors.New("boom")
	engine := New(&historyStub{err: boom}, defaults())

	_, err := engine.Estimate(context.Background(), Input{PumpID: 1, Date: day, Capacity: d("1000")})
	assert.ErrorIs(t, err, boom)
}
