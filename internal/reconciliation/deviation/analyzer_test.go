package deviation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fuelrecon/pkg/bizdate"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

var target = time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

func steadyHistory(volume string, days int) []Sample {
	samples := make([]Sample, 0, days)
	for i := 1; i <= days; i++ {
		samples = append(samples, Sample{BusinessDate: bizdate.AddDays(target, -i), Volume: d(volume)})
	}
	return samples
}

func TestWindow(t *testing.T) {
	from, to := Window(target, 7)
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 5, 19, 0, 0, 0, 0, time.UTC), to)

	from, _ = Window(target, 0)
	assert.Equal(t, bizdate.AddDays(target, -DefaultWindowDays), from)
}

func TestAnalyze(t *testing.T) {
	cases := []struct {
		name     string
		current  string
		history  []Sample
		want     string
		baseline bool
	}{
		{name: "four hundred percent", current: "500", history: steadyHistory("100", 7), want: "400", baseline: true},
		{name: "below average", current: "75", history: steadyHistory("100", 7), want: "-25", baseline: true},
		{name: "cold start", current: "500", history: nil, want: "0"},
		{name: "zero average", current: "50", history: steadyHistory("0", 7), want: "0", baseline: true},
		{
			name:    "rounded to two places",
			current: "100",
			history: []Sample{
				{BusinessDate: bizdate.AddDays(target, -1), Volume: d("30")},
				{BusinessDate: bizdate.AddDays(target, -2), Volume: d("30")},
				{BusinessDate: bizdate.AddDays(target, -3), Volume: d("30")},
			},
			want:     "233.33",
			baseline: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Analyze(d(tc.current), target, 7, tc.history)
			assert.True(t, res.DeviationPercent.Equal(d(tc.want)), "got %s", res.DeviationPercent)
			assert.Equal(t, tc.baseline, res.HasBaseline())
		})
	}
}

func TestAnalyze_IgnoresEstimatedAndOutOfWindowDays(t *testing.T) {
	history := steadyHistory("100", 7)
	history = append(history,
		Sample{BusinessDate: bizdate.AddDays(target, -2), Volume: d("10000"), IsEstimated: true},
		Sample{BusinessDate: bizdate.AddDays(target, -8), Volume: d("10000")},
		Sample{BusinessDate: target, Volume: d("10000")},
	)

	res := Analyze(d("120"), target, 7, history)
	assert.Equal(t, 7, res.SampleSize)
	assert.True(t, res.Baseline.Equal(d("100")))
	assert.True(t, res.DeviationPercent.Equal(d("20")))
}

func TestExceeds(t *testing.T) {
	assert.True(t, Exceeds(d("25"), d("20")))
	assert.True(t, Exceeds(d("-25"), d("20")))
	assert.True(t, Exceeds(d("20"), d("20")))
	assert.False(t, Exceeds(d("25"), d("30")))
}
