package rollover

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestDetect(t *testing.T) {
	cases := []struct {
		name         string
		opening      string
		closing      string
		capacity     string
		wantVolume   string
		wantRollover bool
		wantAmbig    bool
	}{
		{name: "forward", opening: "100", closing: "250.5", capacity: "1000", wantVolume: "150.5"},
		{name: "unchanged", opening: "420", closing: "420", capacity: "1000", wantVolume: "0"},
		{name: "rollover accepted", opening: "950", closing: "50", capacity: "1000", wantVolume: "100", wantRollover: true},
		{name: "rollover at bound", opening: "600", closing: "100", capacity: "1000", wantVolume: "500", wantRollover: true},
		{name: "implausible rollover", opening: "950", closing: "900", capacity: "1000", wantVolume: "50", wantAmbig: true},
		{name: "opening above capacity", opening: "1200", closing: "100", capacity: "1000", wantVolume: "1100", wantAmbig: true},
		{name: "zero capacity", opening: "50", closing: "10", capacity: "0", wantVolume: "40", wantAmbig: true},
	}

	d := NewDetector(DefaultMaxCapacityRatio)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := d.Detect(dec(tc.opening), dec(tc.closing), dec(tc.capacity))
			assert.True(t, got.VolumeDispensed.Equal(dec(tc.wantVolume)), "volume %s", got.VolumeDispensed)
			assert.Equal(t, tc.wantRollover, got.HasRollover)
			assert.Equal(t, tc.wantAmbig, got.Ambiguous)
			if tc.wantRollover {
				assert.True(t, got.RolloverValue.Equal(dec(tc.capacity)))
			} else {
				assert.True(t, got.RolloverValue.IsZero())
			}
		})
	}
}

func TestDetectForwardNeverRollsOver(t *testing.T) {
	d := NewDetector(decimal.Zero)
	for o := int64(0); o < 1000; o += 97 {
		for c := o; c < 1000; c += 89 {
			got := d.Detect(decimal.NewFromInt(o), decimal.NewFromInt(c), decimal.NewFromInt(1000))
			assert.False(t, got.HasRollover)
			assert.True(t, got.VolumeDispensed.Equal(decimal.NewFromInt(c-o)))
		}
	}
}

func TestDetectHonoursConfiguredRatio(t *testing.T) {
	strict := NewDetector(dec("0.05"))
	got := strict.Detect(dec("950"), dec("50"), dec("1000"))
	assert.False(t, got.HasRollover)
	assert.True(t, got.VolumeDispensed.Equal(dec("900")))

	loose := NewDetector(dec("0.99"))
	got = loose.Detect(dec("950"), dec("900"), dec("1000"))
	assert.True(t, got.HasRollover)
	assert.True(t, got.VolumeDispensed.Equal(dec("950")))
}

func TestKnown(t *testing.T) {
	cases := []struct {
		name         string
		opening      string
		closing      string
		capacity     string
		volume       string
		wantRollover bool
	}{
		{name: "forward", opening: "100", closing: "220", capacity: "1000", volume: "120"},
		{name: "wrap beyond ratio", opening: "900", closing: "500", capacity: "1000", volume: "600", wantRollover: true},
		{name: "full lap", opening: "300", closing: "300", capacity: "1000", volume: "1000", wantRollover: true},
		{name: "no capacity", opening: "900", closing: "500", capacity: "0", volume: "600"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Known(dec(tc.opening), dec(tc.closing), dec(tc.capacity), dec(tc.volume))
			assert.True(t, got.VolumeDispensed.Equal(dec(tc.volume)), "volume %s", got.VolumeDispensed)
			assert.Equal(t, tc.wantRollover, got.HasRollover)
			assert.False(t, got.Ambiguous)
			if tc.wantRollover {
				assert.True(t, got.RolloverValue.Equal(dec(tc.capacity)))
			}
		})
	}
}
