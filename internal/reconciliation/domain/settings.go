package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Settings are the tunables of one station's reconciliation.
type Settings struct {
	RolloverMaxCapacityRatio  decimal.Decimal
	DefaultHistoricalVolume   decimal.Decimal
	DefaultOpeningReading     decimal.Decimal
	EstimationHistoryLimit    int
	DeviationWindowDays       int
	DeviationThresholdPercent decimal.Decimal
	MaxConcurrency            int
}

func DefaultSettings() Settings {
	return Settings{
		RolloverMaxCapacityRatio:  decimal.RequireFromString("0.5"),
		DefaultHistoricalVolume:   decimal.NewFromInt(120),
		DefaultOpeningReading:     decimal.NewFromInt(10000),
		EstimationHistoryLimit:    30,
		DeviationWindowDays:       7,
		DeviationThresholdPercent: decimal.NewFromInt(20),
		MaxConcurrency:            1,
	}
}

type SettingsProvider interface {
	ForStation(stationID snowflake.ID) Settings
}

// StaticSettings serves the same settings to every station.
type StaticSettings Settings

func (s StaticSettings) ForStation(snowflake.ID) Settings { return Settings(s) }
