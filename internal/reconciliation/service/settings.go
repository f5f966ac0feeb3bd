package service

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fuelrecon/internal/config"
	recondomain "github.com/smallbiznis/fuelrecon/internal/reconciliation/domain"
)

type configSettings struct {
	holder *config.ReconciliationConfigHolder
}

// NewSettingsProvider reads the live reconciliation config on every call so
// hot reloads apply to the next station run.
func NewSettingsProvider(holder *config.ReconciliationConfigHolder) recondomain.SettingsProvider {
	return &configSettings{holder: holder}
}

func (p *configSettings) ForStation(stationID snowflake.ID) recondomain.Settings {
	defaults := recondomain.DefaultSettings()
	if p.holder == nil {
		return defaults
	}
	cfg := p.holder.Get().ForStation(stationID.String())

	settings := recondomain.Settings{
		RolloverMaxCapacityRatio:  decimalOr(cfg.RolloverMaxCapacityRatio, defaults.RolloverMaxCapacityRatio),
		DefaultHistoricalVolume:   decimalOr(cfg.DefaultHistoricalVolume, defaults.DefaultHistoricalVolume),
		DefaultOpeningReading:     decimalOr(cfg.DefaultOpeningReading, defaults.DefaultOpeningReading),
		EstimationHistoryLimit:    cfg.EstimationHistoryLimit,
		DeviationWindowDays:       cfg.DeviationWindowDays,
		DeviationThresholdPercent: decimalOr(cfg.DeviationThresholdPercent, defaults.DeviationThresholdPercent),
		MaxConcurrency:            cfg.MaxConcurrency,
	}
	if settings.EstimationHistoryLimit < 1 {
		settings.EstimationHistoryLimit = defaults.EstimationHistoryLimit
	}
	if settings.DeviationWindowDays < 1 {
		settings.DeviationWindowDays = defaults.DeviationWindowDays
	}
	if settings.MaxConcurrency < 1 {
		settings.MaxConcurrency = defaults.MaxConcurrency
	}
	return settings
}

func decimalOr(value string, fallback decimal.Decimal) decimal.Decimal {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return fallback
	}
	return parsed
}
