package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ReconciliationConfig carries the business assumptions the reconciliation
// engine falls back on. Decimal values are kept as strings so YAML and env
// input never pass through float64.
type ReconciliationConfig struct {
	RolloverMaxCapacityRatio  string                     `mapstructure:"rollover_max_capacity_ratio"`
	DefaultHistoricalVolume   string                     `mapstructure:"default_historical_volume"`
	DefaultOpeningReading     string                     `mapstructure:"default_opening_reading"`
	EstimationHistoryLimit    int                        `mapstructure:"estimation_history_limit"`
	DeviationWindowDays       int                        `mapstructure:"deviation_window_days"`
	DeviationThresholdPercent string                     `mapstructure:"deviation_threshold_percent"`
	MaxConcurrency            int                        `mapstructure:"max_concurrency"`
	Stations                  map[string]StationOverride `mapstructure:"stations"`
}

// StationOverride replaces individual tunables for one station. Empty or zero
// fields inherit the global value.
type StationOverride struct {
	RolloverMaxCapacityRatio  string `mapstructure:"rollover_max_capacity_ratio"`
	DefaultHistoricalVolume   string `mapstructure:"default_historical_volume"`
	DefaultOpeningReading     string `mapstructure:"default_opening_reading"`
	EstimationHistoryLimit    int    `mapstructure:"estimation_history_limit"`
	DeviationWindowDays       int    `mapstructure:"deviation_window_days"`
	DeviationThresholdPercent string `mapstructure:"deviation_threshold_percent"`
}

func DefaultReconciliationConfig() ReconciliationConfig {
	return ReconciliationConfig{
		RolloverMaxCapacityRatio:  "0.5",
		DefaultHistoricalVolume:   "120",
		DefaultOpeningReading:     "10000",
		EstimationHistoryLimit:    30,
		DeviationWindowDays:       7,
		DeviationThresholdPercent: "20",
		MaxConcurrency:            1,
	}
}

// ForStation returns the effective configuration for one station.
func (c ReconciliationConfig) ForStation(stationID string) ReconciliationConfig {
	override, ok := c.Stations[strings.TrimSpace(stationID)]
	if !ok {
		return c
	}
	merged := c
	if override.RolloverMaxCapacityRatio != "" {
		merged.RolloverMaxCapacityRatio = override.RolloverMaxCapacityRatio
	}
	if override.DefaultHistoricalVolume != "" {
		merged.DefaultHistoricalVolume = override.DefaultHistoricalVolume
	}
	if override.DefaultOpeningReading != "" {
		merged.DefaultOpeningReading = override.DefaultOpeningReading
	}
	if override.EstimationHistoryLimit > 0 {
		merged.EstimationHistoryLimit = override.EstimationHistoryLimit
	}
	if override.DeviationWindowDays > 0 {
		merged.DeviationWindowDays = override.DeviationWindowDays
	}
	if override.DeviationThresholdPercent != "" {
		merged.DeviationThresholdPercent = override.DeviationThresholdPercent
	}
	return merged
}

type ReconciliationConfigHolder struct {
	current atomic.Value // holds ReconciliationConfig
}

func NewReconciliationConfigHolder(log *zap.Logger) (*ReconciliationConfigHolder, error) {
	log = log.Named("config.reconciliation")
	v := viper.New()

	v.SetConfigName("reconciliation")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/fuelrecon")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FUELRECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReconciliationConfig()
	v.SetDefault("reconciliation.rollover_max_capacity_ratio", defaults.RolloverMaxCapacityRatio)
	v.SetDefault("reconciliation.default_historical_volume", defaults.DefaultHistoricalVolume)
	v.SetDefault("reconciliation.default_opening_reading", defaults.DefaultOpeningReading)
	v.SetDefault("reconciliation.estimation_history_limit", defaults.EstimationHistoryLimit)
	v.SetDefault("reconciliation.deviation_window_days", defaults.DeviationWindowDays)
	v.SetDefault("reconciliation.deviation_threshold_percent", defaults.DeviationThresholdPercent)
	v.SetDefault("reconciliation.max_concurrency", defaults.MaxConcurrency)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Info("reconciliation config file not found, using defaults")
	}

	var cfg ReconciliationConfig
	if err := v.UnmarshalKey("reconciliation", &cfg); err != nil {
		return nil, err
	}
	if err := ValidateReconciliationConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ReconciliationConfigHolder{}
	holder.current.Store(cfg)

	if v.ConfigFileUsed() != "" {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated ReconciliationConfig
			if err := v.UnmarshalKey("reconciliation", &updated); err != nil {
				log.Warn("reconciliation config reload failed", zap.Error(err))
				return
			}
			if err := ValidateReconciliationConfig(updated); err != nil {
				log.Warn("invalid reconciliation config ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("reconciliation config reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

// NewStaticReconciliationConfigHolder pins cfg without reading files.
func NewStaticReconciliationConfigHolder(cfg ReconciliationConfig) *ReconciliationConfigHolder {
	holder := &ReconciliationConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ReconciliationConfigHolder) Get() ReconciliationConfig {
	return h.current.Load().(ReconciliationConfig)
}

func ValidateReconciliationConfig(cfg ReconciliationConfig) error {
	if err := validateTunables(cfg); err != nil {
		return err
	}
	if cfg.MaxConcurrency < 1 {
		return errors.New("reconciliation.max_concurrency must be at least 1")
	}
	for id := range cfg.Stations {
		if err := validateTunables(cfg.ForStation(id)); err != nil {
			return fmt.Errorf("reconciliation.stations.%s: %w", id, err)
		}
	}
	return nil
}

func validateTunables(cfg ReconciliationConfig) error {
	ratio, err := decimal.NewFromString(cfg.RolloverMaxCapacityRatio)
	if err != nil || !ratio.IsPositive() || ratio.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("rollover_max_capacity_ratio must be in (0, 1]")
	}
	volume, err := decimal.NewFromString(cfg.DefaultHistoricalVolume)
	if err != nil || !volume.IsPositive() {
		return errors.New("default_historical_volume must be positive")
	}
	opening, err := decimal.NewFromString(cfg.DefaultOpeningReading)
	if err != nil || opening.IsNegative() {
		return errors.New("default_opening_reading must not be negative")
	}
	threshold, err := decimal.NewFromString(cfg.DeviationThresholdPercent)
	if err != nil || threshold.IsNegative() {
		return errors.New("deviation_threshold_percent must not be negative")
	}
	if cfg.EstimationHistoryLimit < 1 {
		return errors.New("estimation_history_limit must be at least 1")
	}
	if cfg.DeviationWindowDays < 1 {
		return errors.New("deviation_window_days must be at least 1")
	}
	return nil
}
