package scheduler

import (
	"time"

	"github.com/smallbiznis/fuelrecon/internal/config"
)

// Config controls the reconciliation job.
type Config struct {
	Enabled      bool
	RunInterval  time.Duration
	JobTimeout   time.Duration
	LookbackDays int
	StationIDs   []string
}

func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		RunInterval:  time.Hour,
		JobTimeout:   5 * time.Minute,
		LookbackDays: 1,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:      cfg.Scheduler.Enabled,
		RunInterval:  cfg.Scheduler.RunInterval,
		JobTimeout:   cfg.Scheduler.JobTimeout,
		LookbackDays: cfg.Scheduler.LookbackDays,
		StationIDs:   cfg.Scheduler.StationIDs,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LookbackDays < 0 {
		c.LookbackDays = defaults.LookbackDays
	}
	return c
}
