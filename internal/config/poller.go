package config

import (
	"errors"
	"time"
)

const (
	defaultStatsPollingInterval     = 5 * time.Minute
	defaultReconcilePollingInterval = time.Minute
)

type PollerConfig struct {
	StatsPollingInterval     time.Duration `mapstructure:"stats-polling-interval"`
	ReconcilePollingInterval time.Duration `mapstructure:"reconcile-polling-interval"`
}

func (cfg *PollerConfig) Validate() error {
	if cfg.StatsPollingInterval < 0 {
		return errors.New("stats-polling-interval must not be negative")
	}
	if cfg.StatsPollingInterval == 0 {
		cfg.StatsPollingInterval = defaultStatsPollingInterval
	}

	if cfg.ReconcilePollingInterval < 0 {
		return errors.New("reconcile-polling-interval must not be negative")
	}
	if cfg.ReconcilePollingInterval == 0 {
		cfg.ReconcilePollingInterval = defaultReconcilePollingInterval
	}

	return nil
}
