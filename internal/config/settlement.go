package config

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultMaxSettlementsPerWindow = 3
	defaultRateLimitWindow         = time.Hour
	defaultSettlementMintTimeout   = 30 * time.Second
	defaultStaleBatchAfter         = 15 * time.Minute
	defaultStaleBatchLimit         = 100
)

type SettlementConfig struct {
	MinAmount decimal.Decimal `mapstructure:"min-amount"`
	Network   string          `mapstructure:"network"`
	// MaxRequestsPerWindow settlement requests are allowed per user within RateLimitWindow
	MaxRequestsPerWindow int           `mapstructure:"max-requests-per-window"`
	RateLimitWindow      time.Duration `mapstructure:"rate-limit-window"`
	MintTimeout          time.Duration `mapstructure:"mint-timeout"`
	StaleBatchAfter      time.Duration `mapstructure:"stale-batch-after"`
	StaleBatchLimit      int64         `mapstructure:"stale-batch-limit"`
}

func (cfg *SettlementConfig) Validate() error {
	if cfg.MinAmount.IsNegative() {
		return errors.New("settlement min-amount must not be negative")
	}

	if cfg.Network == "" {
		return errors.New("settlement network is required")
	}

	if cfg.MaxRequestsPerWindow <= 0 {
		cfg.MaxRequestsPerWindow = defaultMaxSettlementsPerWindow
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = defaultRateLimitWindow
	}
	if cfg.MintTimeout <= 0 {
		cfg.MintTimeout = defaultSettlementMintTimeout
	}
	if cfg.StaleBatchAfter <= 0 {
		cfg.StaleBatchAfter = defaultStaleBatchAfter
	}
	// a stale threshold shorter than the mint timeout would fail batches that are still in flight
	if cfg.StaleBatchAfter <= cfg.MintTimeout {
		return errors.New("settlement stale-batch-after must be greater than mint-timeout")
	}
	if cfg.StaleBatchLimit <= 0 {
		cfg.StaleBatchLimit = defaultStaleBatchLimit
	}

	return nil
}
