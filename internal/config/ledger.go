package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/types"
)

const (
	defaultUnstakeCooldown = 7 * 24 * time.Hour
	defaultPrecision       = 8
)

// LedgerConfig carries the reward policy, the burn rate table and the stake tiers.
// Map keys are lowercased by the config loader.
type LedgerConfig struct {
	// Precision is the number of decimal places kept on every amount
	Precision       int32                 `mapstructure:"precision"`
	UnstakeCooldown time.Duration         `mapstructure:"unstake-cooldown"`
	Rewards         map[string]RewardRule `mapstructure:"rewards"`
	BurnRates       map[string]BurnRate   `mapstructure:"burn-rates"`
	StakeTiers      map[string]StakeTier  `mapstructure:"stake-tiers"`
}

// RewardRule converts one activity event type into UCT:
// base + sum(payload[field] * per-unit[field]), capped at max when max > 0.
type RewardRule struct {
	Base        decimal.Decimal            `mapstructure:"base"`
	PerUnit     map[string]decimal.Decimal `mapstructure:"per-unit"`
	Max         decimal.Decimal            `mapstructure:"max"`
	Destination types.RewardDestination    `mapstructure:"destination"`
}

// BurnRate prices a burn: flat + per-unit * units + multiplier * base cost.
type BurnRate struct {
	Flat       decimal.Decimal `mapstructure:"flat"`
	PerUnit    decimal.Decimal `mapstructure:"per-unit"`
	Multiplier decimal.Decimal `mapstructure:"multiplier"`
}

type StakeTier struct {
	Amount     decimal.Decimal `mapstructure:"amount"`
	Capability string          `mapstructure:"capability"`
}

func (cfg *LedgerConfig) Validate() error {
	if cfg.Precision <= 0 {
		cfg.Precision = defaultPrecision
	}
	if cfg.Precision > 18 {
		return errors.New("ledger precision must not exceed 18 decimal places")
	}

	if cfg.UnstakeCooldown <= 0 {
		cfg.UnstakeCooldown = defaultUnstakeCooldown
	}

	for name, rule := range cfg.Rewards {
		if rule.Base.IsNegative() {
			return fmt.Errorf("reward %s: base must not be negative", name)
		}
		for field, rate := range rule.PerUnit {
			if rate.IsNegative() {
				return fmt.Errorf("reward %s: per-unit rate for %s must not be negative", name, field)
			}
		}
		if rule.Max.IsNegative() {
			return fmt.Errorf("reward %s: max must not be negative", name)
		}
		if rule.Destination == "" {
			rule.Destination = types.DestinationAvailable
			cfg.Rewards[name] = rule
		}
		if !rule.Destination.IsValid() {
			return fmt.Errorf("reward %s: invalid destination %q", name, rule.Destination)
		}
	}

	for name, rate := range cfg.BurnRates {
		if rate.Flat.IsNegative() || rate.PerUnit.IsNegative() || rate.Multiplier.IsNegative() {
			return fmt.Errorf("burn rate %s: rates must not be negative", name)
		}
		if rate.Flat.IsZero() && rate.PerUnit.IsZero() && rate.Multiplier.IsZero() {
			return fmt.Errorf("burn rate %s: at least one rate must be set", name)
		}
	}

	for name, tier := range cfg.StakeTiers {
		if !tier.Amount.IsPositive() {
			return fmt.Errorf("stake tier %s: amount must be positive", name)
		}
		if tier.Capability == "" {
			return fmt.Errorf("stake tier %s: capability is required", name)
		}
	}

	return nil
}
