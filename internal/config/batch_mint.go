package config

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	defaultBatchMaxSize            = 100
	defaultBatchMinSize            = 1
	defaultBatchLockTTL            = 10 * time.Minute
	defaultBatchMintTimeout        = 2 * time.Minute
	defaultWalletLookupConcurrency = 8
)

type BatchMintConfig struct {
	// Schedule is a cron expression with seconds, e.g. "0 0 */6 * * *".
	// Empty schedule disables the in-process scheduler; the job can still be
	// triggered through the internal endpoint or the run-batch-mint command.
	Schedule                string        `mapstructure:"schedule"`
	Network                 string        `mapstructure:"network"`
	MaxSize                 int           `mapstructure:"max-size"`
	MinSize                 int           `mapstructure:"min-size"`
	CronSecret              string        `mapstructure:"cron-secret"`
	LockTTL                 time.Duration `mapstructure:"lock-ttl"`
	MintTimeout             time.Duration `mapstructure:"mint-timeout"`
	WalletLookupConcurrency int           `mapstructure:"wallet-lookup-concurrency"`
}

func (cfg *BatchMintConfig) Validate() error {
	if cfg.Network == "" {
		return errors.New("batch-mint network is required")
	}

	if cfg.CronSecret == "" {
		return errors.New("batch-mint cron-secret is required")
	}

	if cfg.Schedule != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(cfg.Schedule); err != nil {
			return errors.New("batch-mint schedule is not a valid cron expression: " + err.Error())
		}
	}

	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultBatchMaxSize
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = defaultBatchMinSize
	}
	if cfg.MinSize > cfg.MaxSize {
		return errors.New("batch-mint min-size must not exceed max-size")
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultBatchLockTTL
	}
	if cfg.MintTimeout <= 0 {
		cfg.MintTimeout = defaultBatchMintTimeout
	}
	if cfg.LockTTL <= cfg.MintTimeout {
		return errors.New("batch-mint lock-ttl must be greater than mint-timeout")
	}
	if cfg.WalletLookupConcurrency <= 0 {
		cfg.WalletLookupConcurrency = defaultWalletLookupConcurrency
	}

	return nil
}
