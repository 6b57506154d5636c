package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	defaultClientTimeout       = 15 * time.Second
	defaultClientMaxRetryTimes = 3
	defaultClientRetryInterval = 500 * time.Millisecond
)

// HTTPClientConfig is shared by the outbound collaborators.
type HTTPClientConfig struct {
	URL           string        `mapstructure:"url"`
	APIKey        string        `mapstructure:"api-key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetryTimes uint          `mapstructure:"max-retry-times"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
}

func (cfg *HTTPClientConfig) validate(name string) error {
	if cfg.URL == "" {
		return fmt.Errorf("%s url must be set", name)
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return fmt.Errorf("%s url is invalid: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s url must use http or https", name)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultClientTimeout
	}
	if cfg.MaxRetryTimes == 0 {
		cfg.MaxRetryTimes = defaultClientMaxRetryTimes
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultClientRetryInterval
	}

	return nil
}

// MinterConfig points at the external minting collaborator.
type MinterConfig struct {
	HTTPClientConfig `mapstructure:",squash"`
}

func (cfg *MinterConfig) Validate() error {
	return cfg.validate("minter")
}

// WalletDirectoryConfig points at the service owning verified wallet addresses.
type WalletDirectoryConfig struct {
	HTTPClientConfig `mapstructure:",squash"`
}

func (cfg *WalletDirectoryConfig) Validate() error {
	return cfg.validate("wallet-directory")
}
