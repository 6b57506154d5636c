package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel        string                `mapstructure:"log-level"`
	Db              DbConfig              `mapstructure:"db"`
	Server          ServerConfig          `mapstructure:"server"`
	Ledger          LedgerConfig          `mapstructure:"ledger"`
	Settlement      SettlementConfig      `mapstructure:"settlement"`
	BatchMint       BatchMintConfig       `mapstructure:"batch-mint"`
	Minter          MinterConfig          `mapstructure:"minter"`
	WalletDirectory WalletDirectoryConfig `mapstructure:"wallet-directory"`
	Queue           *QueueConfig          `mapstructure:"queue"`
	Poller          PollerConfig          `mapstructure:"poller"`
	Metrics         MetricsConfig         `mapstructure:"metrics"`
}

func (cfg *Config) Validate() error {
	if cfg.LogLevel != "" {
		if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("invalid log-level %q: %w", cfg.LogLevel, err)
		}
	}

	if err := cfg.Db.Validate(); err != nil {
		return err
	}

	if err := cfg.Server.Validate(); err != nil {
		return err
	}

	if err := cfg.Ledger.Validate(); err != nil {
		return err
	}

	if err := cfg.Settlement.Validate(); err != nil {
		return err
	}

	if err := cfg.BatchMint.Validate(); err != nil {
		return err
	}

	if err := cfg.Minter.Validate(); err != nil {
		return err
	}

	if err := cfg.WalletDirectory.Validate(); err != nil {
		return err
	}

	// queue is optional, activity events can arrive over HTTP only
	if cfg.Queue != nil {
		if err := cfg.Queue.Validate(); err != nil {
			return err
		}
	}

	if err := cfg.Poller.Validate(); err != nil {
		return err
	}

	if err := cfg.Metrics.Validate(); err != nil {
		return err
	}

	return nil
}

// New returns a fully parsed Config object from a given file path.
// Any key can be overridden with an UCT_ prefixed environment variable,
// e.g. UCT_DB_PASSWORD overrides db.password.
func New(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetEnvPrefix("UCT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		DecimalDecodeHook(),
	)))
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
