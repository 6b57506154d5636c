package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/uct-network/uct-ledger/internal/clients/minterclient"
	"github.com/uct-network/uct-ledger/internal/clients/walletclient"
	"github.com/uct-network/uct-ledger/internal/config"
	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/memdb"
	dbmodel "github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/services"
)

// loadConfig reads the config file and applies its log level.
func loadConfig() (*config.Config, error) {
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("error while loading config file %s: %w", cfgPath, err)
	}

	if cfg.LogLevel != "" {
		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zerolog.SetGlobalLevel(level)
	}
	return cfg, nil
}

// newDbClient connects the configured store. Mongo collections and indexes
// are created on the way.
func newDbClient(ctx context.Context, cfg *config.Config) (db.DbInterface, error) {
	if cfg.Db.Type == config.DbTypeMemory {
		return memdb.New(), nil
	}

	if err := dbmodel.Setup(ctx, &cfg.Db); err != nil {
		return nil, fmt.Errorf("error while setting up ledger db model: %w", err)
	}

	dbClient, err := db.New(ctx, cfg.Db)
	if err != nil {
		return nil, fmt.Errorf("error while creating db client: %w", err)
	}
	return db.NewDbWithMetrics(dbClient), nil
}

func newService(ctx context.Context, cfg *config.Config) (*services.Service, error) {
	dbClient, err := newDbClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	minter := minterclient.NewMinterWithMetrics(minterclient.NewClient(&cfg.Minter))
	wallets := walletclient.NewWalletClientWithMetrics(walletclient.NewClient(&cfg.WalletDirectory))

	return services.NewService(cfg, dbClient, minter, wallets, nil), nil
}
