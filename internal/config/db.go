package config

import (
	"fmt"
	"net/url"
)

const (
	DbTypeMongo  = "mongo"
	DbTypeMemory = "memory"
)

type DbConfig struct {
	// Type is either "mongo" (default) or "memory". The memory store keeps
	// everything in process and is meant for local runs only.
	Type     string `mapstructure:"type"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DbName   string `mapstructure:"db-name"`
	Address  string `mapstructure:"address"`
	// DirectConnection is needed when talking to a single-node replica set from outside its network
	DirectConnection bool `mapstructure:"direct-connection"`
}

func (cfg *DbConfig) Validate() error {
	if cfg.Type == "" {
		cfg.Type = DbTypeMongo
	}

	switch cfg.Type {
	case DbTypeMemory:
		return nil
	case DbTypeMongo:
	default:
		return fmt.Errorf("unsupported db type %q", cfg.Type)
	}

	if cfg.Username == "" {
		return fmt.Errorf("missing db username")
	}

	if cfg.Password == "" {
		return fmt.Errorf("missing db password")
	}

	if cfg.Address == "" {
		return fmt.Errorf("missing db address")
	}

	if cfg.DbName == "" {
		return fmt.Errorf("missing db name")
	}

	u, err := url.Parse(cfg.Address)
	if err != nil {
		return fmt.Errorf("invalid db address: %w", err)
	}

	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return fmt.Errorf("unsupported db address scheme: %s", u.Scheme)
	}

	return nil
}
