package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/uct-network/uct-ledger/pkg"
)

const (
	defaultConfigFileName = "config.yml"
	configPathEnv         = "UCT_LEDGER_CONFIG"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:   "uct-ledger",
		Short: "UCT token ledger and settlement engine",
	}
)

func Setup() error {
	homePath, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	defaultConfigPath := pkg.Getenv(configPathEnv, getDefaultConfigFile(homePath, defaultConfigFileName))

	rootCmd.AddCommand(StartServerCmd())
	rootCmd.AddCommand(RunBatchMintCmd())
	rootCmd.AddCommand(VerifyLedgerCmd())
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath, fmt.Sprintf("config file (default %s)", defaultConfigPath))
	if err := rootCmd.Execute(); err != nil {
		return err
	}

	return nil
}

func getDefaultConfigFile(homePath, filename string) string {
	return filepath.Join(homePath, filename)
}

func GetConfigPath() string {
	return cfgPath
}
