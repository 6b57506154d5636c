package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/uct-network/uct-ledger/internal/observability/tracing"
)

// VerifyLedgerCmd compares every balance aggregate with the sum of its ledger entries.
// Usage: ./uct-ledger verify-ledger --config config.yml [--user <id>]
func VerifyLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-ledger",
		Short: "Audit balance aggregates against the ledger",
		Args:  cobra.ExactArgs(0),
		Run:   verifyLedger,
	}

	cmd.Flags().String("user", "", "Audit a single user instead of every user")

	return cmd
}

func verifyLedger(cmd *cobra.Command, args []string) {
	err := verifyLedgerE(cmd, args)
	if err != nil {
		log.Err(err).Msg("Ledger verification failed")
		os.Exit(1)
	}

	os.Exit(0)
}

func verifyLedgerE(cmd *cobra.Command, _ []string) error {
	ctx := tracing.InjectTraceID(cmd.Context())

	userID, err := cmd.Flags().GetString("user")
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	service, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	if userID != "" {
		report, err := service.VerifyLedger(ctx, userID)
		if err != nil {
			return err
		}
		if !report.Consistent {
			return fmt.Errorf("balance of %s disagrees with its ledger", userID)
		}
		log.Info().Str("user_id", userID).Stringer("unaccounted", report.Unaccounted).Msg("Balance matches the ledger")
		return nil
	}

	mismatches, checked, err := service.VerifyAll(ctx)
	if err != nil {
		return err
	}
	for _, report := range mismatches {
		log.Error().
			Str("user_id", report.UserID).
			Interface("aggregate", report.Aggregate).
			Interface("ledger", report.Ledger).
			Msg("Balance disagrees with the ledger")
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%d of %d balances disagree with the ledger", len(mismatches), checked)
	}

	log.Info().Int("checked", checked).Msg("All balances match the ledger")
	return nil
}
