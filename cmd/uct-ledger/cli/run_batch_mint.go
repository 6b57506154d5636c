package cli

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/uct-network/uct-ledger/internal/observability/tracing"
	"github.com/uct-network/uct-ledger/internal/services"
)

// RunBatchMintCmd runs the batch mint job once, for deployments driven by an external scheduler:
// ./uct-ledger run-batch-mint --config config.yml
func RunBatchMintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-batch-mint",
		Short: "Mint positive available balances to user wallets in one batch",
		Args:  cobra.ExactArgs(0),
		Run:   runBatchMint,
	}

	return cmd
}

func runBatchMint(cmd *cobra.Command, args []string) {
	report, err := runBatchMintE(cmd, args)
	if err != nil {
		log.Err(err).Msg("Failed to run batch mint")
		os.Exit(1)
	}

	log.Info().
		Str("outcome", report.Outcome).
		Str("batch_id", report.BatchID).
		Str("tx_hash", report.TxHash).
		Int("items", report.Items).
		Int("skipped", report.Skipped).
		Int("resumed", report.Resumed).
		Stringer("total_amount", report.TotalAmount).
		Msg("Batch mint finished")
	os.Exit(0)
}

func runBatchMintE(cmd *cobra.Command, _ []string) (*services.BatchMintReport, error) {
	ctx := tracing.InjectTraceID(cmd.Context())

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	service, err := newService(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return service.RunBatchMint(ctx)
}
