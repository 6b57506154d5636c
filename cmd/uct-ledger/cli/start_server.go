package cli

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/uct-network/uct-ledger/internal/api"
	"github.com/uct-network/uct-ledger/internal/observability/metrics"
	"github.com/uct-network/uct-ledger/internal/observability/tracing"
	"github.com/uct-network/uct-ledger/internal/queue"
)

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the UCT ledger API, background workers and activity consumer",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error while loading config")
	}

	service, err := newService(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating service")
	}

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	if err := service.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("error while starting background workers")
	}

	var wg conc.WaitGroup
	if cfg.Queue != nil {
		qm := queue.NewQueueManager(cfg.Queue, service.HandleActivityMessage)
		wg.Go(func() {
			qm.Start(ctx)
		})
		defer qm.Shutdown()
	}

	server := api.New(cfg, service)
	err = server.Start(ctx)
	stop()
	wg.Wait()

	return err
}
