package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/uct-network/uct-ledger/internal/observability/metrics"
	"github.com/uct-network/uct-ledger/internal/utils/poller"
)

// StartStatsPoller starts the stats polling service
func (s *Service) StartStatsPoller(ctx context.Context) {
	statsPoller := poller.NewPoller(
		"stats",
		s.cfg.Poller.StatsPollingInterval,
		metrics.RecordPollerDuration("stats", s.calculateAndUpdateStats),
	)
	go statsPoller.Start(ctx)
}

// calculateAndUpdateStats rolls up balances, ledger events and batches with
// aggregations and stores the result for the stats endpoint.
func (s *Service) calculateAndUpdateStats(ctx context.Context) error {
	log := log.Ctx(ctx)

	startTime := time.Now()
	stats, err := s.db.CalculateLedgerStats(ctx)
	aggregationDuration := time.Since(startTime)

	log.Debug().
		Dur("aggregation_duration_ms", aggregationDuration).
		Msg("Stats aggregation completed")

	if err != nil {
		return fmt.Errorf("failed to calculate ledger stats: %w", err)
	}

	// Nothing recorded yet, wait for the next poll
	if stats.Users == 0 {
		log.Debug().Msg("No balances found - skipping stats update")
		return nil
	}

	if err := s.db.UpsertLedgerStats(ctx, stats); err != nil {
		return fmt.Errorf("failed to upsert ledger stats: %w", err)
	}

	log.Info().
		Int64("users", stats.Users).
		Stringer("available", stats.Totals.Available).
		Stringer("on_chain", stats.Totals.OnChain).
		Msg("Updated ledger stats")

	metrics.RecordLedgerTotals(stats.Users, stats.Totals.Fields())

	return nil
}
