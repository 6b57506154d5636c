package memdb

import (
	"context"
	"time"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
)

func (s *Store) CalculateLedgerStats(ctx context.Context) (*model.LedgerStatsDocument, error) {
	defer s.lock(ctx)()

	stats := &model.LedgerStatsDocument{
		ID:                  model.LedgerStatsID,
		Events:              map[string]model.EventTotal{},
		SettlementsByStatus: map[string]int64{},
		MintBatchesByStatus: map[string]int64{},
	}

	for _, balance := range s.state.balances {
		stats.Users++
		stats.Totals = stats.Totals.Add(balance.AsDelta())
	}
	for _, entry := range s.state.entries {
		total := stats.Events[entry.EventType.String()]
		total.Count++
		total.Amount = total.Amount.Add(entry.Amount)
		stats.Events[entry.EventType.String()] = total
	}
	for _, batch := range s.state.onchain {
		stats.SettlementsByStatus[batch.Status.String()]++
	}
	for _, batch := range s.state.mintBatches {
		stats.MintBatchesByStatus[batch.Status.String()]++
	}

	return stats, nil
}

func (s *Store) UpsertLedgerStats(ctx context.Context, stats *model.LedgerStatsDocument) error {
	defer s.lock(ctx)()

	stored := *stats
	stored.ID = model.LedgerStatsID
	stored.LastUpdated = time.Now().UTC()
	s.state.stats = &stored
	return nil
}

func (s *Store) GetLedgerStats(ctx context.Context) (*model.LedgerStatsDocument, error) {
	defer s.lock(ctx)()

	if s.state.stats == nil {
		return nil, &db.NotFoundError{Key: model.LedgerStatsID, Message: "ledger stats not calculated yet"}
	}
	stats := *s.state.stats
	return &stats, nil
}
