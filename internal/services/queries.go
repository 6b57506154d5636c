package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/types"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

func historyLimit(limit int64) int64 {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// GetBalance returns the balance aggregate, all zero for a user without activity.
func (s *Service) GetBalance(ctx context.Context, userID string) (*model.BalanceDocument, error) {
	balance, err := s.db.GetBalance(ctx, userID)
	if err != nil {
		if db.IsNotFoundError(err) {
			return model.NewBalanceDocument(userID), nil
		}
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to get balance: %w", err))
	}
	return balance, nil
}

func (s *Service) GetBurnHistory(ctx context.Context, userID string, limit int64) ([]model.BurnLogDocument, error) {
	logs, err := s.db.GetBurnLogs(ctx, userID, historyLimit(limit))
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to get burn history: %w", err))
	}
	return logs, nil
}

func (s *Service) GetSettlements(ctx context.Context, userID string) ([]model.OnchainBatchDocument, error) {
	batches, err := s.db.GetOnchainBatchesByUser(ctx, userID)
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to get settlements: %w", err))
	}
	return batches, nil
}

func (s *Service) GetStakes(ctx context.Context, userID string) ([]model.StakeDocument, error) {
	stakes, err := s.db.GetStakesByUser(ctx, userID)
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to get stakes: %w", err))
	}
	return stakes, nil
}

func (s *Service) GetLedger(ctx context.Context, userID string, limit int64) ([]model.LedgerEntryDocument, error) {
	entries, err := s.db.GetLedgerEntries(ctx, userID, historyLimit(limit))
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to get ledger entries: %w", err))
	}
	return entries, nil
}

// GetStats returns the latest rollup written by the stats poller.
func (s *Service) GetStats(ctx context.Context) (*model.LedgerStatsDocument, error) {
	stats, err := s.db.GetLedgerStats(ctx)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "stats not computed yet")
		}
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to get stats: %w", err))
	}
	return stats, nil
}

// Ping checks the dependencies needed to serve requests.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
