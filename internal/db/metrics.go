package db

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/observability/metrics"
	"github.com/uct-network/uct-ledger/internal/types"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return d.run("RunInTransaction", func() error {
		return d.db.RunInTransaction(ctx, fn)
	})
}

func (d *DbWithMetrics) GetBalance(ctx context.Context, userID string) (result *model.BalanceDocument, err error) {
	//nolint:errcheck
	d.run("GetBalance", func() error {
		result, err = d.db.GetBalance(ctx, userID)
		return err
	})
	return
}

func (d *DbWithMetrics) AdjustBalance(ctx context.Context, userID string, delta model.BalanceDelta, now time.Time) (result *model.BalanceDocument, err error) {
	//nolint:errcheck
	d.run("AdjustBalance", func() error {
		result, err = d.db.AdjustBalance(ctx, userID, delta, now)
		return err
	})
	return
}

func (d *DbWithMetrics) ListBalances(ctx context.Context, afterUserID string, limit int64) (result []model.BalanceDocument, err error) {
	//nolint:errcheck
	d.run("ListBalances", func() error {
		result, err = d.db.ListBalances(ctx, afterUserID, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) FindPositiveBalances(ctx context.Context, afterUserID string, limit int64) (result []model.BalanceDocument, err error) {
	//nolint:errcheck
	d.run("FindPositiveBalances", func() error {
		result, err = d.db.FindPositiveBalances(ctx, afterUserID, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntryDocument) error {
	return d.run("InsertLedgerEntry", func() error {
		return d.db.InsertLedgerEntry(ctx, entry)
	})
}

func (d *DbWithMetrics) GetLedgerEntryByCorrelationID(ctx context.Context, correlationID string) (result *model.LedgerEntryDocument, err error) {
	//nolint:errcheck
	d.run("GetLedgerEntryByCorrelationID", func() error {
		result, err = d.db.GetLedgerEntryByCorrelationID(ctx, correlationID)
		return err
	})
	return
}

func (d *DbWithMetrics) GetLedgerEntries(ctx context.Context, userID string, limit int64) (result []model.LedgerEntryDocument, err error) {
	//nolint:errcheck
	d.run("GetLedgerEntries", func() error {
		result, err = d.db.GetLedgerEntries(ctx, userID, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) SumLedgerDeltas(ctx context.Context, userID string) (result model.BalanceDelta, err error) {
	//nolint:errcheck
	d.run("SumLedgerDeltas", func() error {
		result, err = d.db.SumLedgerDeltas(ctx, userID)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveNewStake(ctx context.Context, stake *model.StakeDocument) error {
	return d.run("SaveNewStake", func() error {
		return d.db.SaveNewStake(ctx, stake)
	})
}

func (d *DbWithMetrics) GetStakeByID(ctx context.Context, stakeID string) (result *model.StakeDocument, err error) {
	//nolint:errcheck
	d.run("GetStakeByID", func() error {
		result, err = d.db.GetStakeByID(ctx, stakeID)
		return err
	})
	return
}

func (d *DbWithMetrics) GetStakesByUser(ctx context.Context, userID string) (result []model.StakeDocument, err error) {
	//nolint:errcheck
	d.run("GetStakesByUser", func() error {
		result, err = d.db.GetStakesByUser(ctx, userID)
		return err
	})
	return
}

func (d *DbWithMetrics) UpdateStakeStatus(ctx context.Context, stakeID string, qualifiedPreviousStatuses []types.StakeStatus, newStatus types.StakeStatus, opts ...UpdateOption) error {
	return d.run("UpdateStakeStatus", func() error {
		return d.db.UpdateStakeStatus(ctx, stakeID, qualifiedPreviousStatuses, newStatus, opts...)
	})
}

func (d *DbWithMetrics) SaveBurnLog(ctx context.Context, burnLog *model.BurnLogDocument) error {
	return d.run("SaveBurnLog", func() error {
		return d.db.SaveBurnLog(ctx, burnLog)
	})
}

func (d *DbWithMetrics) GetBurnLogs(ctx context.Context, userID string, limit int64) (result []model.BurnLogDocument, err error) {
	//nolint:errcheck
	d.run("GetBurnLogs", func() error {
		result, err = d.db.GetBurnLogs(ctx, userID, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveNewOnchainBatch(ctx context.Context, batch *model.OnchainBatchDocument) error {
	return d.run("SaveNewOnchainBatch", func() error {
		return d.db.SaveNewOnchainBatch(ctx, batch)
	})
}

func (d *DbWithMetrics) GetOnchainBatchByID(ctx context.Context, batchID string) (result *model.OnchainBatchDocument, err error) {
	//nolint:errcheck
	d.run("GetOnchainBatchByID", func() error {
		result, err = d.db.GetOnchainBatchByID(ctx, batchID)
		return err
	})
	return
}

func (d *DbWithMetrics) GetOnchainBatchesByUser(ctx context.Context, userID string) (result []model.OnchainBatchDocument, err error) {
	//nolint:errcheck
	d.run("GetOnchainBatchesByUser", func() error {
		result, err = d.db.GetOnchainBatchesByUser(ctx, userID)
		return err
	})
	return
}

func (d *DbWithMetrics) UpdateOnchainBatchStatus(ctx context.Context, batchID string, qualifiedPreviousStatuses []types.BatchStatus, newStatus types.BatchStatus, opts ...UpdateOption) error {
	return d.run("UpdateOnchainBatchStatus", func() error {
		return d.db.UpdateOnchainBatchStatus(ctx, batchID, qualifiedPreviousStatuses, newStatus, opts...)
	})
}

func (d *DbWithMetrics) FindStaleOnchainBatches(ctx context.Context, statuses []types.BatchStatus, olderThan time.Time, limit int64) (result []model.OnchainBatchDocument, err error) {
	//nolint:errcheck
	d.run("FindStaleOnchainBatches", func() error {
		result, err = d.db.FindStaleOnchainBatches(ctx, statuses, olderThan, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveNewMintBatch(ctx context.Context, batch *model.MintBatchDocument) error {
	return d.run("SaveNewMintBatch", func() error {
		return d.db.SaveNewMintBatch(ctx, batch)
	})
}

func (d *DbWithMetrics) GetMintBatchByID(ctx context.Context, batchID string) (result *model.MintBatchDocument, err error) {
	//nolint:errcheck
	d.run("GetMintBatchByID", func() error {
		result, err = d.db.GetMintBatchByID(ctx, batchID)
		return err
	})
	return
}

func (d *DbWithMetrics) UpdateMintBatchStatus(ctx context.Context, batchID string, qualifiedPreviousStatuses []types.BatchStatus, newStatus types.BatchStatus, opts ...UpdateOption) error {
	return d.run("UpdateMintBatchStatus", func() error {
		return d.db.UpdateMintBatchStatus(ctx, batchID, qualifiedPreviousStatuses, newStatus, opts...)
	})
}

func (d *DbWithMetrics) MarkMintBatchItemApplied(ctx context.Context, batchID, userID string, shortfall decimal.Decimal) error {
	return d.run("MarkMintBatchItemApplied", func() error {
		return d.db.MarkMintBatchItemApplied(ctx, batchID, userID, shortfall)
	})
}

func (d *DbWithMetrics) FindMintBatchesWithUnappliedItems(ctx context.Context) (result []model.MintBatchDocument, err error) {
	//nolint:errcheck
	d.run("FindMintBatchesWithUnappliedItems", func() error {
		result, err = d.db.FindMintBatchesWithUnappliedItems(ctx)
		return err
	})
	return
}

func (d *DbWithMetrics) FindStaleMintBatches(ctx context.Context, statuses []types.BatchStatus, olderThan time.Time, limit int64) (result []model.MintBatchDocument, err error) {
	//nolint:errcheck
	d.run("FindStaleMintBatches", func() error {
		result, err = d.db.FindStaleMintBatches(ctx, statuses, olderThan, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) RecordRateLimitHit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) error {
	return d.run("RecordRateLimitHit", func() error {
		return d.db.RecordRateLimitHit(ctx, key, now, window, limit)
	})
}

func (d *DbWithMetrics) AcquireJobLock(ctx context.Context, name, owner string, now time.Time, ttl time.Duration) error {
	return d.run("AcquireJobLock", func() error {
		return d.db.AcquireJobLock(ctx, name, owner, now, ttl)
	})
}

func (d *DbWithMetrics) ReleaseJobLock(ctx context.Context, name, owner string) error {
	return d.run("ReleaseJobLock", func() error {
		return d.db.ReleaseJobLock(ctx, name, owner)
	})
}

func (d *DbWithMetrics) CalculateLedgerStats(ctx context.Context) (result *model.LedgerStatsDocument, err error) {
	//nolint:errcheck
	d.run("CalculateLedgerStats", func() error {
		result, err = d.db.CalculateLedgerStats(ctx)
		return err
	})
	return
}

func (d *DbWithMetrics) UpsertLedgerStats(ctx context.Context, stats *model.LedgerStatsDocument) error {
	return d.run("UpsertLedgerStats", func() error {
		return d.db.UpsertLedgerStats(ctx, stats)
	})
}

func (d *DbWithMetrics) GetLedgerStats(ctx context.Context) (result *model.LedgerStatsDocument, err error) {
	//nolint:errcheck
	d.run("GetLedgerStats", func() error {
		result, err = d.db.GetLedgerStats(ctx)
		return err
	})
	return
}

// run is private method that executes passed lambda function and send metrics data with spent time, method name
// and an error if any. It returns the error from the lambda function for convenience
func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
