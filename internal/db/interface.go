package db

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/types"
)

type DbInterface interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error
	// RunInTransaction executes fn atomically. Every method called with the ctx
	// passed to fn takes part in the transaction.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// GetBalance retrieves the balance aggregate of a user.
	GetBalance(ctx context.Context, userID string) (*model.BalanceDocument, error)
	// AdjustBalance atomically adds delta to the balance aggregate. Every
	// decremented bucket must cover its decrement, otherwise nothing is
	// written and InsufficientBalanceError is returned.
	AdjustBalance(
		ctx context.Context, userID string, delta model.BalanceDelta, now time.Time,
	) (*model.BalanceDocument, error)
	// ListBalances pages through all balances ordered by user id.
	ListBalances(ctx context.Context, afterUserID string, limit int64) ([]model.BalanceDocument, error)
	// FindPositiveBalances pages through balances with available > 0 ordered by user id.
	FindPositiveBalances(ctx context.Context, afterUserID string, limit int64) ([]model.BalanceDocument, error)

	// InsertLedgerEntry appends an entry. An entry whose correlation id was
	// already recorded returns DuplicateKeyError.
	InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntryDocument) error
	GetLedgerEntryByCorrelationID(ctx context.Context, correlationID string) (*model.LedgerEntryDocument, error)
	// GetLedgerEntries returns the latest entries of a user, newest first.
	GetLedgerEntries(ctx context.Context, userID string, limit int64) ([]model.LedgerEntryDocument, error)
	// SumLedgerDeltas folds every entry of a user into one delta.
	SumLedgerDeltas(ctx context.Context, userID string) (model.BalanceDelta, error)

	// SaveNewStake inserts a stake. Returns DuplicateKeyError when the user
	// already holds an open stake of the same tier.
	SaveNewStake(ctx context.Context, stake *model.StakeDocument) error
	GetStakeByID(ctx context.Context, stakeID string) (*model.StakeDocument, error)
	GetStakesByUser(ctx context.Context, userID string) ([]model.StakeDocument, error)
	// UpdateStakeStatus moves a stake to newStatus only if its current status
	// is one of qualifiedPreviousStatuses, otherwise NotFoundError is returned.
	UpdateStakeStatus(
		ctx context.Context,
		stakeID string,
		qualifiedPreviousStatuses []types.StakeStatus,
		newStatus types.StakeStatus,
		opts ...UpdateOption,
	) error

	SaveBurnLog(ctx context.Context, burnLog *model.BurnLogDocument) error
	GetBurnLogs(ctx context.Context, userID string, limit int64) ([]model.BurnLogDocument, error)

	SaveNewOnchainBatch(ctx context.Context, batch *model.OnchainBatchDocument) error
	GetOnchainBatchByID(ctx context.Context, batchID string) (*model.OnchainBatchDocument, error)
	GetOnchainBatchesByUser(ctx context.Context, userID string) ([]model.OnchainBatchDocument, error)
	// UpdateOnchainBatchStatus is the compare-and-swap guarding the
	// confirm/refund paths. NotFoundError means another path already moved
	// the batch out of the qualified statuses.
	UpdateOnchainBatchStatus(
		ctx context.Context,
		batchID string,
		qualifiedPreviousStatuses []types.BatchStatus,
		newStatus types.BatchStatus,
		opts ...UpdateOption,
	) error
	// FindStaleOnchainBatches returns batches in one of statuses created before olderThan, oldest first.
	FindStaleOnchainBatches(
		ctx context.Context, statuses []types.BatchStatus, olderThan time.Time, limit int64,
	) ([]model.OnchainBatchDocument, error)

	SaveNewMintBatch(ctx context.Context, batch *model.MintBatchDocument) error
	GetMintBatchByID(ctx context.Context, batchID string) (*model.MintBatchDocument, error)
	UpdateMintBatchStatus(
		ctx context.Context,
		batchID string,
		qualifiedPreviousStatuses []types.BatchStatus,
		newStatus types.BatchStatus,
		opts ...UpdateOption,
	) error
	// MarkMintBatchItemApplied flags the item of userID as applied. It returns
	// NotFoundError if the item is unknown or already applied.
	MarkMintBatchItemApplied(ctx context.Context, batchID, userID string, shortfall decimal.Decimal) error
	FindMintBatchesWithUnappliedItems(ctx context.Context) ([]model.MintBatchDocument, error)
	FindStaleMintBatches(
		ctx context.Context, statuses []types.BatchStatus, olderThan time.Time, limit int64,
	) ([]model.MintBatchDocument, error)

	// RecordRateLimitHit adds a hit to the sliding window of key if the window
	// holds fewer than limit hits newer than now-window, otherwise returns
	// RateLimitExceededError without recording anything.
	RecordRateLimitHit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) error

	// AcquireJobLock takes or renews the named lease until now+ttl.
	// Returns LockHeldError if another owner holds an unexpired lease.
	AcquireJobLock(ctx context.Context, name, owner string, now time.Time, ttl time.Duration) error
	ReleaseJobLock(ctx context.Context, name, owner string) error

	// CalculateLedgerStats computes the read-only rollup over balances, ledger and batches.
	CalculateLedgerStats(ctx context.Context) (*model.LedgerStatsDocument, error)
	UpsertLedgerStats(ctx context.Context, stats *model.LedgerStatsDocument) error
	GetLedgerStats(ctx context.Context) (*model.LedgerStatsDocument, error)
}

var (
	_ DbInterface = (*Database)(nil)
	_ DbInterface = (*DbWithMetrics)(nil)
)
