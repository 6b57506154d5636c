package memdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/memdb"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/types"
	"github.com/uct-network/uct-ledger/testutil"
)

func credit(amount int64) model.BalanceDelta {
	return model.BalanceDelta{
		Available:      decimal.NewFromInt(amount),
		LifetimeEarned: decimal.NewFromInt(amount),
	}
}

func TestAdjustBalance(t *testing.T) {
	ctx := t.Context()
	store := memdb.New()
	now := time.Now()

	_, err := store.AdjustBalance(ctx, "alice", model.BalanceDelta{Available: decimal.NewFromInt(-1)}, now)
	require.True(t, db.IsInsufficientBalanceError(err))

	balance, err := store.AdjustBalance(ctx, "alice", credit(10), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), balance.Version)

	var wg sync.WaitGroup
	results := make(chan error, 5)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AdjustBalance(ctx, "alice", model.BalanceDelta{
				Available:   decimal.NewFromInt(-3),
				TotalBurned: decimal.NewFromInt(3),
			}, now)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.True(t, db.IsInsufficientBalanceError(err))
		}
	}
	assert.Equal(t, 3, ok)

	balance, err = store.GetBalance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Available.Equal(decimal.NewFromInt(1)))
	assert.True(t, balance.Unaccounted().IsZero())
}

func TestRunInTransaction(t *testing.T) {
	ctx := t.Context()
	store := memdb.New()
	now := time.Now()

	_, err := store.AdjustBalance(ctx, "bob", credit(10), now)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := store.AdjustBalance(ctx, "bob", model.BalanceDelta{
			Available: decimal.NewFromInt(-10),
			OnChain:   decimal.NewFromInt(10),
		}, now); err != nil {
			return err
		}
		entry := model.NewLedgerEntry("bob", types.EventSettlementRequested, decimal.NewFromInt(-10), model.BalanceDelta{}, now)
		if err := store.InsertLedgerEntry(ctx, entry); err != nil {
			return err
		}
		// nested calls join the running transaction
		return store.RunInTransaction(ctx, func(context.Context) error {
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	balance, err := store.GetBalance(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, balance.Available.Equal(decimal.NewFromInt(10)))

	entries, err := store.GetLedgerEntries(ctx, "bob", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLedgerSumMatchesAggregate(t *testing.T) {
	ctx := t.Context()
	store := memdb.New()
	now := time.Now()
	userID := testutil.RandomUserID()

	for range 20 {
		amount := testutil.RandomAmount(50)
		delta := model.BalanceDelta{Available: amount, LifetimeEarned: amount}
		err := store.RunInTransaction(ctx, func(ctx context.Context) error {
			if _, err := store.AdjustBalance(ctx, userID, delta, now); err != nil {
				return err
			}
			return store.InsertLedgerEntry(ctx, model.NewLedgerEntry(userID, types.EventEarn, amount, delta, now))
		})
		require.NoError(t, err)
	}

	balance, err := store.GetBalance(ctx, userID)
	require.NoError(t, err)
	sum, err := store.SumLedgerDeltas(ctx, userID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(balance.AsDelta()), "ledger %+v aggregate %+v", sum, balance.AsDelta())
	assert.True(t, balance.Available.Equal(balance.LifetimeEarned))
}

func TestStakesAndBatches(t *testing.T) {
	ctx := t.Context()
	store := memdb.New()
	now := time.Now()

	stake := model.NewStakeDocument("carol", "gold", "auto_reply", decimal.NewFromInt(40), now)
	require.NoError(t, store.SaveNewStake(ctx, stake))
	err := store.SaveNewStake(ctx, model.NewStakeDocument("carol", "gold", "auto_reply", decimal.NewFromInt(40), now))
	assert.True(t, db.IsDuplicateKeyError(err))

	require.NoError(t, store.UpdateStakeStatus(ctx, stake.ID,
		types.QualifiedStatesForUnstakeRequest(), types.StakeUnstaking, db.WithUnlocksAt(now.Add(time.Hour))))
	err = store.UpdateStakeStatus(ctx, stake.ID, types.QualifiedStatesForUnstakeRequest(), types.StakeUnstaking)
	assert.True(t, db.IsNotFoundError(err))

	batch := model.NewOnchainBatchDocument("carol", decimal.NewFromInt(5), "0x52908400098527886E0F7030069857D2E4169EE7", "polygon", now)
	require.NoError(t, store.SaveNewOnchainBatch(ctx, batch))
	require.NoError(t, store.UpdateOnchainBatchStatus(ctx, batch.ID,
		types.QualifiedStatesForFail(), types.BatchFailed, db.WithRefunded(), db.WithTimestamp(now)))
	err = store.UpdateOnchainBatchStatus(ctx, batch.ID, types.QualifiedStatesForFail(), types.BatchFailed)
	assert.True(t, db.IsNotFoundError(err))

	stored, err := store.GetOnchainBatchByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.True(t, stored.Refunded)
	assert.NotNil(t, stored.FailedAt)
}

func TestRateLimitAndLocks(t *testing.T) {
	ctx := t.Context()
	store := memdb.New()
	now := time.Now()

	for i := range 3 {
		require.NoError(t, store.RecordRateLimitHit(ctx, "k", now.Add(time.Duration(i)*time.Second), time.Hour, 3))
	}
	err := store.RecordRateLimitHit(ctx, "k", now.Add(time.Minute), time.Hour, 3)
	assert.True(t, db.IsRateLimitExceededError(err))
	require.NoError(t, store.RecordRateLimitHit(ctx, "k", now.Add(time.Hour+time.Second), time.Hour, 3))

	require.NoError(t, store.AcquireJobLock(ctx, "job", "a", now, time.Minute))
	assert.True(t, db.IsLockHeldError(store.AcquireJobLock(ctx, "job", "b", now, time.Minute)))
	require.NoError(t, store.ReleaseJobLock(ctx, "job", "a"))
	require.NoError(t, store.AcquireJobLock(ctx, "job", "b", now, time.Minute))
}
