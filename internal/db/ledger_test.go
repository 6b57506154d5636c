//go:build integration

package db_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/types"
)

func TestLedgerEntries(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})
	now := time.Now()

	t.Run("correlation id is unique", func(t *testing.T) {
		userID := randomUserID(t)
		delta := model.BalanceDelta{Available: decimal.NewFromInt(2), LifetimeEarned: decimal.NewFromInt(2)}

		first := model.NewLedgerEntry(userID, types.EventEarn, decimal.NewFromInt(2), delta, now)
		first.CorrelationID = "activity-1"
		require.NoError(t, testDB.InsertLedgerEntry(ctx, first))

		replay := model.NewLedgerEntry(userID, types.EventEarn, decimal.NewFromInt(2), delta, now)
		replay.CorrelationID = "activity-1"
		err := testDB.InsertLedgerEntry(ctx, replay)
		assert.True(t, db.IsDuplicateKeyError(err))

		stored, err := testDB.GetLedgerEntryByCorrelationID(ctx, "activity-1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, stored.ID)
	})
	t.Run("entries without correlation id do not collide", func(t *testing.T) {
		userID := randomUserID(t)
		for range 2 {
			entry := model.NewLedgerEntry(userID, types.EventBurn, decimal.NewFromInt(-1), model.BalanceDelta{
				Available:   decimal.NewFromInt(-1),
				TotalBurned: decimal.NewFromInt(1),
			}, now)
			require.NoError(t, testDB.InsertLedgerEntry(ctx, entry))
		}

		entries, err := testDB.GetLedgerEntries(ctx, userID, 10)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})
	t.Run("unknown correlation id", func(t *testing.T) {
		_, err := testDB.GetLedgerEntryByCorrelationID(ctx, "missing")
		assert.True(t, db.IsNotFoundError(err))
	})
	t.Run("sum of deltas", func(t *testing.T) {
		userID := randomUserID(t)
		earn := model.BalanceDelta{Available: decimal.RequireFromString("7.25"), LifetimeEarned: decimal.RequireFromString("7.25")}
		stake := model.BalanceDelta{Available: decimal.NewFromInt(-5), Staked: decimal.NewFromInt(5)}

		require.NoError(t, testDB.InsertLedgerEntry(ctx, model.NewLedgerEntry(userID, types.EventEarn, earn.Available, earn, now)))
		require.NoError(t, testDB.InsertLedgerEntry(ctx, model.NewLedgerEntry(userID, types.EventStake, decimal.NewFromInt(-5), stake, now.Add(time.Second))))

		sum, err := testDB.SumLedgerDeltas(ctx, userID)
		require.NoError(t, err)
		assert.True(t, sum.Equal(earn.Add(stake)))

		entries, err := testDB.GetLedgerEntries(ctx, userID, 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, types.EventStake, entries[0].EventType)
	})
	t.Run("sum for user without entries", func(t *testing.T) {
		sum, err := testDB.SumLedgerDeltas(ctx, randomUserID(t))
		require.NoError(t, err)
		assert.True(t, sum.IsZero())
	})
}
