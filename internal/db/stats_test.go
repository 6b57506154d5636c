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

func TestLedgerStats(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})
	now := time.Now()

	t.Run("empty database", func(t *testing.T) {
		stats, err := testDB.CalculateLedgerStats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.Users)
		assert.True(t, stats.Totals.IsZero())
		assert.Empty(t, stats.Events)

		_, err = testDB.GetLedgerStats(ctx)
		assert.True(t, db.IsNotFoundError(err))
	})
	t.Run("rollup", func(t *testing.T) {
		earn := model.BalanceDelta{Available: decimal.NewFromInt(10), LifetimeEarned: decimal.NewFromInt(10)}
		burn := model.BalanceDelta{Available: decimal.NewFromInt(-4), TotalBurned: decimal.NewFromInt(4)}

		for _, userID := range []string{"alice", "bob"} {
			_, err := testDB.AdjustBalance(ctx, userID, earn, now)
			require.NoError(t, err)
			require.NoError(t, testDB.InsertLedgerEntry(ctx, model.NewLedgerEntry(userID, types.EventEarn, earn.Available, earn, now)))
		}
		_, err := testDB.AdjustBalance(ctx, "alice", burn, now)
		require.NoError(t, err)
		require.NoError(t, testDB.InsertLedgerEntry(ctx, model.NewLedgerEntry("alice", types.EventBurn, burn.Available, burn, now)))

		require.NoError(t, testDB.SaveNewOnchainBatch(ctx,
			model.NewOnchainBatchDocument("bob", decimal.NewFromInt(1), testWallet, "polygon", now)))

		stats, err := testDB.CalculateLedgerStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Users)
		assert.True(t, stats.Totals.Available.Equal(decimal.NewFromInt(16)))
		assert.True(t, stats.Totals.TotalBurned.Equal(decimal.NewFromInt(4)))
		assert.True(t, stats.Totals.LifetimeEarned.Equal(decimal.NewFromInt(20)))
		assert.Equal(t, int64(2), stats.Events[types.EventEarn.String()].Count)
		assert.True(t, stats.Events[types.EventBurn.String()].Amount.Equal(decimal.NewFromInt(-4)))
		assert.Equal(t, int64(1), stats.SettlementsByStatus[types.BatchPending.String()])

		require.NoError(t, testDB.UpsertLedgerStats(ctx, stats))
		stored, err := testDB.GetLedgerStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.Users)
		assert.True(t, stored.Totals.Available.Equal(decimal.NewFromInt(16)))
	})
}
