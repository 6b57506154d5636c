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

func TestStakes(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("one open stake per tier", func(t *testing.T) {
		userID := randomUserID(t)
		stake := model.NewStakeDocument(userID, "gold", "auto_reply", decimal.NewFromInt(40), now)
		require.NoError(t, testDB.SaveNewStake(ctx, stake))

		other := model.NewStakeDocument(userID, "gold", "auto_reply", decimal.NewFromInt(40), now)
		err := testDB.SaveNewStake(ctx, other)
		assert.True(t, db.IsDuplicateKeyError(err))

		// a different tier is fine
		silver := model.NewStakeDocument(userID, "silver", "drafts", decimal.NewFromInt(10), now)
		require.NoError(t, testDB.SaveNewStake(ctx, silver))

		stakes, err := testDB.GetStakesByUser(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, stakes, 2)
	})
	t.Run("status transitions", func(t *testing.T) {
		userID := randomUserID(t)
		stake := model.NewStakeDocument(userID, "gold", "auto_reply", decimal.NewFromInt(40), now)
		require.NoError(t, testDB.SaveNewStake(ctx, stake))

		unlocksAt := now.Add(7 * 24 * time.Hour)
		err := testDB.UpdateStakeStatus(ctx, stake.ID,
			types.QualifiedStatesForUnstakeRequest(), types.StakeUnstaking,
			db.WithTimestamp(now), db.WithUnlocksAt(unlocksAt),
		)
		require.NoError(t, err)

		stored, err := testDB.GetStakeByID(ctx, stake.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StakeUnstaking, stored.Status)
		assert.True(t, stored.Open)
		require.NotNil(t, stored.UnlocksAt)
		assert.True(t, unlocksAt.Equal(*stored.UnlocksAt))

		// unstaking stake still blocks the tier
		err = testDB.SaveNewStake(ctx, model.NewStakeDocument(userID, "gold", "auto_reply", decimal.NewFromInt(40), now))
		assert.True(t, db.IsDuplicateKeyError(err))

		// a second request is not qualified
		err = testDB.UpdateStakeStatus(ctx, stake.ID,
			types.QualifiedStatesForUnstakeRequest(), types.StakeUnstaking)
		assert.True(t, db.IsNotFoundError(err))

		err = testDB.UpdateStakeStatus(ctx, stake.ID,
			types.QualifiedStatesForUnstakeCompletion(), types.StakeCompleted, db.WithTimestamp(unlocksAt))
		require.NoError(t, err)

		stored, err = testDB.GetStakeByID(ctx, stake.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StakeCompleted, stored.Status)
		assert.False(t, stored.Open)
		require.NotNil(t, stored.CompletedAt)

		// completed stake frees the tier
		require.NoError(t, testDB.SaveNewStake(ctx, model.NewStakeDocument(userID, "gold", "auto_reply", decimal.NewFromInt(40), now)))
	})
	t.Run("unknown stake", func(t *testing.T) {
		_, err := testDB.GetStakeByID(ctx, "missing")
		assert.True(t, db.IsNotFoundError(err))
	})
}

func TestBurnLogs(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})
	userID := randomUserID(t)
	now := time.Now()

	for i := range 3 {
		require.NoError(t, testDB.SaveBurnLog(ctx, &model.BurnLogDocument{
			ID:        randomUserID(t),
			UserID:    userID,
			Amount:    decimal.NewFromInt(int64(i + 1)),
			BurnType:  "priority_summary",
			BaseCost:  decimal.Zero,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	logs, err := testDB.GetBurnLogs(ctx, userID, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, logs[0].Amount.Equal(decimal.NewFromInt(3)))
	assert.True(t, logs[1].Amount.Equal(decimal.NewFromInt(2)))
}
