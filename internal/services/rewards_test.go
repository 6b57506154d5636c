package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uct-network/uct-ledger/internal/types"
)

func TestComputeAndApplyReward(t *testing.T) {
	t.Run("per unit rates and cap", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()

		result, err := env.svc.ComputeAndApplyReward(ctx, ActivityEvent{
			UserID:    "alice",
			EventType: "session_completed",
			Payload:   map[string]any{"minutes": 30.0, "summaries": 2},
		})
		require.NoError(t, err)
		// 5 + 30*0.5 + 2*2
		requireDecimal(t, "24", result.TotalReward)
		assert.Len(t, result.Breakdown, 3)
		assert.Equal(t, types.DestinationAvailable, result.Destination)

		result, err = env.svc.ComputeAndApplyReward(ctx, ActivityEvent{
			UserID:    "alice",
			EventType: "session_completed",
			Payload:   map[string]any{"minutes": "500"},
		})
		require.NoError(t, err)
		requireDecimal(t, "50", result.TotalReward)
		assert.Contains(t, result.Breakdown, "capped at 50")

		balance := env.balance(t, "alice")
		requireDecimal(t, "74", balance.Available)
		requireDecimal(t, "74", balance.LifetimeEarned)
		requireDecimal(t, "0", balance.Pending)
		env.requireConsistent(t, "alice")
	})

	t.Run("earn then claim", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()

		result, err := env.svc.ComputeAndApplyReward(ctx, ActivityEvent{
			UserID:    "alice",
			EventType: "summary_verified",
		})
		require.NoError(t, err)
		requireDecimal(t, "25", result.TotalReward)
		assert.Equal(t, types.DestinationPending, result.Destination)

		balance := env.balance(t, "alice")
		requireDecimal(t, "25", balance.Pending)
		requireDecimal(t, "0", balance.Available)

		env.wallets.On("GetPrimaryWallet", mock.Anything, "alice").Return(aliceWallet, nil).Once()
		claim, err := env.svc.ClaimPending(ctx, "alice")
		require.NoError(t, err)
		requireDecimal(t, "25", claim.Claimed)

		balance = env.balance(t, "alice")
		requireDecimal(t, "25", balance.Available)
		requireDecimal(t, "0", balance.Pending)

		entries, err := env.svc.GetLedger(ctx, "alice", 0)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, types.EventClaimPending, entries[0].EventType)
		assert.Equal(t, aliceWallet, entries[0].Payload["wallet_address"])

		_, err = env.svc.ClaimPending(ctx, "alice")
		requireErrorCode(t, err, types.NothingToClaim)
		env.requireConsistent(t, "alice")
	})

	t.Run("accrual during a claim stays pending", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()
		verified := ActivityEvent{UserID: "alice", EventType: "summary_verified"}

		_, err := env.svc.ComputeAndApplyReward(ctx, verified)
		require.NoError(t, err)

		// a second reward lands after the claim read pending
		env.wallets.On("GetPrimaryWallet", mock.Anything, "alice").
			Run(func(mock.Arguments) {
				_, err := env.svc.ComputeAndApplyReward(ctx, verified)
				require.NoError(t, err)
			}).
			Return(aliceWallet, nil).Once()

		claim, err := env.svc.ClaimPending(ctx, "alice")
		require.NoError(t, err)
		requireDecimal(t, "25", claim.Claimed)

		balance := env.balance(t, "alice")
		requireDecimal(t, "25", balance.Available)
		requireDecimal(t, "25", balance.Pending)
		requireDecimal(t, "50", balance.LifetimeEarned)
		env.requireConsistent(t, "alice")
	})

	t.Run("replayed ledger id credits once", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()
		event := ActivityEvent{
			UserID:    "alice",
			EventType: "session_completed",
			Payload:   map[string]any{"minutes": 10},
			LedgerID:  "session-42",
		}

		first, err := env.svc.ComputeAndApplyReward(ctx, event)
		require.NoError(t, err)
		assert.False(t, first.Replayed)

		second, err := env.svc.ComputeAndApplyReward(ctx, event)
		require.NoError(t, err)
		assert.True(t, second.Replayed)
		assert.True(t, first.TotalReward.Equal(second.TotalReward))
		assert.Equal(t, first.Breakdown, second.Breakdown)

		requireDecimal(t, "10", env.balance(t, "alice").LifetimeEarned)
	})

	t.Run("concurrent replays credit once", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()
		event := ActivityEvent{
			UserID:    "alice",
			EventType: "summary_verified",
			LedgerID:  "summary-7",
		}

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.svc.ComputeAndApplyReward(ctx, event)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		balance := env.balance(t, "alice")
		requireDecimal(t, "25", balance.LifetimeEarned)
		requireDecimal(t, "25", balance.Pending)
		env.requireConsistent(t, "alice")
	})

	t.Run("zero reward writes nothing", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.svc.ComputeAndApplyReward(t.Context(), ActivityEvent{
			UserID:    "alice",
			EventType: "profile_viewed",
		})
		require.NoError(t, err)
		assert.True(t, result.TotalReward.IsZero())

		entries, err := env.svc.GetLedger(t.Context(), "alice", 0)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("rejected events", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()

		_, err := env.svc.ComputeAndApplyReward(ctx, ActivityEvent{UserID: "alice", EventType: "unknown"})
		requireErrorCode(t, err, types.UnknownEventType)

		_, err = env.svc.ComputeAndApplyReward(ctx, ActivityEvent{EventType: "grant"})
		requireErrorCode(t, err, types.BadRequest)

		_, err = env.svc.ComputeAndApplyReward(ctx, ActivityEvent{
			UserID:    "alice",
			EventType: "session_completed",
			Payload:   map[string]any{"minutes": -3},
		})
		requireErrorCode(t, err, types.BadRequest)

		_, err = env.svc.ComputeAndApplyReward(ctx, ActivityEvent{
			UserID:    "alice",
			EventType: "session_completed",
			Payload:   map[string]any{"minutes": []string{"x"}},
		})
		requireErrorCode(t, err, types.BadRequest)
	})
}
