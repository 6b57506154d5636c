package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uct-network/uct-ledger/internal/types"
)

func TestEstimateBurn(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		burnType string
		bc       BurnContext
		want     string
		code     types.ErrorCode
	}{
		{name: "flat", burnType: "priority_task", want: "6"},
		{name: "case insensitive", burnType: "PRIORITY_TASK", want: "6"},
		{name: "units", burnType: "ai_assist", bc: BurnContext{Units: 4}, want: "2"},
		{
			name:     "rounded up to precision",
			burnType: "ai_assist",
			bc:       BurnContext{Units: 3, BaseCost: dec("2.333333333")},
			want:     "5.25",
		},
		{name: "unknown type", burnType: "teleport", code: types.UnknownBurnType},
		{name: "negative units", burnType: "ai_assist", bc: BurnContext{Units: -1}, code: types.BadRequest},
		{name: "negative base cost", burnType: "ai_assist", bc: BurnContext{BaseCost: dec("-1")}, code: types.BadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost, err := env.svc.EstimateBurn(tt.burnType, tt.bc)
			if tt.code != "" {
				requireErrorCode(t, err, tt.code)
				return
			}
			require.NoError(t, err)
			requireDecimal(t, tt.want, cost)
		})
	}
}

func TestBurn(t *testing.T) {
	t.Run("moves available to total burned", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()
		env.fund(t, "alice", "10")

		burnLog, err := env.svc.Burn(ctx, "alice", "ai_assist", BurnContext{Units: 4, ActionContext: "summarize"})
		require.NoError(t, err)
		requireDecimal(t, "2", burnLog.Amount)

		balance := env.balance(t, "alice")
		requireDecimal(t, "8", balance.Available)
		requireDecimal(t, "2", balance.TotalBurned)

		history, err := env.svc.GetBurnHistory(ctx, "alice", 0)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "summarize", history[0].ActionContext)

		entries, err := env.svc.GetLedger(ctx, "alice", 0)
		require.NoError(t, err)
		assert.Equal(t, types.EventBurn, entries[0].EventType)
		assert.Equal(t, burnLog.ID, entries[0].ID)
		requireDecimal(t, "-2", entries[0].Amount)
		env.requireConsistent(t, "alice")
	})

	t.Run("insufficient balance leaves no trace", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()
		env.fund(t, "alice", "5")

		_, err := env.svc.Burn(ctx, "alice", "priority_task", BurnContext{})
		requireErrorCode(t, err, types.InsufficientBalance)

		history, err := env.svc.GetBurnHistory(ctx, "alice", 0)
		require.NoError(t, err)
		assert.Empty(t, history)
		requireDecimal(t, "5", env.balance(t, "alice").Available)
		env.requireConsistent(t, "alice")
	})

	t.Run("concurrent burns never overdraw", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()
		env.fund(t, "alice", "10")

		const attempts = 2
		var wg sync.WaitGroup
		errs := make([]error, attempts)
		for i := range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = env.svc.Burn(ctx, "alice", "priority_task", BurnContext{})
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			requireErrorCode(t, err, types.InsufficientBalance)
		}
		assert.Equal(t, 1, succeeded)

		balance := env.balance(t, "alice")
		requireDecimal(t, "4", balance.Available)
		requireDecimal(t, "6", balance.TotalBurned)
		env.requireConsistent(t, "alice")
	})
}
