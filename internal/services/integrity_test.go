package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uct-network/uct-ledger/internal/db/model"
)

func TestVerifyLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	env.fund(t, "alice", "10")
	env.fund(t, "bob", "3")
	_, err := env.svc.Burn(ctx, "alice", "priority_task", BurnContext{})
	require.NoError(t, err)

	report, err := env.svc.VerifyLedger(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	requireDecimal(t, "4", report.Ledger.Available)
	requireDecimal(t, "6", report.Ledger.TotalBurned)

	report, err = env.svc.VerifyLedger(ctx, "nobody")
	require.NoError(t, err)
	assert.True(t, report.Consistent)

	mismatches, checked, err := env.svc.VerifyAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, checked)
	assert.Empty(t, mismatches)

	// a balance change without a ledger entry is detected, not corrected
	_, err = env.store.AdjustBalance(ctx, "bob", model.BalanceDelta{Available: dec("1")}, env.clock.Now())
	require.NoError(t, err)

	report, err = env.svc.VerifyLedger(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	requireDecimal(t, "4", report.Aggregate.Available)
	requireDecimal(t, "3", report.Ledger.Available)

	mismatches, checked, err = env.svc.VerifyAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, checked)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "bob", mismatches[0].UserID)
	requireDecimal(t, "4", env.balance(t, "bob").Available)
}
