package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uct-network/uct-ledger/internal/clients/minterclient"
	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/types"
)

// seedSettlement debits available and stores a batch in the given status,
// like a request interrupted before the mint call resolved
func seedSettlement(t *testing.T, env *testEnv, userID, amount string, status types.BatchStatus) *model.OnchainBatchDocument {
	t.Helper()
	ctx := t.Context()

	now := env.clock.Now()
	batch := model.NewOnchainBatchDocument(userID, dec(amount), aliceWallet, testNetwork, now)
	entry := model.NewLedgerEntry(userID, types.EventSettlementRequested, dec(amount).Neg(), model.BalanceDelta{
		Available: dec(amount).Neg(),
	}, now).WithPayload(model.PayloadBatchID, batch.ID)

	err := env.store.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := env.svc.applyEntry(ctx, entry); err != nil {
			return err
		}
		return env.store.SaveNewOnchainBatch(ctx, batch)
	})
	require.NoError(t, err)

	if status == types.BatchSubmitted {
		require.NoError(t, env.store.UpdateOnchainBatchStatus(
			ctx, batch.ID, types.QualifiedStatesForSubmit(), types.BatchSubmitted, db.WithTimestamp(now),
		))
		batch.Status = types.BatchSubmitted
	}
	return batch
}

func seedMintBatch(t *testing.T, env *testEnv, status types.BatchStatus, items ...model.MintBatchItem) *model.MintBatchDocument {
	t.Helper()
	ctx := t.Context()

	batch := model.NewMintBatchDocument(testNetwork, items, nil, env.clock.Now())
	require.NoError(t, env.store.SaveNewMintBatch(ctx, batch))

	if status == types.BatchPending {
		return batch
	}
	require.NoError(t, env.store.UpdateMintBatchStatus(
		ctx, batch.ID, types.QualifiedStatesForSubmit(), types.BatchSubmitted,
	))
	batch.Status = types.BatchSubmitted
	if status == types.BatchConfirmed {
		require.NoError(t, env.store.UpdateMintBatchStatus(
			ctx, batch.ID, types.QualifiedStatesForConfirm(), types.BatchConfirmed, db.WithTxHash("0xbatch"),
		))
		batch.Status = types.BatchConfirmed
	}
	return batch
}

func TestReconcileStaleSettlements(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	env.fund(t, "alice", "20")

	pending := seedSettlement(t, env, "alice", "4", types.BatchPending)
	submitted := seedSettlement(t, env, "alice", "6", types.BatchSubmitted)
	requireDecimal(t, "10", env.balance(t, "alice").Available)

	// nothing is stale yet
	require.NoError(t, env.svc.ReconcileStaleBatches(ctx))
	requireDecimal(t, "10", env.balance(t, "alice").Available)

	env.advance(16 * time.Minute)
	env.minter.On("Mint", mock.Anything, aliceWallet, decEq("6"), testNetwork, submitted.ID).
		Return("0xresubmitted", nil).Once()

	require.NoError(t, env.svc.ReconcileStaleBatches(ctx))

	refunded, err := env.store.GetOnchainBatchByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, types.BatchFailed, refunded.Status)
	assert.True(t, refunded.Refunded)

	confirmed, err := env.store.GetOnchainBatchByID(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, types.BatchConfirmed, confirmed.Status)
	assert.Equal(t, "0xresubmitted", confirmed.TxHash)

	balance := env.balance(t, "alice")
	requireDecimal(t, "14", balance.Available)
	requireDecimal(t, "6", balance.OnChain)

	// resolved batches are final, a later sweep changes nothing
	require.NoError(t, env.svc.ReconcileStaleBatches(ctx))
	requireDecimal(t, "14", env.balance(t, "alice").Available)
	env.requireConsistent(t, "alice")
}

func TestReconcileStaleMintBatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	env.fund(t, "alice", "10")
	env.fund(t, "bob", "5")

	pending := seedMintBatch(t, env, types.BatchPending,
		model.MintBatchItem{UserID: "alice", WalletAddress: aliceWallet, Amount: dec("10")},
	)
	submitted := seedMintBatch(t, env, types.BatchSubmitted,
		model.MintBatchItem{UserID: "bob", WalletAddress: bobWallet, Amount: dec("5")},
	)

	env.advance(11 * time.Minute)
	env.minter.On("BatchMint", mock.Anything, mintItems(
		minterclient.MintItem{WalletAddress: bobWallet, Amount: dec("5")},
	), testNetwork, submitted.ID).
		Return(&minterclient.BatchMintResult{TxHash: "0xbatch", WalletsProcessed: 1}, nil).
		Once()

	require.NoError(t, env.svc.ReconcileStaleBatches(ctx))

	failed, err := env.store.GetMintBatchByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, types.BatchFailed, failed.Status)
	requireDecimal(t, "10", env.balance(t, "alice").Available)

	confirmed, err := env.store.GetMintBatchByID(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, types.BatchConfirmed, confirmed.Status)
	assert.Empty(t, confirmed.UnappliedItems())
	requireDecimal(t, "5", env.balance(t, "bob").OnChain)
	requireDecimal(t, "0", env.balance(t, "bob").Available)

	env.requireConsistent(t, "alice")
	env.requireConsistent(t, "bob")
}

func TestReconcileSkipsMintBatchesDuringBatchMint(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	pending := seedMintBatch(t, env, types.BatchPending)
	env.advance(11 * time.Minute)
	require.NoError(t, env.store.AcquireJobLock(ctx, batchMintLockName, "runner", env.clock.Now(), time.Minute))

	require.NoError(t, env.svc.ReconcileStaleBatches(ctx))

	batch, err := env.store.GetMintBatchByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, types.BatchPending, batch.Status)
}

func TestReconcileResumesConfirmedMintBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	env.fund(t, "alice", "10")
	env.fund(t, "bob", "5")

	batch := seedMintBatch(t, env, types.BatchConfirmed,
		model.MintBatchItem{UserID: "alice", WalletAddress: aliceWallet, Amount: dec("10")},
		model.MintBatchItem{UserID: "bob", WalletAddress: bobWallet, Amount: dec("5")},
	)
	// the first item landed before the interruption
	applied, err := env.svc.applyMintItem(ctx, batch, batch.Items[0])
	require.NoError(t, err)
	require.True(t, applied)

	require.NoError(t, env.svc.ReconcileStaleBatches(ctx))

	stored, err := env.store.GetMintBatchByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.UnappliedItems())

	requireDecimal(t, "10", env.balance(t, "alice").OnChain)
	requireDecimal(t, "5", env.balance(t, "bob").OnChain)

	// items are applied once
	applied, err = env.svc.applyMintItem(ctx, batch, batch.Items[0])
	require.NoError(t, err)
	assert.False(t, applied)
	requireDecimal(t, "10", env.balance(t, "alice").OnChain)

	env.requireConsistent(t, "alice")
	env.requireConsistent(t, "bob")
}
