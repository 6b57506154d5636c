package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/types"
)

// settleConcurrently runs the requests at once and returns the confirmed
// batches and the errors of the rejected ones
func settleConcurrently(ctx context.Context, env *testEnv, userID string, amounts ...string) ([]*model.OnchainBatchDocument, []error) {
	batches := make([]*model.OnchainBatchDocument, len(amounts))
	errs := make([]error, len(amounts))

	var wg conc.WaitGroup
	for i, amount := range amounts {
		wg.Go(func() {
			batches[i], errs[i] = env.svc.RequestSettlement(ctx, userID, dec(amount))
		})
	}
	wg.Wait()

	var (
		confirmed []*model.OnchainBatchDocument
		rejected  []error
	)
	for i := range amounts {
		if errs[i] != nil {
			rejected = append(rejected, errs[i])
			continue
		}
		confirmed = append(confirmed, batches[i])
	}
	return confirmed, rejected
}

func TestRequestSettlement(t *testing.T) {
	t.Run("confirmed mint credits on chain", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()
		env.fund(t, "alice", "20")

		env.wallets.On("GetPrimaryWallet", mock.Anything, "alice").
			Return(strings.ToLower(aliceWallet), nil).Once()
		env.minter.On("Mint", mock.Anything, aliceWallet, decEq("5"), testNetwork, mock.Anything).
			Return("0xabc", nil).Once()

		batch, err := env.svc.RequestSettlement(ctx, "alice", dec("5.123456789"))
		require.NoError(t, err)
		assert.Equal(t, types.BatchConfirmed, batch.Status)
		assert.Equal(t, "0xabc", batch.TxHash)
		assert.Equal(t, aliceWallet, batch.WalletAddress)
		requireDecimal(t, "5.12345678", batch.Amount)

		balance := env.balance(t, "alice")
		requireDecimal(t, "14.87654322", balance.Available)
		requireDecimal(t, "5.12345678", balance.OnChain)

		stored, err := env.store.GetOnchainBatchByID(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, types.BatchConfirmed, stored.Status)
		require.NotNil(t, stored.ConfirmedAt)

		entries, err := env.svc.GetLedger(ctx, "alice", 0)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, types.EventSettlementConfirmed, entries[0].EventType)
		assert.Equal(t, types.EventSettlementRequested, entries[1].EventType)
		assert.Equal(t, batch.ID, entries[1].Payload["batch_id"])
		env.requireConsistent(t, "alice")
	})

	t.Run("mint failure refunds once", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()
		env.fund(t, "alice", "20")

		env.wallets.On("GetPrimaryWallet", mock.Anything, "alice").Return(aliceWallet, nil).Once()
		env.minter.On("Mint", mock.Anything, aliceWallet, decEq("8"), testNetwork, mock.Anything).
			Return("", errors.New("rpc unavailable")).Once()

		batch, err := env.svc.RequestSettlement(ctx, "alice", dec("8"))
		requireErrorCode(t, err, types.ExternalServiceError)
		require.NotNil(t, batch)
		assert.Equal(t, types.BatchFailed, batch.Status)
		assert.True(t, batch.Refunded)
		assert.Contains(t, batch.FailureReason, "rpc unavailable")

		balance := env.balance(t, "alice")
		requireDecimal(t, "20", balance.Available)
		requireDecimal(t, "0", balance.OnChain)

		// a second failure of the same batch does not refund again
		again, err := env.svc.failSettlement(ctx, batch, "late failure")
		require.NoError(t, err)
		assert.Equal(t, types.BatchFailed, again.Status)
		requireDecimal(t, "20", env.balance(t, "alice").Available)

		// a late confirmation of a refunded batch does not credit on chain
		resolved, err := env.svc.confirmSettlement(ctx, batch, "0xlate")
		require.NoError(t, err)
		assert.Equal(t, types.BatchFailed, resolved.Status)
		requireDecimal(t, "0", env.balance(t, "alice").OnChain)

		env.requireConsistent(t, "alice")
	})

	t.Run("mint timeout refunds", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()
		env.fund(t, "alice", "20")

		env.wallets.On("GetPrimaryWallet", mock.Anything, "alice").Return(aliceWallet, nil).Once()
		env.minter.On("Mint", mock.Anything, aliceWallet, decEq("3"), testNetwork, mock.Anything).
			Run(blockUntilDone).
			Return("", context.DeadlineExceeded).Once()

		batch, err := env.svc.RequestSettlement(ctx, "alice", dec("3"))
		requireErrorCode(t, err, types.ExternalServiceError)
		require.NotNil(t, batch)
		assert.Equal(t, types.BatchFailed, batch.Status)
		assert.Contains(t, batch.FailureReason, "timed out")
		requireDecimal(t, "20", env.balance(t, "alice").Available)
		env.requireConsistent(t, "alice")
	})

	t.Run("caller cancellation does not abandon the batch", func(t *testing.T) {
		env := newTestEnv(t)
		ctx, cancel := context.WithCancel(t.Context())
		env.fund(t, "alice", "20")

		env.wallets.On("GetPrimaryWallet", mock.Anything, "alice").Return(aliceWallet, nil).Once()
		env.minter.On("Mint", mock.Anything, aliceWallet, decEq("4"), testNetwork, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return("0xdef", nil).Once()

		batch, err := env.svc.RequestSettlement(ctx, "alice", dec("4"))
		require.NoError(t, err)
		assert.Equal(t, types.BatchConfirmed, batch.Status)
		requireDecimal(t, "4", env.balance(t, "alice").OnChain)
	})

	t.Run("rejections before the debit", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()
		env.fund(t, "alice", "10")

		_, err := env.svc.RequestSettlement(ctx, "alice", dec("0.5"))
		requireErrorCode(t, err, types.BelowMinimum)

		_, err = env.svc.RequestSettlement(ctx, "alice", dec("11"))
		requireErrorCode(t, err, types.InsufficientBalance)

		_, err = env.svc.RequestSettlement(ctx, "nobody", dec("1"))
		requireErrorCode(t, err, types.InsufficientBalance)

		env.wallets.On("GetPrimaryWallet", mock.Anything, "alice").Return("not-a-wallet", nil).Once()
		_, err = env.svc.RequestSettlement(ctx, "alice", dec("5"))
		requireErrorCode(t, err, types.InvalidWallet)

		env.wallets.On("GetPrimaryWallet", mock.Anything, "alice").Return("", nil).Once()
		_, err = env.svc.RequestSettlement(ctx, "alice", dec("5"))
		requireErrorCode(t, err, types.InvalidWallet)

		env.wallets.On("GetPrimaryWallet", mock.Anything, "alice").Return("", errors.New("directory down")).Once()
		_, err = env.svc.RequestSettlement(ctx, "alice", dec("5"))
		requireErrorCode(t, err, types.ExternalServiceError)

		requireDecimal(t, "10", env.balance(t, "alice").Available)
		settlements, err := env.svc.GetSettlements(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, settlements)
		env.requireConsistent(t, "alice")
	})

	t.Run("rate limited per window", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()
		env.fund(t, "alice", "100")

		env.wallets.On("GetPrimaryWallet", mock.Anything, "alice").Return(aliceWallet, nil)
		env.minter.On("Mint", mock.Anything, aliceWallet, decEq("2"), testNetwork, mock.Anything).
			Return("0xabc", nil).Times(4)

		for range 3 {
			_, err := env.svc.RequestSettlement(ctx, "alice", dec("2"))
			require.NoError(t, err)
		}

		_, err := env.svc.RequestSettlement(ctx, "alice", dec("2"))
		requireErrorCode(t, err, types.RateLimited)

		balance := env.balance(t, "alice")
		requireDecimal(t, "94", balance.Available)
		requireDecimal(t, "6", balance.OnChain)

		settlements, err := env.svc.GetSettlements(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, settlements, 3)

		env.advance(env.svc.cfg.Settlement.RateLimitWindow)
		_, err = env.svc.RequestSettlement(ctx, "alice", dec("2"))
		require.NoError(t, err)
		env.requireConsistent(t, "alice")
	})

	t.Run("concurrent requests never overdraw", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()
		env.fund(t, "alice", "10")

		env.wallets.On("GetPrimaryWallet", mock.Anything, "alice").Return(aliceWallet, nil)
		env.minter.On("Mint", mock.Anything, aliceWallet, decEq("6"), testNetwork, mock.Anything).
			Return("0xabc", nil).Once()

		confirmed, rejected := settleConcurrently(ctx, env, "alice", "6", "6")
		require.Len(t, confirmed, 1)
		require.Len(t, rejected, 1)
		assert.Equal(t, types.BatchConfirmed, confirmed[0].Status)
		requireErrorCode(t, rejected[0], types.InsufficientBalance)

		balance := env.balance(t, "alice")
		requireDecimal(t, "4", balance.Available)
		requireDecimal(t, "6", balance.OnChain)

		settlements, err := env.svc.GetSettlements(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, settlements, 1)
		env.requireConsistent(t, "alice")
	})

	t.Run("concurrent requests at the rate limit boundary", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := t.Context()
		env.fund(t, "alice", "100")

		env.wallets.On("GetPrimaryWallet", mock.Anything, "alice").Return(aliceWallet, nil)
		env.minter.On("Mint", mock.Anything, aliceWallet, decEq("2"), testNetwork, mock.Anything).
			Return("0xabc", nil).Times(3)

		for range 2 {
			_, err := env.svc.RequestSettlement(ctx, "alice", dec("2"))
			require.NoError(t, err)
		}

		// one slot is left in the window
		confirmed, rejected := settleConcurrently(ctx, env, "alice", "2", "2", "2")
		require.Len(t, confirmed, 1)
		require.Len(t, rejected, 2)
		for _, err := range rejected {
			requireErrorCode(t, err, types.RateLimited)
		}

		// a rate limited request is rolled back with its debit
		balance := env.balance(t, "alice")
		requireDecimal(t, "94", balance.Available)
		requireDecimal(t, "6", balance.OnChain)

		settlements, err := env.svc.GetSettlements(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, settlements, 3)
		env.requireConsistent(t, "alice")
	})
}
