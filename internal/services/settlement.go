package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/observability/metrics"
	"github.com/uct-network/uct-ledger/internal/types"
	"github.com/uct-network/uct-ledger/pkg"
)

const (
	opClaim      = "claim"
	opSettlement = "settlement"

	settlementRateLimitAction = "settlement"
)

type ClaimResult struct {
	Claimed decimal.Decimal        `json:"claimed"`
	Balance *model.BalanceDocument `json:"balance"`
}

// ClaimPending moves the pending amount read at the start of the claim into
// available. Accrual that lands while the claim runs stays pending for the
// next claim. Off-chain only.
func (s *Service) ClaimPending(ctx context.Context, userID string) (*ClaimResult, error) {
	balance, err := s.db.GetBalance(ctx, userID)
	if err != nil && !db.IsNotFoundError(err) {
		return nil, ledgerError(ctx, opClaim, userID, err)
	}
	if balance == nil || !balance.Pending.IsPositive() {
		return nil, ledgerError(ctx, opClaim, userID, types.NewConflictError(types.NothingToClaim, "nothing to claim"))
	}
	amount := balance.Pending

	// the wallet is recorded for audit only, a lookup failure does not block the claim
	wallet, err := s.wallets.GetPrimaryWallet(ctx, userID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("wallet lookup failed during claim")
		wallet = ""
	}

	entry := model.NewLedgerEntry(userID, types.EventClaimPending, amount, model.BalanceDelta{
		Pending:   amount.Neg(),
		Available: amount,
	}, s.now()).
		WithPayload(model.PayloadWalletAddress, wallet)

	updated, err := s.postEntry(ctx, entry)
	if err != nil {
		// a concurrent claim drained pending between the read and the update
		if db.IsInsufficientBalanceError(err) {
			err = types.NewConflictError(types.NothingToClaim, "nothing to claim")
		}
		return nil, ledgerError(ctx, opClaim, userID, err)
	}

	log.Ctx(ctx).Info().
		Str("user_id", userID).
		Stringer("amount", amount).
		Msg("pending balance claimed")
	metrics.RecordLedgerOperation(opClaim, "ok")

	return &ClaimResult{Claimed: amount, Balance: updated}, nil
}

// RequestSettlement debits available before calling the minting service, so a
// slow or retried call can never spend the same balance twice. The batch ends
// confirmed (credited to on_chain) or failed with the amount refunded.
// On an external failure the failed batch is returned together with the error.
func (s *Service) RequestSettlement(
	ctx context.Context, userID string, amount decimal.Decimal,
) (*model.OnchainBatchDocument, error) {
	settleCfg := s.cfg.Settlement
	amount = s.truncate(amount)
	if !amount.IsPositive() || amount.LessThan(settleCfg.MinAmount) {
		return nil, ledgerError(ctx, opSettlement, userID, types.NewErrorWithMsg(
			http.StatusBadRequest, types.BelowMinimum,
			fmt.Sprintf("settlement amount must be at least %s", settleCfg.MinAmount),
		))
	}

	// fail fast before asking the wallet directory; the debit below is the real check
	balance, err := s.db.GetBalance(ctx, userID)
	if err != nil && !db.IsNotFoundError(err) {
		return nil, ledgerError(ctx, opSettlement, userID, err)
	}
	if balance == nil || balance.Available.LessThan(amount) {
		return nil, ledgerError(ctx, opSettlement, userID, &db.InsufficientBalanceError{UserID: userID})
	}

	wallet, err := s.wallets.GetPrimaryWallet(ctx, userID)
	if err != nil {
		return nil, ledgerError(ctx, opSettlement, userID, types.NewError(
			http.StatusBadGateway, types.ExternalServiceError,
			fmt.Errorf("failed to look up wallet: %w", err),
		))
	}
	wallet, err = pkg.NormalizeWalletAddress(wallet)
	if err != nil {
		return nil, ledgerError(ctx, opSettlement, userID, types.NewError(
			http.StatusUnprocessableEntity, types.InvalidWallet, err,
		))
	}

	now := s.now()
	batch := model.NewOnchainBatchDocument(userID, amount, wallet, settleCfg.Network, now)
	entry := model.NewLedgerEntry(userID, types.EventSettlementRequested, amount.Neg(), model.BalanceDelta{
		Available: amount.Neg(),
	}, now).
		WithPayload(model.PayloadBatchID, batch.ID).
		WithPayload(model.PayloadWalletAddress, wallet).
		WithPayload(model.PayloadNetwork, settleCfg.Network)

	// the rate limit hit is part of the transaction, a rejected request does not use up the window
	err = s.db.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.applyEntry(ctx, entry); err != nil {
			return err
		}
		if err := s.db.RecordRateLimitHit(
			ctx,
			model.RateLimitKey(settlementRateLimitAction, userID),
			now,
			settleCfg.RateLimitWindow,
			settleCfg.MaxRequestsPerWindow,
		); err != nil {
			return err
		}
		return s.db.SaveNewOnchainBatch(ctx, batch)
	})
	if err != nil {
		return nil, ledgerError(ctx, opSettlement, userID, err)
	}

	log.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("batch_id", batch.ID).
		Stringer("amount", amount).
		Msg("settlement requested")

	return s.submitSettlement(ctx, batch)
}

// submitSettlement calls the minting service for a pending or submitted batch
// and resolves it. The batch id is the idempotency key, so a re-submission
// after a crash never mints twice.
func (s *Service) submitSettlement(
	ctx context.Context, batch *model.OnchainBatchDocument,
) (*model.OnchainBatchDocument, error) {
	// bookkeeping after the debit must finish even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	if batch.Status == types.BatchPending {
		now := s.now()
		if err := s.db.UpdateOnchainBatchStatus(
			ctx, batch.ID, types.QualifiedStatesForSubmit(), types.BatchSubmitted, db.WithTimestamp(now),
		); err != nil {
			if db.IsNotFoundError(err) {
				// resolved concurrently, e.g. by the stale batch sweep
				return s.db.GetOnchainBatchByID(ctx, batch.ID)
			}
			return nil, ledgerError(ctx, opSettlement, batch.UserID, err)
		}
		batch.Status = types.BatchSubmitted
		batch.SubmittedAt = &now
	}

	mintCtx, cancel := context.WithTimeout(ctx, s.cfg.Settlement.MintTimeout)
	txHash, mintErr := s.minter.Mint(mintCtx, batch.WalletAddress, batch.Amount, batch.Network, batch.ID)
	cancel()

	if mintErr != nil {
		reason := mintErr.Error()
		if errors.Is(mintErr, context.DeadlineExceeded) {
			reason = fmt.Sprintf("mint timed out after %s", s.cfg.Settlement.MintTimeout)
		}
		log.Ctx(ctx).Error().Err(mintErr).
			Str("user_id", batch.UserID).
			Str("batch_id", batch.ID).
			Msg("settlement mint failed, refunding")

		failed, err := s.failSettlement(ctx, batch, reason)
		if err != nil {
			return nil, err
		}
		if failed.Status == types.BatchConfirmed {
			return failed, nil
		}
		return failed, types.NewError(
			http.StatusBadGateway, types.ExternalServiceError,
			fmt.Errorf("settlement %s failed and was refunded: %w", batch.ID, mintErr),
		)
	}

	return s.confirmSettlement(ctx, batch, txHash)
}

// confirmSettlement credits on_chain once per batch. A repeated confirmation is a no-op.
func (s *Service) confirmSettlement(
	ctx context.Context, batch *model.OnchainBatchDocument, txHash string,
) (*model.OnchainBatchDocument, error) {
	now := s.now()
	entry := model.NewLedgerEntry(batch.UserID, types.EventSettlementConfirmed, batch.Amount, model.BalanceDelta{
		OnChain: batch.Amount,
	}, now).
		WithPayload(model.PayloadBatchID, batch.ID).
		WithPayload(model.PayloadTxHash, txHash).
		WithPayload(model.PayloadNetwork, batch.Network)

	err := s.db.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.db.UpdateOnchainBatchStatus(
			ctx, batch.ID,
			types.QualifiedStatesForConfirm(),
			types.BatchConfirmed,
			db.WithTxHash(txHash),
			db.WithTimestamp(now),
		); err != nil {
			return err
		}
		_, err := s.applyEntry(ctx, entry)
		return err
	})
	if err != nil {
		if db.IsNotFoundError(err) {
			return s.resolvedElsewhere(ctx, batch.ID, txHash)
		}
		return nil, ledgerError(ctx, opSettlement, batch.UserID, err)
	}

	log.Ctx(ctx).Info().
		Str("user_id", batch.UserID).
		Str("batch_id", batch.ID).
		Str("tx_hash", txHash).
		Msg("settlement confirmed")
	metrics.RecordLedgerOperation(opSettlement, "ok")
	metrics.RecordSettlementOutcome(types.BatchConfirmed.String(), false)

	batch.Status = types.BatchConfirmed
	batch.TxHash = txHash
	batch.ConfirmedAt = &now
	return batch, nil
}

// resolvedElsewhere handles a confirmation that lost the status swap.
func (s *Service) resolvedElsewhere(
	ctx context.Context, batchID, txHash string,
) (*model.OnchainBatchDocument, error) {
	current, err := s.db.GetOnchainBatchByID(ctx, batchID)
	if err != nil {
		return nil, ledgerError(ctx, opSettlement, "", err)
	}
	if current.Status == types.BatchFailed {
		// minted on chain but already refunded off chain, needs an operator
		metrics.IncIntegrityAlarm("settlement_confirmed_after_refund")
		log.Ctx(ctx).Error().
			Str("alarm", "ledger_integrity").
			Str("user_id", current.UserID).
			Str("batch_id", batchID).
			Str("tx_hash", txHash).
			Msg("mint confirmed for a settlement that was already refunded")
	}
	return current, nil
}

// failSettlement marks the batch failed and refunds its amount in the same
// transaction. Only a pending or submitted batch qualifies, so the refund
// happens at most once.
func (s *Service) failSettlement(
	ctx context.Context, batch *model.OnchainBatchDocument, reason string,
) (*model.OnchainBatchDocument, error) {
	now := s.now()
	entry := model.NewLedgerEntry(batch.UserID, types.EventSettlementRefunded, batch.Amount, model.BalanceDelta{
		Available: batch.Amount,
	}, now).
		WithPayload(model.PayloadBatchID, batch.ID).
		WithPayload(model.PayloadReason, reason)

	err := s.db.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.db.UpdateOnchainBatchStatus(
			ctx, batch.ID,
			types.QualifiedStatesForFail(),
			types.BatchFailed,
			db.WithFailureReason(reason),
			db.WithRefunded(),
			db.WithTimestamp(now),
		); err != nil {
			return err
		}
		_, err := s.applyEntry(ctx, entry)
		return err
	})
	if err != nil {
		if db.IsNotFoundError(err) {
			log.Ctx(ctx).Warn().
				Str("batch_id", batch.ID).
				Msg("settlement already resolved, refund skipped")
			return s.db.GetOnchainBatchByID(ctx, batch.ID)
		}
		return nil, ledgerError(ctx, opSettlement, batch.UserID, err)
	}

	metrics.RecordLedgerOperation(opSettlement, types.ExternalServiceError.String())
	metrics.RecordSettlementOutcome(types.BatchFailed.String(), true)

	batch.Status = types.BatchFailed
	batch.FailureReason = reason
	batch.Refunded = true
	batch.FailedAt = &now
	return batch, nil
}
