package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/observability/metrics"
	"github.com/uct-network/uct-ledger/internal/types"
	"github.com/uct-network/uct-ledger/internal/utils/poller"
)

// StartReconcilePoller periodically resolves settlements and mint batches
// stuck in a non final status.
func (s *Service) StartReconcilePoller(ctx context.Context) {
	reconcilePoller := poller.NewPoller(
		"reconcile",
		s.cfg.Poller.ReconcilePollingInterval,
		metrics.RecordPollerDuration("reconcile", s.ReconcileStaleBatches),
	)
	go reconcilePoller.Start(ctx)
}

// ReconcileStaleBatches resolves batches older than the stale threshold:
//   - a pending settlement never reached the minting service and is failed and refunded
//   - a submitted settlement is re-submitted under the same idempotency key,
//     then confirmed or failed and refunded
//   - a pending mint batch is failed, its balances were never touched
//   - a submitted mint batch is re-submitted, then confirmed and applied or failed
func (s *Service) ReconcileStaleBatches(ctx context.Context) error {
	olderThan := s.now().Add(-s.cfg.Settlement.StaleBatchAfter)
	limit := s.cfg.Settlement.StaleBatchLimit

	settlements, err := s.db.FindStaleOnchainBatches(
		ctx, []types.BatchStatus{types.BatchPending, types.BatchSubmitted}, olderThan, limit,
	)
	if err != nil {
		return fmt.Errorf("failed to find stale settlements: %w", err)
	}
	metrics.RecordStaleBatches("settlement", len(settlements))

	for i := range settlements {
		batch := &settlements[i]
		log := log.Ctx(ctx).With().
			Str("batch_id", batch.ID).
			Str("user_id", batch.UserID).
			Stringer("status", batch.Status).
			Logger()

		if batch.Status == types.BatchPending {
			log.Warn().Msg("stale pending settlement, refunding")
			if _, err := s.failSettlement(ctx, batch, "stale pending settlement"); err != nil {
				return err
			}
			continue
		}

		log.Warn().Msg("stale submitted settlement, re-submitting")
		resolved, err := s.submitSettlement(ctx, batch)
		// an external failure was already turned into a refund
		if err != nil && !types.IsErrorCode(err, types.ExternalServiceError) {
			return err
		}
		if resolved != nil {
			log.Info().Stringer("resolved_status", resolved.Status).Msg("stale settlement resolved")
		}
	}

	if err := s.reconcileStaleMintBatches(ctx); err != nil {
		return err
	}

	// confirmed batches interrupted before all items were applied
	if _, err := s.resumeConfirmedMintBatches(ctx); err != nil {
		return err
	}

	return nil
}

func (s *Service) reconcileStaleMintBatches(ctx context.Context) error {
	// mint batches share the job lease so a running batch mint is never raced
	owner := "reconcile-" + uuid.NewString()
	if err := s.db.AcquireJobLock(ctx, batchMintLockName, owner, s.now(), s.cfg.BatchMint.LockTTL); err != nil {
		if db.IsLockHeldError(err) {
			log.Ctx(ctx).Debug().Msg("batch mint running, stale mint batches left for the next sweep")
			return nil
		}
		return fmt.Errorf("failed to acquire batch mint lock: %w", err)
	}
	defer func() {
		if err := s.db.ReleaseJobLock(context.WithoutCancel(ctx), batchMintLockName, owner); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to release batch mint lock")
		}
	}()

	_, err := s.resolveOpenMintBatches(ctx, s.now().Add(-s.cfg.BatchMint.LockTTL))
	return err
}

// resolveOpenMintBatches settles mint batches created before olderThan that
// never reached a final status. The caller must hold the batch mint lease.
//   - a pending batch never reached the minting service and is failed
//   - a submitted batch is re-submitted under its own id, so the minting
//     service sees the same idempotency key, then confirmed and applied or failed
func (s *Service) resolveOpenMintBatches(ctx context.Context, olderThan time.Time) (int, error) {
	batches, err := s.db.FindStaleMintBatches(
		ctx, []types.BatchStatus{types.BatchPending, types.BatchSubmitted}, olderThan, s.cfg.Settlement.StaleBatchLimit,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to find open mint batches: %w", err)
	}
	metrics.RecordStaleBatches("mint_batch", len(batches))

	for i := range batches {
		batch := &batches[i]
		if batch.Status == types.BatchPending {
			log.Ctx(ctx).Warn().Str("batch_id", batch.ID).Msg("open pending mint batch, marking failed")
			if err := s.db.UpdateMintBatchStatus(
				ctx, batch.ID,
				types.QualifiedStatesForFail(),
				types.BatchFailed,
				db.WithFailureReason("mint batch interrupted before submission"),
				db.WithTimestamp(s.now()),
			); err != nil && !db.IsNotFoundError(err) {
				return i, fmt.Errorf("failed to fail mint batch %s: %w", batch.ID, err)
			}
			continue
		}

		log.Ctx(ctx).Warn().Str("batch_id", batch.ID).Msg("open submitted mint batch, re-submitting")
		if _, err := s.submitMintBatch(ctx, batch); err != nil && !types.IsErrorCode(err, types.ExternalServiceError) {
			return i, err
		}
	}

	return len(batches), nil
}
