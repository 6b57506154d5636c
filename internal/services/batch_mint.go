package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"github.com/uct-network/uct-ledger/internal/clients/minterclient"
	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/observability/metrics"
	"github.com/uct-network/uct-ledger/internal/observability/tracing"
	"github.com/uct-network/uct-ledger/internal/types"
	"github.com/uct-network/uct-ledger/pkg"
)

const (
	batchMintLockName = "batch_mint"
	// snapshotPageSize balances are read per page while collecting batch items
	snapshotPageSize = 200

	skipNoWallet      = "no_wallet"
	skipInvalidWallet = "invalid_wallet"
	skipLookupFailed  = "wallet_lookup_failed"
)

// Batch mint run outcomes
const (
	BatchMintMinted       = "minted"
	BatchMintBelowMinSize = "below_min_size"
	BatchMintFailed       = "failed"
)

type BatchMintReport struct {
	Outcome     string          `json:"outcome"`
	BatchID     string          `json:"batch_id,omitempty"`
	TxHash      string          `json:"tx_hash,omitempty"`
	Items       int             `json:"items"`
	Skipped     int             `json:"skipped"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	// Resumed counts the items of earlier confirmed batches applied by this run
	Resumed int `json:"resumed"`
	// Recovered counts pending or submitted batches of an interrupted run
	// resolved before the snapshot
	Recovered int `json:"recovered"`
}

// RunBatchMint snapshots positive available balances of users with a valid
// wallet, mints them in one external call and, after confirmation, moves
// exactly the snapshotted amounts from available to on_chain.
// If the mint call fails no balance is changed.
func (s *Service) RunBatchMint(ctx context.Context) (*BatchMintReport, error) {
	mintCfg := s.cfg.BatchMint
	owner := uuid.NewString()

	if err := s.db.AcquireJobLock(ctx, batchMintLockName, owner, s.now(), mintCfg.LockTTL); err != nil {
		if db.IsLockHeldError(err) {
			return nil, types.NewConflictError(types.JobAlreadyRunning, "batch mint is already running")
		}
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to acquire batch mint lock: %w", err))
	}
	defer func() {
		if err := s.db.ReleaseJobLock(context.WithoutCancel(ctx), batchMintLockName, owner); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to release batch mint lock")
		}
	}()

	report := &BatchMintReport{TotalAmount: decimal.Zero}

	// batches are only created under the lease, so every open one belongs to
	// an interrupted run and must be settled before its users are snapshotted again
	recovered, err := s.resolveOpenMintBatches(ctx, s.now().Add(time.Nanosecond))
	if err != nil {
		return nil, types.NewInternalServiceError(err)
	}
	report.Recovered = recovered

	// confirmed batches whose balance changes did not all land, e.g. after a crash
	resumed, err := s.resumeConfirmedMintBatches(ctx)
	if err != nil {
		return nil, err
	}
	report.Resumed = resumed

	items, skipped, err := s.snapshotMintItems(ctx)
	if err != nil {
		return nil, err
	}
	report.Items = len(items)
	report.Skipped = len(skipped)

	if len(items) < mintCfg.MinSize {
		log.Ctx(ctx).Info().
			Int("items", len(items)).
			Int("min_size", mintCfg.MinSize).
			Int("skipped", len(skipped)).
			Msg("not enough qualifying balances, batch mint skipped")
		report.Outcome = BatchMintBelowMinSize
		metrics.RecordBatchMintRun(report.Outcome, len(items))
		return report, nil
	}

	batch := model.NewMintBatchDocument(mintCfg.Network, items, skipped, s.now())
	report.BatchID = batch.ID
	report.TotalAmount = batch.TotalAmount
	if err := s.db.SaveNewMintBatch(ctx, batch); err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to save mint batch: %w", err))
	}

	confirmed, err := s.submitMintBatch(ctx, batch)
	if err != nil {
		report.Outcome = BatchMintFailed
		metrics.RecordBatchMintRun(report.Outcome, len(items))
		return report, err
	}
	report.Outcome = BatchMintMinted
	report.TxHash = confirmed.TxHash
	metrics.RecordBatchMintRun(report.Outcome, len(items))

	return report, nil
}

// snapshotMintItems pages through positive balances until max-size items
// with a valid primary wallet are collected.
func (s *Service) snapshotMintItems(ctx context.Context) ([]model.MintBatchItem, []model.MintBatchSkip, error) {
	mintCfg := s.cfg.BatchMint
	var (
		items   []model.MintBatchItem
		skipped []model.MintBatchSkip
		after   string
	)

	for len(items) < mintCfg.MaxSize {
		balances, err := s.db.FindPositiveBalances(ctx, after, snapshotPageSize)
		if err != nil {
			return nil, nil, types.NewInternalServiceError(fmt.Errorf("failed to snapshot balances: %w", err))
		}
		if len(balances) == 0 {
			break
		}
		after = balances[len(balances)-1].UserID

		for _, lookup := range s.lookupWallets(ctx, balances) {
			if len(items) >= mintCfg.MaxSize {
				break
			}
			if lookup.skipReason != "" {
				skipped = append(skipped, model.MintBatchSkip{UserID: lookup.userID, Reason: lookup.skipReason})
				continue
			}
			items = append(items, model.MintBatchItem{
				UserID:        lookup.userID,
				WalletAddress: lookup.wallet,
				Amount:        lookup.amount,
				Shortfall:     decimal.Zero,
			})
		}

		if len(balances) < snapshotPageSize {
			break
		}
	}

	return items, skipped, nil
}

type walletLookup struct {
	userID     string
	wallet     string
	amount     decimal.Decimal
	skipReason string
}

// lookupWallets joins balances with their primary wallets using a bounded
// number of concurrent directory calls. Results keep the balance order.
func (s *Service) lookupWallets(ctx context.Context, balances []model.BalanceDocument) []walletLookup {
	p := pool.NewWithResults[walletLookup]().WithMaxGoroutines(s.cfg.BatchMint.WalletLookupConcurrency)
	for _, balance := range balances {
		p.Go(func() walletLookup {
			lookup := walletLookup{userID: balance.UserID, amount: balance.Available}

			wallet, err := s.wallets.GetPrimaryWallet(ctx, balance.UserID)
			switch {
			case err != nil:
				log.Ctx(ctx).Warn().Err(err).Str("user_id", balance.UserID).Msg("wallet lookup failed, user skipped")
				lookup.skipReason = skipLookupFailed
			case wallet == "":
				lookup.skipReason = skipNoWallet
			default:
				normalized, err := pkg.NormalizeWalletAddress(wallet)
				if err != nil {
					lookup.skipReason = skipInvalidWallet
				} else {
					lookup.wallet = normalized
				}
			}
			return lookup
		})
	}
	return p.Wait()
}

// submitMintBatch calls the minting service for a pending or submitted batch.
// On success the batch is confirmed and applied, on failure it is marked failed
// and no balance changes.
func (s *Service) submitMintBatch(ctx context.Context, batch *model.MintBatchDocument) (*model.MintBatchDocument, error) {
	ctx = context.WithoutCancel(ctx)

	if batch.Status == types.BatchPending {
		now := s.now()
		if err := s.db.UpdateMintBatchStatus(
			ctx, batch.ID, types.QualifiedStatesForSubmit(), types.BatchSubmitted, db.WithTimestamp(now),
		); err != nil {
			return nil, types.NewInternalServiceError(fmt.Errorf("failed to submit mint batch %s: %w", batch.ID, err))
		}
		batch.Status = types.BatchSubmitted
		batch.SubmittedAt = &now
	}

	mintItems := make([]minterclient.MintItem, 0, len(batch.Items))
	for _, item := range batch.Items {
		mintItems = append(mintItems, minterclient.MintItem{WalletAddress: item.WalletAddress, Amount: item.Amount})
	}

	mintCtx, cancel := context.WithTimeout(ctx, s.cfg.BatchMint.MintTimeout)
	result, mintErr := s.minter.BatchMint(mintCtx, mintItems, batch.Network, batch.ID)
	cancel()

	if mintErr != nil {
		reason := mintErr.Error()
		if errors.Is(mintErr, context.DeadlineExceeded) {
			reason = fmt.Sprintf("batch mint timed out after %s", s.cfg.BatchMint.MintTimeout)
		}
		log.Ctx(ctx).Error().Err(mintErr).
			Str("batch_id", batch.ID).
			Int("items", len(batch.Items)).
			Msg("batch mint failed, balances unchanged")

		if err := s.db.UpdateMintBatchStatus(
			ctx, batch.ID,
			types.QualifiedStatesForFail(),
			types.BatchFailed,
			db.WithFailureReason(reason),
			db.WithTimestamp(s.now()),
		); err != nil && !db.IsNotFoundError(err) {
			return nil, types.NewInternalServiceError(fmt.Errorf("failed to mark mint batch %s failed: %w", batch.ID, err))
		}
		return nil, types.NewError(
			http.StatusBadGateway, types.ExternalServiceError,
			fmt.Errorf("batch mint %s failed: %w", batch.ID, mintErr),
		)
	}

	if result.WalletsProcessed != len(mintItems) {
		log.Ctx(ctx).Warn().
			Str("batch_id", batch.ID).
			Int("items", len(mintItems)).
			Int("wallets_processed", result.WalletsProcessed).
			Msg("minting service processed a different number of wallets")
	}

	now := s.now()
	if err := s.db.UpdateMintBatchStatus(
		ctx, batch.ID,
		types.QualifiedStatesForConfirm(),
		types.BatchConfirmed,
		db.WithTxHash(result.TxHash),
		db.WithWalletsProcessed(result.WalletsProcessed),
		db.WithTimestamp(now),
	); err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to confirm mint batch %s: %w", batch.ID, err))
	}
	batch.Status = types.BatchConfirmed
	batch.TxHash = result.TxHash
	batch.WalletsProcessed = result.WalletsProcessed
	batch.ConfirmedAt = &now

	log.Ctx(ctx).Info().
		Str("batch_id", batch.ID).
		Str("tx_hash", result.TxHash).
		Int("items", len(batch.Items)).
		Stringer("total_amount", batch.TotalAmount).
		Msg("batch mint confirmed")

	if _, err := s.applyMintBatch(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *Service) resumeConfirmedMintBatches(ctx context.Context) (int, error) {
	batches, err := s.db.FindMintBatchesWithUnappliedItems(ctx)
	if err != nil {
		return 0, types.NewInternalServiceError(fmt.Errorf("failed to find unapplied mint batches: %w", err))
	}

	applied := 0
	for i := range batches {
		log.Ctx(ctx).Warn().
			Str("batch_id", batches[i].ID).
			Int("unapplied", len(batches[i].UnappliedItems())).
			Msg("resuming confirmed mint batch")
		n, err := s.applyMintBatch(ctx, &batches[i])
		if err != nil {
			return applied, err
		}
		applied += n
	}
	return applied, nil
}

// applyMintBatch moves every unapplied item from available to on_chain, one
// transaction per item. The item flag makes each move happen once.
func (s *Service) applyMintBatch(ctx context.Context, batch *model.MintBatchDocument) (int, error) {
	applied := 0
	for _, item := range batch.UnappliedItems() {
		ok, err := s.applyMintItem(ctx, batch, item)
		if err != nil {
			return applied, types.NewInternalServiceError(
				fmt.Errorf("failed to apply mint batch %s for %s: %w", batch.ID, item.UserID, err),
			)
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}

var errItemAlreadyApplied = errors.New("mint batch item already applied")

// applyMintItem decrements available by the snapshotted amount. Anything the
// user spent since the snapshot is recorded as shortfall and raises an alarm.
func (s *Service) applyMintItem(ctx context.Context, batch *model.MintBatchDocument, item model.MintBatchItem) (bool, error) {
	var shortfall decimal.Decimal
	err := s.db.RunInTransaction(ctx, func(ctx context.Context) error {
		debit := item.Amount
		balance, err := s.db.GetBalance(ctx, item.UserID)
		if err != nil && !db.IsNotFoundError(err) {
			return err
		}
		available := decimal.Zero
		if balance != nil {
			available = balance.Available
		}
		if available.LessThan(debit) {
			debit = available
		}
		shortfall = item.Amount.Sub(debit)

		if err := s.db.MarkMintBatchItemApplied(ctx, batch.ID, item.UserID, shortfall); err != nil {
			if db.IsNotFoundError(err) {
				return errItemAlreadyApplied
			}
			return err
		}

		entry := model.NewLedgerEntry(item.UserID, types.EventMintedOnchain, debit.Neg(), model.BalanceDelta{
			Available: debit.Neg(),
			OnChain:   debit,
		}, s.now()).
			WithPayload(model.PayloadBatchID, batch.ID).
			WithPayload(model.PayloadTxHash, batch.TxHash).
			WithPayload(model.PayloadWalletAddress, item.WalletAddress).
			WithPayload(model.PayloadNetwork, batch.Network)
		if shortfall.IsPositive() {
			entry.WithPayload(model.PayloadShortfall, shortfall.String())
		}

		_, err = s.applyEntry(ctx, entry)
		return err
	})
	if errors.Is(err, errItemAlreadyApplied) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if shortfall.IsPositive() {
		metrics.IncIntegrityAlarm("batch_mint_shortfall")
		log.Ctx(ctx).Error().
			Str("alarm", "ledger_integrity").
			Str("user_id", item.UserID).
			Str("batch_id", batch.ID).
			Stringer("minted", item.Amount).
			Stringer("shortfall", shortfall).
			Msg("available dropped below the minted amount after the snapshot")
	}
	return true, nil
}

// StartBatchMintScheduler runs the batch mint job on the configured cron
// schedule until ctx is done. An empty schedule leaves the job to the
// internal endpoint and the run-batch-mint command.
func (s *Service) StartBatchMintScheduler(ctx context.Context) error {
	schedule := s.cfg.BatchMint.Schedule
	if schedule == "" {
		log.Ctx(ctx).Info().Msg("batch mint schedule not configured")
		return nil
	}

	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(schedule, func() {
		runCtx := tracing.InjectTraceID(ctx)
		report, err := s.RunBatchMint(runCtx)
		if err != nil {
			if types.IsErrorCode(err, types.JobAlreadyRunning) {
				log.Ctx(runCtx).Info().Err(err).Msg("scheduled batch mint skipped")
				return
			}
			log.Ctx(runCtx).Error().Err(err).Msg("scheduled batch mint failed")
			return
		}
		log.Ctx(runCtx).Info().
			Str("outcome", report.Outcome).
			Int("items", report.Items).
			Int("skipped", report.Skipped).
			Msg("scheduled batch mint finished")
	})
	if err != nil {
		return fmt.Errorf("invalid batch mint schedule %q: %w", schedule, err)
	}

	c.Start()
	log.Ctx(ctx).Info().Str("schedule", schedule).Msg("batch mint scheduler started")

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		log.Info().Msg("batch mint scheduler stopped")
	}()

	return nil
}
