package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/clients/minterclient"
	"github.com/uct-network/uct-ledger/internal/clients/walletclient"
	"github.com/uct-network/uct-ledger/internal/config"
	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/observability/metrics"
	"github.com/uct-network/uct-ledger/internal/types"
)

type Service struct {
	cfg     *config.Config
	db      db.DbInterface
	minter  minterclient.MinterInterface
	wallets walletclient.WalletInterface
	clock   clock.Clock
}

func NewService(
	cfg *config.Config,
	db db.DbInterface,
	minter minterclient.MinterInterface,
	wallets walletclient.WalletInterface,
	clk clock.Clock,
) *Service {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	return &Service{
		cfg:     cfg,
		db:      db,
		minter:  minter,
		wallets: wallets,
		clock:   clk,
	}
}

// Start runs the background workers: stats rollup, stale batch sweep and the
// batch mint schedule. It returns once they are started.
func (s *Service) Start(ctx context.Context) error {
	s.StartStatsPoller(ctx)
	s.StartReconcilePoller(ctx)
	return s.StartBatchMintScheduler(ctx)
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// truncate drops the digits beyond the configured ledger precision
func (s *Service) truncate(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(s.cfg.Ledger.Precision)
}

// postEntry applies the entry deltas to the balance aggregate and appends the
// entry in one transaction.
func (s *Service) postEntry(ctx context.Context, entry *model.LedgerEntryDocument) (*model.BalanceDocument, error) {
	var balance *model.BalanceDocument
	err := s.db.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		balance, err = s.applyEntry(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// applyEntry is postEntry for callers that already run a transaction.
func (s *Service) applyEntry(ctx context.Context, entry *model.LedgerEntryDocument) (*model.BalanceDocument, error) {
	balance, err := s.db.AdjustBalance(ctx, entry.UserID, entry.Deltas, entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := s.db.InsertLedgerEntry(ctx, entry); err != nil {
		return nil, err
	}
	return balance, nil
}

// ledgerError converts storage errors of a balance mutation into the errors
// returned to callers. Unknown errors become internal errors.
func ledgerError(ctx context.Context, operation, userID string, err error) *types.Error {
	if apiErr := types.AsError(err); apiErr != nil {
		metrics.RecordLedgerOperation(operation, apiErr.ErrorCode.String())
		return apiErr
	}

	var result *types.Error
	switch {
	case db.IsInsufficientBalanceError(err):
		result = types.NewConflictError(types.InsufficientBalance, "insufficient balance for %s", operation)
	case db.IsRateLimitExceededError(err):
		result = types.NewErrorWithMsg(http.StatusTooManyRequests, types.RateLimited, "too many requests, try again later")
	default:
		log.Ctx(ctx).Error().Err(err).
			Str("user_id", userID).
			Str("operation", operation).
			Msg("ledger operation failed")
		result = types.NewInternalServiceError(fmt.Errorf("failed to %s: %w", operation, err))
	}
	metrics.RecordLedgerOperation(operation, result.ErrorCode.String())
	return result
}

func badRequest(format string, args ...any) *types.Error {
	return types.NewError(http.StatusBadRequest, types.BadRequest, fmt.Errorf(format, args...))
}
