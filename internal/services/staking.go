package services

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/observability/metrics"
	"github.com/uct-network/uct-ledger/internal/types"
)

const (
	opStake           = "stake"
	opUnstakeRequest  = "unstake_request"
	opUnstakeComplete = "unstake_complete"
)

// Stake locks the tier amount: available is debited, staked credited and an
// active stake row is created. One open stake per tier and user is allowed.
func (s *Service) Stake(ctx context.Context, userID, tierName string) (*model.StakeDocument, error) {
	tierName = strings.ToLower(tierName)
	tier, ok := s.cfg.Ledger.StakeTiers[tierName]
	if !ok {
		metrics.RecordLedgerOperation(opStake, types.UnknownStakeTier.String())
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.UnknownStakeTier,
			fmt.Sprintf("unknown stake tier %q", tierName),
		)
	}

	now := s.now()
	stake := model.NewStakeDocument(userID, tierName, tier.Capability, tier.Amount, now)
	entry := model.NewLedgerEntry(userID, types.EventStake, tier.Amount.Neg(), model.BalanceDelta{
		Available: tier.Amount.Neg(),
		Staked:    tier.Amount,
	}, now).
		WithPayload(model.PayloadStakeID, stake.ID).
		WithPayload(model.PayloadStakeTier, tierName)

	err := s.db.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.applyEntry(ctx, entry); err != nil {
			return err
		}
		return s.db.SaveNewStake(ctx, stake)
	})
	if err != nil {
		if db.IsDuplicateKeyError(err) {
			err = types.NewConflictError(types.TierAlreadyActive, "stake tier %s is already active", tierName)
		}
		return nil, ledgerError(ctx, opStake, userID, err)
	}

	log.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("stake_id", stake.ID).
		Str("stake_tier", tierName).
		Stringer("amount", tier.Amount).
		Msg("stake created")
	metrics.RecordLedgerOperation(opStake, "ok")

	return stake, nil
}

// RequestUnstake starts the cooldown of an active stake. The staked amount is
// untouched until CompleteUnstake.
func (s *Service) RequestUnstake(ctx context.Context, userID, stakeID string) (*model.StakeDocument, error) {
	stake, err := s.getUserStake(ctx, userID, stakeID)
	if err != nil {
		return nil, ledgerError(ctx, opUnstakeRequest, userID, err)
	}
	if stake.Status != types.StakeActive {
		return nil, ledgerError(ctx, opUnstakeRequest, userID, types.NewConflictError(
			types.InvalidStakeState, "stake %s is %s, only an active stake can be unstaked", stakeID, stake.Status,
		))
	}

	now := s.now()
	unlocksAt := now.Add(s.cfg.Ledger.UnstakeCooldown)
	entry := model.NewLedgerEntry(userID, types.EventUnstakeRequested, decimal.Zero, model.BalanceDelta{}, now).
		WithPayload(model.PayloadStakeID, stake.ID).
		WithPayload(model.PayloadStakeTier, stake.Tier)

	err = s.db.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.db.UpdateStakeStatus(
			ctx, stake.ID,
			types.QualifiedStatesForUnstakeRequest(),
			types.StakeUnstaking,
			db.WithTimestamp(now),
			db.WithUnlocksAt(unlocksAt),
		); err != nil {
			return err
		}
		return s.db.InsertLedgerEntry(ctx, entry)
	})
	if err != nil {
		// a concurrent request moved the stake first
		if db.IsNotFoundError(err) {
			err = types.NewConflictError(types.InvalidStakeState, "stake %s is no longer active", stakeID)
		}
		return nil, ledgerError(ctx, opUnstakeRequest, userID, err)
	}

	stake.Status = types.StakeUnstaking
	stake.UnlocksAt = &unlocksAt
	stake.UnstakeRequestedAt = &now

	log.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("stake_id", stake.ID).
		Time("unlocks_at", unlocksAt).
		Msg("unstake requested")
	metrics.RecordLedgerOperation(opUnstakeRequest, "ok")

	return stake, nil
}

// CompleteUnstake returns the staked amount to available once the cooldown has elapsed.
func (s *Service) CompleteUnstake(ctx context.Context, userID, stakeID string) (*model.StakeDocument, error) {
	stake, err := s.getUserStake(ctx, userID, stakeID)
	if err != nil {
		return nil, ledgerError(ctx, opUnstakeComplete, userID, err)
	}
	if stake.Status != types.StakeUnstaking || stake.UnlocksAt == nil {
		return nil, ledgerError(ctx, opUnstakeComplete, userID, types.NewConflictError(
			types.InvalidStakeState, "stake %s is %s, only an unstaking stake can be completed", stakeID, stake.Status,
		))
	}

	now := s.now()
	if now.Before(*stake.UnlocksAt) {
		return nil, ledgerError(ctx, opUnstakeComplete, userID, types.NewConflictError(
			types.CooldownNotElapsed, "stake %s unlocks at %s", stakeID, stake.UnlocksAt.Format(time.RFC3339),
		))
	}

	entry := model.NewLedgerEntry(userID, types.EventUnstakeCompleted, stake.Amount, model.BalanceDelta{
		Available: stake.Amount,
		Staked:    stake.Amount.Neg(),
	}, now).
		WithPayload(model.PayloadStakeID, stake.ID).
		WithPayload(model.PayloadStakeTier, stake.Tier)

	err = s.db.RunInTransaction(ctx, func(ctx context.Context) error {
		// the status swap runs first so a second completion never reaches the balance
		if err := s.db.UpdateStakeStatus(
			ctx, stake.ID,
			types.QualifiedStatesForUnstakeCompletion(),
			types.StakeCompleted,
			db.WithTimestamp(now),
		); err != nil {
			return err
		}
		_, err := s.applyEntry(ctx, entry)
		return err
	})
	if err != nil {
		if db.IsNotFoundError(err) {
			err = types.NewConflictError(types.InvalidStakeState, "stake %s is already completed", stakeID)
		}
		return nil, ledgerError(ctx, opUnstakeComplete, userID, err)
	}

	stake.Status = types.StakeCompleted
	stake.Open = false
	stake.CompletedAt = &now

	log.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("stake_id", stake.ID).
		Stringer("amount", stake.Amount).
		Msg("unstake completed")
	metrics.RecordLedgerOperation(opUnstakeComplete, "ok")

	return stake, nil
}

func (s *Service) getUserStake(ctx context.Context, userID, stakeID string) (*model.StakeDocument, error) {
	stake, err := s.db.GetStakeByID(ctx, stakeID)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "stake not found")
		}
		return nil, err
	}
	// stakes of other users are reported as missing
	if stake.UserID != userID {
		return nil, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "stake not found")
	}
	return stake, nil
}

// AutonomyLevel is derived from the active stakes of a user.
type AutonomyLevel struct {
	UserID       string   `json:"user_id"`
	Level        int      `json:"level"`
	Capabilities []string `json:"capabilities"`
}

// GetAutonomyLevel counts the active stakes whose capability is unlocked.
// Unstaking stakes still hold tokens but no longer grant their capability.
func (s *Service) GetAutonomyLevel(ctx context.Context, userID string) (*AutonomyLevel, error) {
	stakes, err := s.db.GetStakesByUser(ctx, userID)
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to get stakes: %w", err))
	}

	level := &AutonomyLevel{UserID: userID, Capabilities: []string{}}
	seen := map[string]bool{}
	for _, stake := range stakes {
		if stake.Status != types.StakeActive || stake.Capability == "" {
			continue
		}
		level.Level++
		if !seen[stake.Capability] {
			seen[stake.Capability] = true
			level.Capabilities = append(level.Capabilities, stake.Capability)
		}
	}
	sort.Strings(level.Capabilities)

	return level, nil
}
