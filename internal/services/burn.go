package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/observability/metrics"
	"github.com/uct-network/uct-ledger/internal/types"
)

const opBurn = "burn"

// BurnContext describes the action a burn pays for. The cost is always
// computed from the rate table, never taken from the caller.
type BurnContext struct {
	Units         int64           `json:"units,omitempty"`
	BaseCost      decimal.Decimal `json:"base_cost"`
	ActionContext string          `json:"action_context,omitempty"`
}

// EstimateBurn prices a burn: flat + per-unit * units + multiplier * base cost,
// rounded up to the ledger precision.
func (s *Service) EstimateBurn(burnType string, bc BurnContext) (decimal.Decimal, error) {
	rate, ok := s.cfg.Ledger.BurnRates[strings.ToLower(burnType)]
	if !ok {
		return decimal.Zero, types.NewErrorWithMsg(
			http.StatusBadRequest, types.UnknownBurnType,
			fmt.Sprintf("unknown burn type %q", burnType),
		)
	}
	if bc.Units < 0 {
		return decimal.Zero, badRequest("units must not be negative")
	}
	if bc.BaseCost.IsNegative() {
		return decimal.Zero, badRequest("base_cost must not be negative")
	}

	cost := rate.Flat.
		Add(rate.PerUnit.Mul(decimal.NewFromInt(bc.Units))).
		Add(rate.Multiplier.Mul(bc.BaseCost))

	return cost.RoundUp(s.cfg.Ledger.Precision), nil
}

// Burn irreversibly moves the cost of an action from available to total_burned.
func (s *Service) Burn(ctx context.Context, userID, burnType string, bc BurnContext) (*model.BurnLogDocument, error) {
	burnType = strings.ToLower(burnType)
	cost, err := s.EstimateBurn(burnType, bc)
	if err != nil {
		return nil, ledgerError(ctx, opBurn, userID, err)
	}
	if !cost.IsPositive() {
		return nil, ledgerError(ctx, opBurn, userID, badRequest("burn %s costs nothing for the given context", burnType))
	}

	now := s.now()
	entry := model.NewLedgerEntry(userID, types.EventBurn, cost.Neg(), model.BalanceDelta{
		Available:   cost.Neg(),
		TotalBurned: cost,
	}, now).
		WithPayload(model.PayloadBurnType, burnType)
	burnLog := &model.BurnLogDocument{
		ID:            entry.ID,
		UserID:        userID,
		Amount:        cost,
		BurnType:      burnType,
		ActionContext: bc.ActionContext,
		Units:         bc.Units,
		BaseCost:      bc.BaseCost,
		CreatedAt:     entry.CreatedAt,
	}

	err = s.db.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.applyEntry(ctx, entry); err != nil {
			return err
		}
		return s.db.SaveBurnLog(ctx, burnLog)
	})
	if err != nil {
		return nil, ledgerError(ctx, opBurn, userID, err)
	}

	log.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("burn_type", burnType).
		Stringer("amount", cost).
		Msg("tokens burned")
	metrics.RecordLedgerOperation(opBurn, "ok")
	metrics.RecordBurnedAmount(burnType, cost)

	return burnLog, nil
}
