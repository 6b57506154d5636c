package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/config"
	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/observability/metrics"
	"github.com/uct-network/uct-ledger/internal/types"
)

const opReward = "reward"

// ActivityEvent is an activity reported by the application layers. LedgerID
// correlates it with the upstream event so that replays are not credited twice.
type ActivityEvent struct {
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
	LedgerID  string         `json:"ledger_id,omitempty"`
}

type RewardResult struct {
	TotalReward decimal.Decimal         `json:"total_reward"`
	Breakdown   []string                `json:"breakdown"`
	Destination types.RewardDestination `json:"destination,omitempty"`
	// Replayed is true when the event was already credited under the same ledger id
	Replayed bool `json:"replayed"`
}

// ComputeAndApplyReward converts an activity event into UCT and credits it to
// the destination bucket of the event type together with lifetime_earned.
func (s *Service) ComputeAndApplyReward(ctx context.Context, event ActivityEvent) (*RewardResult, error) {
	if event.UserID == "" {
		return nil, badRequest("user_id is required")
	}

	eventType := strings.ToLower(event.EventType)
	rule, ok := s.cfg.Ledger.Rewards[eventType]
	if !ok {
		metrics.RecordLedgerOperation(opReward, types.UnknownEventType.String())
		return nil, types.NewErrorWithMsg(
			http.StatusBadRequest, types.UnknownEventType,
			fmt.Sprintf("unknown activity event type %q", event.EventType),
		)
	}

	if event.LedgerID != "" {
		prior, err := s.db.GetLedgerEntryByCorrelationID(ctx, event.LedgerID)
		if err == nil {
			return replayedReward(prior), nil
		}
		if !db.IsNotFoundError(err) {
			return nil, ledgerError(ctx, opReward, event.UserID, err)
		}
	}

	amount, breakdown, err := computeReward(rule, event.Payload)
	if err != nil {
		return nil, badRequest("invalid payload for %s: %v", eventType, err)
	}
	amount = s.truncate(amount)
	if amount.IsZero() {
		metrics.RecordLedgerOperation(opReward, "zero")
		return &RewardResult{TotalReward: amount, Breakdown: breakdown, Destination: rule.Destination}, nil
	}

	delta := model.BalanceDelta{LifetimeEarned: amount}
	if rule.Destination == types.DestinationPending {
		delta.Pending = amount
	} else {
		delta.Available = amount
	}

	entry := model.NewLedgerEntry(event.UserID, types.EventEarn, amount, delta, s.now()).
		WithPayload(model.PayloadActivityType, eventType)
	entry.CorrelationID = event.LedgerID
	entry.Breakdown = breakdown

	if _, err := s.postEntry(ctx, entry); err != nil {
		// a concurrent replay inserted the correlation id first, our credit was rolled back
		if event.LedgerID != "" && db.IsDuplicateKeyError(err) {
			prior, err := s.db.GetLedgerEntryByCorrelationID(ctx, event.LedgerID)
			if err != nil {
				return nil, ledgerError(ctx, opReward, event.UserID, err)
			}
			return replayedReward(prior), nil
		}
		return nil, ledgerError(ctx, opReward, event.UserID, err)
	}

	log.Ctx(ctx).Debug().
		Str("user_id", event.UserID).
		Str("event_type", eventType).
		Stringer("amount", amount).
		Stringer("destination", rule.Destination).
		Msg("reward credited")
	metrics.RecordLedgerOperation(opReward, "ok")

	return &RewardResult{TotalReward: amount, Breakdown: breakdown, Destination: rule.Destination}, nil
}

func replayedReward(entry *model.LedgerEntryDocument) *RewardResult {
	destination := types.DestinationAvailable
	if entry.Deltas.Pending.IsPositive() {
		destination = types.DestinationPending
	}
	metrics.RecordLedgerOperation(opReward, "replayed")
	return &RewardResult{
		TotalReward: entry.Amount,
		Breakdown:   entry.Breakdown,
		Destination: destination,
		Replayed:    true,
	}
}

// computeReward evaluates base + sum(payload[field] * rate), capped at max when max > 0.
func computeReward(rule config.RewardRule, payload map[string]any) (decimal.Decimal, []string, error) {
	total := rule.Base
	breakdown := []string{}
	if rule.Base.IsPositive() {
		breakdown = append(breakdown, fmt.Sprintf("base: %s", rule.Base))
	}

	fields := make([]string, 0, len(rule.PerUnit))
	for field := range rule.PerUnit {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		raw, ok := payload[field]
		if !ok {
			continue
		}
		units, err := payloadNumber(raw)
		if err != nil {
			return decimal.Zero, nil, fmt.Errorf("%s: %w", field, err)
		}
		if units.IsNegative() {
			return decimal.Zero, nil, fmt.Errorf("%s must not be negative", field)
		}
		if units.IsZero() {
			continue
		}
		rate := rule.PerUnit[field]
		part := units.Mul(rate)
		total = total.Add(part)
		breakdown = append(breakdown, fmt.Sprintf("%s: %s x %s = %s", field, units, rate, part))
	}

	if rule.Max.IsPositive() && total.GreaterThan(rule.Max) {
		total = rule.Max
		breakdown = append(breakdown, fmt.Sprintf("capped at %s", rule.Max))
	}

	return total, breakdown, nil
}

func payloadNumber(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(n)
	case decimal.Decimal:
		return n, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported value %v", v)
	}
}
