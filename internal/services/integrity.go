package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/observability/metrics"
	"github.com/uct-network/uct-ledger/internal/types"
)

const verifyPageSize = 500

// IntegrityReport compares the balance aggregate of a user with the sum of
// the deltas recorded in the ledger.
type IntegrityReport struct {
	UserID     string             `json:"user_id"`
	Consistent bool               `json:"consistent"`
	Aggregate  model.BalanceDelta `json:"aggregate"`
	Ledger     model.BalanceDelta `json:"ledger"`
	// Unaccounted is lifetime_earned minus every bucket, non zero while a
	// settlement is in flight
	Unaccounted decimal.Decimal `json:"unaccounted"`
}

// VerifyLedger audits one user. A mismatch raises an alarm and is reported,
// it is never corrected here.
func (s *Service) VerifyLedger(ctx context.Context, userID string) (*IntegrityReport, error) {
	ledger, err := s.db.SumLedgerDeltas(ctx, userID)
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to sum ledger of %s: %w", userID, err))
	}

	balance, err := s.db.GetBalance(ctx, userID)
	if err != nil {
		if !db.IsNotFoundError(err) {
			return nil, types.NewInternalServiceError(fmt.Errorf("failed to get balance of %s: %w", userID, err))
		}
		balance = model.NewBalanceDocument(userID)
	}

	return s.compareWithLedger(ctx, balance, ledger), nil
}

func (s *Service) compareWithLedger(
	ctx context.Context, balance *model.BalanceDocument, ledger model.BalanceDelta,
) *IntegrityReport {
	report := &IntegrityReport{
		UserID:      balance.UserID,
		Aggregate:   balance.AsDelta(),
		Ledger:      ledger,
		Unaccounted: balance.Unaccounted(),
	}
	report.Consistent = report.Aggregate.Equal(ledger) && balance.IsNonNegative()

	if !report.Consistent {
		metrics.IncIntegrityAlarm("ledger_mismatch")
		log.Ctx(ctx).Error().
			Str("alarm", "ledger_integrity").
			Str("user_id", balance.UserID).
			Interface("aggregate", report.Aggregate).
			Interface("ledger", ledger).
			Msg("balance aggregate disagrees with the ledger")
	}
	return report
}

// VerifyAll audits every user with a balance aggregate and returns the
// inconsistent ones together with the number of users checked.
func (s *Service) VerifyAll(ctx context.Context) ([]IntegrityReport, int, error) {
	var (
		mismatches []IntegrityReport
		checked    int
		after      string
	)

	for {
		balances, err := s.db.ListBalances(ctx, after, verifyPageSize)
		if err != nil {
			return nil, checked, fmt.Errorf("failed to list balances: %w", err)
		}
		if len(balances) == 0 {
			break
		}

		for i := range balances {
			ledger, err := s.db.SumLedgerDeltas(ctx, balances[i].UserID)
			if err != nil {
				return nil, checked, fmt.Errorf("failed to sum ledger of %s: %w", balances[i].UserID, err)
			}
			checked++
			if report := s.compareWithLedger(ctx, &balances[i], ledger); !report.Consistent {
				mismatches = append(mismatches, *report)
			}
		}

		after = balances[len(balances)-1].UserID
		if len(balances) < verifyPageSize {
			break
		}
	}

	log.Ctx(ctx).Info().
		Int("checked", checked).
		Int("mismatches", len(mismatches)).
		Msg("ledger verification finished")

	return mismatches, checked, nil
}
