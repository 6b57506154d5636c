package memdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
)

func (s *Store) GetBalance(ctx context.Context, userID string) (*model.BalanceDocument, error) {
	defer s.lock(ctx)()

	balance, ok := s.state.balances[userID]
	if !ok {
		return nil, &db.NotFoundError{Key: userID, Message: "balance not found"}
	}
	return &balance, nil
}

func (s *Store) AdjustBalance(
	ctx context.Context, userID string, delta model.BalanceDelta, now time.Time,
) (*model.BalanceDocument, error) {
	if err := delta.Validate(); err != nil {
		return nil, err
	}

	defer s.lock(ctx)()

	current, ok := s.state.balances[userID]
	if !ok {
		current = *model.NewBalanceDocument(userID)
	}

	next := current.Apply(delta)
	if !next.IsNonNegative() {
		return nil, &db.InsufficientBalanceError{
			UserID:  userID,
			Message: fmt.Sprintf("balance of %s does not cover the requested debit", userID),
		}
	}
	next.Version++
	next.UpdatedAt = now.UTC()

	s.state.balances[userID] = next
	return &next, nil
}

func (s *Store) ListBalances(ctx context.Context, afterUserID string, limit int64) ([]model.BalanceDocument, error) {
	defer s.lock(ctx)()

	return s.pageBalances(afterUserID, limit, func(model.BalanceDocument) bool { return true }), nil
}

func (s *Store) FindPositiveBalances(
	ctx context.Context, afterUserID string, limit int64,
) ([]model.BalanceDocument, error) {
	defer s.lock(ctx)()

	return s.pageBalances(afterUserID, limit, func(b model.BalanceDocument) bool {
		return b.Available.IsPositive()
	}), nil
}

func (s *Store) pageBalances(
	afterUserID string, limit int64, match func(model.BalanceDocument) bool,
) []model.BalanceDocument {
	ids := make([]string, 0, len(s.state.balances))
	for id := range s.state.balances {
		if id > afterUserID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var result []model.BalanceDocument
	for _, id := range ids {
		if limit > 0 && int64(len(result)) >= limit {
			break
		}
		if b := s.state.balances[id]; match(b) {
			result = append(result, b)
		}
	}
	return result
}
