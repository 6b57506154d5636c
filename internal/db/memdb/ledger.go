package memdb

import (
	"context"
	"sort"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
)

func (s *Store) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntryDocument) error {
	defer s.lock(ctx)()

	for _, existing := range s.state.entries {
		if existing.ID == entry.ID {
			return &db.DuplicateKeyError{Key: entry.ID, Message: "ledger entry already exists"}
		}
		if entry.CorrelationID != "" && existing.CorrelationID == entry.CorrelationID {
			return &db.DuplicateKeyError{Key: entry.CorrelationID, Message: "ledger entry already exists"}
		}
	}

	s.state.entries = append(s.state.entries, *entry)
	return nil
}

func (s *Store) GetLedgerEntryByCorrelationID(
	ctx context.Context, correlationID string,
) (*model.LedgerEntryDocument, error) {
	defer s.lock(ctx)()

	for _, entry := range s.state.entries {
		if entry.CorrelationID == correlationID {
			return &entry, nil
		}
	}
	return nil, &db.NotFoundError{Key: correlationID, Message: "ledger entry not found"}
}

func (s *Store) GetLedgerEntries(
	ctx context.Context, userID string, limit int64,
) ([]model.LedgerEntryDocument, error) {
	defer s.lock(ctx)()

	var entries []model.LedgerEntryDocument
	for i := len(s.state.entries) - 1; i >= 0; i-- {
		if entry := s.state.entries[i]; entry.UserID == userID {
			entries = append(entries, entry)
		}
	}
	// newest first, later inserts first on equal timestamps
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && int64(len(entries)) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) SumLedgerDeltas(ctx context.Context, userID string) (model.BalanceDelta, error) {
	defer s.lock(ctx)()

	var sum model.BalanceDelta
	for _, entry := range s.state.entries {
		if entry.UserID == userID {
			sum = sum.Add(entry.Deltas)
		}
	}
	return sum, nil
}
