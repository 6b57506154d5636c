package memdb

import (
	"context"
	"sort"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
)

func (s *Store) SaveBurnLog(ctx context.Context, burnLog *model.BurnLogDocument) error {
	defer s.lock(ctx)()

	for _, existing := range s.state.burnLogs {
		if existing.ID == burnLog.ID {
			return &db.DuplicateKeyError{Key: burnLog.ID, Message: "burn log already exists"}
		}
	}
	s.state.burnLogs = append(s.state.burnLogs, *burnLog)
	return nil
}

func (s *Store) GetBurnLogs(ctx context.Context, userID string, limit int64) ([]model.BurnLogDocument, error) {
	defer s.lock(ctx)()

	var logs []model.BurnLogDocument
	for i := len(s.state.burnLogs) - 1; i >= 0; i-- {
		if burnLog := s.state.burnLogs[i]; burnLog.UserID == userID {
			logs = append(logs, burnLog)
		}
	}
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	if limit > 0 && int64(len(logs)) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
