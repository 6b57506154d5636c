package memdb

import (
	"context"
	"slices"
	"sort"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/types"
)

func (s *Store) SaveNewStake(ctx context.Context, stake *model.StakeDocument) error {
	defer s.lock(ctx)()

	if _, ok := s.state.stakes[stake.ID]; ok {
		return &db.DuplicateKeyError{Key: stake.ID, Message: "stake already exists"}
	}
	for _, existing := range s.state.stakes {
		if existing.Open && stake.Open && existing.UserID == stake.UserID && existing.Tier == stake.Tier {
			return &db.DuplicateKeyError{
				Key:     stake.UserID + ":" + stake.Tier,
				Message: "open stake already exists for tier",
			}
		}
	}

	s.state.stakes[stake.ID] = *stake
	return nil
}

func (s *Store) GetStakeByID(ctx context.Context, stakeID string) (*model.StakeDocument, error) {
	defer s.lock(ctx)()

	stake, ok := s.state.stakes[stakeID]
	if !ok {
		return nil, &db.NotFoundError{Key: stakeID, Message: "stake not found"}
	}
	return &stake, nil
}

func (s *Store) GetStakesByUser(ctx context.Context, userID string) ([]model.StakeDocument, error) {
	defer s.lock(ctx)()

	var stakes []model.StakeDocument
	for _, stake := range s.state.stakes {
		if stake.UserID == userID {
			stakes = append(stakes, stake)
		}
	}
	sort.Slice(stakes, func(i, j int) bool {
		if stakes[i].CreatedAt.Equal(stakes[j].CreatedAt) {
			return stakes[i].ID < stakes[j].ID
		}
		return stakes[i].CreatedAt.After(stakes[j].CreatedAt)
	})
	return stakes, nil
}

func (s *Store) UpdateStakeStatus(
	ctx context.Context,
	stakeID string,
	qualifiedPreviousStatuses []types.StakeStatus,
	newStatus types.StakeStatus,
	opts ...db.UpdateOption,
) error {
	defer s.lock(ctx)()

	stake, ok := s.state.stakes[stakeID]
	if !ok || !slices.Contains(qualifiedPreviousStatuses, stake.Status) {
		return &db.NotFoundError{
			Key:     stakeID,
			Message: "stake not found or current status is not qualified",
		}
	}

	updateOpts := buildUpdateOptions(opts)
	stake.Status = newStatus
	stake.Open = newStatus.IsOpen()
	if updateOpts.UnlocksAt != nil {
		stake.UnlocksAt = updateOpts.UnlocksAt
	}
	if updateOpts.Timestamp != nil {
		switch newStatus {
		case types.StakeUnstaking:
			stake.UnstakeRequestedAt = updateOpts.Timestamp
		case types.StakeCompleted:
			stake.CompletedAt = updateOpts.Timestamp
		}
	}

	s.state.stakes[stakeID] = stake
	return nil
}

func buildUpdateOptions(opts []db.UpdateOption) *db.UpdateOptions {
	updateOpts := &db.UpdateOptions{}
	for _, opt := range opts {
		opt(updateOpts)
	}
	return updateOpts
}
