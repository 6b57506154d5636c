package memdb

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/types"
)

func (s *Store) SaveNewOnchainBatch(ctx context.Context, batch *model.OnchainBatchDocument) error {
	defer s.lock(ctx)()

	if _, ok := s.state.onchain[batch.ID]; ok {
		return &db.DuplicateKeyError{Key: batch.ID, Message: "onchain batch already exists"}
	}
	s.state.onchain[batch.ID] = *batch
	return nil
}

func (s *Store) GetOnchainBatchByID(ctx context.Context, batchID string) (*model.OnchainBatchDocument, error) {
	defer s.lock(ctx)()

	batch, ok := s.state.onchain[batchID]
	if !ok {
		return nil, &db.NotFoundError{Key: batchID, Message: "onchain batch not found"}
	}
	return &batch, nil
}

func (s *Store) GetOnchainBatchesByUser(ctx context.Context, userID string) ([]model.OnchainBatchDocument, error) {
	defer s.lock(ctx)()

	var batches []model.OnchainBatchDocument
	for _, batch := range s.state.onchain {
		if batch.UserID == userID {
			batches = append(batches, batch)
		}
	}
	sort.Slice(batches, func(i, j int) bool {
		if batches[i].CreatedAt.Equal(batches[j].CreatedAt) {
			return batches[i].ID < batches[j].ID
		}
		return batches[i].CreatedAt.After(batches[j].CreatedAt)
	})
	return batches, nil
}

func (s *Store) UpdateOnchainBatchStatus(
	ctx context.Context,
	batchID string,
	qualifiedPreviousStatuses []types.BatchStatus,
	newStatus types.BatchStatus,
	opts ...db.UpdateOption,
) error {
	defer s.lock(ctx)()

	batch, ok := s.state.onchain[batchID]
	if !ok || !slices.Contains(qualifiedPreviousStatuses, batch.Status) {
		return &db.NotFoundError{
			Key:     batchID,
			Message: "onchain batch not found or current status is not qualified",
		}
	}

	updateOpts := buildUpdateOptions(opts)
	batch.Status = newStatus
	setBatchTimestamp(newStatus, updateOpts, &batch.SubmittedAt, &batch.ConfirmedAt, &batch.FailedAt)
	if updateOpts.TxHash != nil {
		batch.TxHash = *updateOpts.TxHash
	}
	if updateOpts.FailureReason != nil {
		batch.FailureReason = *updateOpts.FailureReason
	}
	if updateOpts.Refunded {
		batch.Refunded = true
	}

	s.state.onchain[batchID] = batch
	return nil
}

func (s *Store) FindStaleOnchainBatches(
	ctx context.Context, statuses []types.BatchStatus, olderThan time.Time, limit int64,
) ([]model.OnchainBatchDocument, error) {
	defer s.lock(ctx)()

	var batches []model.OnchainBatchDocument
	for _, batch := range s.state.onchain {
		if slices.Contains(statuses, batch.Status) && batch.CreatedAt.Before(olderThan) {
			batches = append(batches, batch)
		}
	}
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].CreatedAt.Before(batches[j].CreatedAt)
	})
	if limit > 0 && int64(len(batches)) > limit {
		batches = batches[:limit]
	}
	return batches, nil
}

func setBatchTimestamp(
	newStatus types.BatchStatus, updateOpts *db.UpdateOptions, submittedAt, confirmedAt, failedAt **time.Time,
) {
	if updateOpts.Timestamp == nil {
		return
	}
	switch newStatus {
	case types.BatchSubmitted:
		*submittedAt = updateOpts.Timestamp
	case types.BatchConfirmed:
		*confirmedAt = updateOpts.Timestamp
	case types.BatchFailed:
		*failedAt = updateOpts.Timestamp
	}
}
