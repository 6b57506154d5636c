package memdb

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/types"
)

func (s *Store) SaveNewMintBatch(ctx context.Context, batch *model.MintBatchDocument) error {
	defer s.lock(ctx)()

	if _, ok := s.state.mintBatches[batch.ID]; ok {
		return &db.DuplicateKeyError{Key: batch.ID, Message: "mint batch already exists"}
	}
	stored := *batch
	stored.Items = slices.Clone(batch.Items)
	s.state.mintBatches[batch.ID] = stored
	return nil
}

func (s *Store) GetMintBatchByID(ctx context.Context, batchID string) (*model.MintBatchDocument, error) {
	defer s.lock(ctx)()

	batch, ok := s.state.mintBatches[batchID]
	if !ok {
		return nil, &db.NotFoundError{Key: batchID, Message: "mint batch not found"}
	}
	batch.Items = slices.Clone(batch.Items)
	return &batch, nil
}

func (s *Store) UpdateMintBatchStatus(
	ctx context.Context,
	batchID string,
	qualifiedPreviousStatuses []types.BatchStatus,
	newStatus types.BatchStatus,
	opts ...db.UpdateOption,
) error {
	defer s.lock(ctx)()

	batch, ok := s.state.mintBatches[batchID]
	if !ok || !slices.Contains(qualifiedPreviousStatuses, batch.Status) {
		return &db.NotFoundError{
			Key:     batchID,
			Message: "mint batch not found or current status is not qualified",
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
	if updateOpts.WalletsProcessed != nil {
		batch.WalletsProcessed = *updateOpts.WalletsProcessed
	}

	s.state.mintBatches[batchID] = batch
	return nil
}

func (s *Store) MarkMintBatchItemApplied(
	ctx context.Context, batchID, userID string, shortfall decimal.Decimal,
) error {
	defer s.lock(ctx)()

	notFound := &db.NotFoundError{
		Key:     batchID + ":" + userID,
		Message: "mint batch item not found or already applied",
	}

	batch, ok := s.state.mintBatches[batchID]
	if !ok || batch.Status != types.BatchConfirmed {
		return notFound
	}

	idx := slices.IndexFunc(batch.Items, func(item model.MintBatchItem) bool {
		return item.UserID == userID && !item.Applied
	})
	if idx < 0 {
		return notFound
	}

	// copy on write, the previous slice may be shared with a transaction snapshot
	batch.Items = slices.Clone(batch.Items)
	batch.Items[idx].Applied = true
	batch.Items[idx].Shortfall = shortfall

	s.state.mintBatches[batchID] = batch
	return nil
}

func (s *Store) FindMintBatchesWithUnappliedItems(ctx context.Context) ([]model.MintBatchDocument, error) {
	defer s.lock(ctx)()

	return s.findMintBatches(func(batch model.MintBatchDocument) bool {
		return batch.Status == types.BatchConfirmed && len(batch.UnappliedItems()) > 0
	}, 0), nil
}

func (s *Store) FindStaleMintBatches(
	ctx context.Context, statuses []types.BatchStatus, olderThan time.Time, limit int64,
) ([]model.MintBatchDocument, error) {
	defer s.lock(ctx)()

	return s.findMintBatches(func(batch model.MintBatchDocument) bool {
		return slices.Contains(statuses, batch.Status) && batch.CreatedAt.Before(olderThan)
	}, limit), nil
}

func (s *Store) findMintBatches(match func(model.MintBatchDocument) bool, limit int64) []model.MintBatchDocument {
	var batches []model.MintBatchDocument
	for _, batch := range s.state.mintBatches {
		if match(batch) {
			batch.Items = slices.Clone(batch.Items)
			batches = append(batches, batch)
		}
	}
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].CreatedAt.Before(batches[j].CreatedAt)
	})
	if limit > 0 && int64(len(batches)) > limit {
		batches = batches[:limit]
	}
	return batches
}
