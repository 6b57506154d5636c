package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/types"
)

func (db *Database) SaveNewOnchainBatch(ctx context.Context, batch *model.OnchainBatchDocument) error {
	_, err := db.collection(model.OnchainBatchCollection).InsertOne(ctx, batch)
	if err != nil {
		if isDuplicateKey(err) {
			return &DuplicateKeyError{
				Key:     batch.ID,
				Message: "onchain batch already exists",
			}
		}
		return err
	}
	return nil
}

func (db *Database) GetOnchainBatchByID(ctx context.Context, batchID string) (*model.OnchainBatchDocument, error) {
	res := db.collection(model.OnchainBatchCollection).FindOne(ctx, bson.M{"_id": batchID})

	var batch model.OnchainBatchDocument
	if err := res.Decode(&batch); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     batchID,
				Message: "onchain batch not found",
			}
		}
		return nil, err
	}

	return &batch, nil
}

func (db *Database) GetOnchainBatchesByUser(ctx context.Context, userID string) ([]model.OnchainBatchDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := db.collection(model.OnchainBatchCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var batches []model.OnchainBatchDocument
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, err
	}

	return batches, nil
}

func (db *Database) UpdateOnchainBatchStatus(
	ctx context.Context,
	batchID string,
	qualifiedPreviousStatuses []types.BatchStatus,
	newStatus types.BatchStatus,
	opts ...UpdateOption,
) error {
	filter := bson.M{
		"_id":    batchID,
		"status": bson.M{"$in": batchStatusStrings(qualifiedPreviousStatuses)},
	}

	res := db.collection(model.OnchainBatchCollection).
		FindOneAndUpdate(ctx, filter, batchStatusUpdate(newStatus, opts))
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return &NotFoundError{
				Key:     batchID,
				Message: "onchain batch not found or current status is not qualified",
			}
		}
		return res.Err()
	}

	return nil
}

func (db *Database) FindStaleOnchainBatches(
	ctx context.Context, statuses []types.BatchStatus, olderThan time.Time, limit int64,
) ([]model.OnchainBatchDocument, error) {
	filter := bson.M{
		"status":     bson.M{"$in": batchStatusStrings(statuses)},
		"created_at": bson.M{"$lt": olderThan.UTC()},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)

	cursor, err := db.collection(model.OnchainBatchCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var batches []model.OnchainBatchDocument
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, err
	}

	return batches, nil
}

func batchStatusStrings(statuses []types.BatchStatus) []string {
	result := make([]string, len(statuses))
	for i, status := range statuses {
		result[i] = status.String()
	}
	return result
}

// batchStatusUpdate builds the $set shared by settlement and mint batches
func batchStatusUpdate(newStatus types.BatchStatus, opts []UpdateOption) bson.M {
	updateOpts := buildUpdateOptions(opts)

	updateFields := bson.M{
		"status": newStatus.String(),
	}
	if updateOpts.Timestamp != nil {
		switch newStatus {
		case types.BatchSubmitted:
			updateFields["submitted_at"] = *updateOpts.Timestamp
		case types.BatchConfirmed:
			updateFields["confirmed_at"] = *updateOpts.Timestamp
		case types.BatchFailed:
			updateFields["failed_at"] = *updateOpts.Timestamp
		}
	}
	if updateOpts.TxHash != nil {
		updateFields["tx_hash"] = *updateOpts.TxHash
	}
	if updateOpts.FailureReason != nil {
		updateFields["failure_reason"] = *updateOpts.FailureReason
	}
	if updateOpts.Refunded {
		updateFields["refunded"] = true
	}
	if updateOpts.WalletsProcessed != nil {
		updateFields["wallets_processed"] = *updateOpts.WalletsProcessed
	}

	return bson.M{"$set": updateFields}
}
