package db

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/types"
)

func (db *Database) SaveNewMintBatch(ctx context.Context, batch *model.MintBatchDocument) error {
	_, err := db.collection(model.MintBatchCollection).InsertOne(ctx, batch)
	if err != nil {
		if isDuplicateKey(err) {
			return &DuplicateKeyError{
				Key:     batch.ID,
				Message: "mint batch already exists",
			}
		}
		return err
	}
	return nil
}

func (db *Database) GetMintBatchByID(ctx context.Context, batchID string) (*model.MintBatchDocument, error) {
	res := db.collection(model.MintBatchCollection).FindOne(ctx, bson.M{"_id": batchID})

	var batch model.MintBatchDocument
	if err := res.Decode(&batch); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     batchID,
				Message: "mint batch not found",
			}
		}
		return nil, err
	}

	return &batch, nil
}

func (db *Database) UpdateMintBatchStatus(
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

	res := db.collection(model.MintBatchCollection).
		FindOneAndUpdate(ctx, filter, batchStatusUpdate(newStatus, opts))
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return &NotFoundError{
				Key:     batchID,
				Message: "mint batch not found or current status is not qualified",
			}
		}
		return res.Err()
	}

	return nil
}

func (db *Database) MarkMintBatchItemApplied(
	ctx context.Context, batchID, userID string, shortfall decimal.Decimal,
) error {
	shortfallDec, err := ToDecimal128(shortfall)
	if err != nil {
		return err
	}

	filter := bson.M{
		"_id":    batchID,
		"status": types.BatchConfirmed.String(),
		"items": bson.M{"$elemMatch": bson.M{
			"user_id": userID,
			"applied": false,
		}},
	}
	update := bson.M{
		"$set": bson.M{
			"items.$.applied":   true,
			"items.$.shortfall": shortfallDec,
		},
	}

	res, err := db.collection(model.MintBatchCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &NotFoundError{
			Key:     batchID + ":" + userID,
			Message: "mint batch item not found or already applied",
		}
	}

	return nil
}

func (db *Database) FindMintBatchesWithUnappliedItems(ctx context.Context) ([]model.MintBatchDocument, error) {
	filter := bson.M{
		"status":        types.BatchConfirmed.String(),
		"items.applied": false,
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	return db.findMintBatches(ctx, filter, opts)
}

func (db *Database) FindStaleMintBatches(
	ctx context.Context, statuses []types.BatchStatus, olderThan time.Time, limit int64,
) ([]model.MintBatchDocument, error) {
	filter := bson.M{
		"status":     bson.M{"$in": batchStatusStrings(statuses)},
		"created_at": bson.M{"$lt": olderThan.UTC()},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)

	return db.findMintBatches(ctx, filter, opts)
}

func (db *Database) findMintBatches(
	ctx context.Context, filter bson.M, opts *options.FindOptions,
) ([]model.MintBatchDocument, error) {
	cursor, err := db.collection(model.MintBatchCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var batches []model.MintBatchDocument
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, err
	}

	return batches, nil
}
