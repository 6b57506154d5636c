package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/uct-network/uct-ledger/internal/db/model"
)

func (db *Database) SaveBurnLog(ctx context.Context, burnLog *model.BurnLogDocument) error {
	_, err := db.collection(model.BurnLogCollection).InsertOne(ctx, burnLog)
	if err != nil {
		if isDuplicateKey(err) {
			return &DuplicateKeyError{
				Key:     burnLog.ID,
				Message: "burn log already exists",
			}
		}
		return err
	}
	return nil
}

func (db *Database) GetBurnLogs(ctx context.Context, userID string, limit int64) ([]model.BurnLogDocument, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := db.collection(model.BurnLogCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []model.BurnLogDocument
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}
