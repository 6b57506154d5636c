package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/uct-network/uct-ledger/internal/db/model"
	"github.com/uct-network/uct-ledger/internal/types"
)

func (db *Database) SaveNewStake(ctx context.Context, stake *model.StakeDocument) error {
	_, err := db.collection(model.StakeCollection).InsertOne(ctx, stake)
	if err != nil {
		if isDuplicateKey(err) {
			return &DuplicateKeyError{
				Key:     stake.UserID + ":" + stake.Tier,
				Message: "open stake already exists for tier",
			}
		}
		return err
	}
	return nil
}

func (db *Database) GetStakeByID(ctx context.Context, stakeID string) (*model.StakeDocument, error) {
	res := db.collection(model.StakeCollection).FindOne(ctx, bson.M{"_id": stakeID})

	var stake model.StakeDocument
	if err := res.Decode(&stake); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     stakeID,
				Message: "stake not found",
			}
		}
		return nil, err
	}

	return &stake, nil
}

func (db *Database) GetStakesByUser(ctx context.Context, userID string) ([]model.StakeDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := db.collection(model.StakeCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stakes []model.StakeDocument
	if err := cursor.All(ctx, &stakes); err != nil {
		return nil, err
	}

	return stakes, nil
}

func (db *Database) UpdateStakeStatus(
	ctx context.Context,
	stakeID string,
	qualifiedPreviousStatuses []types.StakeStatus,
	newStatus types.StakeStatus,
	opts ...UpdateOption,
) error {
	updateOpts := buildUpdateOptions(opts)

	qualified := make([]string, len(qualifiedPreviousStatuses))
	for i, status := range qualifiedPreviousStatuses {
		qualified[i] = status.String()
	}

	filter := bson.M{
		"_id":    stakeID,
		"status": bson.M{"$in": qualified},
	}

	updateFields := bson.M{
		"status": newStatus.String(),
		"open":   newStatus.IsOpen(),
	}
	if updateOpts.UnlocksAt != nil {
		updateFields["unlocks_at"] = *updateOpts.UnlocksAt
	}
	if updateOpts.Timestamp != nil {
		switch newStatus {
		case types.StakeUnstaking:
			updateFields["unstake_requested_at"] = *updateOpts.Timestamp
		case types.StakeCompleted:
			updateFields["completed_at"] = *updateOpts.Timestamp
		}
	}

	res := db.collection(model.StakeCollection).
		FindOneAndUpdate(ctx, filter, bson.M{"$set": updateFields})
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return &NotFoundError{
				Key:     stakeID,
				Message: "stake not found or current status is not qualified",
			}
		}
		return res.Err()
	}

	return nil
}
