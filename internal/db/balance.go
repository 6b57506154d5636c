package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/uct-network/uct-ledger/internal/db/model"
)

func (db *Database) GetBalance(ctx context.Context, userID string) (*model.BalanceDocument, error) {
	res := db.collection(model.BalanceCollection).FindOne(ctx, bson.M{"_id": userID})

	var balance model.BalanceDocument
	if err := res.Decode(&balance); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     userID,
				Message: "balance not found",
			}
		}
		return nil, err
	}

	return &balance, nil
}

func (db *Database) AdjustBalance(
	ctx context.Context, userID string, delta model.BalanceDelta, now time.Time,
) (*model.BalanceDocument, error) {
	if err := delta.Validate(); err != nil {
		return nil, err
	}

	filter := bson.M{"_id": userID}
	inc := bson.M{"version": int64(1)}
	for field, value := range delta.Fields() {
		dec, err := ToDecimal128(value)
		if err != nil {
			return nil, err
		}
		inc[field] = dec

		// the debit only applies if the bucket still covers it
		if value.IsNegative() {
			required, err := ToDecimal128(value.Neg())
			if err != nil {
				return nil, err
			}
			filter[field] = bson.M{"$gte": required}
		}
	}

	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"updated_at": now.UTC()},
	}
	// a missing balance is a zero balance, it can be created by credits only
	opts := options.FindOneAndUpdate().
		SetUpsert(!delta.HasDebit()).
		SetReturnDocument(options.After)

	balance, err := db.findOneAndUpdateBalance(ctx, filter, update, opts)
	if isDuplicateKey(err) && mongo.SessionFromContext(ctx) == nil {
		// two first credits raced on the upsert, the document exists now
		balance, err = db.findOneAndUpdateBalance(ctx, filter, update, opts)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &InsufficientBalanceError{
				UserID:  userID,
				Message: fmt.Sprintf("balance of %s does not cover the requested debit", userID),
			}
		}
		return nil, err
	}

	return balance, nil
}

func (db *Database) findOneAndUpdateBalance(
	ctx context.Context, filter, update bson.M, opts *options.FindOneAndUpdateOptions,
) (*model.BalanceDocument, error) {
	res := db.collection(model.BalanceCollection).FindOneAndUpdate(ctx, filter, update, opts)

	var balance model.BalanceDocument
	if err := res.Decode(&balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

func (db *Database) ListBalances(ctx context.Context, afterUserID string, limit int64) ([]model.BalanceDocument, error) {
	return db.findBalances(ctx, bson.M{}, afterUserID, limit)
}

func (db *Database) FindPositiveBalances(
	ctx context.Context, afterUserID string, limit int64,
) ([]model.BalanceDocument, error) {
	zero, err := ToDecimal128(decimal.Zero)
	if err != nil {
		return nil, err
	}
	return db.findBalances(ctx, bson.M{"available": bson.M{"$gt": zero}}, afterUserID, limit)
}

func (db *Database) findBalances(
	ctx context.Context, filter bson.M, afterUserID string, limit int64,
) ([]model.BalanceDocument, error) {
	if afterUserID != "" {
		filter["_id"] = bson.M{"$gt": afterUserID}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(limit)

	cursor, err := db.collection(model.BalanceCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var balances []model.BalanceDocument
	if err := cursor.All(ctx, &balances); err != nil {
		return nil, err
	}

	return balances, nil
}
