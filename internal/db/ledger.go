package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/uct-network/uct-ledger/internal/db/model"
)

func (db *Database) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntryDocument) error {
	_, err := db.collection(model.LedgerEntryCollection).InsertOne(ctx, entry)
	if err != nil {
		if isDuplicateKey(err) {
			return &DuplicateKeyError{
				Key:     entry.CorrelationID,
				Message: "ledger entry already exists",
			}
		}
		return err
	}
	return nil
}

func (db *Database) GetLedgerEntryByCorrelationID(
	ctx context.Context, correlationID string,
) (*model.LedgerEntryDocument, error) {
	res := db.collection(model.LedgerEntryCollection).
		FindOne(ctx, bson.M{"correlation_id": correlationID})

	var entry model.LedgerEntryDocument
	if err := res.Decode(&entry); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     correlationID,
				Message: "ledger entry not found",
			}
		}
		return nil, err
	}

	return &entry, nil
}

func (db *Database) GetLedgerEntries(
	ctx context.Context, userID string, limit int64,
) ([]model.LedgerEntryDocument, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := db.collection(model.LedgerEntryCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []model.LedgerEntryDocument
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

// SumLedgerDeltas uses an aggregation pipeline so the entries never leave the server
func (db *Database) SumLedgerDeltas(ctx context.Context, userID string) (model.BalanceDelta, error) {
	group := bson.M{"_id": nil}
	for field := range (model.BalanceDelta{}).Fields() {
		group[field] = decimalSum("$deltas." + field)
	}

	pipeline := bson.A{
		bson.M{"$match": bson.M{"user_id": userID}},
		bson.M{"$group": group},
	}

	cursor, err := db.collection(model.LedgerEntryCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return model.BalanceDelta{}, err
	}
	defer cursor.Close(ctx)

	var sum model.BalanceDelta
	if cursor.Next(ctx) {
		if err := cursor.Decode(&sum); err != nil {
			return model.BalanceDelta{}, err
		}
	}
	if err := cursor.Err(); err != nil {
		return model.BalanceDelta{}, err
	}

	return sum, nil
}

// decimalSum is used by the stats aggregation to keep $sum in Decimal128
func decimalSum(path string) bson.M {
	zero, _ := primitive.ParseDecimal128("0")
	return bson.M{"$sum": bson.M{"$ifNull": bson.A{path, zero}}}
}
