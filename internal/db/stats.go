package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/uct-network/uct-ledger/internal/db/model"
)

// UpsertLedgerStats updates or inserts the ledger rollup
func (db *Database) UpsertLedgerStats(ctx context.Context, stats *model.LedgerStatsDocument) error {
	filter := bson.M{"_id": model.LedgerStatsID}
	update := bson.M{
		"$set": bson.M{
			"users":                  stats.Users,
			"totals":                 stats.Totals,
			"events":                 stats.Events,
			"settlements_by_status":  stats.SettlementsByStatus,
			"mint_batches_by_status": stats.MintBatchesByStatus,
			"last_updated":           time.Now().UTC(),
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := db.collection(model.LedgerStatsCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

func (db *Database) GetLedgerStats(ctx context.Context) (*model.LedgerStatsDocument, error) {
	res := db.collection(model.LedgerStatsCollection).FindOne(ctx, bson.M{"_id": model.LedgerStatsID})

	var stats model.LedgerStatsDocument
	if err := res.Decode(&stats); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     model.LedgerStatsID,
				Message: "ledger stats not calculated yet",
			}
		}
		return nil, err
	}

	return &stats, nil
}
