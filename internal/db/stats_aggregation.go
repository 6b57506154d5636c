package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/uct-network/uct-ledger/internal/db/model"
)

// CalculateLedgerStats calculates the rollup using MongoDB aggregation pipelines
// instead of loading balances and entries into memory
func (db *Database) CalculateLedgerStats(ctx context.Context) (*model.LedgerStatsDocument, error) {
	stats := &model.LedgerStatsDocument{
		ID:                  model.LedgerStatsID,
		Events:              map[string]model.EventTotal{},
		SettlementsByStatus: map[string]int64{},
		MintBatchesByStatus: map[string]int64{},
	}

	// Totals over every balance bucket
	group := bson.M{
		"_id":   nil,
		"users": bson.M{"$sum": 1},
	}
	for field := range (model.BalanceDelta{}).Fields() {
		group[field] = decimalSum("$" + field)
	}

	cursor, err := db.collection(model.BalanceCollection).Aggregate(ctx, bson.A{bson.M{"$group": group}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if cursor.Next(ctx) {
		var result struct {
			Users              int64 `bson:"users"`
			model.BalanceDelta `bson:",inline"`
		}
		if err := cursor.Decode(&result); err != nil {
			return nil, err
		}
		stats.Users = result.Users
		stats.Totals = result.BalanceDelta
	}

	// Per event type count and headline amount
	eventCursor, err := db.collection(model.LedgerEntryCollection).Aggregate(ctx, bson.A{
		bson.M{"$group": bson.M{
			"_id":    "$event_type",
			"count":  bson.M{"$sum": 1},
			"amount": decimalSum("$amount"),
		}},
	})
	if err != nil {
		return nil, err
	}
	defer eventCursor.Close(ctx)

	var events []struct {
		EventType        string `bson:"_id"`
		model.EventTotal `bson:",inline"`
	}
	if err := eventCursor.All(ctx, &events); err != nil {
		return nil, err
	}
	for _, e := range events {
		stats.Events[e.EventType] = e.EventTotal
	}

	if stats.SettlementsByStatus, err = db.countByStatus(ctx, model.OnchainBatchCollection); err != nil {
		return nil, err
	}
	if stats.MintBatchesByStatus, err = db.countByStatus(ctx, model.MintBatchCollection); err != nil {
		return nil, err
	}

	return stats, nil
}

func (db *Database) countByStatus(ctx context.Context, collection string) (map[string]int64, error) {
	cursor, err := db.collection(collection).Aggregate(ctx, bson.A{
		bson.M{"$group": bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
