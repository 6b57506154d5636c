package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/uct-network/uct-ledger/internal/db/model"
)

// RecordRateLimitHit checks and records in a single update: the filter only
// matches while the window holds fewer than limit recent hits, and the upsert
// of a non matching existing counter fails with a duplicate key.
func (db *Database) RecordRateLimitHit(
	ctx context.Context, key string, now time.Time, window time.Duration, limit int,
) error {
	now = now.UTC()
	cutoff := now.Add(-window)

	recentHits := bson.M{"$filter": bson.M{
		"input": bson.M{"$ifNull": bson.A{"$hits", bson.A{}}},
		"as":    "hit",
		"cond":  bson.M{"$gt": bson.A{"$$hit", cutoff}},
	}}

	filter := bson.M{
		"_id": key,
		"$expr": bson.M{
			"$lt": bson.A{bson.M{"$size": recentHits}, limit},
		},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"hits":       bson.M{"$concatArrays": bson.A{recentHits, bson.A{now}}},
			"expires_at": now.Add(window),
		}}},
	}

	_, err := db.collection(model.RateLimitCollection).
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if isDuplicateKey(err) {
			return &RateLimitExceededError{
				Key:     key,
				Message: fmt.Sprintf("more than %d requests within %s", limit, window),
			}
		}
		return err
	}

	return nil
}
