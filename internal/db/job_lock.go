package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/uct-network/uct-ledger/internal/db/model"
)

func (db *Database) AcquireJobLock(ctx context.Context, name, owner string, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	filter := bson.M{
		"_id": name,
		"$or": bson.A{
			bson.M{"expires_at": bson.M{"$lte": now}},
			bson.M{"owner": owner},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"owner":      owner,
			"expires_at": now.Add(ttl),
		},
	}

	_, err := db.collection(model.JobLockCollection).
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if isDuplicateKey(err) {
			return &LockHeldError{
				Name:    name,
				Message: "job lock " + name + " is held by another owner",
			}
		}
		return err
	}

	return nil
}

func (db *Database) ReleaseJobLock(ctx context.Context, name, owner string) error {
	_, err := db.collection(model.JobLockCollection).
		DeleteOne(ctx, bson.M{"_id": name, "owner": owner})
	return err
}
