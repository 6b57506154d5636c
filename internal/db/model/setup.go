package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/uct-network/uct-ledger/internal/config"
)

type index struct {
	Indexes map[string]int
	Unique  bool
	// PartialFilter limits the index to matching documents
	PartialFilter bson.M
	// ExpireAfterSeconds turns the index into a TTL index
	ExpireAfterSeconds *int32
}

var collections = map[string][]index{
	BalanceCollection: {
		{Indexes: map[string]int{"available": 1}},
	},
	LedgerEntryCollection: {
		{Indexes: map[string]int{"user_id": 1, "created_at": -1}},
		{Indexes: map[string]int{"event_type": 1, "created_at": -1}},
		{
			Indexes:       map[string]int{"correlation_id": 1},
			Unique:        true,
			PartialFilter: bson.M{"correlation_id": bson.M{"$exists": true}},
		},
	},
	StakeCollection: {
		{Indexes: map[string]int{"user_id": 1, "created_at": -1}},
		{
			Indexes:       map[string]int{"user_id": 1, "stake_tier": 1},
			Unique:        true,
			PartialFilter: bson.M{"open": true},
		},
	},
	BurnLogCollection: {
		{Indexes: map[string]int{"user_id": 1, "created_at": -1}},
	},
	OnchainBatchCollection: {
		{Indexes: map[string]int{"user_id": 1, "created_at": -1}},
		{Indexes: map[string]int{"status": 1, "created_at": 1}},
	},
	MintBatchCollection: {
		{Indexes: map[string]int{"status": 1, "created_at": 1}},
	},
	RateLimitCollection: {
		{Indexes: map[string]int{"expires_at": 1}, ExpireAfterSeconds: ptr(int32(0))},
	},
	JobLockCollection:     {},
	LedgerStatsCollection: {},
}

func ptr[T any](v T) *T {
	return &v
}

// Setup creates the collections and indexes used by the ledger.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	clientOps := options.Client().ApplyURI(cfg.Address)
	if cfg.Username != "" {
		clientOps.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}
	if cfg.DirectConnection {
		clientOps.SetDirect(true)
	}

	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to disconnect setup client")
		}
	}()

	database := client.Database(cfg.DbName)

	// Create a context with timeout
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for collection, idxs := range collections {
		if err := createCollection(ctx, database, collection); err != nil {
			return err
		}
		for _, idx := range idxs {
			if err := createIndex(ctx, database, collection, idx); err != nil {
				return err
			}
		}
	}

	log.Ctx(ctx).Info().Msg("Collections and Indexes created successfully.")
	return nil
}

func createCollection(ctx context.Context, database *mongo.Database, collectionName string) error {
	if err := database.CreateCollection(ctx, collectionName); err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists" {
			log.Ctx(ctx).Debug().Str("collection", collectionName).Msg("collection already exists")
			return nil
		}
		return fmt.Errorf("failed to create collection %s: %w", collectionName, err)
	}

	log.Ctx(ctx).Debug().Str("collection", collectionName).Msg("collection created")
	return nil
}

func createIndex(ctx context.Context, database *mongo.Database, collectionName string, idx index) error {
	if len(idx.Indexes) == 0 {
		return nil
	}

	// the order of keys matters for compound indexes, map iteration order is random
	keys := orderedKeys(idx.Indexes)

	opts := options.Index().SetUnique(idx.Unique)
	if idx.PartialFilter != nil {
		opts.SetPartialFilterExpression(idx.PartialFilter)
	}
	if idx.ExpireAfterSeconds != nil {
		opts.SetExpireAfterSeconds(*idx.ExpireAfterSeconds)
	}

	indexModel := mongo.IndexModel{
		Keys:    keys,
		Options: opts,
	}

	if _, err := database.Collection(collectionName).Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create index on %s: %w", collectionName, err)
	}

	log.Ctx(ctx).Debug().Str("collection", collectionName).Msg("index created")
	return nil
}

// keyOrder fixes the position of fields inside compound indexes
var keyOrder = []string{"user_id", "event_type", "status", "stake_tier", "created_at"}

func orderedKeys(fields map[string]int) bson.D {
	keys := bson.D{}
	seen := map[string]bool{}
	for _, name := range keyOrder {
		if dir, ok := fields[name]; ok {
			keys = append(keys, bson.E{Key: name, Value: dir})
			seen[name] = true
		}
	}
	for name, dir := range fields {
		if !seen[name] {
			keys = append(keys, bson.E{Key: name, Value: dir})
		}
	}
	return keys
}
