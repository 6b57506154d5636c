package memdb

import (
	"context"
	"fmt"
	"time"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
)

func (s *Store) RecordRateLimitHit(
	ctx context.Context, key string, now time.Time, window time.Duration, limit int,
) error {
	defer s.lock(ctx)()

	now = now.UTC()
	cutoff := now.Add(-window)

	var recent []time.Time
	for _, hit := range s.state.rateLimits[key].Hits {
		if hit.After(cutoff) {
			recent = append(recent, hit)
		}
	}
	if len(recent) >= limit {
		return &db.RateLimitExceededError{
			Key:     key,
			Message: fmt.Sprintf("more than %d requests within %s", limit, window),
		}
	}

	s.state.rateLimits[key] = model.RateLimitDocument{
		Key:       key,
		Hits:      append(recent, now),
		ExpiresAt: now.Add(window),
	}
	return nil
}
