package model

import "time"

const RateLimitCollection = "rate_limits"

// RateLimitDocument holds the hits of one sliding-window counter, keyed by user and action.
// ExpiresAt backs a TTL index so idle counters are dropped.
type RateLimitDocument struct {
	Key       string      `bson:"_id"`
	Hits      []time.Time `bson:"hits"`
	ExpiresAt time.Time   `bson:"expires_at"`
}

func RateLimitKey(action, userID string) string {
	return action + ":" + userID
}
