// Package kv wraps the Valkey-compatible key-value store used by the
// dedup and fatigue stages for fingerprints and sorted-set sliding
// windows.
package kv

import (
	"context"
	"time"
)

// ZMember is one entry of a sorted set, keyed by score (typically a unix
// timestamp) with an opaque member string.
type ZMember struct {
	Score  float64
	Member string
}

// Store is the subset of Valkey/Redis commands the pipeline stages need.
// It is deliberately narrow: no transactions, no pub/sub, no scripting.
type Store interface {
	// Get returns the value for key, and false if the key does not exist.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes key=value with an optional TTL (zero means no expiry).
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// ZAdd adds member with score to the sorted set at key.
	ZAdd(ctx context.Context, key string, member ZMember) error

	// ZRangeAll returns every member of the sorted set at key, ordered by
	// score ascending.
	ZRangeAll(ctx context.Context, key string) ([]ZMember, error)

	// ZRangeByScoreCount returns the number of members with score in
	// [min, max].
	ZRangeByScoreCount(ctx context.Context, key string, min, max float64) (int64, error)

	// ZRemByScore removes every member with score in [min, max].
	ZRemByScore(ctx context.Context, key string, min, max float64) error

	// Expire sets or refreshes a key's TTL.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
