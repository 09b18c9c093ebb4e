// Package store provides the credential store contract and its drivers.
// Every piece of shared state (tenant and user records, secondary
// indexes, sessions, the token blacklist, throttle counters and the
// audit trail) lives behind the KV interface; nothing in the gateway
// caches entity state across requests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key has no value in the store.
var ErrKeyNotFound = errors.New("store: key not found")

// KV is the key-value contract consumed by the directory, the auth gate,
// the rate limiter and the audit trail. Implementations must serialize
// conflicting writes at the key level; SetNX is the only atomic
// conditional primitive callers may rely on.
type KV interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key with no expiry.
	Set(ctx context.Context, key, value string) error
	// SetWithTTL stores value under key, expiring after ttl.
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only when key is absent. Returns true when the
	// write happened. A ttl of zero means no expiry.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Exists reports whether key holds a value.
	Exists(ctx context.Context, key string) (bool, error)

	// SAdd adds members to the set at key.
	SAdd(ctx context.Context, key string, members ...string) error
	// SRem removes members from the set at key.
	SRem(ctx context.Context, key string, members ...string) error
	// SMembers returns all members of the set at key, in no particular order.
	SMembers(ctx context.Context, key string) ([]string, error)

	// Incr increments the integer value at key, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets a ttl on an existing key. Returns false when key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the underlying connection.
	Close() error
}
