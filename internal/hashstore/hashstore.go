package hashstore

import (
	"context"
	"time"
)

// NoExpiry is the TTL reported for a record without an expiry.
const NoExpiry time.Duration = -1

// Type describes the kind of value stored under a key.
type Type string

const (
	TypeNone Type = "none"
	TypeHash Type = "hash"
)

// Optional is one slot of a multi-get result.
type Optional struct {
	Value   []byte
	Present bool
}

// Store is the store-level surface of a field-addressable key-value store.
type Store interface {
	// Hash returns a handle bound to key. It performs no I/O; the record
	// need not exist yet.
	Hash(key string) Hash

	// Exists reports how many of keys exist. A key listed twice counts twice.
	Exists(ctx context.Context, keys ...string) (int64, error)
	// Delete removes keys and reports how many existed.
	Delete(ctx context.Context, keys ...string) (int64, error)
	Type(ctx context.Context, key string) (Type, error)
	// Keys lists live keys matching a glob pattern (see MatchPattern), sorted.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Rename moves oldKey to newKey, replacing newKey if it exists.
	// It returns ErrNoSuchKey when oldKey does not exist.
	Rename(ctx context.Context, oldKey, newKey string) error
	// RenameNX moves oldKey to newKey only if newKey does not exist.
	RenameNX(ctx context.Context, oldKey, newKey string) (bool, error)

	// Expire sets a relative expiry. A non-positive ttl deletes the key.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ExpireAt(ctx context.Context, key string, at time.Time) (bool, error)
	Persist(ctx context.Context, key string) (bool, error)
	// TTL returns the remaining time to live, NoExpiry, or ErrNoSuchKey.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Watch runs an optimistic transaction. Versions of the watched keys are
	// captured, fn queues operations on tx, and the queue is applied
	// atomically only if none of the watched keys changed in between.
	// Otherwise ErrTxFailed is returned and nothing is applied. An error
	// from fn discards the queue and is returned as is.
	Watch(ctx context.Context, fn func(tx *Tx) error, keys ...string) error

	Close() error
}

// Hash is a handle bound to one record.
type Hash interface {
	Key() string

	// Get returns ErrFieldNotFound when the field is not set.
	Get(ctx context.Context, field string) ([]byte, error)
	// MGet fetches fields in one round trip. The result has exactly one
	// entry per requested field, in request order.
	MGet(ctx context.Context, fields ...string) ([]Optional, error)
	Exists(ctx context.Context, field string) (bool, error)

	Set(ctx context.Context, field string, value []byte) error
	// SetNX sets field only if it is not set and reports whether it did.
	SetNX(ctx context.Context, field string, value []byte) (bool, error)
	SetAll(ctx context.Context, fields map[string][]byte) error
	// IncrBy treats the field as a base-10 int64, adds delta and returns the
	// new value. An unset field counts as zero.
	IncrBy(ctx context.Context, field string, delta int64) (int64, error)
	// Delete removes fields and reports how many were set.
	Delete(ctx context.Context, fields ...string) (int64, error)

	// Fields lists field names in ascending order.
	Fields(ctx context.Context) ([]string, error)
	// Values lists values in the order of Fields.
	Values(ctx context.Context) ([][]byte, error)
	Len(ctx context.Context) (int64, error)
	// Entries returns every field of the record.
	Entries(ctx context.Context) (map[string][]byte, error)
	// Scan calls fn for each field matching the glob pattern, in field
	// order. Iteration stops at the first error fn returns.
	Scan(ctx context.Context, match string, fn func(field string, value []byte) error) error

	Expire(ctx context.Context, ttl time.Duration) (bool, error)
	ExpireAt(ctx context.Context, at time.Time) (bool, error)
	Persist(ctx context.Context) (bool, error)
	TTL(ctx context.Context) (time.Duration, error)
	// Rename moves the record and rebinds the handle to newKey.
	Rename(ctx context.Context, newKey string) error
	Type(ctx context.Context) (Type, error)
}
