package store

import (
	"context"
	"time"
)

// KeyValueStore is the set of operations the core needs from the durable store.
// Text values (JSON task records, queue entries) and binary values (document
// payloads) are kept apart so drivers can route them over separate connections.
//
// Implementations return ErrNotFound for missing keys and wrap ErrUnavailable
// for connectivity failures.
type KeyValueStore interface {
	// Get returns the text value stored under key.
	Get(ctx context.Context, key string) (string, error)

	// SetEx stores a text value that expires after ttl.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error

	// GetBytes returns the binary value stored under key.
	GetBytes(ctx context.Context, key string) ([]byte, error)

	// SetBytesEx stores a binary value that expires after ttl.
	SetBytesEx(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// RPush appends value to the tail of list and returns the new length.
	RPush(ctx context.Context, list, value string) (int64, error)

	// PushBounded appends value only if the list holds fewer than max entries.
	// The length check and the push happen atomically.
	PushBounded(ctx context.Context, list, value string, max int64) (bool, error)

	// BLPop removes and returns the head of list, waiting up to timeout for an
	// entry to arrive. It returns ErrNotFound when the timeout elapses.
	BLPop(ctx context.Context, list string, timeout time.Duration) (string, error)

	// LLen returns the number of entries in list.
	LLen(ctx context.Context, list string) (int64, error)

	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Keys returns every live key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}
