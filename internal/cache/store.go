// Package cache provides the user lookup cache: a key-value store with
// per-key TTL expiry behind a small Store interface, plus the typed
// read-through/write-through UserCache built on top of it.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Store.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Store is a key-value store with per-key TTL expiry.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
