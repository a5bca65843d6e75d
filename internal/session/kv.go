// Package session manages ephemeral login sessions backed by a TTL
// key-value store. Sessions are a best-effort cache, never a source of
// truth: read failures degrade to "not logged in", write failures fail loud.
package session

import (
	"context"
	"time"
)

// KV is the ephemeral key-value store the session layer runs on.
// Implementations must treat a missing key as errs.ErrNotFound on Get
// and TTL, not as a plain error.
type KV interface {
	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value for key, or errs.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Del removes keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// Expire resets the TTL for key. Missing keys are a no-op.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining lifetime of key, or errs.ErrNotFound.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
