package kv

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("key not found")

// Store is the short-lived key/value state behind rate limits, OTPs and staff sessions.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Incr bumps a counter. The ttl applies only when the key is created;
	// the remaining lifetime of the window is returned.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)
	Ping(ctx context.Context) error
}
