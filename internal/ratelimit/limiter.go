package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/yakoovad/scrapyard-registration/internal/kv"
)

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a fixed window counter per subject.
type Limiter struct {
	store  kv.Store
	prefix string
	max    int
	window time.Duration
}

func NewLimiter(store kv.Store, prefix string, max int, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		prefix: prefix,
		max:    max,
		window: window,
	}
}

// Allow consumes one slot for subject.
func (l *Limiter) Allow(ctx context.Context, subject string) (*Result, error) {
	count, ttl, err := l.store.Incr(ctx, l.prefix+":"+subject, l.window)
	if err != nil {
		return nil, errors.Wrap(err, "rate limit counter")
	}

	if count > int64(l.max) {
		return &Result{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
	}
	return &Result{Allowed: true, Remaining: l.max - int(count)}, nil
}
