// Package ratelimit counts requests per client in fixed windows.
package ratelimit

import (
	"context"
	"time"

	"linkgate/internal/logging"
	"linkgate/internal/metrics"
)

// CounterStore increments the counter for key, starting a new window of the
// given length when the key is absent or its window has elapsed. It returns
// the count after the increment and the time left in the window.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter struct {
	name   string
	store  CounterStore
	limit  int
	window time.Duration
}

// New creates a limiter allowing limit requests per key per window. name
// labels metrics and namespaces keys in the store.
func New(name string, store CounterStore, limit int, window time.Duration) *Limiter {
	return &Limiter{name: name, store: store, limit: limit, window: window}
}

// Allow records a request for key and reports whether it is within the limit.
// A failing store does not block traffic: the request is allowed and the
// failure logged.
func (l *Limiter) Allow(ctx context.Context, key string) Decision {
	count, ttl, err := l.store.Incr(ctx, l.name+":"+key, l.window)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("limiter", l.name).Msg("rate limit store unavailable, allowing request")
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}
	}

	if count > int64(l.limit) {
		metrics.RateLimited.WithLabelValues(l.name).Inc()
		if ttl <= 0 {
			ttl = l.window
		}
		return Decision{Allowed: false, Limit: l.limit, RetryAfter: ttl}
	}

	return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - int(count)}
}
