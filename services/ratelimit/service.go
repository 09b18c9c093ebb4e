// Package ratelimit throttles credential-guessing traffic on the
// register and login endpoints with fixed windows kept in the store.
package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/internal/observability/metrics"
	"github.com/llmgate/llmgate/store"
)

// Throttle scopes. Each scope counts independently per client key.
const (
	ScopeLogin    = "login"
	ScopeRegister = "register"
)

const (
	defaultLimit  = 10
	defaultWindow = time.Minute
)

// Result reports the outcome of one throttle check.
type Result struct {
	Allowed   bool
	Remaining int
	Limit     int
}

// Limiter counts attempts per scope and client key in fixed windows.
// The counter lives in the store: the first hit creates it with the
// window as TTL, later hits increment it, expiry resets the window.
//
// The limiter fails open. Throttling is protection, not correctness, so
// a store failure admits the request instead of locking everyone out.
// The auth gate makes the opposite choice.
type Limiter struct {
	kv     store.KV
	logger *zap.Logger
	limit  int
	window time.Duration
}

// NewLimiter creates a Limiter. Non-positive limit or window fall back
// to 10 attempts per minute.
func NewLimiter(kv store.KV, logger *zap.Logger, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = defaultLimit
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &Limiter{
		kv:     kv,
		logger: logger,
		limit:  limit,
		window: window,
	}
}

// Allow consumes one attempt for the client key within the scope.
func (l *Limiter) Allow(ctx context.Context, scope, clientKey string) *Result {
	key := store.RateLimitKey(scope, clientKey)

	count, err := l.kv.Incr(ctx, key)
	if err != nil {
		l.logger.Warn("throttle counter unavailable, admitting request",
			zap.String("scope", scope),
			zap.Error(err))
		return &Result{Allowed: true, Remaining: l.limit, Limit: l.limit}
	}

	if count == 1 {
		if _, err := l.kv.Expire(ctx, key, l.window); err != nil {
			l.logger.Warn("failed to arm throttle window",
				zap.String("scope", scope),
				zap.Error(err))
		}
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	if count > int64(l.limit) {
		metrics.ObserveRateLimited(scope)
		l.logger.Info("request throttled",
			zap.String("scope", scope),
			zap.Int64("count", count),
			zap.Int("limit", l.limit))
		return &Result{Allowed: false, Remaining: 0, Limit: l.limit}
	}

	return &Result{Allowed: true, Remaining: remaining, Limit: l.limit}
}
