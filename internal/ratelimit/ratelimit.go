// Package ratelimit implements fixed-window request limits on top of the
// shared store. Windows are keyed by operation and caller identity; the
// counter for a window is created on first hit and expires with the window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"VPN-Connect-API/internal/logger"
	"VPN-Connect-API/internal/storage"

	"go.uber.org/zap"
)

// Limit describes one fixed window: at most Max requests per Window.
type Limit struct {
	Name   string
	Max    int64
	Window time.Duration
}

// Пресеты по операциям. Платёж — самая дорогая операция, поэтому и
// самое жёсткое окно.
var (
	PaymentCreate = Limit{Name: "payment_create", Max: 5, Window: time.Minute}
	UserCreate    = Limit{Name: "user_create", Max: 10, Window: time.Minute}
	ConfigFetch   = Limit{Name: "config_fetch", Max: 30, Window: time.Minute}
	StatusCheck   = Limit{Name: "status_check", Max: 60, Window: time.Minute}
	Webhook       = Limit{Name: "webhook", Max: 100, Window: time.Minute}
)

// Decision is the outcome of one Check.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter counts requests in the shared store so every instance sees the
// same window.
type Limiter struct {
	store storage.Store
}

func New(store storage.Store) *Limiter {
	return &Limiter{store: store}
}

// Check consumes one request from the window identified by (limit, id) and
// reports whether it fits. Store failures allow the request: losing a counter
// must not take the whole API down.
func (l *Limiter) Check(ctx context.Context, limit Limit, id string) Decision {
	key := fmt.Sprintf("ratelimit:%s:%s", limit.Name, id)

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		logger.Warn("rate limit counter unavailable", zap.String("key", key), zap.Error(err))
		return Decision{Allowed: true, Remaining: limit.Max}
	}
	if count == 1 {
		// Первый запрос открывает окно.
		if err := l.store.Expire(ctx, key, limit.Window); err != nil {
			logger.Warn("rate limit expire failed", zap.String("key", key), zap.Error(err))
		}
	}

	remaining := limit.Max - count
	if remaining < 0 {
		remaining = 0
	}
	if count > limit.Max {
		retryAfter := limit.Window
		if ttl, err := l.store.TTL(ctx, key); err == nil && ttl > 0 {
			retryAfter = ttl
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
	}
	return Decision{Allowed: true, Remaining: remaining}
}
