// Package ratelimit builds the fixed-window limiter that guards /api.
//
// Counting is done by ulule/limiter: the first hit for a key opens a window of
// the configured period and the count resets once it elapses. Counters live in
// process memory by default, or in Redis when several instances must share one
// budget per client.
package ratelimit

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

const (
	keyPrefix       = "rate_limit:api"
	cleanUpInterval = time.Minute
	redisMaxRetry   = 3
)

// NewLimiter allows max requests per window for each client address.
//
// Clients are keyed by the connection's remote address. Only when trustProxy
// is set are X-Forwarded-For and X-Real-IP consulted, since any caller can
// send them.
func NewLimiter(store limiter.Store, max int64, window time.Duration, trustProxy bool) (*limiter.Limiter, error) {
	if max <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", max)
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", window)
	}
	rate := limiter.Rate{Period: window, Limit: max}
	return limiter.New(store, rate, limiter.WithTrustForwardHeader(trustProxy)), nil
}

// NewMemoryStore keeps counters in this process. Expired windows are swept
// every minute.
func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          keyPrefix,
		CleanUpInterval: cleanUpInterval,
	})
}

// NewRedisStore shares counters through Redis. It loads the store's Lua
// scripts up front, so it fails when Redis is unreachable.
func NewRedisStore(client *redis.Client) (limiter.Store, error) {
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   keyPrefix,
		MaxRetry: redisMaxRetry,
	})
	if err != nil {
		return nil, fmt.Errorf("creating redis rate-limit store: %w", err)
	}
	return store, nil
}
