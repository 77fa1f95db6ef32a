package middleware

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const rateLimitPrefix = "catalogimport:ratelimit"

// NewRateLimiter builds a per-client-IP limiter from a rate such as
// "300-M". Counters live in redis when client is non-nil, so every
// instance shares them, and in process memory otherwise.
func NewRateLimiter(rate string, client redis.UniversalClient) (*limiter.Limiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("rate limit %q: %w", rate, err)
	}

	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
		if err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          rateLimitPrefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}
	return limiter.New(store, r), nil
}

// RateLimit rejects requests over the limiter's rate with onLimit.
// RemoteAddr is used as the key, so TrustedRealIP must run first.
func RateLimit(l *limiter.Limiter, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	mw := stdlib.NewMiddleware(l, stdlib.WithLimitReachedHandler(stdlib.LimitReachedHandler(onLimit)))
	return mw.Handler
}
