package middleware

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/dkotenko/calobot/internal/request"
)

// DefaultRateLimit caps analysis requests per client IP. Oracle calls are
// the expensive path, so the default is deliberately tight.
const DefaultRateLimit = "5-S"

// RateLimit returns middleware that limits requests per client IP using the
// formatted rate ("5-S", "100-M"). When redisURL is set the counters live in
// Redis so limits hold across replicas; otherwise an in-memory store is used.
func RateLimit(rate, redisURL string) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		rate = DefaultRateLimit
	}

	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate limit %q: %w", rate, err)
	}

	var store limiter.Store
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		store, err = redisstore.NewStore(redis.NewClient(opts))
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis rate limit store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	instance := limiter.New(store, parsed)
	keyGetter := func(r *http.Request) string {
		return request.ClientIP(r)
	}
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(keyGetter))
	return mw.Handler, nil
}
