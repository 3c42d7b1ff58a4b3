package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/JonMunkholm/qbimport/internal/logging"
	mw "github.com/JonMunkholm/qbimport/internal/web/middleware"
)

const (
	rateWindow      = time.Minute
	rateLimitPrefix = "qbimport:ratelimit"
)

// NewRateLimitStore returns a Redis-backed limiter store when client is set
// and an in-process one otherwise. A Redis store shares counters between
// server replicas.
func NewRateLimitStore(client *redis.Client) (limiter.Store, error) {
	opts := limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		MaxRetry:        3,
		CleanUpInterval: rateWindow,
	}
	if client == nil {
		return memory.NewStoreWithOptions(opts), nil
	}
	return redisstore.NewStoreWithOptions(client, opts)
}

// rateLimiter counts requests per client IP in fixed one-minute windows.
type rateLimiter struct {
	limiter *limiter.Limiter
	now     func() time.Time
}

func newRateLimiter(store limiter.Store, perMinute int) *rateLimiter {
	rate := limiter.Rate{Period: rateWindow, Limit: int64(perMinute)}
	return &rateLimiter{
		limiter: limiter.New(store, rate),
		now:     time.Now,
	}
}

// middleware rejects requests over the limit with 429 and Retry-After.
// Requests pass when the store itself fails.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lctx, err := rl.limiter.Get(r.Context(), mw.ClientIP(r))
		if err != nil {
			logging.FromContext(r.Context()).Warn("rate limit store unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			h.Set("Retry-After", strconv.FormatInt(rl.retryAfter(lctx.Reset), 10))
			respondError(w, r, errRateLimited, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// retryAfter returns whole seconds until reset (a unix timestamp), at least 1.
func (rl *rateLimiter) retryAfter(reset int64) int64 {
	if secs := reset - rl.now().Unix(); secs > 0 {
		return secs
	}
	return 1
}
