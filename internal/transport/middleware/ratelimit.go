package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	RateLimitLimitHeader     = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
	RetryAfterHeader         = "Retry-After"
)

// RateLimit counts requests per client in fixed windows of length window and
// answers 429 once limit is exceeded. Authenticated requests are counted per
// user, anonymous ones per remote address. scope separates budgets that share
// a client, e.g. "api" and "login". When redis is unreachable requests pass.
func RateLimit(rdb redis.Cmdable, scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
			defer cancel()

			now := time.Now()
			key := rateLimitKey(scope, clientID(r), window, now)
			count, err := hit(ctx, rdb, key, window)
			if err != nil {
				logger.From(r.Context()).Warn("rate limit store unavailable", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set(RateLimitLimitHeader, strconv.Itoa(limit))
			w.Header().Set(RateLimitRemainingHeader, strconv.Itoa(remaining))

			if count > int64(limit) {
				left := window - time.Duration(now.UnixNano()%int64(window))
				secs := int((left + time.Second - 1) / time.Second)
				w.Header().Set(RetryAfterHeader, strconv.Itoa(secs))
				writeAppError(w, internal.NewRateLimitedError("too many requests, please try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// hit increments the counter of the current window. Keys are bucketed by
// window, so the expiry only has to outlive the bucket.
func hit(ctx context.Context, rdb redis.Cmdable, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func rateLimitKey(scope, client string, window time.Duration, now time.Time) string {
	bucket := now.UnixNano() / int64(window)
	return "ratelimit:" + scope + ":" + client + ":" + strconv.FormatInt(bucket, 10)
}

func clientID(r *http.Request) string {
	if id := internal.UserIDFromContext(r.Context()); id != 0 {
		return "user:" + strconv.FormatInt(id, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
