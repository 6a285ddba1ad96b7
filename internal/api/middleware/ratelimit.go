package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/courtsidedata/reportstore/internal/api/response"
)

const defaultRequestsPerMinute = 120

// RateLimit provides sliding-window rate limiting via Redis, keyed by client
// address. The storage API is consumed by trusted internal services, so this
// is a guard against runaway pollers rather than an auth boundary.
type RateLimit struct {
	client         *redis.Client
	requestsPerMin int
}

// NewRateLimit creates a new RateLimit middleware.
func NewRateLimit(client *redis.Client, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{client: client, requestsPerMin: requestsPerMin}
}

// Limit applies rate limiting based on the client's remote address.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}

		key := "ratelimit:" + host
		pipe := rl.client.TxPipeline()
		incr := pipe.Incr(r.Context(), key)
		pipe.Expire(r.Context(), key, 60*time.Second)
		if _, err := pipe.Exec(r.Context()); err != nil {
			// On Redis error, allow the request (fail open)
			next.ServeHTTP(w, r)
			return
		}
		count := incr.Val()

		remaining := rl.requestsPerMin - int(count)
		if remaining < 0 {
			remaining = 0
		}
		resetTime := time.Now().Add(60 * time.Second).Unix()

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime))

		if count > int64(rl.requestsPerMin) {
			w.Header().Set("Retry-After", "60")
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
