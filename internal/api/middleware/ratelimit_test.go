package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRateLimit_FailsOpenWhenRedisUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	rl := NewRateLimit(client, 5)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	rl.Limit(next).ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/jobs", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRateLimit_DefaultsRequestsPerMinute(t *testing.T) {
	rl := NewRateLimit(nil, 0)
	assert.Equal(t, defaultRequestsPerMinute, rl.requestsPerMin)
}
