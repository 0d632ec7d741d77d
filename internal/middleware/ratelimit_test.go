package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestRateLimit(t *testing.T) {
	viper.Set("ratelimit.requests", 120)
	viper.Set("ratelimit.window_seconds", 60)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("first request in window passes and sets expiry", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		redisMock.ExpectIncr("ratelimit:10.0.0.1").SetVal(1)
		redisMock.ExpectExpire("ratelimit:10.0.0.1", 60*time.Second).SetVal(true)

		handler := RateLimit(redisClient)(next)
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:52341"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("request over the limit is rejected", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		redisMock.ExpectIncr("ratelimit:10.0.0.1").SetVal(121)

		handler := RateLimit(redisClient)(next)
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:52341"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("redis outage fails open", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		redisMock.ExpectIncr("ratelimit:10.0.0.1").SetErr(assert.AnError)

		handler := RateLimit(redisClient)(next)
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:52341"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("no redis client passes through", func(t *testing.T) {
		handler := RateLimit(nil)(next)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
