package middleware

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// RateLimit applies a fixed-window per-IP request limit backed by Redis.
// Without a Redis client (local development) it passes everything through.
func RateLimit(redisClient *redis.Client) func(http.Handler) http.Handler {
	viper.SetDefault("ratelimit.requests", 120)
	viper.SetDefault("ratelimit.window_seconds", 60)

	limit := int64(viper.GetInt("ratelimit.requests"))
	window := time.Duration(viper.GetInt("ratelimit.window_seconds")) * time.Second

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if redisClient == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := fmt.Sprintf("ratelimit:%s", ip)

			count, err := redisClient.Incr(r.Context(), key).Result()
			if err != nil {
				// Fail open: a Redis outage should not take requests down.
				log.Printf("[RATELIMIT] Redis error, allowing request: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				redisClient.Expire(r.Context(), key, window)
			}

			if count > limit {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "Rate limit exceeded, try again later"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
