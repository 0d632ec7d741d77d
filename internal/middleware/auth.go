package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Auth validates the bearer token, rejects blacklisted and suspended
// sessions, and places the user ID in the request context under "userID".
func Auth(db *sql.DB, redisClient *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w, "Missing or malformed authorization header")
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			if redisClient != nil {
				blacklisted, err := redisClient.Exists(r.Context(),
					fmt.Sprintf("blacklist:%s", tokenString)).Result()
				if err != nil {
					log.Printf("[AUTH] Blacklist check failed: %v", err)
				} else if blacklisted > 0 {
					unauthorized(w, "Token has been revoked")
					return
				}
			}

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(viper.GetString("jwt.secret_key")), nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "Invalid or expired token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				unauthorized(w, "Invalid token claims")
				return
			}
			rawID, ok := claims["user_id"].(float64)
			if !ok {
				unauthorized(w, "Invalid token claims")
				return
			}
			userID := int64(rawID)

			var status string
			err = db.QueryRow(`SELECT status FROM users WHERE id = $1`, userID).Scan(&status)
			if err != nil {
				unauthorized(w, "Unknown user")
				return
			}
			if status == "SUSPENDED" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"error": "Account suspended"})
				return
			}

			ctx := context.WithValue(r.Context(), "userID", userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin allows only users with the ADMIN role. Must run after Auth.
func RequireAdmin(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := r.Context().Value("userID").(int64)
			if !ok {
				unauthorized(w, "Unauthorized")
				return
			}

			var role string
			if err := db.QueryRow(`SELECT role FROM users WHERE id = $1`, userID).Scan(&role); err != nil {
				unauthorized(w, "Unknown user")
				return
			}
			if role != "ADMIN" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"error": "Admin access required"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
