package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/lbxchange/backend/docs"
	"github.com/lbxchange/backend/internal/audit"
	"github.com/lbxchange/backend/internal/database"
	"github.com/lbxchange/backend/internal/handlers"
	mW "github.com/lbxchange/backend/internal/middleware"
	"github.com/lbxchange/backend/internal/notify"
	"github.com/lbxchange/backend/internal/rates"
	"github.com/lbxchange/backend/internal/services"
)

// @title LBXchange API
// @version 1.0
// @description USD/LBP currency exchange platform: balances, direct
// @description conversions, peer-to-peer offers, rate history, and alerts
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")

	viper.BindEnv("smtp.host", "SMTP_HOST")
	viper.BindEnv("smtp.port", "SMTP_PORT")
	viper.BindEnv("smtp.user", "SMTP_USER")
	viper.BindEnv("smtp.password", "SMTP_PASSWORD")

	viper.BindEnv("rates.source_url", "RATES_SOURCE_URL")
	viper.BindEnv("rates.poll_spec", "RATES_POLL_SPEC")
	viper.BindEnv("app.public_url", "APP_PUBLIC_URL")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "LBXchange API"
	docs.SwaggerInfo.Description = "USD/LBP currency exchange platform"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize infrastructure
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize services
	mailer := notify.NewSMTPSink()
	auditLog := audit.NewLogger(db)
	gate := services.NewStepUpGate(mailer)
	ledger := services.NewLedgerService(db)
	feed := rates.NewFeed()

	notificationService := services.NewNotificationService(db)
	alertService := services.NewAlertService(db, mailer, notificationService)
	rateService := services.NewRateService(db, feed, alertService)
	authService := services.NewAuthService(db, redisClient, gate, auditLog)
	exchangeService := services.NewExchangeService(db, ledger, gate, rateService, auditLog)
	offerService := services.NewOfferService(db, ledger, gate, auditLog, notificationService)
	watchlistService := services.NewWatchlistService(db)
	preferenceService := services.NewPreferenceService(db)
	adminService := services.NewAdminService(db, auditLog)
	qrHandler := handlers.NewQRHandler(db)

	// Background rate polling keeps history and alerts moving without traffic
	poller := rateService.StartPolling()
	defer poller.Stop()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(mW.RateLimit(redisClient))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)
		r.Get("/rates/current", rateService.CurrentRate)
		r.Get("/rates/history", rateService.History)
		r.Get("/rates/stats", rateService.Stats)
		r.Get("/p2p/offers/open", offerService.ListOpenOffers)
		r.Get("/p2p/offers/{offerId}/qr", qrHandler.OfferQR)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.Auth(db, redisClient))

			r.Get("/users/me", authService.GetMe)
			r.Get("/users/me/activity", authService.MyActivity)

			r.Post("/exchange", exchangeService.Exchange)
			r.Get("/transactions", exchangeService.ListTransactions)
			r.Get("/transactions/export", exchangeService.ExportTransactions)

			r.Post("/p2p/offers", offerService.CreateOffer)
			r.Post("/p2p/offers/{offerId}/accept", offerService.AcceptOffer)
			r.Post("/p2p/offers/{offerId}/cancel", offerService.CancelOffer)
			r.Get("/p2p/me/offers", offerService.MyOffers)
			r.Get("/p2p/me/trades", offerService.MyTrades)

			r.Get("/alerts", alertService.List)
			r.Post("/alerts", alertService.Create)
			r.Delete("/alerts/{alertId}", alertService.Delete)

			r.Get("/watchlist", watchlistService.List)
			r.Post("/watchlist", watchlistService.Add)
			r.Delete("/watchlist/{itemId}", watchlistService.Remove)

			r.Get("/notifications", notificationService.List)
			r.Post("/notifications/{notificationId}/read", notificationService.MarkRead)
			r.Post("/notifications/read-all", notificationService.MarkAllRead)
			r.Delete("/notifications/{notificationId}", notificationService.Delete)

			r.Get("/preferences", preferenceService.Get)
			r.Put("/preferences", preferenceService.Update)

			// Admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireAdmin(db))

				r.Get("/admin/users", adminService.ListUsers)
				r.Put("/admin/users/{userId}/status", adminService.SetUserStatus)
				r.Get("/admin/stats", adminService.Stats)
				r.Get("/admin/report", adminService.Report)
				r.Get("/admin/audit-logs", adminService.AuditLogs)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
