package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/lbxchange/backend/internal/models"
	"github.com/lbxchange/backend/internal/rates"
)

const maxHistoryHours = 720 // 30 days

// RateService serves the market rate, keeps the append-only snapshot history,
// and drives alert evaluation off every fresh observation.
type RateService struct {
	db     *sql.DB
	feed   *rates.Feed
	alerts *AlertService
}

func NewRateService(db *sql.DB, feed *rates.Feed, alerts *AlertService) *RateService {
	viper.SetDefault("rates.poll_spec", "@every 5m")
	return &RateService{db: db, feed: feed, alerts: alerts}
}

// CurrentRate fetches and returns the current market rate
// @Summary Get the current USD/LBP rate
// @Description Fetch a fresh quote, record it, and return it; serves the last
// @Description recorded snapshot when the upstream source is down
// @Tags rates
// @Produce json
// @Success 200 {object} models.RateSnapshot
// @Failure 502 {object} ErrorResponse "No rate available"
// @Router /rates/current [get]
func (s *RateService) CurrentRate(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.observe(r.Context())
	if err != nil {
		log.Printf("[RATE] Fetch failed, falling back to last snapshot: %v", err)
		snapshot, err = s.latestSnapshot()
		if err != nil {
			SendServiceError(w, ErrRateUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// observe fetches a quote, records it, and kicks off an alert scan.
func (s *RateService) observe(ctx context.Context) (*models.RateSnapshot, error) {
	buy, sell, err := s.feed.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &models.RateSnapshot{
		BuyRate:  buy,
		SellRate: sell,
		MidRate:  rates.Mid(buy, sell),
	}
	err = s.db.QueryRow(`
		INSERT INTO rate_snapshots (buy_rate, sell_rate, mid_rate)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		snapshot.BuyRate, snapshot.SellRate, snapshot.MidRate).
		Scan(&snapshot.ID, &snapshot.CreatedAt)
	if err != nil {
		return nil, classifyDBError(err)
	}

	go s.alerts.Scan(snapshot.MidRate)
	return snapshot, nil
}

func (s *RateService) latestSnapshot() (*models.RateSnapshot, error) {
	var snapshot models.RateSnapshot
	err := s.db.QueryRow(`
		SELECT id, buy_rate, sell_rate, mid_rate, created_at
		FROM rate_snapshots ORDER BY created_at DESC LIMIT 1`).
		Scan(&snapshot.ID, &snapshot.BuyRate, &snapshot.SellRate, &snapshot.MidRate, &snapshot.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRateUnavailable
		}
		return nil, err
	}
	return &snapshot, nil
}

// CurrentMid returns a fresh mid rate for settlement. Unlike the read-only
// endpoint it never serves a stale snapshot: money must not move against a
// rate that could not be observed now.
func (s *RateService) CurrentMid(ctx context.Context) (float64, error) {
	snapshot, err := s.observe(ctx)
	if err != nil {
		log.Printf("[RATE] Settlement rate fetch failed: %v", err)
		return 0, ErrRateUnavailable
	}
	return snapshot.MidRate, nil
}

// History returns recorded snapshots within a window
// @Summary Get rate history
// @Tags rates
// @Produce json
// @Param hours query int false "Window in hours (default 24, max 720)"
// @Success 200 {array} models.RateSnapshot
// @Router /rates/history [get]
func (s *RateService) History(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.windowSnapshots(parseHours(r))
	if err != nil {
		log.Printf("[RATE] Failed to fetch history: %v", err)
		SendErrorResponse(w, "Failed to fetch rate history", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshots)
}

// Stats returns summary statistics over a window
// @Summary Get rate statistics
// @Description Count, min/max/average, percent change, population standard
// @Description deviation, and least-squares trend per hour over the window;
// @Description an empty window reports count 0 with the other fields null
// @Tags rates
// @Produce json
// @Param hours query int false "Window in hours (default 24, max 720)"
// @Success 200 {object} rates.Stats
// @Router /rates/stats [get]
func (s *RateService) Stats(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.windowSnapshots(parseHours(r))
	if err != nil {
		log.Printf("[RATE] Failed to fetch stats window: %v", err)
		SendErrorResponse(w, "Failed to compute rate statistics", http.StatusInternalServerError, nil)
		return
	}

	observations := make([]rates.Observation, len(snapshots))
	for i, snap := range snapshots {
		observations[i] = rates.Observation{At: snap.CreatedAt, Mid: snap.MidRate}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rates.Compute(observations))
}

func parseHours(r *http.Request) int {
	hours, err := strconv.Atoi(r.URL.Query().Get("hours"))
	if err != nil || hours <= 0 {
		return 24
	}
	if hours > maxHistoryHours {
		return maxHistoryHours
	}
	return hours
}

// windowSnapshots returns snapshots in the window ordered oldest-first, which
// is the order the statistics require.
func (s *RateService) windowSnapshots(hours int) ([]models.RateSnapshot, error) {
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	rows, err := s.db.Query(`
		SELECT id, buy_rate, sell_rate, mid_rate, created_at
		FROM rate_snapshots
		WHERE created_at >= $1
		ORDER BY created_at ASC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := []models.RateSnapshot{}
	for rows.Next() {
		var snap models.RateSnapshot
		if err := rows.Scan(&snap.ID, &snap.BuyRate, &snap.SellRate, &snap.MidRate, &snap.CreatedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// StartPolling schedules background rate observation so history and alerts
// keep moving without client traffic. Returns the scheduler so the caller can
// stop it on shutdown.
func (s *RateService) StartPolling() *cron.Cron {
	scheduler := cron.New()
	spec := viper.GetString("rates.poll_spec")
	_, err := scheduler.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.observe(ctx); err != nil {
			log.Printf("[RATE] Scheduled poll failed: %v", err)
		}
	})
	if err != nil {
		log.Printf("[RATE] Invalid poll spec %q: %v", spec, err)
		return scheduler
	}
	scheduler.Start()
	log.Printf("[RATE] Polling upstream source on schedule %q", spec)
	return scheduler
}
