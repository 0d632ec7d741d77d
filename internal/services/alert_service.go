package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lbxchange/backend/internal/models"
	"github.com/lbxchange/backend/internal/notify"
)

// AlertService manages one-shot rate alerts and evaluates them against fresh
// observations.
type AlertService struct {
	db            *sql.DB
	mailer        notify.EmailSink
	notifications *NotificationService
	validator     *ValidationHelper
}

type AlertCreateRequest struct {
	TargetRate float64 `json:"targetRate" validate:"required,gt=0"`
	Condition  string  `json:"condition" validate:"required,oneof=ABOVE BELOW"`
}

func NewAlertService(db *sql.DB, mailer notify.EmailSink, notifications *NotificationService) *AlertService {
	return &AlertService{
		db:            db,
		mailer:        mailer,
		notifications: notifications,
		validator:     NewValidationHelper(),
	}
}

// Create registers a rate alert
// @Summary Create a rate alert
// @Description Register a one-shot alert that fires when the mid rate crosses
// @Description the target in the given direction
// @Tags alerts
// @Accept json
// @Produce json
// @Param request body AlertCreateRequest true "Alert"
// @Success 201 {object} models.Alert
// @Failure 400 {object} ErrorResponse
// @Router /alerts [post]
func (s *AlertService) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req AlertCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	alert := models.Alert{
		UserID:     userID,
		TargetRate: req.TargetRate,
		Condition:  req.Condition,
		IsActive:   true,
	}
	err := s.db.QueryRow(`
		INSERT INTO alerts (user_id, target_rate, condition, is_active)
		VALUES ($1, $2, $3, true)
		RETURNING id, created_at`,
		alert.UserID, alert.TargetRate, alert.Condition).
		Scan(&alert.ID, &alert.CreatedAt)
	if err != nil {
		log.Printf("[ALERT] Failed to create alert for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to create alert", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(alert)
}

// List returns the caller's alerts
// @Summary List own alerts
// @Tags alerts
// @Produce json
// @Success 200 {array} models.Alert
// @Router /alerts [get]
func (s *AlertService) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, target_rate, condition, is_active, created_at
		FROM alerts WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch alerts", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.UserID, &a.TargetRate, &a.Condition, &a.IsActive, &a.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch alerts", http.StatusInternalServerError, nil)
			return
		}
		alerts = append(alerts, a)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}

// Delete removes one of the caller's alerts
// @Summary Delete an alert
// @Tags alerts
// @Param alertId path int true "Alert ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /alerts/{alertId} [delete]
func (s *AlertService) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	alertID, err := strconv.ParseInt(chi.URLParam(r, "alertId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid alert id", http.StatusBadRequest, nil)
		return
	}

	result, err := s.db.Exec(`DELETE FROM alerts WHERE id = $1 AND user_id = $2`, alertID, userID)
	if err != nil {
		SendErrorResponse(w, "Failed to delete alert", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		SendServiceError(w, ErrNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Scan evaluates every active alert against a fresh mid rate. An alert fires
// at most once: the guarded deactivation decides the winner when concurrent
// scans race, and only the winner notifies.
func (s *AlertService) Scan(midRate float64) {
	rows, err := s.db.Query(`
		SELECT a.id, a.user_id, a.target_rate, a.condition, u.email
		FROM alerts a JOIN users u ON u.id = a.user_id
		WHERE a.is_active = true`)
	if err != nil {
		log.Printf("[ALERT] Scan query failed: %v", err)
		return
	}
	defer rows.Close()

	type candidate struct {
		id, userID int64
		target     float64
		condition  string
		email      string
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.userID, &c.target, &c.condition, &c.email); err != nil {
			log.Printf("[ALERT] Scan row failed: %v", err)
			return
		}
		candidates = append(candidates, c)
	}

	for _, c := range candidates {
		if !conditionMet(c.condition, midRate, c.target) {
			continue
		}

		result, err := s.db.Exec(`
			UPDATE alerts SET is_active = false
			WHERE id = $1 AND is_active = true`, c.id)
		if err != nil {
			log.Printf("[ALERT] Failed to deactivate alert %d: %v", c.id, err)
			continue
		}
		if n, _ := result.RowsAffected(); n == 0 {
			// Lost the race to another scan, which already notified.
			continue
		}

		log.Printf("[ALERT] Alert %d fired: rate %.2f %s target %.2f", c.id, midRate, c.condition, c.target)
		s.notifications.Create(c.userID,
			fmt.Sprintf("Rate alert: USD/LBP is %.2f, %s your target of %.2f", midRate, c.condition, c.target))
		go s.mailer.SendAlertTriggered(c.email, midRate, c.target, c.condition)
	}
}

func conditionMet(condition string, mid, target float64) bool {
	if condition == models.AlertConditionAbove {
		return mid >= target
	}
	return mid <= target
}
