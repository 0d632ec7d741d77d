package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lbxchange/backend/internal/models"
)

// NotificationService persists in-app notifications. Creation is best-effort:
// a notification that fails to insert is logged and dropped rather than
// failing the operation that produced it.
type NotificationService struct {
	db *sql.DB
}

func NewNotificationService(db *sql.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Create inserts a notification for a user. Called after the producing
// transaction commits.
func (s *NotificationService) Create(userID int64, message string) {
	_, err := s.db.Exec(`
		INSERT INTO notifications (user_id, message) VALUES ($1, $2)`,
		userID, message)
	if err != nil {
		log.Printf("[NOTIFY] Failed to insert notification for user %d: %v", userID, err)
	}
}

// List returns the caller's notifications, newest first
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Success 200 {array} models.Notification
// @Router /notifications [get]
func (s *NotificationService) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, message, is_read, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC LIMIT 100`, userID)
	if err != nil {
		log.Printf("[NOTIFY] Failed to list notifications for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch notifications", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch notifications", http.StatusInternalServerError, nil)
			return
		}
		notifications = append(notifications, n)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(notifications)
}

// MarkRead marks one notification as read
// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Param notificationId path int true "Notification ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /notifications/{notificationId}/read [post]
func (s *NotificationService) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	notificationID, err := strconv.ParseInt(chi.URLParam(r, "notificationId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid notification id", http.StatusBadRequest, nil)
		return
	}

	result, err := s.db.Exec(`
		UPDATE notifications SET is_read = true
		WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		SendErrorResponse(w, "Failed to update notification", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		SendServiceError(w, ErrNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead marks all of the caller's notifications read
// @Summary Mark all notifications read
// @Tags notifications
// @Success 204
// @Router /notifications/read-all [post]
func (s *NotificationService) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	if _, err := s.db.Exec(`
		UPDATE notifications SET is_read = true
		WHERE user_id = $1 AND is_read = false`, userID); err != nil {
		SendErrorResponse(w, "Failed to update notifications", http.StatusInternalServerError, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete removes one of the caller's notifications
// @Summary Delete a notification
// @Tags notifications
// @Produce json
// @Param notificationId path int true "Notification ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /notifications/{notificationId} [delete]
func (s *NotificationService) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	notificationID, err := strconv.ParseInt(chi.URLParam(r, "notificationId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid notification id", http.StatusBadRequest, nil)
		return
	}

	result, err := s.db.Exec(`
		DELETE FROM notifications
		WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		SendErrorResponse(w, "Failed to delete notification", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		SendServiceError(w, ErrNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
