package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/lbxchange/backend/internal/models"
)

func TestNotificationService_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewNotificationService(db)

	t.Run("returns own notifications newest first", func(t *testing.T) {
		mock.ExpectQuery(`FROM notifications WHERE user_id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "message", "is_read", "created_at"}).
				AddRow(2, 1, "Your offer was accepted", false, time.Now()).
				AddRow(1, 1, "Offer cancelled and funds returned", true, time.Now().Add(-time.Hour)))

		w := httptest.NewRecorder()
		service.List(w, authedRequest("GET", "/notifications", nil, 1))

		assert.Equal(t, http.StatusOK, w.Code)
		var notifications []models.Notification
		json.Unmarshal(w.Body.Bytes(), &notifications)
		assert.Len(t, notifications, 2)
		assert.False(t, notifications[0].IsRead)
	})

	t.Run("no notifications yields an empty array", func(t *testing.T) {
		mock.ExpectQuery(`FROM notifications WHERE user_id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "message", "is_read", "created_at"}))

		w := httptest.NewRecorder()
		service.List(w, authedRequest("GET", "/notifications", nil, 1))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]\n", w.Body.String())
	})
}

func TestNotificationService_MarkRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewNotificationService(db)
	router := chi.NewRouter()
	router.Post("/notifications/{notificationId}/read", service.MarkRead)

	t.Run("marks own notification read", func(t *testing.T) {
		mock.ExpectExec(`UPDATE notifications SET is_read = true`).
			WithArgs(int64(5), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/notifications/5/read", nil, 1))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("someone else's notification is not found", func(t *testing.T) {
		mock.ExpectExec(`UPDATE notifications SET is_read = true`).
			WithArgs(int64(5), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/notifications/5/read", nil, 2))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestNotificationService_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewNotificationService(db)
	router := chi.NewRouter()
	router.Delete("/notifications/{notificationId}", service.Delete)

	t.Run("deletes own notification", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM notifications`).
			WithArgs(int64(7), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("DELETE", "/notifications/7", nil, 1))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("someone else's notification is not found", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM notifications`).
			WithArgs(int64(7), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("DELETE", "/notifications/7", nil, 2))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("DELETE", "/notifications/abc", nil, 1))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
