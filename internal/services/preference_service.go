package services

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/lbxchange/backend/internal/models"
)

// PreferenceService stores per-user display preferences for the rate charts.
type PreferenceService struct {
	db        *sql.DB
	validator *ValidationHelper
}

type PreferenceUpdateRequest struct {
	TimeRangeDays int    `json:"timeRangeDays" validate:"required,min=1,max=365"`
	GraphInterval string `json:"graphInterval" validate:"required,oneof=HOURLY DAILY"`
}

func NewPreferenceService(db *sql.DB) *PreferenceService {
	return &PreferenceService{db: db, validator: NewValidationHelper()}
}

// Get returns the caller's preferences
// @Summary Get preferences
// @Tags preferences
// @Produce json
// @Success 200 {object} models.UserPreference
// @Router /preferences [get]
func (s *PreferenceService) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var pref models.UserPreference
	err := s.db.QueryRow(`
		SELECT id, user_id, time_range_days, graph_interval
		FROM user_preferences WHERE user_id = $1`, userID).
		Scan(&pref.ID, &pref.UserID, &pref.TimeRangeDays, &pref.GraphInterval)
	if err == sql.ErrNoRows {
		// Registration seeds a row, but tolerate its absence.
		pref = models.UserPreference{UserID: userID, TimeRangeDays: 7, GraphInterval: "DAILY"}
	} else if err != nil {
		SendErrorResponse(w, "Failed to fetch preferences", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pref)
}

// Update upserts the caller's preferences
// @Summary Update preferences
// @Tags preferences
// @Accept json
// @Produce json
// @Param request body PreferenceUpdateRequest true "Preferences"
// @Success 200 {object} models.UserPreference
// @Failure 400 {object} ErrorResponse
// @Router /preferences [put]
func (s *PreferenceService) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req PreferenceUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	pref := models.UserPreference{
		UserID:        userID,
		TimeRangeDays: req.TimeRangeDays,
		GraphInterval: req.GraphInterval,
	}
	err := s.db.QueryRow(`
		INSERT INTO user_preferences (user_id, time_range_days, graph_interval)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET time_range_days = EXCLUDED.time_range_days, graph_interval = EXCLUDED.graph_interval
		RETURNING id`,
		pref.UserID, pref.TimeRangeDays, pref.GraphInterval).
		Scan(&pref.ID)
	if err != nil {
		SendErrorResponse(w, "Failed to update preferences", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pref)
}
