package services

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lbxchange/backend/internal/models"
)

// WatchlistService manages per-user saved items (rate levels, offer types)
// for quick access from the client.
type WatchlistService struct {
	db        *sql.DB
	validator *ValidationHelper
}

type WatchlistCreateRequest struct {
	ItemType string `json:"itemType" validate:"required,oneof=RATE_LEVEL OFFER_TYPE"`
	Value    string `json:"value" validate:"required,max=100"`
	Note     string `json:"note,omitempty" validate:"max=500"`
}

func NewWatchlistService(db *sql.DB) *WatchlistService {
	return &WatchlistService{db: db, validator: NewValidationHelper()}
}

// Add saves a watchlist item
// @Summary Add a watchlist item
// @Tags watchlist
// @Accept json
// @Produce json
// @Param request body WatchlistCreateRequest true "Item"
// @Success 201 {object} models.WatchlistItem
// @Failure 400 {object} ErrorResponse
// @Router /watchlist [post]
func (s *WatchlistService) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req WatchlistCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	item := models.WatchlistItem{
		UserID:   userID,
		ItemType: req.ItemType,
		Value:    req.Value,
		Note:     req.Note,
	}
	err := s.db.QueryRow(`
		INSERT INTO watchlist_items (user_id, item_type, value, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		item.UserID, item.ItemType, item.Value, item.Note).
		Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		SendErrorResponse(w, "Failed to add watchlist item", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

// List returns the caller's watchlist
// @Summary List watchlist items
// @Tags watchlist
// @Produce json
// @Success 200 {array} models.WatchlistItem
// @Router /watchlist [get]
func (s *WatchlistService) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, item_type, value, note, created_at
		FROM watchlist_items WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch watchlist", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	items := []models.WatchlistItem{}
	for rows.Next() {
		var item models.WatchlistItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.ItemType, &item.Value, &item.Note, &item.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch watchlist", http.StatusInternalServerError, nil)
			return
		}
		items = append(items, item)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// Remove deletes a watchlist item
// @Summary Remove a watchlist item
// @Tags watchlist
// @Param itemId path int true "Item ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /watchlist/{itemId} [delete]
func (s *WatchlistService) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid item id", http.StatusBadRequest, nil)
		return
	}

	result, err := s.db.Exec(`DELETE FROM watchlist_items WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		SendErrorResponse(w, "Failed to remove watchlist item", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		SendServiceError(w, ErrNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
