package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lbxchange/backend/internal/audit"
	"github.com/lbxchange/backend/internal/models"
)

// AdminService exposes the operator surface: user management, platform
// aggregates, and the audit trail. Routes using it sit behind the admin
// middleware.
type AdminService struct {
	db        *sql.DB
	audit     *audit.Logger
	validator *ValidationHelper
}

type UserStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE SUSPENDED"`
}

// PlatformStats aggregates activity across the whole platform.
type PlatformStats struct {
	TotalUsers        int64   `json:"totalUsers"`
	ActiveUsers       int64   `json:"activeUsers"`
	OpenOffers        int64   `json:"openOffers"`
	CompletedTrades   int64   `json:"completedTrades"`
	TradedVolumeUSD   float64 `json:"tradedVolumeUsd"`
	TotalTransactions int64   `json:"totalTransactions"`
	ActiveAlerts      int64   `json:"activeAlerts"`
}

func NewAdminService(db *sql.DB, auditLog *audit.Logger) *AdminService {
	return &AdminService{db: db, audit: auditLog, validator: NewValidationHelper()}
}

// ListUsers lists all users
// @Summary List users
// @Tags admin
// @Produce json
// @Success 200 {array} models.User
// @Router /admin/users [get]
func (s *AdminService) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT id, email, role, status, mfa_enabled, usd_balance, lbp_balance, created_at
		FROM users ORDER BY created_at DESC`)
	if err != nil {
		log.Printf("[ADMIN] Failed to list users: %v", err)
		SendErrorResponse(w, "Failed to fetch users", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		err := rows.Scan(&u.ID, &u.Email, &u.Role, &u.Status, &u.MFAEnabled,
			&u.USDBalance, &u.LBPBalance, &u.CreatedAt)
		if err != nil {
			SendErrorResponse(w, "Failed to fetch users", http.StatusInternalServerError, nil)
			return
		}
		users = append(users, u)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

// SetUserStatus activates or suspends a user
// @Summary Set a user's status
// @Description Suspended users keep their balances but cannot authenticate
// @Tags admin
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param request body UserStatusRequest true "New status"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{userId}/status [put]
func (s *AdminService) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	adminID, _ := UserIDFromContext(r)

	targetID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid user id", http.StatusBadRequest, nil)
		return
	}

	var req UserStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := s.db.Exec(`UPDATE users SET status = $1 WHERE id = $2`, req.Status, targetID)
	if err != nil {
		SendErrorResponse(w, "Failed to update user", http.StatusInternalServerError, nil)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		SendServiceError(w, ErrNotFound)
		return
	}

	s.audit.RecordFor(adminID, "USER_STATUS_CHANGED",
		fmt.Sprintf("Set user %d status to %s", targetID, req.Status))

	w.WriteHeader(http.StatusNoContent)
}

// Stats returns platform-wide aggregates
// @Summary Platform statistics
// @Tags admin
// @Produce json
// @Success 200 {object} PlatformStats
// @Router /admin/stats [get]
func (s *AdminService) Stats(w http.ResponseWriter, r *http.Request) {
	var stats PlatformStats
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE status = 'ACTIVE'),
			(SELECT COUNT(*) FROM exchange_offers WHERE status = $1),
			(SELECT COUNT(*) FROM trades),
			(SELECT COALESCE(SUM(CASE WHEN maker_gives_currency = 'USD' THEN maker_gives_amount ELSE maker_gets_amount END), 0) FROM trades),
			(SELECT COUNT(*) FROM transactions),
			(SELECT COUNT(*) FROM alerts WHERE is_active = true)`,
		models.OfferStatusOpen).
		Scan(&stats.TotalUsers, &stats.ActiveUsers, &stats.OpenOffers, &stats.CompletedTrades,
			&stats.TradedVolumeUSD, &stats.TotalTransactions, &stats.ActiveAlerts)
	if err != nil {
		log.Printf("[ADMIN] Failed to compute platform stats: %v", err)
		SendErrorResponse(w, "Failed to compute statistics", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// MarketplaceReport breaks down offer activity and the busiest traders.
type MarketplaceReport struct {
	OffersByStatus  map[string]int64 `json:"offersByStatus"`
	TradedVolumeUSD float64          `json:"tradedVolumeUsd"`
	TopTraders      []TraderActivity `json:"topTraders"`
}

type TraderActivity struct {
	UserID     int64 `json:"userId"`
	TradeCount int64 `json:"tradeCount"`
}

// Report returns the marketplace activity breakdown
// @Summary Marketplace report
// @Tags admin
// @Produce json
// @Success 200 {object} MarketplaceReport
// @Router /admin/report [get]
func (s *AdminService) Report(w http.ResponseWriter, r *http.Request) {
	report := MarketplaceReport{OffersByStatus: map[string]int64{}}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM exchange_offers GROUP BY status`)
	if err != nil {
		log.Printf("[ADMIN] Failed to build report: %v", err)
		SendErrorResponse(w, "Failed to build report", http.StatusInternalServerError, nil)
		return
	}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			SendErrorResponse(w, "Failed to build report", http.StatusInternalServerError, nil)
			return
		}
		report.OffersByStatus[status] = count
	}
	rows.Close()

	err = s.db.QueryRow(`
		SELECT COALESCE(SUM(CASE WHEN maker_gives_currency = 'USD' THEN maker_gives_amount ELSE maker_gets_amount END), 0)
		FROM trades`).Scan(&report.TradedVolumeUSD)
	if err != nil {
		SendErrorResponse(w, "Failed to build report", http.StatusInternalServerError, nil)
		return
	}

	// Makers and takers both count as participants.
	traderRows, err := s.db.Query(`
		SELECT user_id, COUNT(*) AS trade_count FROM (
			SELECT maker_user_id AS user_id FROM trades
			UNION ALL
			SELECT taker_user_id FROM trades
		) participants
		GROUP BY user_id ORDER BY trade_count DESC LIMIT 5`)
	if err != nil {
		SendErrorResponse(w, "Failed to build report", http.StatusInternalServerError, nil)
		return
	}
	defer traderRows.Close()

	report.TopTraders = []TraderActivity{}
	for traderRows.Next() {
		var trader TraderActivity
		if err := traderRows.Scan(&trader.UserID, &trader.TradeCount); err != nil {
			SendErrorResponse(w, "Failed to build report", http.StatusInternalServerError, nil)
			return
		}
		report.TopTraders = append(report.TopTraders, trader)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// AuditLogs returns recent audit entries
// @Summary List audit logs
// @Tags admin
// @Produce json
// @Param limit query int false "Max entries (default 100, max 1000)"
// @Success 200 {array} models.AuditLog
// @Router /admin/audit-logs [get]
func (s *AdminService) AuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, action, details, created_at
		FROM audit_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		log.Printf("[ADMIN] Failed to list audit logs: %v", err)
		SendErrorResponse(w, "Failed to fetch audit logs", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var entry models.AuditLog
		var userID sql.NullInt64
		if err := rows.Scan(&entry.ID, &userID, &entry.Action, &entry.Details, &entry.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch audit logs", http.StatusInternalServerError, nil)
			return
		}
		if userID.Valid {
			entry.UserID = &userID.Int64
		}
		logs = append(logs, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}
