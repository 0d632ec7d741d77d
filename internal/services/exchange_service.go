package services

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lbxchange/backend/internal/audit"
	"github.com/lbxchange/backend/internal/models"
)

// ExchangeService performs direct conversions between a user's two balances at
// the current market mid rate.
type ExchangeService struct {
	db        *sql.DB
	ledger    *LedgerService
	gate      *StepUpGate
	rates     *RateService
	audit     *audit.Logger
	validator *ValidationHelper
}

type ExchangeRequest struct {
	Direction string  `json:"direction" validate:"required,oneof=USD_TO_LBP LBP_TO_USD"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	OTP       string  `json:"otp,omitempty"`
}

func NewExchangeService(db *sql.DB, ledger *LedgerService, gate *StepUpGate, rateService *RateService, auditLog *audit.Logger) *ExchangeService {
	return &ExchangeService{
		db:        db,
		ledger:    ledger,
		gate:      gate,
		rates:     rateService,
		audit:     auditLog,
		validator: NewValidationHelper(),
	}
}

// Exchange converts between the caller's balances at the market rate
// @Summary Exchange USD and LBP directly
// @Description Convert between the caller's balances at the current mid rate;
// @Description both legs settle atomically
// @Tags exchange
// @Accept json
// @Produce json
// @Param request body ExchangeRequest true "Conversion"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} ErrorResponse "Insufficient funds or invalid payload"
// @Failure 403 {object} ErrorResponse "Verification code required"
// @Failure 502 {object} ErrorResponse "No rate available"
// @Router /exchange [post]
func (s *ExchangeService) Exchange(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req ExchangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	// The rate is pinned before the transaction opens; the recorded rate_used
	// is exactly what the conversion settled at.
	midRate, err := s.rates.CurrentMid(r.Context())
	if err != nil {
		SendServiceError(w, err)
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[EXCHANGE] Failed to begin transaction: %v", err)
		SendErrorResponse(w, "Failed to process exchange", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	challenge, err := s.gate.Authorize(tx, userID, req.OTP)
	if err != nil {
		if errors.Is(err, ErrChallengeIssued) {
			if err := s.gate.FinishChallenge(tx, challenge); err != nil {
				SendErrorResponse(w, "Failed to process exchange", http.StatusInternalServerError, nil)
				return
			}
		}
		SendServiceError(w, err)
		return
	}

	transaction, err := s.convert(tx, userID, &req, midRate)
	if err != nil {
		SendServiceError(w, err)
		return
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[EXCHANGE] Failed to commit conversion: %v", err)
		SendServiceError(w, classifyDBError(err))
		return
	}

	s.audit.RecordFor(userID, "EXCHANGE",
		fmt.Sprintf("Converted %.2f %s at rate %.2f (ref %s)",
			transaction.AmountFrom, transaction.Direction, transaction.RateUsed, transaction.ReferenceID))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transaction)
}

func (s *ExchangeService) convert(tx *sql.Tx, userID int64, req *ExchangeRequest, midRate float64) (*models.Transaction, error) {
	from, to := models.CurrencyUSD, models.CurrencyLBP
	amountTo := req.Amount * midRate
	if req.Direction == models.DirectionLBPToUSD {
		from, to = models.CurrencyLBP, models.CurrencyUSD
		amountTo = req.Amount / midRate
	}

	if err := s.ledger.Debit(tx, userID, from, req.Amount); err != nil {
		return nil, err
	}
	if err := s.ledger.Credit(tx, userID, to, amountTo); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		ReferenceID: uuid.New().String(),
		UserID:      userID,
		Direction:   req.Direction,
		AmountFrom:  req.Amount,
		AmountTo:    amountTo,
		RateUsed:    midRate,
	}
	err := tx.QueryRow(`
		INSERT INTO transactions (reference_id, user_id, direction, amount_from, amount_to, rate_used)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		transaction.ReferenceID, transaction.UserID, transaction.Direction,
		transaction.AmountFrom, transaction.AmountTo, transaction.RateUsed).
		Scan(&transaction.ID, &transaction.CreatedAt)
	if err != nil {
		return nil, classifyDBError(err)
	}
	return transaction, nil
}

// ListTransactions returns the caller's conversion history
// @Summary List own transactions
// @Tags exchange
// @Produce json
// @Success 200 {array} models.Transaction
// @Router /transactions [get]
func (s *ExchangeService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactions, err := s.fetchTransactions(userID)
	if err != nil {
		log.Printf("[EXCHANGE] Failed to list transactions for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

// ExportTransactions streams the caller's transactions as CSV
// @Summary Export transactions as CSV
// @Tags exchange
// @Produce text/csv
// @Success 200 {string} string "CSV document"
// @Router /transactions/export [get]
func (s *ExchangeService) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactions, err := s.fetchTransactions(userID)
	if err != nil {
		log.Printf("[EXCHANGE] Failed to export transactions for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to export transactions", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)

	writer := csv.NewWriter(w)
	writer.Write([]string{"reference_id", "direction", "amount_from", "amount_to", "rate_used", "created_at"})
	for _, t := range transactions {
		writer.Write([]string{
			t.ReferenceID,
			t.Direction,
			fmt.Sprintf("%.2f", t.AmountFrom),
			fmt.Sprintf("%.2f", t.AmountTo),
			fmt.Sprintf("%.2f", t.RateUsed),
			t.CreatedAt.Format(time.RFC3339),
		})
	}
	writer.Flush()
}

func (s *ExchangeService) fetchTransactions(userID int64) ([]models.Transaction, error) {
	rows, err := s.db.Query(`
		SELECT id, reference_id, user_id, direction, amount_from, amount_to, rate_used, created_at
		FROM transactions WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.ReferenceID, &t.UserID, &t.Direction,
			&t.AmountFrom, &t.AmountTo, &t.RateUsed, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
