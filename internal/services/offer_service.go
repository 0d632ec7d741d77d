package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lbxchange/backend/internal/audit"
	"github.com/lbxchange/backend/internal/models"
)

// OfferService owns the lifecycle of peer-to-peer offers and settles accepted
// ones against the ledger. Every mutation runs as one database transaction:
// either all legs commit or none do.
type OfferService struct {
	db            *sql.DB
	ledger        *LedgerService
	gate          *StepUpGate
	audit         *audit.Logger
	notifications *NotificationService
	validator     *ValidationHelper
}

type OfferCreateRequest struct {
	OfferType string  `json:"offerType" validate:"required,oneof=SELL_USD SELL_LBP"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Rate      float64 `json:"rate" validate:"required,gt=0"` // LBP per USD
	OTP       string  `json:"otp,omitempty"`
}

type OfferAcceptRequest struct {
	OTP string `json:"otp,omitempty"`
}

func NewOfferService(db *sql.DB, ledger *LedgerService, gate *StepUpGate, auditLog *audit.Logger, notifications *NotificationService) *OfferService {
	return &OfferService{
		db:            db,
		ledger:        ledger,
		gate:          gate,
		audit:         auditLog,
		notifications: notifications,
		validator:     NewValidationHelper(),
	}
}

// settlementLegs computes the taker's side of a fill. The maker's side was
// escrowed at offer creation.
func settlementLegs(offerType string, amount, rate float64) (takerPays float64, takerPaysCurrency models.Currency, takerGets float64, takerGetsCurrency models.Currency) {
	if offerType == models.OfferTypeSellUSD {
		return amount * rate, models.CurrencyLBP, amount, models.CurrencyUSD
	}
	return amount / rate, models.CurrencyUSD, amount, models.CurrencyLBP
}

// CreateOffer posts a new offer, escrowing the sale amount
// @Summary Create a peer-to-peer offer
// @Description Post an offer to sell USD or LBP at a fixed rate; the sale
// @Description amount is debited (escrowed) immediately
// @Tags p2p
// @Accept json
// @Produce json
// @Param request body OfferCreateRequest true "Offer"
// @Success 201 {object} models.Offer
// @Failure 400 {object} ErrorResponse "Insufficient funds or invalid payload"
// @Failure 403 {object} ErrorResponse "Verification code required"
// @Router /p2p/offers [post]
func (s *OfferService) CreateOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req OfferCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[P2P] Failed to begin transaction: %v", err)
		SendErrorResponse(w, "Failed to create offer", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	challenge, err := s.gate.Authorize(tx, userID, req.OTP)
	if err != nil {
		if errors.Is(err, ErrChallengeIssued) {
			if err := s.gate.FinishChallenge(tx, challenge); err != nil {
				SendErrorResponse(w, "Failed to create offer", http.StatusInternalServerError, nil)
				return
			}
		}
		SendServiceError(w, err)
		return
	}

	offer, err := s.createOffer(tx, userID, &req)
	if err != nil {
		SendServiceError(w, err)
		return
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[P2P] Failed to commit offer creation: %v", err)
		SendServiceError(w, classifyDBError(err))
		return
	}

	s.audit.RecordFor(userID, "OFFER_CREATED",
		fmt.Sprintf("Created %s offer for %.2f at rate %.2f", offer.OfferType, offer.Amount, offer.Rate))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(offer)
}

func (s *OfferService) createOffer(tx *sql.Tx, makerID int64, req *OfferCreateRequest) (*models.Offer, error) {
	// Escrow: the sale amount leaves the maker's balance now and comes back
	// only on cancellation.
	sellCurrency := models.CurrencyUSD
	if req.OfferType == models.OfferTypeSellLBP {
		sellCurrency = models.CurrencyLBP
	}
	if err := s.ledger.Debit(tx, makerID, sellCurrency, req.Amount); err != nil {
		return nil, err
	}

	offer := &models.Offer{
		MakerID:   makerID,
		OfferType: req.OfferType,
		Amount:    req.Amount,
		Rate:      req.Rate,
		Status:    models.OfferStatusOpen,
	}
	err := tx.QueryRow(`
		INSERT INTO exchange_offers (maker_user_id, offer_type, amount, rate_lbp_per_usd, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		offer.MakerID, offer.OfferType, offer.Amount, offer.Rate, offer.Status).
		Scan(&offer.ID, &offer.CreatedAt)
	if err != nil {
		return nil, classifyDBError(err)
	}
	return offer, nil
}

// CancelOffer cancels an open offer and refunds the escrow
// @Summary Cancel an open offer
// @Tags p2p
// @Produce json
// @Param offerId path int true "Offer ID"
// @Success 200 {object} models.Offer
// @Failure 400 {object} ErrorResponse "Offer not open"
// @Failure 403 {object} ErrorResponse "Not the maker"
// @Failure 404 {object} ErrorResponse
// @Router /p2p/offers/{offerId}/cancel [post]
func (s *OfferService) CancelOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	offerID, err := strconv.ParseInt(chi.URLParam(r, "offerId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid offer id", http.StatusBadRequest, nil)
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		SendErrorResponse(w, "Failed to cancel offer", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	offer, err := s.cancelOffer(tx, offerID, userID)
	if err != nil {
		SendServiceError(w, err)
		return
	}

	if err = tx.Commit(); err != nil {
		SendServiceError(w, classifyDBError(err))
		return
	}

	s.audit.RecordFor(userID, "OFFER_CANCELLED", fmt.Sprintf("Cancelled offer #%d", offer.ID))
	s.notifications.Create(userID, fmt.Sprintf("You cancelled your offer #%d. Funds refunded.", offer.ID))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(offer)
}

func (s *OfferService) cancelOffer(tx *sql.Tx, offerID, userID int64) (*models.Offer, error) {
	offer, err := lockOffer(tx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.MakerID != userID {
		return nil, ErrForbidden
	}
	if offer.Status != models.OfferStatusOpen {
		return nil, ErrInvalidState
	}

	// Refund the escrow in full.
	if err := s.ledger.Credit(tx, offer.MakerID, offer.SellCurrency(), offer.Amount); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`UPDATE exchange_offers SET status = $1 WHERE id = $2`,
		models.OfferStatusCancelled, offer.ID); err != nil {
		return nil, classifyDBError(err)
	}
	offer.Status = models.OfferStatusCancelled
	return offer, nil
}

// AcceptOffer fills an open offer in a single atomic settlement
// @Summary Accept an offer
// @Description Fill an open offer in full: the taker pays the counter-amount,
// @Description receives the escrowed amount, and a trade record is created
// @Tags p2p
// @Accept json
// @Produce json
// @Param offerId path int true "Offer ID"
// @Param request body OfferAcceptRequest true "Step-up code, when prompted"
// @Success 200 {object} models.Trade
// @Failure 400 {object} ErrorResponse "Offer not open, self trade, or insufficient funds"
// @Failure 403 {object} ErrorResponse "Verification code required"
// @Failure 409 {object} ErrorResponse "Write conflict, retry"
// @Router /p2p/offers/{offerId}/accept [post]
func (s *OfferService) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	offerID, err := strconv.ParseInt(chi.URLParam(r, "offerId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid offer id", http.StatusBadRequest, nil)
		return
	}

	var req OfferAcceptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[P2P] Failed to begin transaction: %v", err)
		SendErrorResponse(w, "Failed to accept offer", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	challenge, err := s.gate.Authorize(tx, userID, req.OTP)
	if err != nil {
		if errors.Is(err, ErrChallengeIssued) {
			if err := s.gate.FinishChallenge(tx, challenge); err != nil {
				SendErrorResponse(w, "Failed to accept offer", http.StatusInternalServerError, nil)
				return
			}
		}
		SendServiceError(w, err)
		return
	}

	trade, err := s.acceptOffer(tx, offerID, userID)
	if err != nil {
		SendServiceError(w, err)
		return
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[P2P] Failed to commit settlement: %v", err)
		SendServiceError(w, classifyDBError(err))
		return
	}

	s.audit.RecordFor(userID, "OFFER_ACCEPTED",
		fmt.Sprintf("Accepted offer #%d, trade #%d created", trade.OfferID, trade.ID))
	s.notifications.Create(trade.MakerID,
		fmt.Sprintf("Your offer #%d was accepted. Trade #%d completed.", trade.OfferID, trade.ID))
	s.notifications.Create(trade.TakerID,
		fmt.Sprintf("You accepted offer #%d. Trade #%d completed.", trade.OfferID, trade.ID))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trade)
}

// acceptOffer is the settlement protocol. The offer row lock is the
// serialization point: two concurrent accepts cannot both see OPEN, so at most
// one trade is ever created per offer. Locking the taker (gate) before the
// maker can deadlock with a mirrored accept; the database's deadlock detection
// aborts one side, which surfaces as a retryable conflict.
func (s *OfferService) acceptOffer(tx *sql.Tx, offerID, takerID int64) (*models.Trade, error) {
	offer, err := lockOffer(tx, offerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if offer.Status != models.OfferStatusOpen {
		return nil, ErrOfferNotOpen
	}
	if offer.MakerID == takerID {
		return nil, ErrSelfTrade
	}

	if err := s.ledger.LockBalances(tx, offer.MakerID); err != nil {
		return nil, err
	}

	takerPays, takerPaysCurrency, takerGets, takerGetsCurrency := settlementLegs(offer.OfferType, offer.Amount, offer.Rate)

	// Legs 1-3. The maker's paying leg was escrowed at creation, so three
	// movements remain; conservation holds across the four in total.
	if err := s.ledger.Debit(tx, takerID, takerPaysCurrency, takerPays); err != nil {
		return nil, err
	}
	if err := s.ledger.Credit(tx, offer.MakerID, takerPaysCurrency, takerPays); err != nil {
		return nil, err
	}
	if err := s.ledger.Credit(tx, takerID, takerGetsCurrency, takerGets); err != nil {
		return nil, err
	}

	filledAt := time.Now().UTC()
	if _, err := tx.Exec(`
		UPDATE exchange_offers SET status = $1, filled_at = $2 WHERE id = $3`,
		models.OfferStatusFilled, filledAt, offer.ID); err != nil {
		return nil, classifyDBError(err)
	}

	trade := &models.Trade{
		OfferID:            offer.ID,
		MakerID:            offer.MakerID,
		TakerID:            takerID,
		OfferType:          offer.OfferType,
		MakerGivesAmount:   offer.Amount,
		MakerGivesCurrency: offer.SellCurrency(),
		MakerGetsAmount:    takerPays,
		MakerGetsCurrency:  takerPaysCurrency,
		Rate:               offer.Rate,
	}
	err = tx.QueryRow(`
		INSERT INTO trades (offer_id, maker_user_id, taker_user_id, offer_type,
			maker_gives_amount, maker_gives_currency, maker_gets_amount, maker_gets_currency, rate_lbp_per_usd)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		trade.OfferID, trade.MakerID, trade.TakerID, trade.OfferType,
		trade.MakerGivesAmount, trade.MakerGivesCurrency, trade.MakerGetsAmount,
		trade.MakerGetsCurrency, trade.Rate).
		Scan(&trade.ID, &trade.CreatedAt)
	if err != nil {
		return nil, classifyDBError(err)
	}
	return trade, nil
}

// lockOffer reads an offer under an exclusive row lock.
func lockOffer(tx *sql.Tx, offerID int64) (*models.Offer, error) {
	var offer models.Offer
	var filledAt sql.NullTime
	err := tx.QueryRow(`
		SELECT id, maker_user_id, offer_type, amount, rate_lbp_per_usd, status, created_at, filled_at
		FROM exchange_offers WHERE id = $1 FOR UPDATE`, offerID).
		Scan(&offer.ID, &offer.MakerID, &offer.OfferType, &offer.Amount, &offer.Rate,
			&offer.Status, &offer.CreatedAt, &filledAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, classifyDBError(err)
	}
	if filledAt.Valid {
		offer.FilledAt = &filledAt.Time
	}
	return &offer, nil
}

// ListOpenOffers lists all open offers
// @Summary List open offers
// @Tags p2p
// @Produce json
// @Success 200 {array} models.Offer
// @Router /p2p/offers/open [get]
func (s *OfferService) ListOpenOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := s.fetchOffers(`WHERE status = $1 ORDER BY created_at DESC`, models.OfferStatusOpen)
	if err != nil {
		log.Printf("[P2P] Failed to list open offers: %v", err)
		SendErrorResponse(w, "Failed to fetch offers", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(offers)
}

// MyOffers lists the caller's offers
// @Summary List own offers
// @Tags p2p
// @Produce json
// @Success 200 {array} models.Offer
// @Router /p2p/me/offers [get]
func (s *OfferService) MyOffers(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	offers, err := s.fetchOffers(`WHERE maker_user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		log.Printf("[P2P] Failed to list offers for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch offers", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(offers)
}

func (s *OfferService) fetchOffers(clause string, args ...any) ([]models.Offer, error) {
	rows, err := s.db.Query(`
		SELECT id, maker_user_id, offer_type, amount, rate_lbp_per_usd, status, created_at, filled_at
		FROM exchange_offers `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offers := []models.Offer{}
	for rows.Next() {
		var offer models.Offer
		var filledAt sql.NullTime
		err := rows.Scan(&offer.ID, &offer.MakerID, &offer.OfferType, &offer.Amount,
			&offer.Rate, &offer.Status, &offer.CreatedAt, &filledAt)
		if err != nil {
			return nil, err
		}
		if filledAt.Valid {
			offer.FilledAt = &filledAt.Time
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

// MyTrades lists trades where the caller is maker or taker
// @Summary List own trades
// @Tags p2p
// @Produce json
// @Success 200 {array} models.Trade
// @Router /p2p/me/trades [get]
func (s *OfferService) MyTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT id, offer_id, maker_user_id, taker_user_id, offer_type,
			maker_gives_amount, maker_gives_currency, maker_gets_amount, maker_gets_currency,
			rate_lbp_per_usd, created_at
		FROM trades
		WHERE maker_user_id = $1 OR taker_user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		log.Printf("[P2P] Failed to list trades for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch trades", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	trades := []models.Trade{}
	for rows.Next() {
		var trade models.Trade
		err := rows.Scan(&trade.ID, &trade.OfferID, &trade.MakerID, &trade.TakerID, &trade.OfferType,
			&trade.MakerGivesAmount, &trade.MakerGivesCurrency, &trade.MakerGetsAmount,
			&trade.MakerGetsCurrency, &trade.Rate, &trade.CreatedAt)
		if err != nil {
			log.Printf("[P2P] Failed to scan trade row: %v", err)
			SendErrorResponse(w, "Failed to fetch trades", http.StatusInternalServerError, nil)
			return
		}
		trades = append(trades, trade)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trades)
}
