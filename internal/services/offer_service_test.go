package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/lbxchange/backend/internal/audit"
	"github.com/lbxchange/backend/internal/models"
)

func newOfferService(db *sql.DB) *OfferService {
	return NewOfferService(db, NewLedgerService(db), NewStepUpGate(&MockEmailSink{}),
		audit.NewLogger(db), NewNotificationService(db))
}

func openOfferRow(id, makerID int64, offerType string, amount, rate float64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "maker_user_id", "offer_type", "amount",
		"rate_lbp_per_usd", "status", "created_at", "filled_at"}).
		AddRow(id, makerID, offerType, amount, rate, status, time.Now(), nil)
}

func TestSettlementLegs(t *testing.T) {
	t.Run("sell usd", func(t *testing.T) {
		pays, paysCur, gets, getsCur := settlementLegs(models.OfferTypeSellUSD, 100, 89000)
		assert.Equal(t, 8900000.0, pays)
		assert.Equal(t, models.CurrencyLBP, paysCur)
		assert.Equal(t, 100.0, gets)
		assert.Equal(t, models.CurrencyUSD, getsCur)
	})

	t.Run("sell lbp", func(t *testing.T) {
		pays, paysCur, gets, getsCur := settlementLegs(models.OfferTypeSellLBP, 890000, 89000)
		assert.Equal(t, 10.0, pays)
		assert.Equal(t, models.CurrencyUSD, paysCur)
		assert.Equal(t, 890000.0, gets)
		assert.Equal(t, models.CurrencyLBP, getsCur)
	})
}

func TestOfferService_CreateOffer(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := newOfferService(db)

	t.Run("escrows and creates", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(1)).
			WillReturnRows(gateUserRow(false, nil, nil))
		mock.ExpectExec(`UPDATE users SET usd_balance = usd_balance - \$1`).
			WithArgs(100.0, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO exchange_offers`).
			WithArgs(int64(1), models.OfferTypeSellUSD, 100.0, 89000.0, models.OfferStatusOpen).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(10, time.Now()))
		mock.ExpectCommit()
		mock.ExpectExec(`INSERT INTO audit_logs`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		body, _ := json.Marshal(OfferCreateRequest{OfferType: models.OfferTypeSellUSD, Amount: 100, Rate: 89000})
		w := httptest.NewRecorder()

		service.CreateOffer(w, authedRequest("POST", "/p2p/offers", bytes.NewBuffer(body), 1))

		assert.Equal(t, http.StatusCreated, w.Code)
		var offer models.Offer
		json.Unmarshal(w.Body.Bytes(), &offer)
		assert.Equal(t, int64(10), offer.ID)
		assert.Equal(t, models.OfferStatusOpen, offer.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient escrow funds", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(1)).
			WillReturnRows(gateUserRow(false, nil, nil))
		mock.ExpectExec(`UPDATE users SET usd_balance = usd_balance - \$1`).
			WithArgs(1000000.0, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		body, _ := json.Marshal(OfferCreateRequest{OfferType: models.OfferTypeSellUSD, Amount: 1000000, Rate: 89000})
		w := httptest.NewRecorder()

		service.CreateOffer(w, authedRequest("POST", "/p2p/offers", bytes.NewBuffer(body), 1))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid offer type", func(t *testing.T) {
		body, _ := json.Marshal(OfferCreateRequest{OfferType: "SELL_EUR", Amount: 100, Rate: 89000})
		w := httptest.NewRecorder()

		service.CreateOffer(w, authedRequest("POST", "/p2p/offers", bytes.NewBuffer(body), 1))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOfferService_AcceptOffer(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := newOfferService(db)
	router := chi.NewRouter()
	router.Post("/p2p/offers/{offerId}/accept", service.AcceptOffer)

	acceptBody := func() *bytes.Buffer {
		body, _ := json.Marshal(OfferAcceptRequest{})
		return bytes.NewBuffer(body)
	}

	t.Run("settles all legs atomically", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(1)).
			WillReturnRows(gateUserRow(false, nil, nil))
		mock.ExpectQuery(`FROM exchange_offers WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(10)).
			WillReturnRows(openOfferRow(10, 2, models.OfferTypeSellUSD, 100, 89000, models.OfferStatusOpen))
		mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectExec(`UPDATE users SET lbp_balance = lbp_balance - \$1`).
			WithArgs(8900000.0, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE users SET lbp_balance = lbp_balance \+ \$1`).
			WithArgs(8900000.0, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE users SET usd_balance = usd_balance \+ \$1`).
			WithArgs(100.0, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE exchange_offers SET status = \$1, filled_at = \$2`).
			WithArgs(models.OfferStatusFilled, sqlmock.AnyArg(), int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO trades`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, time.Now()))
		mock.ExpectCommit()
		mock.ExpectExec(`INSERT INTO audit_logs`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO notifications`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO notifications`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/p2p/offers/10/accept", acceptBody(), 1))

		assert.Equal(t, http.StatusOK, w.Code)
		var trade models.Trade
		json.Unmarshal(w.Body.Bytes(), &trade)
		assert.Equal(t, int64(5), trade.ID)
		assert.Equal(t, int64(10), trade.OfferID)
		assert.Equal(t, 100.0, trade.MakerGivesAmount)
		assert.Equal(t, 8900000.0, trade.MakerGetsAmount)
		// Conservation: the maker's proceeds equal the taker's payment leg.
		assert.Equal(t, trade.MakerGivesAmount*trade.Rate, trade.MakerGetsAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects self trade", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(2)).
			WillReturnRows(gateUserRow(false, nil, nil))
		mock.ExpectQuery(`FROM exchange_offers WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(10)).
			WillReturnRows(openOfferRow(10, 2, models.OfferTypeSellUSD, 100, 89000, models.OfferStatusOpen))
		mock.ExpectRollback()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/p2p/offers/10/accept", acceptBody(), 2))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "your own offer")
	})

	t.Run("rejects non-open offer", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(1)).
			WillReturnRows(gateUserRow(false, nil, nil))
		mock.ExpectQuery(`FROM exchange_offers WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(10)).
			WillReturnRows(openOfferRow(10, 2, models.OfferTypeSellUSD, 100, 89000, models.OfferStatusFilled))
		mock.ExpectRollback()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/p2p/offers/10/accept", acceptBody(), 1))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "no longer open")
	})

	t.Run("unknown offer", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(1)).
			WillReturnRows(gateUserRow(false, nil, nil))
		mock.ExpectQuery(`FROM exchange_offers WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/p2p/offers/99/accept", acceptBody(), 1))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("taker cannot cover the payment leg", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(1)).
			WillReturnRows(gateUserRow(false, nil, nil))
		mock.ExpectQuery(`FROM exchange_offers WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(10)).
			WillReturnRows(openOfferRow(10, 2, models.OfferTypeSellUSD, 100, 89000, models.OfferStatusOpen))
		mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectExec(`UPDATE users SET lbp_balance = lbp_balance - \$1`).
			WithArgs(8900000.0, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/p2p/offers/10/accept", acceptBody(), 1))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "insufficient funds")
	})
}

func TestOfferService_CancelOffer(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := newOfferService(db)
	router := chi.NewRouter()
	router.Post("/p2p/offers/{offerId}/cancel", service.CancelOffer)

	t.Run("refunds escrow and cancels", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM exchange_offers WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(10)).
			WillReturnRows(openOfferRow(10, 2, models.OfferTypeSellUSD, 100, 89000, models.OfferStatusOpen))
		mock.ExpectExec(`UPDATE users SET usd_balance = usd_balance \+ \$1`).
			WithArgs(100.0, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE exchange_offers SET status = \$1`).
			WithArgs(models.OfferStatusCancelled, int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectExec(`INSERT INTO audit_logs`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO notifications`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/p2p/offers/10/cancel", nil, 2))

		assert.Equal(t, http.StatusOK, w.Code)
		var offer models.Offer
		json.Unmarshal(w.Body.Bytes(), &offer)
		assert.Equal(t, models.OfferStatusCancelled, offer.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("only the maker can cancel", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM exchange_offers WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(10)).
			WillReturnRows(openOfferRow(10, 2, models.OfferTypeSellUSD, 100, 89000, models.OfferStatusOpen))
		mock.ExpectRollback()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/p2p/offers/10/cancel", nil, 3))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("cannot cancel a filled offer", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM exchange_offers WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(10)).
			WillReturnRows(openOfferRow(10, 2, models.OfferTypeSellUSD, 100, 89000, models.OfferStatusFilled))
		mock.ExpectRollback()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/p2p/offers/10/cancel", nil, 2))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOfferService_ListOpenOffers(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := newOfferService(db)

	t.Run("returns open offers", func(t *testing.T) {
		mock.ExpectQuery(`FROM exchange_offers WHERE status = \$1`).
			WithArgs(models.OfferStatusOpen).
			WillReturnRows(openOfferRow(10, 2, models.OfferTypeSellUSD, 100, 89000, models.OfferStatusOpen))

		w := httptest.NewRecorder()
		service.ListOpenOffers(w, httptest.NewRequest("GET", "/p2p/offers/open", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var offers []models.Offer
		json.Unmarshal(w.Body.Bytes(), &offers)
		assert.Len(t, offers, 1)
		assert.Equal(t, int64(10), offers[0].ID)
	})

	t.Run("empty book yields empty array", func(t *testing.T) {
		mock.ExpectQuery(`FROM exchange_offers WHERE status = \$1`).
			WithArgs(models.OfferStatusOpen).
			WillReturnRows(sqlmock.NewRows([]string{"id", "maker_user_id", "offer_type", "amount",
				"rate_lbp_per_usd", "status", "created_at", "filled_at"}))

		w := httptest.NewRecorder()
		service.ListOpenOffers(w, httptest.NewRequest("GET", "/p2p/offers/open", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})
}
