package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/viper"

	"github.com/lbxchange/backend/internal/models"
)

// QRHandler renders shareable QR codes for open offers so a maker can hand a
// counterparty a direct link.
type QRHandler struct {
	db *sql.DB
}

func NewQRHandler(db *sql.DB) *QRHandler {
	viper.SetDefault("app.public_url", "http://localhost:8080")
	return &QRHandler{db: db}
}

// OfferQR renders a QR code linking to an open offer
// @Summary Get a shareable offer QR code
// @Tags p2p
// @Produce image/png
// @Param offerId path int true "Offer ID"
// @Success 200 {string} string "PNG image"
// @Failure 404 {object} map[string]string "Offer not found or not open"
// @Router /p2p/offers/{offerId}/qr [get]
func (h *QRHandler) OfferQR(w http.ResponseWriter, r *http.Request) {
	offerID, err := strconv.ParseInt(chi.URLParam(r, "offerId"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid offer id")
		return
	}

	var status string
	err = h.db.QueryRow(`SELECT status FROM exchange_offers WHERE id = $1`, offerID).Scan(&status)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "Offer not found")
		return
	}
	if status != models.OfferStatusOpen {
		writeJSONError(w, http.StatusNotFound, "Offer is no longer open")
		return
	}

	shareURL := fmt.Sprintf("%s/p2p/offers/%d", viper.GetString("app.public_url"), offerID)
	png, err := qrcode.Encode(shareURL, qrcode.Medium, 256)
	if err != nil {
		log.Printf("[QR] Failed to encode QR for offer %d: %v", offerID, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
