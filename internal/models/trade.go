package models

import "time"

// Trade is the immutable record of one settled offer. Exactly one trade exists
// per FILLED offer.
type Trade struct {
	ID      int64 `json:"id" db:"id"`
	OfferID int64 `json:"offerId" db:"offer_id"`
	MakerID int64 `json:"makerId" db:"maker_user_id"`
	TakerID int64 `json:"takerId" db:"taker_user_id"`

	OfferType string `json:"offerType" db:"offer_type"`

	MakerGivesAmount   float64  `json:"makerGivesAmount" db:"maker_gives_amount"`
	MakerGivesCurrency Currency `json:"makerGivesCurrency" db:"maker_gives_currency"`
	MakerGetsAmount    float64  `json:"makerGetsAmount" db:"maker_gets_amount"`
	MakerGetsCurrency  Currency `json:"makerGetsCurrency" db:"maker_gets_currency"`

	Rate      float64   `json:"rate" db:"rate_lbp_per_usd"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
