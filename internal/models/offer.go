package models

import "time"

const (
	OfferTypeSellUSD = "SELL_USD"
	OfferTypeSellLBP = "SELL_LBP"

	OfferStatusOpen      = "OPEN"
	OfferStatusFilled    = "FILLED"
	OfferStatusCancelled = "CANCELLED"
)

// Offer is a peer-to-peer exchange offer. The sale amount is debited from the
// maker when the offer is created and held until it is filled or cancelled.
type Offer struct {
	ID        int64      `json:"id" db:"id"`
	MakerID   int64      `json:"makerId" db:"maker_user_id"`
	OfferType string     `json:"offerType" db:"offer_type"`
	Amount    float64    `json:"amount" db:"amount"` // in the currency being sold
	Rate      float64    `json:"rate" db:"rate_lbp_per_usd"`
	Status    string     `json:"status" db:"status"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	FilledAt  *time.Time `json:"filledAt,omitempty" db:"filled_at"`
}

// SellCurrency returns the currency the maker escrowed.
func (o *Offer) SellCurrency() Currency {
	if o.OfferType == OfferTypeSellUSD {
		return CurrencyUSD
	}
	return CurrencyLBP
}
