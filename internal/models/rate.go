package models

import "time"

// RateSnapshot is one observation of the market rate. Append-only.
type RateSnapshot struct {
	ID        int64     `json:"id" db:"id"`
	BuyRate   float64   `json:"buyRate" db:"buy_rate"`
	SellRate  float64   `json:"sellRate" db:"sell_rate"`
	MidRate   float64   `json:"midRate" db:"mid_rate"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
