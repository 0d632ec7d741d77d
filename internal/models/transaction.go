package models

import "time"

const (
	DirectionUSDToLBP = "USD_TO_LBP"
	DirectionLBPToUSD = "LBP_TO_USD"
)

// Transaction records a direct conversion against the market rate.
type Transaction struct {
	ID          int64     `json:"id" db:"id"`
	ReferenceID string    `json:"referenceId" db:"reference_id"`
	UserID      int64     `json:"userId" db:"user_id"`
	Direction   string    `json:"direction" db:"direction"`
	AmountFrom  float64   `json:"amountFrom" db:"amount_from"`
	AmountTo    float64   `json:"amountTo" db:"amount_to"`
	RateUsed    float64   `json:"rateUsed" db:"rate_used"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
