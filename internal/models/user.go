package models

import "time"

type User struct {
	ID         int64  `json:"id" db:"id"`
	Email      string `json:"email" db:"email"`
	Role       string `json:"role" db:"role"`     // USER or ADMIN
	Status     string `json:"status" db:"status"` // ACTIVE or SUSPENDED
	MFAEnabled bool   `json:"mfaEnabled" db:"mfa_enabled"`

	// Balances are mutated only by the ledger service, inside a transaction.
	USDBalance float64 `json:"usdBalance" db:"usd_balance"`
	LBPBalance float64 `json:"lbpBalance" db:"lbp_balance"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type UserPreference struct {
	ID            int64  `json:"id" db:"id"`
	UserID        int64  `json:"userId" db:"user_id"`
	TimeRangeDays int    `json:"timeRangeDays" db:"time_range_days"`
	GraphInterval string `json:"graphInterval" db:"graph_interval"` // HOURLY or DAILY
}
