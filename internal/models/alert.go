package models

import "time"

const (
	AlertConditionAbove = "ABOVE"
	AlertConditionBelow = "BELOW"
)

// Alert is a one-shot rate threshold subscription. It deactivates on the first
// observation that satisfies the condition and is never reactivated.
type Alert struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"userId" db:"user_id"`
	TargetRate float64   `json:"targetRate" db:"target_rate"`
	Condition  string    `json:"condition" db:"condition"`
	IsActive   bool      `json:"isActive" db:"is_active"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
