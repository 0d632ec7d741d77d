package models

import "time"

type AuditLog struct {
	ID        int64     `json:"id" db:"id"`
	UserID    *int64    `json:"userId,omitempty" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	Details   string    `json:"details" db:"details"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
