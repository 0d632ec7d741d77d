package models

import "time"

type WatchlistItem struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ItemType  string    `json:"itemType" db:"item_type"`
	Value     string    `json:"value" db:"value"`
	Note      string    `json:"note,omitempty" db:"note"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
