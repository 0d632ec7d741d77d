package audit

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    *int64    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

// Logger appends audit events to the audit_logs table and mirrors them to the
// process log. Both writes are best-effort and never block or roll back the
// operation being audited.
type Logger struct {
	db *sql.DB
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Record logs an action for a user. Pass a nil userID for anonymous events
// (e.g. failed logins for unknown emails).
func (l *Logger) Record(userID *int64, action, details string) {
	event := Event{
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Action:    action,
		Details:   details,
	}

	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))

	if l.db == nil {
		return
	}
	_, err := l.db.Exec(`
		INSERT INTO audit_logs (user_id, action, details, created_at)
		VALUES ($1, $2, $3, $4)`,
		userID, action, details, event.Timestamp)
	if err != nil {
		log.Printf("AUDIT: failed to persist event %s: %v", action, err)
	}
}

// RecordFor is Record with a concrete user ID.
func (l *Logger) RecordFor(userID int64, action, details string) {
	l.Record(&userID, action, details)
}
