package services

import (
	cryptorand "crypto/rand"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lbxchange/backend/internal/notify"
)

const otpValidity = 5 * time.Minute

// StepUpGate enforces one-time-code verification before money-moving
// operations. The stored challenge lives on the user row so issuing and
// consuming a code share the transaction of the operation it guards; a code
// can never be replayed by a concurrent request.
type StepUpGate struct {
	mailer notify.EmailSink
}

// Challenge carries a freshly issued code out of the transaction so it can be
// dispatched after commit.
type Challenge struct {
	Email string
	Code  string
}

func NewStepUpGate(mailer notify.EmailSink) *StepUpGate {
	return &StepUpGate{mailer: mailer}
}

// Authorize must be called inside tx before any other mutation.
//
// Users without step-up enabled pass unconditionally. With no code provided, a
// new 6-digit challenge is written (overwriting any pending one) and
// ErrChallengeIssued is returned together with the challenge; the caller
// commits tx, dispatches the code, and the client resubmits. With a code
// provided, the stored challenge is matched and consumed in place; mismatch or
// expiry fails with ErrInvalidOTP without touching the stored challenge, so a
// mistyped code does not burn the real one.
func (g *StepUpGate) Authorize(tx *sql.Tx, userID int64, providedCode string) (*Challenge, error) {
	var (
		email      string
		mfaEnabled bool
		storedCode sql.NullString
		expiry     sql.NullTime
	)
	err := tx.QueryRow(`
		SELECT email, mfa_enabled, current_otp, otp_expiry
		FROM users WHERE id = $1 FOR UPDATE`, userID).
		Scan(&email, &mfaEnabled, &storedCode, &expiry)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, classifyDBError(err)
	}

	if !mfaEnabled {
		return nil, nil
	}

	if providedCode == "" {
		code, err := generateOTP()
		if err != nil {
			return nil, err
		}
		_, err = tx.Exec(`
			UPDATE users SET current_otp = $1, otp_expiry = $2
			WHERE id = $3`,
			code, time.Now().UTC().Add(otpValidity), userID)
		if err != nil {
			return nil, classifyDBError(err)
		}
		return &Challenge{Email: email, Code: code}, ErrChallengeIssued
	}

	// Expired codes never verify, so an expired challenge is as good as
	// consumed even though the row is left alone.
	if !storedCode.Valid || !expiry.Valid || storedCode.String != providedCode ||
		time.Now().UTC().After(expiry.Time) {
		return nil, ErrInvalidOTP
	}

	// Single use: the clear commits together with the guarded operation.
	_, err = tx.Exec(`
		UPDATE users SET current_otp = NULL, otp_expiry = NULL
		WHERE id = $1`, userID)
	if err != nil {
		return nil, classifyDBError(err)
	}
	return nil, nil
}

// FinishChallenge commits the challenge write and dispatches the code
// out-of-band. The commit must happen before dispatch so a resubmitted code
// always matches a durable row.
func (g *StepUpGate) FinishChallenge(tx *sql.Tx, challenge *Challenge) error {
	if err := tx.Commit(); err != nil {
		return classifyDBError(err)
	}
	go g.mailer.SendChallenge(challenge.Email, challenge.Code)
	log.Printf("[AUTH] Step-up challenge issued for %s", challenge.Email)
	return nil
}

func generateOTP() (string, error) {
	b := make([]byte, 4)
	if _, err := cryptorand.Read(b); err != nil {
		return "", err
	}
	n := (int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3])) & 0x7fffffff
	return fmt.Sprintf("%06d", 100000+n%900000), nil
}
