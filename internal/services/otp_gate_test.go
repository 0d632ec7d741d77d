package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func gateUserRow(mfaEnabled bool, code any, expiry any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"email", "mfa_enabled", "current_otp", "otp_expiry"}).
		AddRow("user@example.com", mfaEnabled, code, expiry)
}

func TestStepUpGate_Authorize(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mailer := &MockEmailSink{}
	gate := NewStepUpGate(mailer)

	t.Run("disabled user passes without a code", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(1)).
			WillReturnRows(gateUserRow(false, nil, nil))
		mock.ExpectRollback()

		tx, _ := db.Begin()
		defer tx.Rollback()

		challenge, err := gate.Authorize(tx, 1, "")
		assert.NoError(t, err)
		assert.Nil(t, challenge)
	})

	t.Run("no code issues a challenge", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(1)).
			WillReturnRows(gateUserRow(true, nil, nil))
		mock.ExpectExec(`UPDATE users SET current_otp = \$1, otp_expiry = \$2`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		tx, _ := db.Begin()
		defer tx.Rollback()

		challenge, err := gate.Authorize(tx, 1, "")
		assert.ErrorIs(t, err, ErrChallengeIssued)
		assert.NotNil(t, challenge)
		assert.Equal(t, "user@example.com", challenge.Email)
		assert.Len(t, challenge.Code, 6)
	})

	t.Run("reissue overwrites a pending challenge", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(1)).
			WillReturnRows(gateUserRow(true, "111111", time.Now().UTC().Add(time.Minute)))
		mock.ExpectExec(`UPDATE users SET current_otp = \$1, otp_expiry = \$2`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		tx, _ := db.Begin()
		defer tx.Rollback()

		challenge, err := gate.Authorize(tx, 1, "")
		assert.ErrorIs(t, err, ErrChallengeIssued)
		assert.NotEqual(t, "111111", challenge.Code)
	})

	t.Run("wrong code fails without consuming the challenge", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(1)).
			WillReturnRows(gateUserRow(true, "123456", time.Now().UTC().Add(time.Minute)))
		mock.ExpectRollback()

		tx, _ := db.Begin()
		defer tx.Rollback()

		challenge, err := gate.Authorize(tx, 1, "999999")
		assert.ErrorIs(t, err, ErrInvalidOTP)
		assert.Nil(t, challenge)
		tx.Rollback()
		// No UPDATE expected: the stored challenge survives a mistyped code.
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired code fails", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(1)).
			WillReturnRows(gateUserRow(true, "123456", time.Now().UTC().Add(-time.Minute)))
		mock.ExpectRollback()

		tx, _ := db.Begin()
		defer tx.Rollback()

		_, err := gate.Authorize(tx, 1, "123456")
		assert.ErrorIs(t, err, ErrInvalidOTP)
	})

	t.Run("correct code verifies and clears", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(1)).
			WillReturnRows(gateUserRow(true, "123456", time.Now().UTC().Add(time.Minute)))
		mock.ExpectExec(`UPDATE users SET current_otp = NULL, otp_expiry = NULL`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		tx, _ := db.Begin()
		defer tx.Rollback()

		challenge, err := gate.Authorize(tx, 1, "123456")
		assert.NoError(t, err)
		assert.Nil(t, challenge)
		tx.Rollback()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("consumed challenge rejects a second use", func(t *testing.T) {
		// The clear on success leaves the stored challenge NULL, so replaying
		// the code that just succeeded must fail.
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(1)).
			WillReturnRows(gateUserRow(true, nil, nil))
		mock.ExpectRollback()

		tx, _ := db.Begin()
		defer tx.Rollback()

		challenge, err := gate.Authorize(tx, 1, "123456")
		assert.ErrorIs(t, err, ErrInvalidOTP)
		assert.Nil(t, challenge)
		tx.Rollback()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT email, mfa_enabled, current_otp, otp_expiry`).
			WithArgs(int64(42)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		tx, _ := db.Begin()
		defer tx.Rollback()

		_, err := gate.Authorize(tx, 42, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGenerateOTP(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := generateOTP()
		assert.NoError(t, err)
		assert.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9')
		}
		seen[code] = true
	}
	// 50 draws from a million-code space should not all collide.
	assert.Greater(t, len(seen), 1)
}
