package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/lbxchange/backend/internal/models"
)

func TestLedgerService_Debit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)

	t.Run("successful debit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE users SET usd_balance = usd_balance - \$1`).
			WithArgs(100.0, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)
		defer tx.Rollback()

		err = service.Debit(tx, 1, models.CurrencyUSD, 100.0)
		assert.NoError(t, err)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE users SET lbp_balance = lbp_balance - \$1`).
			WithArgs(5000000.0, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)
		defer tx.Rollback()

		err = service.Debit(tx, 2, models.CurrencyLBP, 5000000.0)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})

	t.Run("unknown currency", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)
		defer tx.Rollback()

		err = service.Debit(tx, 1, models.Currency("EUR"), 10.0)
		assert.Error(t, err)
	})
}

func TestLedgerService_Credit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)

	t.Run("successful credit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE users SET usd_balance = usd_balance \+ \$1`).
			WithArgs(50.0, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)
		defer tx.Rollback()

		err = service.Credit(tx, 3, models.CurrencyUSD, 50.0)
		assert.NoError(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE users SET usd_balance = usd_balance \+ \$1`).
			WithArgs(50.0, int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)
		defer tx.Rollback()

		err = service.Credit(tx, 99, models.CurrencyUSD, 50.0)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLedgerService_LockBalances(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)

	t.Run("locks rows in ascending id order", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		mock.ExpectRollback()

		tx, err := db.Begin()
		assert.NoError(t, err)
		defer tx.Rollback()

		// Passed descending, locked ascending.
		err = service.LockBalances(tx, 7, 2)
		assert.NoError(t, err)
		tx.Rollback()
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_Balances(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db)

	t.Run("returns both balances", func(t *testing.T) {
		mock.ExpectQuery(`SELECT usd_balance, lbp_balance FROM users WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"usd_balance", "lbp_balance"}).
				AddRow(10000.0, 1000000000.0))

		usd, lbp, err := service.Balances(1)
		assert.NoError(t, err)
		assert.Equal(t, 10000.0, usd)
		assert.Equal(t, 1000000000.0, lbp)
	})
}
