package services

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/lbxchange/backend/internal/models"
)

// LedgerService moves money between the two currency balances on user rows.
// Every debit/credit pair runs inside a caller-owned *sql.Tx so a failed leg
// rolls the whole business operation back.
type LedgerService struct {
	db *sql.DB
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{db: db}
}

func balanceColumn(c models.Currency) string {
	if c == models.CurrencyUSD {
		return "usd_balance"
	}
	return "lbp_balance"
}

// LockBalances takes row locks on the given users' balance rows. Rows are
// locked in ascending ID order to prevent deadlocks between concurrent
// settlements touching the same pair.
func (s *LedgerService) LockBalances(tx *sql.Tx, userIDs ...int64) error {
	ids := append([]int64(nil), userIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		var locked int64
		err := tx.QueryRow(`SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return classifyDBError(err)
		}
	}
	return nil
}

// Debit subtracts amount from the user's balance in the given currency. The
// guarded UPDATE fails with ErrInsufficientFunds rather than letting the
// balance go negative.
func (s *LedgerService) Debit(tx *sql.Tx, userID int64, c models.Currency, amount float64) error {
	if !c.Valid() {
		return fmt.Errorf("unknown currency %q", c)
	}
	col := balanceColumn(c)
	result, err := tx.Exec(fmt.Sprintf(`
		UPDATE users SET %s = %s - $1
		WHERE id = $2 AND %s >= $1`, col, col, col),
		amount, userID)
	if err != nil {
		return classifyDBError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// Credit adds amount to the user's balance in the given currency.
func (s *LedgerService) Credit(tx *sql.Tx, userID int64, c models.Currency, amount float64) error {
	if !c.Valid() {
		return fmt.Errorf("unknown currency %q", c)
	}
	col := balanceColumn(c)
	result, err := tx.Exec(fmt.Sprintf(`
		UPDATE users SET %s = %s + $1
		WHERE id = $2`, col, col),
		amount, userID)
	if err != nil {
		return classifyDBError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Balances reads both balances for a user outside any transaction.
func (s *LedgerService) Balances(userID int64) (usd, lbp float64, err error) {
	err = s.db.QueryRow(`SELECT usd_balance, lbp_balance FROM users WHERE id = $1`, userID).
		Scan(&usd, &lbp)
	if err == sql.ErrNoRows {
		return 0, 0, ErrNotFound
	}
	return usd, lbp, err
}
