package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaultbank/backend/internal/bankerr"
	"github.com/vaultbank/backend/internal/models"
)

// errConflict marks an optimistic-lock failure on a balance update. It is
// the only error the transfer engine retries; business failures surface
// to the caller unchanged.
var errConflict = errors.New("account version conflict")

// lockAccount reads an account row under FOR UPDATE inside the current
// storage transaction. Every balance read the engine acts on comes through
// here, never from outside the transaction.
func lockAccount(tx *sql.Tx, accountID string) (*models.Account, error) {
	var a models.Account
	err := tx.QueryRow(`
		SELECT id, account_number, customer_id, account_type, currency,
		       balance, available_balance, status, version, created_at, updated_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, accountID).Scan(
		&a.ID, &a.AccountNumber, &a.CustomerID, &a.AccountType, &a.Currency,
		&a.Balance, &a.AvailableBalance, &a.Status, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bankerr.ErrNotFound
		}
		return nil, fmt.Errorf("lock account %s: %w", accountID, err)
	}
	return &a, nil
}

// checkAndReserve locks the account and verifies it can take part in the
// operation: it must exist, be ACTIVE, and for a debit hold at least
// amount of available balance. The engine rejects, it never clamps.
func checkAndReserve(tx *sql.Tx, accountID string, amount decimal.Decimal, direction models.Direction) (*models.Account, error) {
	account, err := lockAccount(tx, accountID)
	if err != nil {
		return nil, err
	}

	if account.Status != models.AccountActive {
		return nil, bankerr.ErrAccountInactive
	}

	if direction == models.Debit && account.AvailableBalance.LessThan(amount) {
		return nil, bankerr.ErrInsufficientFunds
	}

	return account, nil
}

// applyDebit decrements both balance and available balance under a version
// compare-and-update. The caller must hold the row lock from lockAccount.
func applyDebit(tx *sql.Tx, account *models.Account, amount decimal.Decimal) error {
	return applyBalanceChange(tx, account, account.Balance.Sub(amount), account.AvailableBalance.Sub(amount))
}

// applyCredit increments both balance and available balance.
func applyCredit(tx *sql.Tx, account *models.Account, amount decimal.Decimal) error {
	return applyBalanceChange(tx, account, account.Balance.Add(amount), account.AvailableBalance.Add(amount))
}

func applyBalanceChange(tx *sql.Tx, account *models.Account, newBalance, newAvailable decimal.Decimal) error {
	if newBalance.IsNegative() || newAvailable.IsNegative() {
		return bankerr.ErrInsufficientFunds
	}

	result, err := tx.Exec(`
		UPDATE accounts
		SET balance = $1, available_balance = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5`,
		newBalance, newAvailable, time.Now(), account.ID, account.Version)
	if err != nil {
		return fmt.Errorf("update balance for account %s: %w", account.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errConflict
	}

	account.Balance = newBalance
	account.AvailableBalance = newAvailable
	account.Version++
	return nil
}
