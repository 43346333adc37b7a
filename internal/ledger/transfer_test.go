package ledger

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/vaultbank/backend/internal/bankerr"
	"github.com/vaultbank/backend/internal/config"
	"github.com/vaultbank/backend/internal/models"
)

type fakeQueue struct {
	enqueued []*models.Transaction
	err      error
}

func (f *fakeQueue) Enqueue(_ context.Context, txn *models.Transaction) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, txn)
	return nil
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	svc := NewService(db, config.TransferConfig{
		InstantMaxAmount: dec("500000"),
		MaxRetries:       3,
		RetryBackoff:     time.Millisecond,
	}, nil)
	return svc, mock, db
}

func expectLock(mock sqlmock.Sqlmock, accountID string, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT id, account_number, customer_id").
		WithArgs(accountID).
		WillReturnRows(rows)
}

func expectBalanceUpdate(mock sqlmock.Sqlmock, accountID string, version int, affected int64) {
	mock.ExpectExec("UPDATE accounts").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), accountID, version).
		WillReturnResult(sqlmock.NewResult(0, affected))
}

func TestTransferInternal(t *testing.T) {
	t.Run("successful transfer writes two cross-referenced legs", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "5000.00", "5000.00", "ACTIVE", 1))
		expectLock(mock, "acc-2", accountRow("acc-2", "2000.00", "2000.00", "ACTIVE", 1))
		expectBalanceUpdate(mock, "acc-1", 1, 1)
		expectBalanceUpdate(mock, "acc-2", 1, 1)
		mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		result, err := svc.TransferInternal(context.Background(), &models.InternalTransferRequest{
			FromAccountID: "acc-1",
			ToAccountID:   "acc-2",
			Amount:        dec("1000.00"),
			Description:   "rent",
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())

		debit, credit := result.DebitTransaction, result.CreditTransaction
		assert.Equal(t, models.Debit, debit.Direction)
		assert.Equal(t, models.Credit, credit.Direction)
		assert.Equal(t, models.TxnCompleted, debit.Status)
		assert.Equal(t, models.TxnCompleted, credit.Status)
		assert.Equal(t, models.ModeInternal, debit.Mode)

		// Legs reference each other.
		assert.Equal(t, credit.ID, debit.PairedTransactionID)
		assert.Equal(t, debit.ID, credit.PairedTransactionID)

		// BalanceAfter reflects genuine post-mutation values.
		assert.True(t, debit.BalanceAfter.Equal(dec("4000.00")))
		assert.True(t, credit.BalanceAfter.Equal(dec("3000.00")))
		assert.NotNil(t, debit.SettledAt)
	})

	t.Run("same account rejected before any storage work", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		_, err := svc.TransferInternal(context.Background(), &models.InternalTransferRequest{
			FromAccountID: "acc-1",
			ToAccountID:   "acc-1",
			Amount:        dec("100"),
		})
		assert.ErrorIs(t, err, bankerr.ErrSameAccount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid amounts rejected", func(t *testing.T) {
		svc, _, db := newTestService(t)
		defer db.Close()

		for _, amount := range []string{"0", "-5", "10.123"} {
			_, err := svc.TransferInternal(context.Background(), &models.InternalTransferRequest{
				FromAccountID: "acc-1",
				ToAccountID:   "acc-2",
				Amount:        dec(amount),
			})
			assert.ErrorIs(t, err, bankerr.ErrInvalidAmount, "amount %s", amount)
		}
	})

	t.Run("insufficient funds rolls back with no writes", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "500.00", "500.00", "ACTIVE", 1))
		expectLock(mock, "acc-2", accountRow("acc-2", "2000.00", "2000.00", "ACTIVE", 1))
		mock.ExpectRollback()

		_, err := svc.TransferInternal(context.Background(), &models.InternalTransferRequest{
			FromAccountID: "acc-1",
			ToAccountID:   "acc-2",
			Amount:        dec("1000.00"),
		})
		assert.ErrorIs(t, err, bankerr.ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive destination rejected", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "5000.00", "5000.00", "ACTIVE", 1))
		expectLock(mock, "acc-2", accountRow("acc-2", "2000.00", "2000.00", "DORMANT", 1))
		mock.ExpectRollback()

		_, err := svc.TransferInternal(context.Background(), &models.InternalTransferRequest{
			FromAccountID: "acc-1",
			ToAccountID:   "acc-2",
			Amount:        dec("100.00"),
		})
		assert.ErrorIs(t, err, bankerr.ErrAccountInactive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing destination rejected", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "5000.00", "5000.00", "ACTIVE", 1))
		expectLock(mock, "acc-2", sqlmock.NewRows(accountColumns()))
		mock.ExpectRollback()

		_, err := svc.TransferInternal(context.Background(), &models.InternalTransferRequest{
			FromAccountID: "acc-1",
			ToAccountID:   "acc-2",
			Amount:        dec("100.00"),
		})
		assert.ErrorIs(t, err, bankerr.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("accounts locked in id order regardless of direction", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		// Transfer from b-acc to a-acc still locks a-acc first.
		mock.ExpectBegin()
		expectLock(mock, "a-acc", accountRow("a-acc", "100.00", "100.00", "ACTIVE", 1))
		expectLock(mock, "b-acc", accountRow("b-acc", "5000.00", "5000.00", "ACTIVE", 1))
		expectBalanceUpdate(mock, "b-acc", 1, 1)
		expectBalanceUpdate(mock, "a-acc", 1, 1)
		mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		result, err := svc.TransferInternal(context.Background(), &models.InternalTransferRequest{
			FromAccountID: "b-acc",
			ToAccountID:   "a-acc",
			Amount:        dec("1000.00"),
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, "b-acc", result.DebitTransaction.FromAccountID)
		assert.True(t, result.DebitTransaction.BalanceAfter.Equal(dec("4000.00")))
		assert.True(t, result.CreditTransaction.BalanceAfter.Equal(dec("1100.00")))
	})

	t.Run("version conflict retried with fresh balance read", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		// First attempt loses the optimistic lock race and rolls back.
		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "5000.00", "5000.00", "ACTIVE", 1))
		expectLock(mock, "acc-2", accountRow("acc-2", "2000.00", "2000.00", "ACTIVE", 1))
		expectBalanceUpdate(mock, "acc-1", 1, 0)
		mock.ExpectRollback()

		// Retry re-reads inside a new transaction and sees the new version
		// and the post-race balance.
		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "4500.00", "4500.00", "ACTIVE", 2))
		expectLock(mock, "acc-2", accountRow("acc-2", "2000.00", "2000.00", "ACTIVE", 1))
		expectBalanceUpdate(mock, "acc-1", 2, 1)
		expectBalanceUpdate(mock, "acc-2", 1, 1)
		mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		result, err := svc.TransferInternal(context.Background(), &models.InternalTransferRequest{
			FromAccountID: "acc-1",
			ToAccountID:   "acc-2",
			Amount:        dec("1000.00"),
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.True(t, result.DebitTransaction.BalanceAfter.Equal(dec("3500.00")))
	})

	t.Run("concurrent drain cannot double spend", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		// A racing debit already drained the account; the retry re-reads
		// the committed balance and fails instead of spending twice.
		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "1000.00", "1000.00", "ACTIVE", 1))
		expectLock(mock, "acc-2", accountRow("acc-2", "0", "0", "ACTIVE", 1))
		expectBalanceUpdate(mock, "acc-1", 1, 0)
		mock.ExpectRollback()

		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "0.00", "0.00", "ACTIVE", 2))
		expectLock(mock, "acc-2", accountRow("acc-2", "1000.00", "1000.00", "ACTIVE", 2))
		mock.ExpectRollback()

		_, err := svc.TransferInternal(context.Background(), &models.InternalTransferRequest{
			FromAccountID: "acc-1",
			ToAccountID:   "acc-2",
			Amount:        dec("1000.00"),
		})
		assert.ErrorIs(t, err, bankerr.ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict exhausts bounded retries", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()
		svc := NewService(db, config.TransferConfig{
			InstantMaxAmount: dec("500000"),
			MaxRetries:       2,
			RetryBackoff:     time.Millisecond,
		}, nil)

		for i := 0; i < 2; i++ {
			mock.ExpectBegin()
			expectLock(mock, "acc-1", accountRow("acc-1", "5000.00", "5000.00", "ACTIVE", 1))
			expectLock(mock, "acc-2", accountRow("acc-2", "2000.00", "2000.00", "ACTIVE", 1))
			expectBalanceUpdate(mock, "acc-1", 1, 0)
			mock.ExpectRollback()
		}

		_, err = svc.TransferInternal(context.Background(), &models.InternalTransferRequest{
			FromAccountID: "acc-1",
			ToAccountID:   "acc-2",
			Amount:        dec("1000.00"),
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "aborted after 2 attempts")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransferDeferred(t *testing.T) {
	t.Run("debits immediately, records pending leg, enqueues after commit", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()
		queue := &fakeQueue{}
		svc.queue = queue

		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "5000.00", "5000.00", "ACTIVE", 1))
		expectBalanceUpdate(mock, "acc-1", 1, 1)
		mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		txn, err := svc.TransferDeferred(context.Background(), &models.OutboundTransferRequest{
			FromAccountID: "acc-1",
			Beneficiary: models.Beneficiary{
				AccountNumber: "9988776655",
				Name:          "Asha Rao",
				BankCode:      "HDFC",
				RoutingCode:   "HDFC0001234",
			},
			Amount:      dec("1500.00"),
			Description: "vendor payout",
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())

		assert.Equal(t, models.ModeNEFT, txn.Mode)
		assert.Equal(t, models.TxnPending, txn.Status)
		assert.Equal(t, models.Debit, txn.Direction)
		assert.Nil(t, txn.SettledAt)
		assert.Equal(t, "HDFC", txn.BeneficiaryBankCode)
		assert.True(t, txn.BalanceAfter.Equal(dec("3500.00")))

		assert.Len(t, queue.enqueued, 1)
		assert.Equal(t, txn.ID, queue.enqueued[0].ID)
	})

	t.Run("enqueue failure does not undo the committed transfer", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()
		svc.queue = &fakeQueue{err: context.DeadlineExceeded}

		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "5000.00", "5000.00", "ACTIVE", 1))
		expectBalanceUpdate(mock, "acc-1", 1, 1)
		mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		txn, err := svc.TransferDeferred(context.Background(), &models.OutboundTransferRequest{
			FromAccountID: "acc-1",
			Beneficiary:   models.Beneficiary{AccountNumber: "9988776655", Name: "Asha Rao", BankCode: "HDFC"},
			Amount:        dec("100.00"),
		})
		assert.NoError(t, err)
		assert.Equal(t, models.TxnPending, txn.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive source rejected", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "5000.00", "5000.00", "CLOSED", 1))
		mock.ExpectRollback()

		_, err := svc.TransferDeferred(context.Background(), &models.OutboundTransferRequest{
			FromAccountID: "acc-1",
			Beneficiary:   models.Beneficiary{AccountNumber: "9988776655", Name: "Asha Rao", BankCode: "HDFC"},
			Amount:        dec("100.00"),
		})
		assert.ErrorIs(t, err, bankerr.ErrAccountInactive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransferInstant(t *testing.T) {
	t.Run("settles synchronously below the ceiling", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "5000.00", "5000.00", "ACTIVE", 1))
		expectBalanceUpdate(mock, "acc-1", 1, 1)
		mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		txn, err := svc.TransferInstant(context.Background(), &models.OutboundTransferRequest{
			FromAccountID: "acc-1",
			Beneficiary:   models.Beneficiary{AccountNumber: "9988776655", Name: "Asha Rao", BankCode: "ICIC"},
			Amount:        dec("2000.00"),
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, models.ModeIMPS, txn.Mode)
		assert.Equal(t, models.TxnCompleted, txn.Status)
		assert.NotNil(t, txn.SettledAt)
	})

	t.Run("amount above ceiling rejected with no storage work", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		_, err := svc.TransferInstant(context.Background(), &models.OutboundTransferRequest{
			FromAccountID: "acc-1",
			Beneficiary:   models.Beneficiary{AccountNumber: "9988776655", Name: "Asha Rao", BankCode: "ICIC"},
			Amount:        dec("500000.01"),
		})
		assert.ErrorIs(t, err, bankerr.ErrLimitExceeded)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOpenAccount(t *testing.T) {
	t.Run("initial deposit produces a credit transaction", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO accounts").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		account, err := svc.OpenAccount(context.Background(), &models.OpenAccountRequest{
			AccountNumber:  "1234567890",
			CustomerID:     "cust-1",
			AccountType:    models.AccountSavings,
			Currency:       "INR",
			InitialDeposit: dec("1000.00"),
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, models.AccountActive, account.Status)
		assert.True(t, account.Balance.Equal(dec("1000.00")))
		assert.True(t, account.AvailableBalance.Equal(account.Balance))
	})

	t.Run("zero deposit writes no transaction", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO accounts").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		_, err := svc.OpenAccount(context.Background(), &models.OpenAccountRequest{
			AccountNumber: "1234567890",
			CustomerID:    "cust-1",
			AccountType:   models.AccountCurrent,
			Currency:      "INR",
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative deposit rejected", func(t *testing.T) {
		svc, _, db := newTestService(t)
		defer db.Close()

		_, err := svc.OpenAccount(context.Background(), &models.OpenAccountRequest{
			AccountNumber:  "1234567890",
			CustomerID:     "cust-1",
			AccountType:    models.AccountSavings,
			Currency:       "INR",
			InitialDeposit: dec("-10"),
		})
		assert.ErrorIs(t, err, bankerr.ErrInvalidAmount)
	})
}

func TestSetAccountStatus(t *testing.T) {
	t.Run("closed is terminal", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "0", "0", "CLOSED", 1))
		mock.ExpectRollback()

		_, err := svc.SetAccountStatus(context.Background(), "acc-1", models.AccountActive)
		assert.ErrorIs(t, err, bankerr.ErrInvalidState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("freeze active account", func(t *testing.T) {
		svc, mock, db := newTestService(t)
		defer db.Close()

		mock.ExpectBegin()
		expectLock(mock, "acc-1", accountRow("acc-1", "500.00", "500.00", "ACTIVE", 1))
		mock.ExpectExec("UPDATE accounts SET status").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "acc-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		account, err := svc.SetAccountStatus(context.Background(), "acc-1", models.AccountFrozen)
		assert.NoError(t, err)
		assert.Equal(t, models.AccountFrozen, account.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
