package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vaultbank/backend/internal/bankerr"
	"github.com/vaultbank/backend/internal/logger"
	"github.com/vaultbank/backend/internal/models"
)

// TransferInternal moves funds between two accounts of this bank. Both
// balance mutations and both transaction legs commit as one unit: the
// debit leg is applied and recorded before the credit leg, and each leg's
// BalanceAfter is the genuine post-mutation balance. Settlement is
// synchronous; the legs are COMPLETED immediately.
func (s *Service) TransferInternal(ctx context.Context, req *models.InternalTransferRequest) (*models.InternalTransferResult, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.FromAccountID == req.ToAccountID {
		return nil, bankerr.ErrSameAccount
	}

	var result *models.InternalTransferResult
	err := s.withRetry(ctx, func(tx *sql.Tx) error {
		// Lock accounts in consistent order to prevent deadlocks.
		firstLock, secondLock := req.FromAccountID, req.ToAccountID
		if firstLock > secondLock {
			firstLock, secondLock = secondLock, firstLock
		}

		first, err := lockAccount(tx, firstLock)
		if err != nil {
			return err
		}
		second, err := lockAccount(tx, secondLock)
		if err != nil {
			return err
		}

		from, to := first, second
		if first.ID != req.FromAccountID {
			from, to = second, first
		}

		if from.Status != models.AccountActive || to.Status != models.AccountActive {
			return bankerr.ErrAccountInactive
		}
		if from.AvailableBalance.LessThan(req.Amount) {
			return bankerr.ErrInsufficientFunds
		}

		if err := applyDebit(tx, from, req.Amount); err != nil {
			return err
		}
		if err := applyCredit(tx, to, req.Amount); err != nil {
			return err
		}

		now := time.Now()
		debitID, creditID := uuid.New().String(), uuid.New().String()
		debit := &models.Transaction{
			ID:                  debitID,
			FromAccountID:       from.ID,
			ToAccountID:         to.ID,
			Direction:           models.Debit,
			Amount:              req.Amount,
			Mode:                models.ModeInternal,
			Status:              models.TxnCompleted,
			BalanceAfter:        from.Balance,
			PairedTransactionID: creditID,
			Description:         req.Description,
			Currency:            from.Currency,
			CreatedAt:           now,
			SettledAt:           &now,
		}
		credit := &models.Transaction{
			ID:                  creditID,
			FromAccountID:       from.ID,
			ToAccountID:         to.ID,
			Direction:           models.Credit,
			Amount:              req.Amount,
			Mode:                models.ModeInternal,
			Status:              models.TxnCompleted,
			BalanceAfter:        to.Balance,
			PairedTransactionID: debitID,
			Description:         req.Description,
			Currency:            to.Currency,
			CreatedAt:           now,
			SettledAt:           &now,
		}

		if err := insertTransaction(tx, debit); err != nil {
			return err
		}
		if err := insertTransaction(tx, credit); err != nil {
			return err
		}

		result = &models.InternalTransferResult{DebitTransaction: debit, CreditTransaction: credit}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("internal transfer completed",
		zap.String("debitTxnId", result.DebitTransaction.ID),
		zap.String("fromAccountId", req.FromAccountID),
		zap.String("toAccountId", req.ToAccountID),
		zap.String("amount", req.Amount.String()))
	return result, nil
}

// TransferDeferred debits the source immediately and records a single
// PENDING leg carrying the beneficiary details. An external batch process
// settles the leg later; after commit the leg is queued for settlement,
// best-effort.
func (s *Service) TransferDeferred(ctx context.Context, req *models.OutboundTransferRequest) (*models.Transaction, error) {
	txn, err := s.outboundTransfer(ctx, req, models.ModeNEFT, models.TxnPending)
	if err != nil {
		return nil, err
	}

	if s.queue != nil {
		if qErr := s.queue.Enqueue(ctx, txn); qErr != nil {
			// The transfer is committed; settlement picks the leg up from
			// the pending table on its next scan.
			logger.Log.Warn("failed to enqueue transfer for settlement",
				zap.String("txnId", txn.ID), zap.Error(qErr))
		}
	}
	return txn, nil
}

// TransferInstant settles synchronously over the instant rail, subject to
// a fixed per-transfer ceiling.
func (s *Service) TransferInstant(ctx context.Context, req *models.OutboundTransferRequest) (*models.Transaction, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.Amount.GreaterThan(s.cfg.InstantMaxAmount) {
		return nil, bankerr.ErrLimitExceeded
	}
	return s.outboundTransfer(ctx, req, models.ModeIMPS, models.TxnCompleted)
}

func (s *Service) outboundTransfer(ctx context.Context, req *models.OutboundTransferRequest, mode models.TransferMode, status models.TransactionStatus) (*models.Transaction, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}

	var txn *models.Transaction
	err := s.withRetry(ctx, func(tx *sql.Tx) error {
		from, err := checkAndReserve(tx, req.FromAccountID, req.Amount, models.Debit)
		if err != nil {
			return err
		}
		if err := applyDebit(tx, from, req.Amount); err != nil {
			return err
		}

		now := time.Now()
		txn = &models.Transaction{
			ID:                  uuid.New().String(),
			FromAccountID:       from.ID,
			Direction:           models.Debit,
			Amount:              req.Amount,
			Mode:                mode,
			Status:              status,
			BalanceAfter:        from.Balance,
			BeneficiaryAccount:  req.Beneficiary.AccountNumber,
			BeneficiaryName:     req.Beneficiary.Name,
			BeneficiaryBankCode: req.Beneficiary.BankCode,
			BeneficiaryRouting:  req.Beneficiary.RoutingCode,
			Description:         req.Description,
			Currency:            from.Currency,
			CreatedAt:           now,
		}
		if status == models.TxnCompleted {
			txn.SettledAt = &now
		}
		return insertTransaction(tx, txn)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("outbound transfer recorded",
		zap.String("txnId", txn.ID),
		zap.String("mode", string(mode)),
		zap.String("status", string(status)),
		zap.String("amount", req.Amount.String()))
	return txn, nil
}

// withRetry runs fn inside a storage transaction, retrying only on
// optimistic-lock conflicts with linear backoff. Business-rule failures
// abort immediately and nothing is written.
func (s *Service) withRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * s.cfg.RetryBackoff):
			}
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transfer: %w", err)
		}

		if err := fn(tx); err != nil {
			tx.Rollback()
			if errors.Is(err, errConflict) {
				lastErr = err
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transfer: %w", err)
		}
		return nil
	}
	return fmt.Errorf("transfer aborted after %d attempts: %w", s.cfg.MaxRetries, lastErr)
}

func insertTransaction(tx *sql.Tx, t *models.Transaction) error {
	_, err := tx.Exec(`
		INSERT INTO transactions
		(id, from_account_id, to_account_id, direction, amount, mode, status, balance_after,
		 paired_transaction_id, beneficiary_account, beneficiary_name, beneficiary_bank_code,
		 beneficiary_routing_code, description, currency, created_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		t.ID, nullable(t.FromAccountID), nullable(t.ToAccountID), t.Direction, t.Amount,
		t.Mode, t.Status, t.BalanceAfter, nullable(t.PairedTransactionID),
		nullable(t.BeneficiaryAccount), nullable(t.BeneficiaryName),
		nullable(t.BeneficiaryBankCode), nullable(t.BeneficiaryRouting),
		t.Description, t.Currency, t.CreatedAt, t.SettledAt)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
