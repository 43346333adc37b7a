// Package ledger is the account ledger and transfer engine: the only code
// path that moves customer balances. Every operation executes as a single
// storage transaction; on any failure the unit rolls back entirely.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vaultbank/backend/internal/bankerr"
	"github.com/vaultbank/backend/internal/config"
	"github.com/vaultbank/backend/internal/logger"
	"github.com/vaultbank/backend/internal/models"
)

// Enqueuer hands committed deferred transfers to the settlement queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, txn *models.Transaction) error
}

// Service holds no cross-call mutable state; all shared state lives in the
// backing store, re-read inside each atomic unit.
type Service struct {
	db    *sql.DB
	cfg   config.TransferConfig
	queue Enqueuer
}

func NewService(db *sql.DB, cfg config.TransferConfig, queue Enqueuer) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Service{db: db, cfg: cfg, queue: queue}
}

// OpenAccount creates an account with an initial deposit. A non-zero
// deposit produces a completed credit transaction in the same unit.
func (s *Service) OpenAccount(ctx context.Context, req *models.OpenAccountRequest) (*models.Account, error) {
	if !req.AccountType.IsValid() {
		return nil, fmt.Errorf("%w: unknown account type %q", bankerr.ErrInvalidState, req.AccountType)
	}
	if req.InitialDeposit.IsNegative() || !wellScaled(req.InitialDeposit) {
		return nil, bankerr.ErrInvalidAmount
	}

	now := time.Now()
	account := &models.Account{
		ID:               uuid.New().String(),
		AccountNumber:    req.AccountNumber,
		CustomerID:       req.CustomerID,
		AccountType:      req.AccountType,
		Currency:         req.Currency,
		Balance:          req.InitialDeposit,
		AvailableBalance: req.InitialDeposit,
		Status:           models.AccountActive,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin open account: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO accounts
		(id, account_number, customer_id, account_type, currency, balance, available_balance, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		account.ID, account.AccountNumber, account.CustomerID, account.AccountType,
		account.Currency, account.Balance, account.AvailableBalance, account.Status,
		account.Version, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}

	if req.InitialDeposit.IsPositive() {
		deposit := &models.Transaction{
			ID:           uuid.New().String(),
			ToAccountID:  account.ID,
			Direction:    models.Credit,
			Amount:       req.InitialDeposit,
			Mode:         models.ModeCash,
			Status:       models.TxnCompleted,
			BalanceAfter: account.Balance,
			Description:  "initial deposit",
			Currency:     account.Currency,
			CreatedAt:    now,
			SettledAt:    &now,
		}
		if err := insertTransaction(tx, deposit); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit open account: %w", err)
	}

	logger.Log.Info("account opened",
		zap.String("accountId", account.ID),
		zap.String("accountNumber", account.AccountNumber))
	return account, nil
}

// GetAccount reads current account state.
func (s *Service) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	var a models.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_number, customer_id, account_type, currency,
		       balance, available_balance, status, version, created_at, updated_at
		FROM accounts
		WHERE id = $1`, accountID).Scan(
		&a.ID, &a.AccountNumber, &a.CustomerID, &a.AccountType, &a.Currency,
		&a.Balance, &a.AvailableBalance, &a.Status, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bankerr.ErrNotFound
		}
		return nil, fmt.Errorf("get account %s: %w", accountID, err)
	}
	return &a, nil
}

// SetAccountStatus performs an explicit status transition. CLOSED is
// terminal: no transition out of it, and closing never deletes the row.
func (s *Service) SetAccountStatus(ctx context.Context, accountID string, status models.AccountStatus) (*models.Account, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown account status %q", bankerr.ErrInvalidState, status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin status change: %w", err)
	}
	defer tx.Rollback()

	account, err := lockAccount(tx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status == models.AccountClosed {
		return nil, bankerr.ErrInvalidState
	}

	now := time.Now()
	if _, err := tx.Exec(`
		UPDATE accounts SET status = $1, updated_at = $2 WHERE id = $3`,
		status, now, accountID); err != nil {
		return nil, fmt.Errorf("update account status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status change: %w", err)
	}

	account.Status = status
	account.UpdatedAt = now
	logger.Log.Info("account status changed",
		zap.String("accountId", accountID), zap.String("status", string(status)))
	return account, nil
}

// validateAmount rejects zero, negative, and over-precise amounts before
// any storage work begins.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !wellScaled(amount) {
		return bankerr.ErrInvalidAmount
	}
	return nil
}

// wellScaled reports whether the amount fits the ledger's two-decimal scale.
func wellScaled(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(2))
}
