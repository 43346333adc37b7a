// Package gl is the general-ledger posting engine: entry lifecycle
// (pending -> posted -> reversed), batch posting, and the trial-balance
// projection. It shares the storage-transaction discipline of the transfer
// engine but touches no customer balances.
package gl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vaultbank/backend/internal/bankerr"
	"github.com/vaultbank/backend/internal/logger"
	"github.com/vaultbank/backend/internal/models"
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// CreateEntry records a pending GL entry against the chart of accounts.
func (s *Service) CreateEntry(ctx context.Context, req *models.CreateGLEntryRequest) (*models.GLEntry, error) {
	if !req.Direction.IsValid() {
		return nil, fmt.Errorf("%w: unknown direction %q", bankerr.ErrInvalidState, req.Direction)
	}
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, bankerr.ErrInvalidAmount
	}

	now := time.Now()
	postingDate := req.PostingDate
	if postingDate.IsZero() {
		postingDate = now
	}

	entry := &models.GLEntry{
		ID:            uuid.New().String(),
		EntryNumber:   fmt.Sprintf("GL-%d", now.UnixNano()),
		AccountCode:   req.AccountCode,
		AccountName:   req.AccountName,
		Direction:     req.Direction,
		Amount:        req.Amount,
		Description:   req.Description,
		TransactionID: req.TransactionID,
		Branch:        req.Branch,
		PostingStatus: models.PostingPending,
		PostingDate:   postingDate,
		CreatedAt:     now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gl_entries
		(id, entry_number, account_code, account_name, direction, amount, description,
		 transaction_id, branch, posting_status, posting_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		entry.ID, entry.EntryNumber, entry.AccountCode, entry.AccountName,
		entry.Direction, entry.Amount, entry.Description,
		nullableID(entry.TransactionID), entry.Branch, entry.PostingStatus,
		entry.PostingDate, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert gl entry: %w", err)
	}

	logger.Log.Info("gl entry created",
		zap.String("entryId", entry.ID), zap.String("entryNumber", entry.EntryNumber))
	return entry, nil
}

// Post transitions a PENDING entry to POSTED, recording actor and time.
// Posted entries become visible to the trial balance.
func (s *Service) Post(ctx context.Context, entryID, actor string) (*models.GLEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin post: %w", err)
	}
	defer tx.Rollback()

	entry, err := lockEntry(tx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.PostingStatus != models.PostingPending {
		return nil, bankerr.ErrInvalidState
	}

	now := time.Now()
	if _, err := tx.Exec(`
		UPDATE gl_entries
		SET posting_status = $1, posted_by = $2, posted_at = $3
		WHERE id = $4`,
		models.PostingPosted, actor, now, entryID); err != nil {
		return nil, fmt.Errorf("post gl entry %s: %w", entryID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit post: %w", err)
	}

	entry.PostingStatus = models.PostingPosted
	entry.PostedBy = actor
	entry.PostedAt = &now
	logger.Log.Info("gl entry posted",
		zap.String("entryId", entryID), zap.String("actor", actor))
	return entry, nil
}

// Reverse transitions a POSTED entry to REVERSED. The reason is mandatory
// and the reversal itself is permanent: the entry keeps its amount and is
// never deleted, aggregations decide by status.
func (s *Service) Reverse(ctx context.Context, entryID, actor, reason string) (*models.GLEntry, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, bankerr.ErrMissingReason
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reverse: %w", err)
	}
	defer tx.Rollback()

	entry, err := lockEntry(tx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.PostingStatus != models.PostingPosted {
		return nil, bankerr.ErrInvalidState
	}

	now := time.Now()
	if _, err := tx.Exec(`
		UPDATE gl_entries
		SET posting_status = $1, reversed_by = $2, reversed_at = $3, reversal_reason = $4
		WHERE id = $5`,
		models.PostingReversed, actor, now, reason, entryID); err != nil {
		return nil, fmt.Errorf("reverse gl entry %s: %w", entryID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reverse: %w", err)
	}

	entry.PostingStatus = models.PostingReversed
	entry.ReversedBy = actor
	entry.ReversedAt = &now
	entry.ReversalReason = reason
	logger.Log.Info("gl entry reversed",
		zap.String("entryId", entryID), zap.String("actor", actor), zap.String("reason", reason))
	return entry, nil
}

// BatchPost applies Post semantics to every id that is currently PENDING.
// Missing or non-pending ids are skipped silently; the operation is
// idempotent and partial-success by design. Returns the number of entries
// actually transitioned.
func (s *Service) BatchPost(ctx context.Context, entryIDs []string, actor string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin batch post: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	count := 0
	for _, id := range entryIDs {
		result, err := tx.Exec(`
			UPDATE gl_entries
			SET posting_status = $1, posted_by = $2, posted_at = $3
			WHERE id = $4 AND posting_status = $5`,
			models.PostingPosted, actor, now, id, models.PostingPending)
		if err != nil {
			return 0, fmt.Errorf("batch post entry %s: %w", id, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		count += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch post: %w", err)
	}

	logger.Log.Info("gl batch post",
		zap.Int("requested", len(entryIDs)), zap.Int("posted", count), zap.String("actor", actor))
	return count, nil
}

// TrialBalance aggregates POSTED entries with posting_date <= asOf, one
// row per account code. Read-only; never mutates entries. A reversed entry
// no longer counts, per the status-flag reversal model.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (*models.TrialBalanceReport, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT account_code, MAX(account_name) AS account_name,
		       COALESCE(SUM(CASE WHEN direction = 'DEBIT' THEN amount ELSE 0 END), 0) AS debit,
		       COALESCE(SUM(CASE WHEN direction = 'CREDIT' THEN amount ELSE 0 END), 0) AS credit
		FROM gl_entries
		WHERE posting_status = $1 AND posting_date <= $2
		GROUP BY account_code
		ORDER BY account_code`,
		models.PostingPosted, asOf)
	if err != nil {
		return nil, fmt.Errorf("trial balance query: %w", err)
	}
	defer rows.Close()

	report := &models.TrialBalanceReport{
		AsOf:        asOf,
		Accounts:    []models.TrialBalanceRow{},
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for rows.Next() {
		var row models.TrialBalanceRow
		if err := rows.Scan(&row.AccountCode, &row.AccountName, &row.Debit, &row.Credit); err != nil {
			return nil, fmt.Errorf("scan trial balance row: %w", err)
		}
		report.Accounts = append(report.Accounts, row)
		report.TotalDebit = report.TotalDebit.Add(row.Debit)
		report.TotalCredit = report.TotalCredit.Add(row.Credit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	report.Balanced = report.TotalDebit.Equal(report.TotalCredit)
	return report, nil
}

// GetEntry reads one GL entry.
func (s *Service) GetEntry(ctx context.Context, entryID string) (*models.GLEntry, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx, selectEntry+` WHERE id = $1`, entryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bankerr.ErrNotFound
		}
		return nil, fmt.Errorf("get gl entry %s: %w", entryID, err)
	}
	return entry, nil
}

const selectEntry = `
	SELECT id, entry_number, account_code, account_name, direction, amount,
	       COALESCE(description, ''), COALESCE(transaction_id, ''), COALESCE(branch, ''),
	       posting_status, posting_date, COALESCE(posted_by, ''), posted_at,
	       COALESCE(reversed_by, ''), reversed_at, COALESCE(reversal_reason, ''), created_at
	FROM gl_entries`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (*models.GLEntry, error) {
	var e models.GLEntry
	err := r.Scan(
		&e.ID, &e.EntryNumber, &e.AccountCode, &e.AccountName, &e.Direction, &e.Amount,
		&e.Description, &e.TransactionID, &e.Branch,
		&e.PostingStatus, &e.PostingDate, &e.PostedBy, &e.PostedAt,
		&e.ReversedBy, &e.ReversedAt, &e.ReversalReason, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func lockEntry(tx *sql.Tx, entryID string) (*models.GLEntry, error) {
	entry, err := scanEntry(tx.QueryRow(selectEntry+` WHERE id = $1 FOR UPDATE`, entryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bankerr.ErrNotFound
		}
		return nil, fmt.Errorf("lock gl entry %s: %w", entryID, err)
	}
	return entry, nil
}

func nullableID(s string) any {
	if s == "" {
		return nil
	}
	return s
}
