package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PostingStatus is the GL entry lifecycle state. Transitions are monotonic:
// PENDING -> POSTED -> REVERSED. A reversal marks the entry, it does not
// insert an offsetting entry, so aggregations must check status.
type PostingStatus string

const (
	PostingPending  PostingStatus = "PENDING"
	PostingPosted   PostingStatus = "POSTED"
	PostingReversed PostingStatus = "REVERSED"
)

func (s PostingStatus) IsValid() bool {
	switch s {
	case PostingPending, PostingPosted, PostingReversed:
		return true
	}
	return false
}

// GLEntry is one half of a double-entry bookkeeping record against the
// chart of accounts (AccountCode is not a customer account).
type GLEntry struct {
	ID             string          `json:"id" db:"id"`
	EntryNumber    string          `json:"entryNumber" db:"entry_number"`
	AccountCode    string          `json:"accountCode" db:"account_code"`
	AccountName    string          `json:"accountName" db:"account_name"`
	Direction      Direction       `json:"direction" db:"direction"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Description    string          `json:"description,omitempty" db:"description"`
	TransactionID  string          `json:"transactionId,omitempty" db:"transaction_id"`
	Branch         string          `json:"branch,omitempty" db:"branch"`
	PostingStatus  PostingStatus   `json:"postingStatus" db:"posting_status"`
	PostingDate    time.Time       `json:"postingDate" db:"posting_date"`
	PostedBy       string          `json:"postedBy,omitempty" db:"posted_by"`
	PostedAt       *time.Time      `json:"postedAt,omitempty" db:"posted_at"`
	ReversedBy     string          `json:"reversedBy,omitempty" db:"reversed_by"`
	ReversedAt     *time.Time      `json:"reversedAt,omitempty" db:"reversed_at"`
	ReversalReason string          `json:"reversalReason,omitempty" db:"reversal_reason"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}

// CreateGLEntryRequest creates a pending GL entry.
type CreateGLEntryRequest struct {
	AccountCode   string          `json:"accountCode" validate:"required,max=20"`
	AccountName   string          `json:"accountName" validate:"required,max=100"`
	Direction     Direction       `json:"direction" validate:"required,oneof=DEBIT CREDIT"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description" validate:"max=200"`
	TransactionID string          `json:"transactionId" validate:"omitempty,uuid4"`
	PostingDate   time.Time       `json:"postingDate"`
	Branch        string          `json:"branch" validate:"max=20"`
}

// TrialBalanceRow is one chart-of-accounts line of the trial balance.
type TrialBalanceRow struct {
	AccountCode string          `json:"accountCode"`
	AccountName string          `json:"accountName"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// TrialBalanceReport is a read-only, point-in-time projection over posted
// entries. Balanced is true when total debits equal total credits.
type TrialBalanceReport struct {
	AsOf        time.Time         `json:"asOf"`
	Accounts    []TrialBalanceRow `json:"accounts"`
	TotalDebit  decimal.Decimal   `json:"totalDebit"`
	TotalCredit decimal.Decimal   `json:"totalCredit"`
	Balanced    bool              `json:"balanced"`
}
