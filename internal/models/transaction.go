package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction marks a transaction leg or GL entry as a debit or a credit.
type Direction string

const (
	Debit  Direction = "DEBIT"
	Credit Direction = "CREDIT"
)

func (d Direction) IsValid() bool {
	return d == Debit || d == Credit
}

// TransferMode is the payment rail a transaction moved on.
type TransferMode string

const (
	ModeInternal TransferMode = "INTERNAL"
	ModeNEFT     TransferMode = "NEFT" // deferred interbank, next settlement cycle
	ModeIMPS     TransferMode = "IMPS" // instant interbank
	ModeCash     TransferMode = "CASH"
	ModeCard     TransferMode = "CARD"
)

func (m TransferMode) IsValid() bool {
	switch m {
	case ModeInternal, ModeNEFT, ModeIMPS, ModeCash, ModeCard:
		return true
	}
	return false
}

// TransactionStatus is the settlement state of a transaction leg.
type TransactionStatus string

const (
	TxnPending   TransactionStatus = "PENDING"
	TxnCompleted TransactionStatus = "COMPLETED"
	TxnFailed    TransactionStatus = "FAILED"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TxnPending, TxnCompleted, TxnFailed:
		return true
	}
	return false
}

// Beneficiary identifies the counterparty of an outbound interbank transfer.
type Beneficiary struct {
	AccountNumber string `json:"accountNumber" validate:"required,numeric,min=10,max=20"`
	Name          string `json:"name" validate:"required,max=140"`
	BankCode      string `json:"bankCode" validate:"required,alphanum,min=3,max=6"`
	RoutingCode   string `json:"routingCode" validate:"omitempty,alphanum,max=11"`
}

// Transaction is one immutable money-movement leg. A completed row is never
// mutated; corrections are new reversing rows. An internal transfer writes
// two legs cross-referenced through PairedTransactionID; an outbound rail
// writes a single debit leg.
type Transaction struct {
	ID                  string            `json:"id" db:"id"`
	FromAccountID       string            `json:"fromAccountId,omitempty" db:"from_account_id"`
	ToAccountID         string            `json:"toAccountId,omitempty" db:"to_account_id"`
	Direction           Direction         `json:"direction" db:"direction"`
	Amount              decimal.Decimal   `json:"amount" db:"amount"`
	Mode                TransferMode      `json:"mode" db:"mode"`
	Status              TransactionStatus `json:"status" db:"status"`
	BalanceAfter        decimal.Decimal   `json:"balanceAfter" db:"balance_after"`
	PairedTransactionID string            `json:"pairedTransactionId,omitempty" db:"paired_transaction_id"`
	BeneficiaryAccount  string            `json:"beneficiaryAccount,omitempty" db:"beneficiary_account"`
	BeneficiaryName     string            `json:"beneficiaryName,omitempty" db:"beneficiary_name"`
	BeneficiaryBankCode string            `json:"beneficiaryBankCode,omitempty" db:"beneficiary_bank_code"`
	BeneficiaryRouting  string            `json:"beneficiaryRoutingCode,omitempty" db:"beneficiary_routing_code"`
	Description         string            `json:"description,omitempty" db:"description"`
	Currency            string            `json:"currency" db:"currency"`
	CreatedAt           time.Time         `json:"createdAt" db:"created_at"`
	SettledAt           *time.Time        `json:"settledAt,omitempty" db:"settled_at"`
}

// InternalTransferRequest moves funds between two accounts of this bank.
type InternalTransferRequest struct {
	FromAccountID string          `json:"fromAccountId" validate:"required"`
	ToAccountID   string          `json:"toAccountId" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description" validate:"max=200"`
}

// OutboundTransferRequest debits a local account toward an external bank,
// over either the deferred (NEFT) or instant (IMPS) rail.
type OutboundTransferRequest struct {
	FromAccountID string          `json:"fromAccountId" validate:"required"`
	Beneficiary   Beneficiary     `json:"beneficiary" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description" validate:"max=200"`
}

// InternalTransferResult carries both legs of a completed internal transfer.
type InternalTransferResult struct {
	DebitTransaction  *Transaction `json:"debitTransaction"`
	CreditTransaction *Transaction `json:"creditTransaction"`
}
