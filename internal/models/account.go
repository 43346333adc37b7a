package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of a customer account.
// CLOSED is terminal; accounts are never hard-deleted.
type AccountStatus string

const (
	AccountActive  AccountStatus = "ACTIVE"
	AccountDormant AccountStatus = "DORMANT"
	AccountFrozen  AccountStatus = "FROZEN"
	AccountClosed  AccountStatus = "CLOSED"
)

func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountActive, AccountDormant, AccountFrozen, AccountClosed:
		return true
	}
	return false
}

// AccountType classifies the product the account belongs to.
type AccountType string

const (
	AccountSavings      AccountType = "SAVINGS"
	AccountCurrent      AccountType = "CURRENT"
	AccountFixedDeposit AccountType = "FIXED_DEPOSIT"
	AccountLoan         AccountType = "LOAN"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountSavings, AccountCurrent, AccountFixedDeposit, AccountLoan:
		return true
	}
	return false
}

// Account is a monetary holding. Balance is the ledger balance;
// AvailableBalance is the spendable portion and never exceeds Balance.
// Balances move only through the ledger engine, never by direct assignment.
type Account struct {
	ID               string          `json:"id" db:"id"`
	AccountNumber    string          `json:"accountNumber" db:"account_number"`
	CustomerID       string          `json:"customerId" db:"customer_id"`
	AccountType      AccountType     `json:"accountType" db:"account_type"`
	Currency         string          `json:"currency" db:"currency"`
	Balance          decimal.Decimal `json:"balance" db:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance" db:"available_balance"`
	Status           AccountStatus   `json:"status" db:"status"`
	Version          int             `json:"-" db:"version"` // optimistic locking
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
}

// OpenAccountRequest opens a new account with an initial deposit.
type OpenAccountRequest struct {
	AccountNumber  string          `json:"accountNumber" validate:"required,numeric,min=10,max=20"`
	CustomerID     string          `json:"customerId" validate:"required"`
	AccountType    AccountType     `json:"accountType" validate:"required"`
	Currency       string          `json:"currency" validate:"required,len=3"`
	InitialDeposit decimal.Decimal `json:"initialDeposit"`
}
