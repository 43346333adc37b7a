// Package bankerr defines the stable error kinds the ledger core surfaces
// to its callers. All are local, synchronous failures; the atomic unit
// guarantees nothing is written when one of these is returned.
package bankerr

import "errors"

var (
	// ErrNotFound reports a missing account or GL entry.
	ErrNotFound = errors.New("not found")

	// ErrAccountInactive reports an account whose status is not ACTIVE.
	ErrAccountInactive = errors.New("account not active")

	// ErrInsufficientFunds reports an available balance below the debit amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount reports a zero, negative, or over-precise amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSameAccount reports a transfer where source equals destination.
	ErrSameAccount = errors.New("source and destination accounts are the same")

	// ErrLimitExceeded reports an amount above the rail's per-transfer ceiling.
	ErrLimitExceeded = errors.New("transfer limit exceeded")

	// ErrInvalidState reports a posting or reversal attempted from a
	// disallowed status, or an account transition out of CLOSED.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrMissingReason reports a reversal without a reason.
	ErrMissingReason = errors.New("reversal reason is required")
)
