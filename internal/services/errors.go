package services

import "errors"

// Ledger engine errors. All of them are synchronous precondition failures:
// when one is returned, no rows were written by the failing call. The engine
// never retries on its own; retry policy belongs to the caller.
var (
	// ErrInvalidAmount is returned for a negative transfer or loan amount.
	ErrInvalidAmount = errors.New("negative amount not allowed")

	// ErrInsufficientFunds is returned when the debit account balance is
	// below the requested amount and the transfer is not loan-flagged.
	ErrInsufficientFunds = errors.New("insufficient funds for transfer")

	// ErrPermissionDenied is returned when a customer's rank does not
	// allow the requested operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a referenced account, customer or
	// transaction does not exist.
	ErrNotFound = errors.New("not found")
)
