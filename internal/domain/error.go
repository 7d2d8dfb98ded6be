package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Payment link errors
	ErrInvalidProvider      = errors.New("unknown payment provider")
	ErrLinkExpired          = errors.New("payment link has expired")
	ErrLinkAlreadyCompleted = errors.New("payment link already completed")

	// State machine errors
	ErrInvalidTransition = errors.New("transition not allowed from current status")

	// Activation code errors
	ErrInvalidCode = errors.New("activation code invalid, used or expired")

	// Withdrawal errors
	ErrBelowMinimum        = errors.New("amount below withdrawal minimum")
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrReasonRequired      = errors.New("rejection reason is required")
	ErrInvalidBankAccount  = errors.New("invalid bank account")

	// Infrastructure errors (surfaced by repositories)
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
