package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Plans and timelines
	ErrPlanUnavailable = errors.New("enrolled plan is no longer available")
	ErrFullyPaid       = errors.New("all installments are already paid")
	ErrNotPaid         = errors.New("installment is not paid")

	// Checkout
	ErrValidation        = errors.New("checkout request is invalid")
	ErrInvalidTransition = errors.New("invalid checkout state transition")
	ErrLockHeld          = errors.New("another checkout for this installment is in progress")
	ErrRateLimited       = errors.New("too many checkout attempts")
	ErrGatewayMismatch   = errors.New("gateway result does not match the session order")

	// Collaborators
	ErrBackend         = errors.New("backend request failed")
	ErrReceiptFailed   = errors.New("receipt could not be generated")
	ErrWorkerSaturated = errors.New("worker queue full")
)
