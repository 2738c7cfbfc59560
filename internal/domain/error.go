package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidExecContext  = errors.New("invalid execution context")
	ErrOperationFailed     = errors.New("operation failed")
	ErrReadDatabaseRow     = errors.New("failed to read database row")
	ErrInvalidBillingDay   = errors.New("billing day must be between 1 and 28")
	ErrInvalidTimezone     = errors.New("unknown IANA timezone")
	ErrInvalidReminderTime = errors.New("reminder time must be HH:MM")
	ErrMalformedTimestamp  = errors.New("malformed payment timestamp")
	ErrNoPendingIntent     = errors.New("no pending payment")
	ErrLockHeld            = errors.New("lock is held by another worker")
	ErrUnauthorized        = errors.New("unauthorized")
)
