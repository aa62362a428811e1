package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrUnauthorized       = errors.New("entity not owned by caller")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Trading errors
	ErrInvalidInvoice    = errors.New("invalid lightning invoice")
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrLocked            = errors.New("resource is locked")
)
