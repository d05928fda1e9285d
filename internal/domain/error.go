package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")

	// Payment lifecycle errors
	ErrGatewayAuth     = errors.New("gateway authentication failed")
	ErrSessionResolved = errors.New("payment session already resolved")
	ErrNoTrackingID    = errors.New("payment session has no tracking id")

	// ErrMaterializationFailed means the session was marked successful but the
	// downstream order/subscription/wallet write did not complete. Operators
	// must reconcile manually; callers must never swallow it.
	ErrMaterializationFailed = errors.New("payment materialization failed")
)
