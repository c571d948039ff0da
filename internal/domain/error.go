package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Payment / activation errors
	ErrCheckoutFailed  = errors.New("provider rejected checkout creation")
	ErrPaymentMismatch = errors.New("provider amount or currency does not match")
	ErrSoldOut         = errors.New("event capacity exhausted")
	ErrNoInstrument    = errors.New("no active payment instrument")
	ErrCaptchaFailed   = errors.New("captcha verification failed")
	ErrRateLimited     = errors.New("too many requests")
	ErrLockHeld        = errors.New("lock already held")
)
