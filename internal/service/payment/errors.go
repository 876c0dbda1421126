package payment

import "errors"

var (
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrLockContended means the user or reservation lock is held by a
	// concurrent settlement attempt.
	ErrLockContended = errors.New("payment lock is contended")
)
