package admission

import "errors"

var (
	ErrConcertNotFound = errors.New("concert not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrTokenNotFound   = errors.New("token not found")
	// ErrNotAdmitted means the token is not ACTIVE, or its active slot
	// went stale. Holders must re-queue.
	ErrNotAdmitted = errors.New("token does not admit its holder")
)
