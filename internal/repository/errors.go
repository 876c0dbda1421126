package repository

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrStaleState reports a conditional update whose expected prior
	// state no longer held; the loser of a write race sees it.
	ErrStaleState = errors.New("stale state")
)
