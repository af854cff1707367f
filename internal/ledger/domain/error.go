package domain

import "errors"

var (
	ErrEntryNotFound  = errors.New("ledger entry not found")
	ErrInvalidAmount  = errors.New("ledger amount must be non-negative")
	ErrMissingSession = errors.New("ledger entry requires a session id")
)
