package domain

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrMissingID            = errors.New("subscription requires an external id")
)
