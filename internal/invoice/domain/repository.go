package domain

import (
	"context"
	"errors"
)

var ErrInvoiceNotFound = errors.New("invoice not found")
var ErrMissingID = errors.New("invoice requires an external id")

type Repository interface {
	// InsertOnce writes the invoice unless one with the same id exists,
	// in which case the existing row is returned.
	InsertOnce(ctx context.Context, invoice *Invoice) (*Invoice, error)
	FindByID(ctx context.Context, id string) (*Invoice, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]Invoice, error)
}

type Service interface {
	Record(ctx context.Context, invoice Invoice) (*Invoice, error)
	Get(ctx context.Context, id string) (*Invoice, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]Invoice, error)
}
