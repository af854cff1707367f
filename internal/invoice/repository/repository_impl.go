package repository

import (
	"context"
	"errors"

	"github.com/fitretto/gymbill/internal/invoice/domain"
	"github.com/fitretto/gymbill/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) InsertOnce(ctx context.Context, invoice *domain.Invoice) (*domain.Invoice, error) {
	err := r.db.WithContext(ctx).Create(invoice).Error
	if err == nil {
		return invoice, nil
	}
	if db.IsDuplicateKeyErr(err) {
		return r.FindByID(ctx, invoice.ID)
	}
	return nil, err
}

func (r *repo) FindByID(ctx context.Context, id string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) ListBySubscription(ctx context.Context, subscriptionID string) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created DESC").
		Find(&invoices).Error
	return invoices, err
}
