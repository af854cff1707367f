package repository

import (
	"context"

	"github.com/fitretto/gymbill/internal/event/domain"
	"github.com/fitretto/gymbill/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ProcessedEvent{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) Insert(ctx context.Context, event *domain.ProcessedEvent) error {
	err := r.db.WithContext(ctx).Create(event).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrAlreadyProcessed
	}
	return err
}
