package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/internal/session/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) CreateExclusive(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Session{}).
			Where("user_id = ? AND is_active = ?", session.UserID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(session).Error
	})
}

func (r *repo) FindActiveByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND is_active = ?", tokenHash, true).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) Deactivate(ctx context.Context, id snowflake.ID) error {
	tx := r.db.WithContext(ctx).Model(&domain.Session{}).Where("id = ?", id).Update("is_active", false)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *repo) UpdateLastActivity(ctx context.Context, id snowflake.ID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Session{}).Where("id = ?", id).Update("last_activity", at).Error
}
