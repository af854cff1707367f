package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/internal/subscription/domain"
	"github.com/fitretto/gymbill/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Upsert(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	// The insert runs as a standalone auto-commit statement. Inside an open
	// transaction a unique violation would poison it on postgres, failing
	// every statement after the insert instead of letting us recover.
	err := r.db.WithContext(ctx).Create(sub).Error
	if err == nil {
		return r.FindByID(ctx, sub.ID)
	}
	if !db.IsDuplicateKeyErr(err) {
		return nil, err
	}

	// The row already exists, either from an earlier event or from a
	// concurrent delivery that won the insert race: overwrite with the
	// latest external state.
	res := r.db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(r.updateFields(sub))
	if res.Error != nil {
		return nil, res.Error
	}
	return r.FindByID(ctx, sub.ID)
}

// updateFields overwrites every mirrored field with the latest external
// state; user_id is preserved unless the incoming event supplies one.
func (r *repo) updateFields(incoming *domain.Subscription) map[string]any {
	fields := map[string]any{
		"customer_id":          incoming.CustomerID,
		"price_id":             incoming.PriceID,
		"status":               incoming.Status,
		"current_period_end":   incoming.CurrentPeriodEnd,
		"cancel_at_period_end": incoming.CancelAtPeriodEnd,
		"trial_end":            incoming.TrialEnd,
		"latest_invoice":       incoming.LatestInvoice,
	}
	if incoming.UserID != nil {
		fields["user_id"] = *incoming.UserID
	}
	return fields
}

func (r *repo) FindByID(ctx context.Context, id string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repo) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

func (r *repo) ListActiveByUserExcept(ctx context.Context, userID snowflake.ID, exceptID string) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND id <> ?", userID, domain.StatusActive, exceptID).
		Find(&subs).Error
	return subs, err
}

func (r *repo) FindActiveByUserAndPrice(ctx context.Context, userID snowflake.ID, priceID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND price_id = ? AND status = ?", userID, priceID, domain.StatusActive).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repo) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) error {
	tx := r.db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("id = ?", id).
		Update("cancel_at_period_end", cancel)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *repo) SetStatus(ctx context.Context, id string, status string) error {
	tx := r.db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("id = ?", id).
		Update("status", status)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *repo) BindUser(ctx context.Context, id string, userID snowflake.ID) error {
	tx := r.db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("id = ?", id).
		Update("user_id", userID)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}
