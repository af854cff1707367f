package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/internal/ledger/domain"
	"github.com/fitretto/gymbill/pkg/db"
	"github.com/fitretto/gymbill/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) InsertOnce(ctx context.Context, entry *domain.Entry) (*domain.Entry, error) {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err == nil {
		return entry, nil
	}
	if db.IsDuplicateKeyErr(err) {
		// A benign race with another delivery of the same event: return
		// the row that won.
		return r.FindBySessionID(ctx, entry.SessionID)
	}
	return nil, err
}

func (r *repo) FindBySessionID(ctx context.Context, sessionID string) (*domain.Entry, error) {
	var entry domain.Entry
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repo) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *repo) List(ctx context.Context, page pagination.Pagination) ([]domain.Entry, *pagination.PageInfo, error) {
	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Order("session_id ASC").Limit(limit + 1)
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, nil, err
		}
		query = query.Where("session_id > ?", cursor.ID)
	}

	var rows []*domain.Entry
	if err := query.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	info := pagination.BuildCursorPageInfo(rows, limit, func(e *domain.Entry) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: e.SessionID})
		return token
	})

	if len(rows) > limit {
		rows = rows[:limit]
	}
	entries := make([]domain.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, *row)
	}
	return entries, info, nil
}
