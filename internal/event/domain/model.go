// Package domain contains core types for the processed-event ledger.
package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

// ProcessedEvent marks one external event id as handled. The primary key
// uniqueness is what makes duplicate webhook delivery safe.
type ProcessedEvent struct {
	ID          string         `gorm:"primaryKey"`
	EventType   string         `gorm:"column:event_type;type:text;not null"`
	Payload     datatypes.JSON `gorm:"type:jsonb"`
	ProcessedAt time.Time      `gorm:"column:processed_at;not null"`
}

// TableName sets the database table name.
func (ProcessedEvent) TableName() string { return "processed_events" }

// ErrAlreadyProcessed reports that the event id was marked by an earlier or
// concurrent delivery.
var ErrAlreadyProcessed = errors.New("event already processed")

type Repository interface {
	Exists(ctx context.Context, id string) (bool, error)
	// Insert writes the marker; a duplicate id returns ErrAlreadyProcessed.
	Insert(ctx context.Context, event *ProcessedEvent) error
}

type Service interface {
	IsProcessed(ctx context.Context, id string) (bool, error)
	// MarkProcessed records the event id. ErrAlreadyProcessed means another
	// delivery won the race and the caller must not run side effects.
	MarkProcessed(ctx context.Context, id, eventType string, payload []byte) error
}
