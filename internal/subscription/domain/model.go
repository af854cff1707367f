// Package domain contains core types for the subscription mirror.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Subscription mirrors one recurring-billing object owned by the external
// processor; the local row is a cache of that state, keyed by the external
// subscription id. user_id is filled in once ownership is known and is never
// wiped by a later event that lacks it.
type Subscription struct {
	ID                string        `gorm:"primaryKey"`
	UserID            *snowflake.ID `gorm:"column:user_id;index"`
	CustomerID        string        `gorm:"column:customer_id;type:text;index"`
	PriceID           string        `gorm:"column:price_id;type:text"`
	Status            string        `gorm:"type:text;not null"`
	CurrentPeriodEnd  *int64        `gorm:"column:current_period_end"`
	CancelAtPeriodEnd bool          `gorm:"column:cancel_at_period_end;not null;default:false"`
	TrialEnd          *int64        `gorm:"column:trial_end"`
	LatestInvoice     string        `gorm:"column:latest_invoice;type:text"`
	CreatedAt         time.Time     `gorm:"column:created_at;not null"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// StatusCanceled is the terminal status applied on deletion events.
const StatusCanceled = "canceled"

// StatusActive is the processor's vocabulary for a billing subscription.
const StatusActive = "active"
