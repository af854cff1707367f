// Package domain contains core types for the payment ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Entry records one completed one-off purchase. The external checkout
// session id is the natural primary key, so each checkout attempt is
// recorded at most once. Rows are immutable once written.
type Entry struct {
	SessionID   string        `gorm:"column:session_id;primaryKey"`
	UserID      *snowflake.ID `gorm:"column:user_id;index"`
	Amount      int64         `gorm:"not null"`
	Currency    string        `gorm:"type:text;not null"`
	Status      string        `gorm:"type:text;not null"`
	ProductName string        `gorm:"column:product_name;type:text"`
	CreatedAt   time.Time     `gorm:"column:created_at;not null"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "ledger" }
