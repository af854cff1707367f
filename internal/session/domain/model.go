// Package domain contains core types for the session service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Session is proof of authentication. Only a SHA-256 hash of the bearer
// token is stored.
type Session struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	UserID       snowflake.ID `gorm:"column:user_id;not null;index"`
	TokenHash    string       `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	IsActive     bool         `gorm:"column:is_active;not null;default:true;index"`
	CreatedAt    time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastActivity time.Time    `gorm:"column:last_activity;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }
