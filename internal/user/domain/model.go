// Package domain contains core types for the user service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User represents a registered member account.
type User struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	Email            string       `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash     string       `gorm:"type:text;not null"`
	Name             string       `gorm:"type:text;not null"`
	Phone            *string      `gorm:"type:text"`
	Birthdate        *string      `gorm:"type:text"`
	StripeCustomerID *string      `gorm:"column:stripe_customer_id;type:text;uniqueIndex"`
	TermsAccepted    bool         `gorm:"not null;default:false"`
	PrivacyAccepted  bool         `gorm:"not null;default:false"`
	IsActive         bool         `gorm:"not null;default:true"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
