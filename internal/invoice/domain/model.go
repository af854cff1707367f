// Package domain contains core types for the invoice mirror.
package domain

// Invoice mirrors one external billing document, keyed by the external
// invoice id. Rows are write-once: invoices are immutable once observed.
type Invoice struct {
	ID             string `gorm:"primaryKey"`
	SubscriptionID string `gorm:"column:subscription_id;type:text;index"`
	Status         string `gorm:"type:text"`
	AmountDue      int64  `gorm:"column:amount_due;not null"`
	Currency       string `gorm:"type:text"`
	Created        int64  `gorm:"not null"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
