package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a payer-submitted claimed payment against an invoice.
// Rows are never deleted; verification only ever flips Verified to true.
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SchoolID    uuid.UUID       `gorm:"type:uuid;index" json:"school_id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;index" json:"invoice_id"`
	Amount      decimal.Decimal `gorm:"type:numeric" json:"amount"`
	UTRNumber   string          `gorm:"column:utr_no" json:"utr_no"`
	Verified    bool            `gorm:"index" json:"verified"`
	VerifiedAt  *time.Time      `json:"verified_at,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	CreatedAt   time.Time       `json:"created_at"`
}
