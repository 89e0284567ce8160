package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice statuses. Status is derived from transaction verification and is
// never written directly by ingestion or matching.
const (
	InvoicePending       = "pending"
	InvoicePartiallyPaid = "partially_paid"
	InvoicePaid          = "paid"
	InvoiceCancelled     = "cancelled"
)

type Invoice struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SchoolID  uuid.UUID       `gorm:"type:uuid;index" json:"school_id"`
	StudentID uuid.UUID       `gorm:"type:uuid;index" json:"student_id"`
	Amount    decimal.Decimal `gorm:"type:numeric" json:"amount"`
	Status    string          `gorm:"index" json:"status"`
	DueDate   time.Time       `json:"due_date"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
