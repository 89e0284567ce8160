package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatementRow is one normalized bank statement line. Rows live only for the
// duration of a reconciliation session and are never persisted; Index is the
// 0-based position in the ingested statement and is stable for the session.
type StatementRow struct {
	Index   int             `json:"index"`
	Date    time.Time       `json:"date"`
	Amount  decimal.Decimal `json:"amount"`
	RawText string          `json:"raw_text"`
}

// MatchCandidate pairs a pending transaction with a statement row at some
// confidence in [0,1]. Ephemeral, produced per matching run.
type MatchCandidate struct {
	TransactionID     uuid.UUID `json:"transaction_id"`
	StatementRowIndex int       `json:"statement_row_index"`
	Confidence        float64   `json:"confidence"`
	Reason            string    `json:"reason"`
}

// StatementBatch lifecycle: ingested on upload, matched once a matching run
// completes over its rows.
const (
	BatchIngested = "ingested"
	BatchMatched  = "matched"
)

// StatementBatch records one statement upload for a school.
type StatementBatch struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SchoolID      uuid.UUID  `gorm:"type:uuid;index" json:"school_id"`
	Filename      string     `json:"filename"`
	RowCount      int        `json:"row_count"`
	DroppedCount  int        `json:"dropped_count"`
	DeferredCount int        `json:"deferred_count"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PendingReview is a pending transaction joined with the display fields an
// operator needs to act on it.
type PendingReview struct {
	Transaction   Transaction     `json:"transaction"`
	StudentName   string          `json:"student_name"`
	InvoiceAmount decimal.Decimal `json:"invoice_amount"`
	InvoiceStatus string          `json:"invoice_status"`
}
