package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Decision outcomes.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// VerificationDecision is the audit record of an operator decision.
// Approvals are write-once per transaction: the idempotent no-op path on a
// re-approve does not append a second row.
type VerificationDecision struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SchoolID      uuid.UUID      `gorm:"type:uuid;index" json:"school_id"`
	TransactionID uuid.UUID      `gorm:"type:uuid;index" json:"transaction_id"`
	Outcome       string         `json:"outcome"`
	DecidedBy     string         `json:"decided_by"`
	MatchDetails  datatypes.JSON `json:"match_details,omitempty"`
	DecidedAt     time.Time      `json:"decided_at"`
	CreatedAt     time.Time      `json:"created_at"`
}
