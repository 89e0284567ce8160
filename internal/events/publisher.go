// Package events publishes verification decisions for downstream consumers
// (notifications, ledger exports). Publishing is best-effort: a failed
// publish never fails or rolls back the decision itself.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DecisionEvent struct {
	SchoolID      uuid.UUID       `json:"school_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Outcome       string          `json:"outcome"`
	Amount        decimal.Decimal `json:"amount"`
	DecidedAt     time.Time       `json:"decided_at"`
}

type Publisher interface {
	PublishDecision(ctx context.Context, ev DecisionEvent) error
	Close() error
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishDecision(ctx context.Context, ev DecisionEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
