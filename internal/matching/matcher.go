// Package matching produces confidence-scored candidate matches between
// statement rows and pending transactions. Two strategies implement the same
// interface; a matching run uses exactly one, and both emit the same
// candidate shape so downstream selection is strategy-agnostic.
package matching

import (
	"context"

	"fee-reconciliation-backend/internal/models"
)

// Strategy names used to pick a matcher per run.
const (
	StrategyRules = "rules"
	StrategyAI    = "ai"
)

// Candidate reasons emitted by the rule matcher. The AI matcher returns
// free-text reasons from the collaborator.
const (
	ReasonUTRMatch   = "utr match"
	ReasonAmountOnly = "amount-only match"
)

type Matcher interface {
	// Match returns zero or more candidates with confidence in [0,1].
	// A returned error means the run failed as a whole and no candidates
	// are published.
	Match(ctx context.Context, rows []models.StatementRow, pending []models.Transaction) ([]models.MatchCandidate, error)

	Name() string
}
