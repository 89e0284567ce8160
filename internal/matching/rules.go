package matching

import (
	"context"
	"strings"
	"time"

	"fee-reconciliation-backend/internal/models"
)

// RuleConfig tunes the deterministic matcher. AmountOnlyDateWindowDays
// bounds how far apart a statement row and a transaction may be dated for an
// amount-only hit to count; 0 disables the check.
type RuleConfig struct {
	AmountOnlyDateWindowDays int
}

// RuleMatcher is the deterministic strategy: exact/substring UTR match at
// full confidence, exact amount match without text corroboration at half
// confidence. When several rules hit the same transaction-row pair, only the
// highest-confidence one is kept.
type RuleMatcher struct {
	cfg RuleConfig
}

func NewRuleMatcher(cfg RuleConfig) *RuleMatcher {
	return &RuleMatcher{cfg: cfg}
}

func (m *RuleMatcher) Name() string { return StrategyRules }

func (m *RuleMatcher) Match(ctx context.Context, rows []models.StatementRow, pending []models.Transaction) ([]models.MatchCandidate, error) {
	var candidates []models.MatchCandidate
	for _, tx := range pending {
		for _, row := range rows {
			if c, ok := m.evaluate(tx, row); ok {
				candidates = append(candidates, c)
			}
		}
	}
	return candidates, nil
}

func (m *RuleMatcher) evaluate(tx models.Transaction, row models.StatementRow) (models.MatchCandidate, bool) {
	utrHit := tx.UTRNumber != "" && containsFold(row.RawText, tx.UTRNumber)
	if utrHit {
		return models.MatchCandidate{
			TransactionID:     tx.ID,
			StatementRowIndex: row.Index,
			Confidence:        1.0,
			Reason:            ReasonUTRMatch,
		}, true
	}

	if row.Amount.Equal(tx.Amount) && m.withinDateWindow(tx, row) {
		return models.MatchCandidate{
			TransactionID:     tx.ID,
			StatementRowIndex: row.Index,
			Confidence:        0.5,
			Reason:            ReasonAmountOnly,
		}, true
	}

	return models.MatchCandidate{}, false
}

func (m *RuleMatcher) withinDateWindow(tx models.Transaction, row models.StatementRow) bool {
	if m.cfg.AmountOnlyDateWindowDays <= 0 {
		return true
	}
	if tx.SubmittedAt.IsZero() || row.Date.IsZero() {
		return true
	}
	diff := row.Date.Sub(tx.SubmittedAt)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(m.cfg.AmountOnlyDateWindowDays)*24*time.Hour
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToUpper(haystack), strings.ToUpper(needle))
}
