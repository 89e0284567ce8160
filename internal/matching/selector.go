package matching

import (
	"github.com/google/uuid"

	"fee-reconciliation-backend/internal/models"
)

// Selector reduces a candidate set to at most one suggestion per
// transaction. MinConfidence discards candidates below the floor before
// selection; zero keeps everything.
type Selector struct {
	MinConfidence float64
}

// Select keeps the highest-confidence candidate per transaction. Ties prefer
// an exact-UTR reason over amount-only, then the lowest statement row index,
// so the output is deterministic for a given input. Transactions with no
// surviving candidate are absent from the result.
func (s Selector) Select(candidates []models.MatchCandidate) map[uuid.UUID]models.MatchCandidate {
	best := make(map[uuid.UUID]models.MatchCandidate)
	for _, c := range candidates {
		if c.Confidence < s.MinConfidence {
			continue
		}
		cur, ok := best[c.TransactionID]
		if !ok || better(c, cur) {
			best[c.TransactionID] = c
		}
	}
	return best
}

func better(a, b models.MatchCandidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	aUTR := a.Reason == ReasonUTRMatch
	bUTR := b.Reason == ReasonUTRMatch
	if aUTR != bUTR {
		return aUTR
	}
	return a.StatementRowIndex < b.StatementRowIndex
}
