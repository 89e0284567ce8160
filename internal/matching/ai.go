package matching

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fee-reconciliation-backend/internal/models"
	"fee-reconciliation-backend/internal/recerr"
)

// AIMatcher delegates matching to an external language-model collaborator.
// The collaborator is treated as any other fallible network dependency: its
// response is parsed into typed candidates, every field is validated, and
// anything outside contract fails the run rather than being coerced.
type AIMatcher struct {
	endpoint string
	client   *http.Client
}

func NewAIMatcher(endpoint string) *AIMatcher {
	return &AIMatcher{
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

func (m *AIMatcher) Name() string { return StrategyAI }

type aiBankRow struct {
	Date    string          `json:"date"`
	Amount  decimal.Decimal `json:"amount"`
	RawText string          `json:"rawText"`
}

type aiPendingTx struct {
	ID     string          `json:"id"`
	UTRNo  string          `json:"utr_no"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
}

type aiRequest struct {
	BankRows            []aiBankRow   `json:"bankRows"`
	PendingTransactions []aiPendingTx `json:"pendingTransactions"`
}

// aiCandidate uses pointers so a missing field is distinguishable from a
// zero value; a missing required field fails the whole run.
type aiCandidate struct {
	TransactionID *string  `json:"transaction_id"`
	BankRowIndex  *int     `json:"bank_row_index"`
	Confidence    *float64 `json:"confidence"`
	Reason        string   `json:"reason"`
}

func (m *AIMatcher) Match(ctx context.Context, rows []models.StatementRow, pending []models.Transaction) ([]models.MatchCandidate, error) {
	req := aiRequest{
		BankRows:            make([]aiBankRow, 0, len(rows)),
		PendingTransactions: make([]aiPendingTx, 0, len(pending)),
	}
	for _, r := range rows {
		req.BankRows = append(req.BankRows, aiBankRow{
			Date:    r.Date.Format("2006-01-02"),
			Amount:  r.Amount,
			RawText: r.RawText,
		})
	}
	for _, tx := range pending {
		req.PendingTransactions = append(req.PendingTransactions, aiPendingTx{
			ID:     tx.ID.String(),
			UTRNo:  tx.UTRNumber,
			Amount: tx.Amount,
			Date:   tx.SubmittedAt.Format(time.RFC3339),
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &recerr.MatchServiceError{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &recerr.MatchServiceError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, &recerr.MatchServiceError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &recerr.MatchServiceError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &recerr.MatchServiceError{Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	return parseAIResponse(raw, rows, pending)
}

// parseAIResponse validates the collaborator output against the candidate
// contract. Model responses sometimes arrive wrapped in fenced code blocks;
// the wrapping is stripped before parsing.
func parseAIResponse(raw []byte, rows []models.StatementRow, pending []models.Transaction) ([]models.MatchCandidate, error) {
	text := strings.TrimSpace(string(raw))
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	var parsed []aiCandidate
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, &recerr.MatchServiceError{Err: fmt.Errorf("response is not a candidate array: %w", err)}
	}

	pendingIDs := make(map[uuid.UUID]bool, len(pending))
	for _, tx := range pending {
		pendingIDs[tx.ID] = true
	}

	candidates := make([]models.MatchCandidate, 0, len(parsed))
	for i, c := range parsed {
		if c.TransactionID == nil || c.BankRowIndex == nil || c.Confidence == nil {
			return nil, &recerr.MatchServiceError{Err: fmt.Errorf("candidate %d missing required field", i)}
		}
		txID, err := uuid.Parse(*c.TransactionID)
		if err != nil {
			return nil, &recerr.MatchServiceError{Err: fmt.Errorf("candidate %d: bad transaction_id: %w", i, err)}
		}

		// A confidence outside [0,1] signals an untrustworthy parse:
		// the candidate is dropped, not clamped.
		if *c.Confidence < 0 || *c.Confidence > 1 {
			slog.Warn("dropping candidate with out-of-range confidence",
				"transaction_id", txID, "confidence", *c.Confidence)
			continue
		}
		if *c.BankRowIndex < 0 || *c.BankRowIndex >= len(rows) {
			slog.Warn("dropping candidate with out-of-range row index",
				"transaction_id", txID, "bank_row_index", *c.BankRowIndex)
			continue
		}
		if !pendingIDs[txID] {
			slog.Warn("dropping candidate for unknown transaction", "transaction_id", txID)
			continue
		}

		candidates = append(candidates, models.MatchCandidate{
			TransactionID:     txID,
			StatementRowIndex: *c.BankRowIndex,
			Confidence:        *c.Confidence,
			Reason:            c.Reason,
		})
	}
	return candidates, nil
}
