package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fee-reconciliation-backend/internal/models"
	"fee-reconciliation-backend/internal/recerr"
)

func aiServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req aiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("request body is not the documented shape: %v", err)
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAIMatcherParsesFencedResponse(t *testing.T) {
	tx := pendingTx("UTR1234XYZ", 5000, "2024-05-01")
	rows := []models.StatementRow{row(0, "2024-05-01", 5000, "NEFT UTR1234XYZ")}

	body := fmt.Sprintf("```json\n[{\"transaction_id\": %q, \"bank_row_index\": 0, \"confidence\": 0.95, \"reason\": \"Exact UTR and amount match\"}]\n```",
		tx.ID)
	srv := aiServer(t, http.StatusOK, body)

	m := NewAIMatcher(srv.URL)
	got, err := m.Match(context.Background(), rows, []models.Transaction{tx})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	c := got[0]
	if c.TransactionID != tx.ID || c.StatementRowIndex != 0 || c.Confidence != 0.95 {
		t.Errorf("candidate = %+v", c)
	}
	if c.Reason != "Exact UTR and amount match" {
		t.Errorf("reason = %q", c.Reason)
	}
}

func TestAIMatcherNonJSONFailsRun(t *testing.T) {
	srv := aiServer(t, http.StatusOK, "not json")

	m := NewAIMatcher(srv.URL)
	got, err := m.Match(context.Background(), nil, nil)
	if got != nil {
		t.Error("no candidates may be published on a failed run")
	}
	var msErr *recerr.MatchServiceError
	if !errors.As(err, &msErr) {
		t.Fatalf("err = %v, want MatchServiceError", err)
	}
}

func TestAIMatcherMissingFieldFailsRun(t *testing.T) {
	tx := pendingTx("UTR1", 100, "2024-05-01")
	rows := []models.StatementRow{row(0, "2024-05-01", 100, "x")}

	cases := []struct {
		name string
		body string
	}{
		{"missing confidence", fmt.Sprintf(`[{"transaction_id": %q, "bank_row_index": 0}]`, tx.ID)},
		{"missing transaction_id", `[{"bank_row_index": 0, "confidence": 0.9}]`},
		{"missing bank_row_index", fmt.Sprintf(`[{"transaction_id": %q, "confidence": 0.9}]`, tx.ID)},
		{"not an array", fmt.Sprintf(`{"transaction_id": %q, "bank_row_index": 0, "confidence": 0.9}`, tx.ID)},
		{"garbage transaction_id", `[{"transaction_id": "not-a-uuid", "bank_row_index": 0, "confidence": 0.9}]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := aiServer(t, http.StatusOK, tc.body)
			m := NewAIMatcher(srv.URL)
			_, err := m.Match(context.Background(), rows, []models.Transaction{tx})
			var msErr *recerr.MatchServiceError
			if !errors.As(err, &msErr) {
				t.Fatalf("err = %v, want MatchServiceError", err)
			}
		})
	}
}

func TestAIMatcherDropsOutOfRangeConfidence(t *testing.T) {
	tx := pendingTx("UTR1", 100, "2024-05-01")
	rows := []models.StatementRow{row(0, "2024-05-01", 100, "x")}

	body := fmt.Sprintf(`[
		{"transaction_id": %q, "bank_row_index": 0, "confidence": 1.7, "reason": "overconfident"},
		{"transaction_id": %q, "bank_row_index": 0, "confidence": -0.2, "reason": "negative"},
		{"transaction_id": %q, "bank_row_index": 0, "confidence": 0.8, "reason": "fine"}
	]`, tx.ID, tx.ID, tx.ID)
	srv := aiServer(t, http.StatusOK, body)

	m := NewAIMatcher(srv.URL)
	got, err := m.Match(context.Background(), rows, []models.Transaction{tx})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1 (out-of-range dropped, not clamped)", len(got))
	}
	if got[0].Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", got[0].Confidence)
	}
}

func TestAIMatcherDropsUnknownReferences(t *testing.T) {
	tx := pendingTx("UTR1", 100, "2024-05-01")
	rows := []models.StatementRow{row(0, "2024-05-01", 100, "x")}

	other := pendingTx("UTR2", 200, "2024-05-01") // not in the pending set
	body := fmt.Sprintf(`[
		{"transaction_id": %q, "bank_row_index": 99, "confidence": 0.9, "reason": "row out of range"},
		{"transaction_id": %q, "bank_row_index": 0, "confidence": 0.9, "reason": "stale transaction"}
	]`, tx.ID, other.ID)
	srv := aiServer(t, http.StatusOK, body)

	m := NewAIMatcher(srv.URL)
	got, err := m.Match(context.Background(), rows, []models.Transaction{tx})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d candidates, want 0", len(got))
	}
}

func TestAIMatcherServerErrorIsRetryable(t *testing.T) {
	srv := aiServer(t, http.StatusInternalServerError, `{"error": "model overloaded"}`)

	m := NewAIMatcher(srv.URL)
	_, err := m.Match(context.Background(), nil, nil)
	var msErr *recerr.MatchServiceError
	if !errors.As(err, &msErr) {
		t.Fatalf("err = %v, want MatchServiceError", err)
	}
}
