package statement

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestIngestHeaderVariants(t *testing.T) {
	cases := []struct {
		name   string
		record map[string]string
	}{
		{"utr and amount", map[string]string{"Date": "2024-05-01", "Amount": "5000", "UTR": "NEFT UTR1234XYZ"}},
		{"description and amt", map[string]string{"Date": "01-05-2024", "Amt": "5000", "Description": "NEFT UTR1234XYZ"}},
		{"narration and txn date", map[string]string{"Txn Date": "01/05/2024", "Amount": "5,000.00", "Narration": "NEFT UTR1234XYZ"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Ingest([]map[string]string{tc.record})
			if res.Dropped != 0 {
				t.Fatalf("dropped %d rows, want 0", res.Dropped)
			}
			if len(res.Rows) != 1 {
				t.Fatalf("got %d rows, want 1", len(res.Rows))
			}
			row := res.Rows[0]
			if !row.Amount.Equal(decimal.NewFromInt(5000)) {
				t.Errorf("amount = %s, want 5000", row.Amount)
			}
			if row.RawText != "NEFT UTR1234XYZ" {
				t.Errorf("rawText = %q", row.RawText)
			}
			if y, m, d := row.Date.Date(); y != 2024 || m != 5 || d != 1 {
				t.Errorf("date = %v, want 2024-05-01", row.Date)
			}
		})
	}
}

func TestIngestFreeTextHeaderPriority(t *testing.T) {
	// A statement carrying both a UTR and a Description column must always
	// normalize to the UTR value; losing it would silently miss the
	// full-confidence substring match.
	record := map[string]string{
		"Date":        "2024-05-01",
		"Amount":      "5000",
		"UTR":         "UTR1234XYZ",
		"Description": "NEFT transfer to school",
	}

	for i := 0; i < 100; i++ {
		res := Ingest([]map[string]string{record})
		if len(res.Rows) != 1 {
			t.Fatalf("got %d rows, want 1", len(res.Rows))
		}
		if got := res.Rows[0].RawText; got != "UTR1234XYZ" {
			t.Fatalf("rawText = %q, want the UTR column to win deterministically", got)
		}
	}
}

func TestIngestDateHeaderPriority(t *testing.T) {
	record := map[string]string{
		"Date":       "2024-05-01",
		"Value Date": "2024-05-09",
		"Amount":     "5000",
		"UTR":        "UTR1234XYZ",
	}

	for i := 0; i < 100; i++ {
		res := Ingest([]map[string]string{record})
		if len(res.Rows) != 1 {
			t.Fatalf("got %d rows, want 1", len(res.Rows))
		}
		if _, _, d := res.Rows[0].Date.Date(); d != 1 {
			t.Fatalf("date = %v, want the Date column to win deterministically", res.Rows[0].Date)
		}
	}
}

func TestIngestDropsUnparseableRows(t *testing.T) {
	records := []map[string]string{
		{"Date": "2024-05-01", "Amount": "5000", "Description": "good row"},
		{"Date": "2024-05-02", "Amount": "not-a-number", "Description": "bad amount"},
		{"Date": "someday", "Amount": "100", "Description": "bad date"},
		{"Balance": "9000", "Description": "no amount column"},
		{"Date": "2024-05-03", "Amount": "250.50", "Description": "another good row"},
	}

	res := Ingest(records)
	if res.Dropped != 3 {
		t.Errorf("dropped = %d, want 3", res.Dropped)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(res.Rows))
	}

	// Surviving rows get consecutive, unique indexes.
	if res.Rows[0].Index != 0 || res.Rows[1].Index != 1 {
		t.Errorf("indexes = %d, %d, want 0, 1", res.Rows[0].Index, res.Rows[1].Index)
	}
}

func TestIngestCapsMatchableRows(t *testing.T) {
	var records []map[string]string
	for i := 0; i < MaxMatchRows+7; i++ {
		records = append(records, map[string]string{
			"Date":        "2024-05-01",
			"Amount":      "100",
			"Description": fmt.Sprintf("row %d", i),
		})
	}

	res := Ingest(records)
	if len(res.Rows) != MaxMatchRows+7 {
		t.Fatalf("rows beyond the cap must still be ingested, got %d", len(res.Rows))
	}
	if got := len(res.Matchable()); got != MaxMatchRows {
		t.Errorf("matchable = %d, want %d", got, MaxMatchRows)
	}
	if got := res.Deferred(); got != 7 {
		t.Errorf("deferred = %d, want 7", got)
	}
}

func TestIngestEmpty(t *testing.T) {
	res := Ingest(nil)
	if len(res.Rows) != 0 || res.Dropped != 0 || res.Deferred() != 0 {
		t.Errorf("empty input: rows=%d dropped=%d deferred=%d", len(res.Rows), res.Dropped, res.Deferred())
	}
}
