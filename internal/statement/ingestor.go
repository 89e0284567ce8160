// Package statement normalizes uploaded bank statements into rows the
// matchers can consume. Banks do not agree on column names, so headers are
// mapped best-effort; rows that cannot be normalized are dropped and counted,
// never merged into the valid set.
package statement

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fee-reconciliation-backend/internal/models"
	"fee-reconciliation-backend/internal/recerr"
)

// MaxMatchRows caps how many rows a single matching call may carry, to bound
// external matcher cost. Rows past the cap are still ingested but must be
// re-submitted in a later call.
const MaxMatchRows = 50

// Header variants observed across bank exports, compared lowercased and in
// declared priority order: when a statement carries more than one recognized
// column for a field, the earlier variant wins, so the same file always
// normalizes the same way.
var (
	textHeaders   = []string{"utr", "description", "narration", "particulars"}
	amountHeaders = []string{"amount", "amt"}
	dateHeaders   = []string{"date", "txn date", "transaction date", "value date"}
)

var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2 Jan 2006",
}

// Result is the outcome of one ingestion. Rows holds every normalized row in
// statement order; Dropped counts rows skipped for parse failures.
type Result struct {
	Rows    []models.StatementRow
	Dropped int
}

// Matchable returns the slice of rows eligible for a single matching call.
func (r Result) Matchable() []models.StatementRow {
	if len(r.Rows) > MaxMatchRows {
		return r.Rows[:MaxMatchRows]
	}
	return r.Rows
}

// Deferred returns how many ingested rows fall past the matching cap.
func (r Result) Deferred() int {
	if len(r.Rows) > MaxMatchRows {
		return len(r.Rows) - MaxMatchRows
	}
	return 0
}

// Ingest normalizes a header-keyed record set into statement rows. Row
// indexes are assigned in input order over the surviving rows and are unique
// within the result. Pure: no state, no side effects.
func Ingest(records []map[string]string) Result {
	var res Result
	for _, rec := range records {
		row, err := parseRow(len(res.Rows), rec)
		if err != nil {
			res.Dropped++
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

func parseRow(index int, rec map[string]string) (models.StatementRow, error) {
	fields := lowerKeys(rec)

	rawText := pickField(fields, textHeaders)

	amountStr := pickField(fields, amountHeaders)
	if amountStr == "" {
		return models.StatementRow{}, &recerr.ParseError{Row: index, Field: "amount", Err: fmt.Errorf("no amount column")}
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		return models.StatementRow{}, &recerr.ParseError{Row: index, Field: "amount", Err: err}
	}

	dateStr := pickField(fields, dateHeaders)
	if dateStr == "" {
		return models.StatementRow{}, &recerr.ParseError{Row: index, Field: "date", Err: fmt.Errorf("no date column")}
	}
	date, err := parseDate(dateStr)
	if err != nil {
		return models.StatementRow{}, &recerr.ParseError{Row: index, Field: "date", Err: err}
	}

	return models.StatementRow{
		Index:   index,
		Date:    date,
		Amount:  amount,
		RawText: strings.TrimSpace(rawText),
	}, nil
}

func lowerKeys(rec map[string]string) map[string]string {
	out := make(map[string]string, len(rec))
	for key, val := range rec {
		k := strings.ToLower(strings.TrimSpace(key))
		if existing, ok := out[k]; !ok || strings.TrimSpace(existing) == "" {
			out[k] = val
		}
	}
	return out
}

func pickField(fields map[string]string, headers []string) string {
	for _, h := range headers {
		if val, ok := fields[h]; ok && strings.TrimSpace(val) != "" {
			return val
		}
	}
	return ""
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimSpace(s)
	return decimal.NewFromString(s)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
