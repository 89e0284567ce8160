// Package reconciliation orchestrates a matching session per school: upload
// a statement, run a matching strategy over it, and expose one suggestion
// per pending transaction for operator review.
package reconciliation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fee-reconciliation-backend/internal/matching"
	"fee-reconciliation-backend/internal/models"
	"fee-reconciliation-backend/internal/recerr"
	"fee-reconciliation-backend/internal/statement"
	"fee-reconciliation-backend/internal/storage"
)

type Service struct {
	store    storage.Store
	matchers map[string]matching.Matcher
	selector matching.Selector
	sessions sync.Map // session ID -> *Session
	bySchool sync.Map // school ID -> latest session ID
}

// Session holds one uploaded statement and the suggestions of the last
// completed matching run. Rows are ephemeral: a new upload for the same
// school replaces the session, orphaning candidates that reference the old
// row indexes.
type Session struct {
	ID        uuid.UUID
	SchoolID  uuid.UUID
	Filename  string
	Rows      []models.StatementRow
	Dropped   int
	StartedAt time.Time

	mu          sync.Mutex
	strategy    string
	suggestions map[uuid.UUID]models.MatchCandidate
}

func (s *Session) matchable() []models.StatementRow {
	if len(s.Rows) > statement.MaxMatchRows {
		return s.Rows[:statement.MaxMatchRows]
	}
	return s.Rows
}

type UploadSummary struct {
	SessionID     uuid.UUID `json:"session_id"`
	RowCount      int       `json:"row_count"`
	DroppedCount  int       `json:"dropped_count"`
	DeferredCount int       `json:"deferred_count"`
}

func NewService(store storage.Store, matchers map[string]matching.Matcher, selector matching.Selector) *Service {
	return &Service{
		store:    store,
		matchers: matchers,
		selector: selector,
	}
}

// UploadStatement ingests a statement and opens a new session for the
// school. Any previous session for the school is discarded.
func (s *Service) UploadStatement(ctx context.Context, schoolID uuid.UUID, filename string, records []map[string]string) (UploadSummary, error) {
	res := statement.Ingest(records)

	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.New(),
		SchoolID:  schoolID,
		Filename:  filename,
		Rows:      res.Rows,
		Dropped:   res.Dropped,
		StartedAt: now,
	}
	s.sessions.Store(sess.ID, sess)
	if prev, loaded := s.bySchool.Swap(schoolID, sess.ID); loaded {
		s.sessions.Delete(prev.(uuid.UUID))
	}

	if err := s.store.SaveStatementBatch(ctx, s.batchRecord(sess, models.BatchIngested, nil)); err != nil {
		return UploadSummary{}, err
	}

	slog.Info("statement ingested",
		"school_id", schoolID, "session_id", sess.ID,
		"rows", len(res.Rows), "dropped", res.Dropped, "deferred", res.Deferred())

	return UploadSummary{
		SessionID:     sess.ID,
		RowCount:      len(res.Rows),
		DroppedCount:  res.Dropped,
		DeferredCount: res.Deferred(),
	}, nil
}

// RunMatch matches the session's rows (up to the per-call cap) against the
// school's pending transactions with the named strategy, and stores the
// selected suggestions on the session. Runs are independent; when operators
// trigger several concurrently, the last completed run's output wins.
func (s *Service) RunMatch(ctx context.Context, schoolID, sessionID uuid.UUID, strategy string) (map[uuid.UUID]models.MatchCandidate, error) {
	sess, err := s.session(schoolID, sessionID)
	if err != nil {
		return nil, err
	}
	matcher, ok := s.matchers[strategy]
	if !ok {
		return nil, fmt.Errorf("unknown matching strategy %q", strategy)
	}

	pending, err := s.store.ListPendingTransactions(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	candidates, err := matcher.Match(ctx, sess.matchable(), pending)
	if err != nil {
		return nil, err
	}
	suggestions := s.selector.Select(candidates)

	sess.mu.Lock()
	sess.strategy = strategy
	sess.suggestions = suggestions
	sess.mu.Unlock()

	// The batch record mirrors the session lifecycle; a failed write does not
	// invalidate the run the operator already has in hand.
	completed := time.Now().UTC()
	if err := s.store.SaveStatementBatch(ctx, s.batchRecord(sess, models.BatchMatched, &completed)); err != nil {
		slog.Warn("statement batch update failed",
			"school_id", schoolID, "session_id", sessionID, "error", err)
	}

	slog.Info("matching run completed",
		"school_id", schoolID, "session_id", sessionID, "strategy", strategy,
		"pending", len(pending), "candidates", len(candidates), "suggestions", len(suggestions))

	return suggestions, nil
}

// Suggestions returns the last completed run's output for the session.
func (s *Service) Suggestions(schoolID, sessionID uuid.UUID) (map[uuid.UUID]models.MatchCandidate, error) {
	sess, err := s.session(schoolID, sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	out := make(map[uuid.UUID]models.MatchCandidate, len(sess.suggestions))
	for id, c := range sess.suggestions {
		out[id] = c
	}
	return out, nil
}

// Suggestion returns the stored suggestion for one transaction, if any.
func (s *Service) Suggestion(schoolID, sessionID, txID uuid.UUID) (*models.MatchCandidate, error) {
	sess, err := s.session(schoolID, sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if c, ok := sess.suggestions[txID]; ok {
		out := c
		return &out, nil
	}
	return nil, nil
}

func (s *Service) batchRecord(sess *Session, status string, completedAt *time.Time) *models.StatementBatch {
	deferred := len(sess.Rows) - statement.MaxMatchRows
	if deferred < 0 {
		deferred = 0
	}
	return &models.StatementBatch{
		ID:            sess.ID,
		SchoolID:      sess.SchoolID,
		Filename:      sess.Filename,
		RowCount:      len(sess.Rows),
		DroppedCount:  sess.Dropped,
		DeferredCount: deferred,
		Status:        status,
		StartedAt:     sess.StartedAt,
		CompletedAt:   completedAt,
		CreatedAt:     sess.StartedAt,
	}
}

func (s *Service) session(schoolID, sessionID uuid.UUID) (*Session, error) {
	val, ok := s.sessions.Load(sessionID)
	if !ok {
		return nil, recerr.ErrNotFound
	}
	sess := val.(*Session)
	if sess.SchoolID != schoolID {
		return nil, recerr.ErrNotFound
	}
	return sess, nil
}

// SubmitPayment records a payer's claimed payment reference against an
// invoice as a pending transaction awaiting verification.
func (s *Service) SubmitPayment(ctx context.Context, schoolID, invoiceID uuid.UUID, utrNo string, amount decimal.Decimal) (*models.Transaction, error) {
	inv, err := s.store.GetInvoice(ctx, schoolID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceCancelled {
		return nil, fmt.Errorf("invoice %s is cancelled", invoiceID)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	now := time.Now().UTC()
	tx := &models.Transaction{
		ID:          uuid.New(),
		SchoolID:    schoolID,
		InvoiceID:   invoiceID,
		Amount:      amount,
		UTRNumber:   utrNo,
		SubmittedAt: now,
		CreatedAt:   now,
	}
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// CreateInvoice raises a pending fee invoice for a student.
func (s *Service) CreateInvoice(ctx context.Context, schoolID, studentID uuid.UUID, amount decimal.Decimal, dueDate time.Time) (*models.Invoice, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	now := time.Now().UTC()
	inv := &models.Invoice{
		ID:        uuid.New(),
		SchoolID:  schoolID,
		StudentID: studentID,
		Amount:    amount,
		Status:    models.InvoicePending,
		DueDate:   dueDate,
		CreatedAt: now,
	}
	if err := s.store.SaveInvoice(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// PendingReview lists unverified transactions with their display fields.
func (s *Service) PendingReview(ctx context.Context, schoolID uuid.UUID) ([]models.PendingReview, error) {
	return s.store.ListPendingReview(ctx, schoolID)
}
