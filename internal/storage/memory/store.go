// Package memory is an in-memory Store used by tests and local development.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"fee-reconciliation-backend/internal/models"
	"fee-reconciliation-backend/internal/recerr"
	"fee-reconciliation-backend/internal/storage"
)

type Store struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]models.Transaction
	invoices     map[uuid.UUID]models.Invoice
	students     map[uuid.UUID]models.Student
	decisions    []models.VerificationDecision
	batches      map[uuid.UUID]models.StatementBatch

	// FailInvoiceSave makes the next SaveInvoice return this error, then
	// clears itself. Lets tests exercise the transaction-verified /
	// invoice-pending gap.
	FailInvoiceSave error
}

func NewStore() *Store {
	return &Store{
		transactions: make(map[uuid.UUID]models.Transaction),
		invoices:     make(map[uuid.UUID]models.Invoice),
		students:     make(map[uuid.UUID]models.Student),
		batches:      make(map[uuid.UUID]models.StatementBatch),
	}
}

func (s *Store) GetTransaction(ctx context.Context, schoolID, id uuid.UUID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok || tx.SchoolID != schoolID {
		return nil, recerr.ErrNotFound
	}
	out := tx
	return &out, nil
}

func (s *Store) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions[tx.ID] = *tx
	return nil
}

func (s *Store) ListPendingTransactions(ctx context.Context, schoolID uuid.UUID) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for _, tx := range s.transactions {
		if tx.SchoolID == schoolID && !tx.Verified {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) ListTransactionsByInvoice(ctx context.Context, schoolID, invoiceID uuid.UUID) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for _, tx := range s.transactions {
		if tx.SchoolID == schoolID && tx.InvoiceID == invoiceID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) ListVerifiedUnpaid(ctx context.Context, schoolID uuid.UUID) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for _, tx := range s.transactions {
		if tx.SchoolID != schoolID || !tx.Verified {
			continue
		}
		inv, ok := s.invoices[tx.InvoiceID]
		if !ok {
			continue
		}
		if inv.Status != models.InvoicePaid && inv.Status != models.InvoiceCancelled {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) ListPendingReview(ctx context.Context, schoolID uuid.UUID) ([]models.PendingReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PendingReview
	for _, tx := range s.transactions {
		if tx.SchoolID != schoolID || tx.Verified {
			continue
		}
		pr := models.PendingReview{Transaction: tx}
		if inv, ok := s.invoices[tx.InvoiceID]; ok {
			pr.InvoiceAmount = inv.Amount
			pr.InvoiceStatus = inv.Status
			if st, ok := s.students[inv.StudentID]; ok {
				pr.StudentName = st.FullName
			}
		}
		out = append(out, pr)
	}
	return out, nil
}

func (s *Store) GetInvoice(ctx context.Context, schoolID, id uuid.UUID) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok || inv.SchoolID != schoolID {
		return nil, recerr.ErrNotFound
	}
	out := inv
	return &out, nil
}

func (s *Store) SaveInvoice(ctx context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailInvoiceSave != nil {
		err := s.FailInvoiceSave
		s.FailInvoiceSave = nil
		return err
	}
	s.invoices[inv.ID] = *inv
	return nil
}

func (s *Store) GetStudent(ctx context.Context, schoolID, id uuid.UUID) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[id]
	if !ok || st.SchoolID != schoolID {
		return nil, recerr.ErrNotFound
	}
	out := st
	return &out, nil
}

func (s *Store) SaveStudent(ctx context.Context, st *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.students[st.ID] = *st
	return nil
}

func (s *Store) SaveDecision(ctx context.Context, d *models.VerificationDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.decisions = append(s.decisions, *d)
	return nil
}

// Decisions returns a copy of the recorded decisions, for tests.
func (s *Store) Decisions() []models.VerificationDecision {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.VerificationDecision, len(s.decisions))
	copy(out, s.decisions)
	return out
}

func (s *Store) SaveStatementBatch(ctx context.Context, b *models.StatementBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches[b.ID] = *b
	return nil
}

// Batches returns a copy of the stored statement batches keyed by ID, for
// tests.
func (s *Store) Batches() map[uuid.UUID]models.StatementBatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uuid.UUID]models.StatementBatch, len(s.batches))
	for id, b := range s.batches {
		out[id] = b
	}
	return out
}

var _ storage.Store = (*Store)(nil)
