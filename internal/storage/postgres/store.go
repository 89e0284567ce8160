// Package postgres implements storage.Store over gorm.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fee-reconciliation-backend/internal/models"
	"fee-reconciliation-backend/internal/recerr"
	"fee-reconciliation-backend/internal/storage"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for migrations.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) GetTransaction(ctx context.Context, schoolID, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.WithContext(ctx).
		First(&tx, "id = ? AND school_id = ?", id, schoolID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, recerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Store) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	return s.db.WithContext(ctx).Save(tx).Error
}

func (s *Store) ListPendingTransactions(ctx context.Context, schoolID uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Where("school_id = ? AND verified = ?", schoolID, false).
		Order("submitted_at DESC").
		Find(&txs).Error
	return txs, err
}

func (s *Store) ListTransactionsByInvoice(ctx context.Context, schoolID, invoiceID uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Where("school_id = ? AND invoice_id = ?", schoolID, invoiceID).
		Find(&txs).Error
	return txs, err
}

func (s *Store) ListVerifiedUnpaid(ctx context.Context, schoolID uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Joins("JOIN invoices ON invoices.id = transactions.invoice_id").
		Where("transactions.school_id = ? AND transactions.verified = ?", schoolID, true).
		Where("invoices.status NOT IN ?", []string{models.InvoicePaid, models.InvoiceCancelled}).
		Find(&txs).Error
	return txs, err
}

type pendingReviewRow struct {
	ID            uuid.UUID
	SchoolID      uuid.UUID
	InvoiceID     uuid.UUID
	Amount        decimal.Decimal
	UTRNo         string `gorm:"column:utr_no"`
	SubmittedAt   time.Time
	CreatedAt     time.Time
	StudentName   string
	InvoiceAmount decimal.Decimal
	InvoiceStatus string
}

func (s *Store) ListPendingReview(ctx context.Context, schoolID uuid.UUID) ([]models.PendingReview, error) {
	var rows []pendingReviewRow
	err := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("transactions.id, transactions.school_id, transactions.invoice_id, transactions.amount, transactions.utr_no, transactions.submitted_at, transactions.created_at, students.full_name AS student_name, invoices.amount AS invoice_amount, invoices.status AS invoice_status").
		Joins("JOIN invoices ON invoices.id = transactions.invoice_id").
		Joins("LEFT JOIN students ON students.id = invoices.student_id").
		Where("transactions.school_id = ? AND transactions.verified = ?", schoolID, false).
		Order("transactions.submitted_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.PendingReview, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.PendingReview{
			Transaction: models.Transaction{
				ID:          r.ID,
				SchoolID:    r.SchoolID,
				InvoiceID:   r.InvoiceID,
				Amount:      r.Amount,
				UTRNumber:   r.UTRNo,
				SubmittedAt: r.SubmittedAt,
				CreatedAt:   r.CreatedAt,
			},
			StudentName:   r.StudentName,
			InvoiceAmount: r.InvoiceAmount,
			InvoiceStatus: r.InvoiceStatus,
		})
	}
	return out, nil
}

func (s *Store) GetInvoice(ctx context.Context, schoolID, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		First(&inv, "id = ? AND school_id = ?", id, schoolID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, recerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Store) SaveInvoice(ctx context.Context, inv *models.Invoice) error {
	return s.db.WithContext(ctx).Save(inv).Error
}

func (s *Store) GetStudent(ctx context.Context, schoolID, id uuid.UUID) (*models.Student, error) {
	var st models.Student
	err := s.db.WithContext(ctx).
		First(&st, "id = ? AND school_id = ?", id, schoolID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, recerr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) SaveStudent(ctx context.Context, st *models.Student) error {
	return s.db.WithContext(ctx).Save(st).Error
}

func (s *Store) SaveDecision(ctx context.Context, d *models.VerificationDecision) error {
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *Store) SaveStatementBatch(ctx context.Context, b *models.StatementBatch) error {
	return s.db.WithContext(ctx).Save(b).Error
}

var _ storage.Store = (*Store)(nil)
