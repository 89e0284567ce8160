// Package storage defines the persistence boundary of the reconciliation
// core. Implementations must apply updates last-writer-wins per row and make
// a read after a completed write observe that write.
package storage

import (
	"context"

	"github.com/google/uuid"

	"fee-reconciliation-backend/internal/models"
)

type Store interface {
	GetTransaction(ctx context.Context, schoolID, id uuid.UUID) (*models.Transaction, error)
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	ListPendingTransactions(ctx context.Context, schoolID uuid.UUID) ([]models.Transaction, error)
	ListTransactionsByInvoice(ctx context.Context, schoolID, invoiceID uuid.UUID) ([]models.Transaction, error)

	// ListVerifiedUnpaid returns verified transactions whose invoice has not
	// reached a settled status. Drives the repair pass.
	ListVerifiedUnpaid(ctx context.Context, schoolID uuid.UUID) ([]models.Transaction, error)

	ListPendingReview(ctx context.Context, schoolID uuid.UUID) ([]models.PendingReview, error)

	GetInvoice(ctx context.Context, schoolID, id uuid.UUID) (*models.Invoice, error)
	SaveInvoice(ctx context.Context, inv *models.Invoice) error

	GetStudent(ctx context.Context, schoolID, id uuid.UUID) (*models.Student, error)
	SaveStudent(ctx context.Context, st *models.Student) error

	SaveDecision(ctx context.Context, d *models.VerificationDecision) error
	SaveStatementBatch(ctx context.Context, b *models.StatementBatch) error
}
