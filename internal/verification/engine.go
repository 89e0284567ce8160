// Package verification drives the operator decision state machine. A
// transaction moves pending -> verified exactly once; its invoice derives
// paid / partially_paid from the verified amounts. The transaction write and
// the invoice write are two steps against the store, so the engine also
// carries the repair pass that closes the gap when the second step failed.
package verification

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fee-reconciliation-backend/internal/events"
	"fee-reconciliation-backend/internal/models"
	"fee-reconciliation-backend/internal/storage"
)

type Engine struct {
	store storage.Store
	pub   events.Publisher
	muMap map[uuid.UUID]*sync.Mutex
	mapMu sync.Mutex
}

func NewEngine(store storage.Store, pub events.Publisher) *Engine {
	return &Engine{
		store: store,
		pub:   pub,
		muMap: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (e *Engine) txLock(txID uuid.UUID) *sync.Mutex {
	e.mapMu.Lock()
	defer e.mapMu.Unlock()

	if _, ok := e.muMap[txID]; !ok {
		e.muMap[txID] = &sync.Mutex{}
	}
	return e.muMap[txID]
}

// forgetTxLock drops the per-transaction mutex once the transaction is
// verified. A late caller re-creates the lock and then hits the verified
// no-op, so releasing the entry is safe and keeps the map bounded by the
// number of in-flight decisions rather than every transaction ever decided.
func (e *Engine) forgetTxLock(txID uuid.UUID) {
	e.mapMu.Lock()
	defer e.mapMu.Unlock()
	delete(e.muMap, txID)
}

// Approve verifies a transaction and settles its invoice. Unknown
// transactions fail with recerr.ErrNotFound. An already-verified transaction
// is a successful no-op, so retried operator actions converge instead of
// double-settling. If the invoice update fails after the transaction write,
// the transaction stays verified, the error is returned, and Repair can
// complete the invoice later.
func (e *Engine) Approve(ctx context.Context, schoolID, txID uuid.UUID, decidedBy string, match *models.MatchCandidate) (*models.Transaction, error) {
	mu := e.txLock(txID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := e.store.GetTransaction(ctx, schoolID, txID)
	if err != nil {
		return nil, err
	}
	if tx.Verified {
		e.forgetTxLock(txID)
		return tx, nil
	}

	now := time.Now().UTC()
	tx.Verified = true
	tx.VerifiedAt = &now
	if err := e.store.SaveTransaction(ctx, tx); err != nil {
		return nil, err
	}

	e.recordDecision(ctx, tx, models.DecisionApproved, decidedBy, match, now)
	e.publish(ctx, tx, models.DecisionApproved, now)
	e.forgetTxLock(txID)

	if _, err := e.settleInvoice(ctx, schoolID, tx.InvoiceID, now); err != nil {
		slog.Warn("invoice settlement pending repair",
			"transaction_id", tx.ID, "invoice_id", tx.InvoiceID, "error", err)
		return tx, err
	}
	return tx, nil
}

// Reject records the operator decision and leaves both the transaction and
// its invoice untouched; a rejected claim can be re-approved later. Reject
// on an already-verified transaction is a no-op: verified is never reset.
func (e *Engine) Reject(ctx context.Context, schoolID, txID uuid.UUID, decidedBy string) (*models.Transaction, error) {
	mu := e.txLock(txID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := e.store.GetTransaction(ctx, schoolID, txID)
	if err != nil {
		return nil, err
	}
	if tx.Verified {
		e.forgetTxLock(txID)
		return tx, nil
	}

	now := time.Now().UTC()
	e.recordDecision(ctx, tx, models.DecisionRejected, decidedBy, nil, now)
	e.publish(ctx, tx, models.DecisionRejected, now)
	return tx, nil
}

// Repair scans for verified transactions whose invoice never reached a
// settled status and completes the transition. Safe to run repeatedly.
func (e *Engine) Repair(ctx context.Context, schoolID uuid.UUID) (int, error) {
	txs, err := e.store.ListVerifiedUnpaid(ctx, schoolID)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	repaired := 0
	seen := make(map[uuid.UUID]bool)
	for _, tx := range txs {
		if seen[tx.InvoiceID] {
			continue
		}
		seen[tx.InvoiceID] = true
		changed, err := e.settleInvoice(ctx, schoolID, tx.InvoiceID, now)
		if err != nil {
			slog.Warn("repair: invoice settlement failed",
				"invoice_id", tx.InvoiceID, "error", err)
			continue
		}
		if changed {
			repaired++
		}
	}
	return repaired, nil
}

// settleInvoice recomputes the invoice status from its verified
// transactions and reports whether the stored status actually moved. Status
// is derived, not incremented, so re-running it for the same invoice is
// idempotent. Cancelled and paid invoices are left alone.
func (e *Engine) settleInvoice(ctx context.Context, schoolID, invoiceID uuid.UUID, now time.Time) (bool, error) {
	inv, err := e.store.GetInvoice(ctx, schoolID, invoiceID)
	if err != nil {
		return false, err
	}
	if inv.Status == models.InvoicePaid || inv.Status == models.InvoiceCancelled {
		return false, nil
	}

	txs, err := e.store.ListTransactionsByInvoice(ctx, schoolID, invoiceID)
	if err != nil {
		return false, err
	}

	verified := decimal.Zero
	for _, tx := range txs {
		if tx.Verified {
			verified = verified.Add(tx.Amount)
		}
	}

	switch {
	case verified.GreaterThanOrEqual(inv.Amount):
		inv.Status = models.InvoicePaid
		inv.PaidAt = &now
	case verified.IsPositive():
		if inv.Status == models.InvoicePartiallyPaid {
			return false, nil
		}
		inv.Status = models.InvoicePartiallyPaid
	default:
		return false, nil
	}
	if err := e.store.SaveInvoice(ctx, inv); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) recordDecision(ctx context.Context, tx *models.Transaction, outcome, decidedBy string, match *models.MatchCandidate, now time.Time) {
	d := &models.VerificationDecision{
		ID:            uuid.New(),
		SchoolID:      tx.SchoolID,
		TransactionID: tx.ID,
		Outcome:       outcome,
		DecidedBy:     decidedBy,
		DecidedAt:     now,
		CreatedAt:     now,
	}
	if match != nil {
		if details, err := json.Marshal(match); err == nil {
			d.MatchDetails = details
		}
	}
	// The verified flag on the transaction is the source of truth; a failed
	// audit write is logged, not surfaced.
	if err := e.store.SaveDecision(ctx, d); err != nil {
		slog.Warn("decision audit write failed", "transaction_id", tx.ID, "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, tx *models.Transaction, outcome string, now time.Time) {
	ev := events.DecisionEvent{
		SchoolID:      tx.SchoolID,
		TransactionID: tx.ID,
		InvoiceID:     tx.InvoiceID,
		Outcome:       outcome,
		Amount:        tx.Amount,
		DecidedAt:     now,
	}
	if err := e.pub.PublishDecision(ctx, ev); err != nil {
		slog.Warn("decision event publish failed", "transaction_id", tx.ID, "error", err)
	}
}
