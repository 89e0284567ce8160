package handler

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fee-reconciliation-backend/internal/matching"
	"fee-reconciliation-backend/internal/models"
	"fee-reconciliation-backend/internal/recerr"
	"fee-reconciliation-backend/internal/reconciliation"
	"fee-reconciliation-backend/internal/verification"
)

type ReconciliationHandler struct {
	service *reconciliation.Service
	engine  *verification.Engine
}

func NewReconciliationHandler(s *reconciliation.Service, e *verification.Engine) *ReconciliationHandler {
	return &ReconciliationHandler{service: s, engine: e}
}

// schoolID reads the tenant from the X-School-ID header. Authentication is
// handled upstream; this core only needs the explicit tenant parameter.
func schoolID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetHeader("X-School-ID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid X-School-ID header"})
		return uuid.Nil, false
	}
	return id, true
}

// UploadStatement accepts a tabular bank statement with a header row and
// opens a reconciliation session.
func (h *ReconciliationHandler) UploadStatement(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	records, err := readRecords(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read statement: " + err.Error()})
		return
	}

	summary, err := h.service.UploadStatement(c.Request.Context(), school, header.Filename, records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RunMatch executes one matching run for a session. The strategy query
// parameter selects "rules" (default) or "ai".
func (h *ReconciliationHandler) RunMatch(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	strategy := c.DefaultQuery("strategy", matching.StrategyRules)

	suggestions, err := h.service.RunMatch(c.Request.Context(), school, sessionID, strategy)
	if err != nil {
		var msErr *recerr.MatchServiceError
		switch {
		case errors.Is(err, recerr.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.As(err, &msErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retryable": true})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "strategy": strategy})
}

func (h *ReconciliationHandler) GetSuggestions(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	suggestions, err := h.service.Suggestions(school, sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (h *ReconciliationHandler) ListPendingTransactions(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	items, err := h.service.PendingReview(c.Request.Context(), school)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ApproveTransaction verifies a transaction. If a session is supplied, the
// stored suggestion is attached to the audit record.
func (h *ReconciliationHandler) ApproveTransaction(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		DecidedBy string `json:"decided_by"`
		SessionID string `json:"session_id"`
	}
	_ = c.ShouldBindJSON(&payload)

	var match *models.MatchCandidate
	if payload.SessionID != "" {
		if sessionID, err := uuid.Parse(payload.SessionID); err == nil {
			match, _ = h.service.Suggestion(school, sessionID, txID)
		}
	}

	tx, err := h.engine.Approve(c.Request.Context(), school, txID, payload.DecidedBy, match)
	if errors.Is(err, recerr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	if err != nil && tx == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		// Transaction is verified; the invoice write failed and the repair
		// pass will complete it.
		c.JSON(http.StatusOK, gin.H{"transaction": tx, "invoice_settled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx, "invoice_settled": true})
}

func (h *ReconciliationHandler) RejectTransaction(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		DecidedBy string `json:"decided_by"`
	}
	_ = c.ShouldBindJSON(&payload)

	tx, err := h.engine.Reject(c.Request.Context(), school, txID, payload.DecidedBy)
	if errors.Is(err, recerr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction rejected", "transaction": tx})
}

// Repair completes invoice transitions for verified transactions whose
// invoice update previously failed.
func (h *ReconciliationHandler) Repair(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	repaired, err := h.engine.Repair(c.Request.Context(), school)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices_repaired": repaired})
}

func (h *ReconciliationHandler) CreateInvoice(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	var payload struct {
		StudentID string          `json:"student_id"`
		Amount    decimal.Decimal `json:"amount"`
		DueDate   string          `json:"due_date"` // "yyyy-mm-dd"
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	studentID, err := uuid.Parse(payload.StudentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student ID"})
		return
	}
	dueDate, err := time.Parse("2006-01-02", payload.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due date, expected yyyy-mm-dd"})
		return
	}

	inv, err := h.service.CreateInvoice(c.Request.Context(), school, studentID, payload.Amount, dueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

// SubmitPayment records a payer's claimed payment against an invoice.
func (h *ReconciliationHandler) SubmitPayment(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	var payload struct {
		UTRNo  string          `json:"utr_no"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	tx, err := h.service.SubmitPayment(c.Request.Context(), school, invoiceID, payload.UTRNo, payload.Amount)
	if errors.Is(err, recerr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// readRecords reads a delimited file with a header row into header-keyed
// records. Delimiter is sniffed from the first KB; malformed rows are left
// to the ingestor to count and drop.
func readRecords(file io.ReadSeeker) ([]map[string]string, error) {
	sample := make([]byte, 1024)
	n, _ := file.Read(sample)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	reader := csv.NewReader(bufio.NewReader(file))
	reader.FieldsPerRecord = -1
	if strings.Contains(string(sample[:n]), "\t") && !strings.Contains(string(sample[:n]), ",") {
		reader.Comma = '\t'
	}

	headerRow, err := reader.Read()
	if err != nil {
		return nil, err
	}

	var records []map[string]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if strings.Join(row, "") == "" {
			continue
		}
		rec := make(map[string]string, len(headerRow))
		for i, key := range headerRow {
			if i < len(row) {
				rec[strings.TrimSpace(key)] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
