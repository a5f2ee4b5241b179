package handler

import (
	"net/http"
	"time"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/repository"
	service "github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReconciliationHandler struct {
	service     *service.Service
	invoiceRepo *repository.InvoiceRepository
}

func NewReconciliationHandler(s *service.Service, invoiceRepo *repository.InvoiceRepository) *ReconciliationHandler {
	return &ReconciliationHandler{service: s, invoiceRepo: invoiceRepo}
}

// Suggest returns ranked payment candidates for one invoice.
func (h *ReconciliationHandler) Suggest(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	result, err := h.service.Suggest(tenantID(c), invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"suggested": result.Suggested,
		"others":    result.Others,
	})
}

// Allocate applies a manual reconciliation command.
func (h *ReconciliationHandler) Allocate(c *gin.Context) {
	var payload struct {
		TransactionID string          `json:"transaction_id"`
		InvoiceID     string          `json:"invoice_id"`
		Amount        decimal.Decimal `json:"amount"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	txID, err := uuid.Parse(payload.TransactionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	if err := h.service.Allocate(tenantID(c), txID, invoiceID, payload.Amount); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "allocation applied"})
}

// InvoiceAllocations lists the allocations funding one invoice.
func (h *ReconciliationHandler) InvoiceAllocations(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	allocations, err := h.service.InvoiceAllocations(tenantID(c), invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allocations": allocations})
}

// CreateInvoice seeds an invoice with its client's SEPA fields.
func (h *ReconciliationHandler) CreateInvoice(c *gin.Context) {
	var payload struct {
		InvoiceNumber    string          `json:"invoice_number"`
		ClientName       string          `json:"client_name"`
		TotalTTC         decimal.Decimal `json:"total_ttc"`
		Status           string          `json:"status"`
		PaymentMethod    string          `json:"payment_method"`
		DebitDate        string          `json:"debit_date"`
		IBAN             string          `json:"iban"`
		BIC              string          `json:"bic"`
		SepaMandate      string          `json:"sepa_mandate"`
		SepaMandateDate  string          `json:"sepa_mandate_date"`
		SepaSequenceType string          `json:"sepa_sequence_type"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.ClientName == "" || payload.TotalTTC.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client name and non-zero total required"})
		return
	}

	invoiceNumber := payload.InvoiceNumber
	if invoiceNumber == "" {
		invoiceNumber = uuid.New().String()
	}
	status := payload.Status
	if status == "" {
		status = models.InvoiceStatusSent
	}

	invoice := &models.Invoice{
		ID:               uuid.New(),
		TenantID:         tenantID(c),
		InvoiceNumber:    invoiceNumber,
		ClientName:       payload.ClientName,
		TotalTTC:         payload.TotalTTC,
		Status:           status,
		PaymentMethod:    payload.PaymentMethod,
		IBAN:             payload.IBAN,
		BIC:              payload.BIC,
		SepaMandate:      payload.SepaMandate,
		SepaSequenceType: payload.SepaSequenceType,
	}
	if payload.DebitDate != "" {
		d, err := time.Parse("2006-01-02", payload.DebitDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid debit date, expected yyyy-mm-dd"})
			return
		}
		invoice.DebitDate = &d
	}
	if payload.SepaMandateDate != "" {
		d, err := time.Parse("2006-01-02", payload.SepaMandateDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mandate date, expected yyyy-mm-dd"})
			return
		}
		invoice.SepaMandateDate = &d
	}

	if err := h.invoiceRepo.Upsert(invoice); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice created", "invoice": invoice})
}
