package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/services/sepa"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SepaHandler struct {
	service *sepa.Service
}

func NewSepaHandler(s *sepa.Service) *SepaHandler {
	return &SepaHandler{service: s}
}

type sepaFileRequest struct {
	InvoiceIDs []string `json:"invoice_ids"`
	Date       string   `json:"date"`
}

func (r sepaFileRequest) parse() ([]uuid.UUID, time.Time, error) {
	if len(r.InvoiceIDs) == 0 {
		return nil, time.Time{}, fmt.Errorf("invoice_ids is required")
	}
	ids := make([]uuid.UUID, 0, len(r.InvoiceIDs))
	for _, raw := range r.InvoiceIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("invalid invoice ID %q", raw)
		}
		ids = append(ids, id)
	}
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("invalid date, expected yyyy-mm-dd")
	}
	return ids, date, nil
}

func writeFile(c *gin.Context, file *sepa.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, "application/xml", file.Content)
}

// DirectDebit generates a pain.008 file for the selected invoices.
func (h *SepaHandler) DirectDebit(c *gin.Context) {
	var payload sepaFileRequest
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	ids, collectionDate, err := payload.parse()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := h.service.GenerateDirectDebitFile(tenantID(c), ids, collectionDate)
	if err != nil {
		respondError(c, err)
		return
	}
	writeFile(c, file)
}

// CreditTransfer generates a pain.001 file settling credit notes.
func (h *SepaHandler) CreditTransfer(c *gin.Context) {
	var payload sepaFileRequest
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	ids, executionDate, err := payload.parse()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := h.service.GenerateCreditTransferFile(tenantID(c), ids, executionDate)
	if err != nil {
		respondError(c, err)
		return
	}
	writeFile(c, file)
}
