package sepa

import (
	"fmt"
	"strings"
	"time"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/apperrors"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExportFile is the outcome of a successful file generation.
type ExportFile struct {
	Filename   string
	MessageID  string
	ControlSum decimal.Decimal
	Content    []byte
}

type Service struct {
	invoiceRepo *repository.InvoiceRepository
	db          *gorm.DB
	creditor    Party
	log         zerolog.Logger
}

func NewService(invoiceRepo *repository.InvoiceRepository, creditor Party, log zerolog.Logger) *Service {
	return &Service{
		invoiceRepo: invoiceRepo,
		db:          invoiceRepo.DB(),
		creditor:    creditor,
		log:         log,
	}
}

func endToEndID(invoiceNumber string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("%s-%s", invoiceNumber, suffix)
}

// checkBatchable rejects invoices that are not in an exportable state. Every
// problem is collected so the caller sees the full list at once.
func checkBatchable(invoices []models.Invoice) []apperrors.InvoiceRejection {
	var rejections []apperrors.InvoiceRejection
	for _, inv := range invoices {
		var reasons []string
		switch inv.Status {
		case models.InvoiceStatusSent:
		case models.InvoiceStatusPaid:
			reasons = append(reasons, "already paid")
		case models.InvoiceStatusCancelled:
			reasons = append(reasons, "cancelled")
		case models.InvoiceStatusExported:
			reasons = append(reasons, "already exported")
		default:
			reasons = append(reasons, fmt.Sprintf("status %q is not batchable", inv.Status))
		}
		if inv.ExportedAt != nil {
			reasons = append(reasons, "already exported")
		}
		if inv.TotalTTC.IsZero() {
			reasons = append(reasons, "zero amount")
		}
		for _, reason := range reasons {
			rejections = append(rejections, apperrors.InvoiceRejection{
				InvoiceID:     inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				Reason:        reason,
			})
		}
	}
	return rejections
}

// GenerateDirectDebitFile builds a pain.008 document for the selected
// invoices and records the export. Any invalid invoice aborts the whole
// generation; no partial file is ever produced.
func (s *Service) GenerateDirectDebitFile(tenantID uuid.UUID, invoiceIDs []uuid.UUID, collectionDate time.Time) (*ExportFile, error) {
	if len(invoiceIDs) == 0 {
		return nil, apperrors.NewValidationError("no invoices selected")
	}

	invoices, err := s.invoiceRepo.GetByIDs(tenantID, invoiceIDs)
	if err != nil {
		return nil, err
	}

	rejections := checkBatchable(invoices)

	_, mandateRejections := ValidateMandates(invoices)
	for _, r := range mandateRejections {
		rejections = append(rejections, apperrors.InvoiceRejection{
			InvoiceID:     r.Invoice.ID,
			InvoiceNumber: r.Invoice.InvoiceNumber,
			Reason:        r.Reason(),
		})
	}
	if len(rejections) > 0 {
		return nil, &apperrors.ValidationError{
			Message:  "invoices not eligible for direct debit",
			Invoices: rejections,
		}
	}

	debits := make([]Debit, 0, len(invoices))
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.TotalTTC)
		debits = append(debits, Debit{
			EndToEndID:   endToEndID(inv.InvoiceNumber),
			Amount:       inv.TotalTTC,
			DebtorName:   inv.ClientName,
			DebtorIBAN:   inv.IBAN,
			DebtorBIC:    inv.BIC,
			MandateID:    inv.SepaMandate,
			MandateDate:  *inv.SepaMandateDate,
			SequenceType: inv.SepaSequenceType,
			Remittance:   fmt.Sprintf("Facture %s", inv.InvoiceNumber),
		})
	}

	content, msgID, err := BuildDirectDebit(debits, s.creditor, collectionDate)
	if err != nil {
		return nil, err
	}

	file := &ExportFile{
		Filename:   fmt.Sprintf("sepa-dd-%s-%s.xml", collectionDate.Format("2006-01-02"), msgID),
		MessageID:  msgID,
		ControlSum: total,
		Content:    content,
	}
	if err := s.recordExport(tenantID, models.FileTypeDirectDebit, file, invoices, collectionDate); err != nil {
		return nil, err
	}
	return file, nil
}

// GenerateCreditTransferFile builds a pain.001 document settling credit
// notes; each transfer amount is the absolute value of the negative invoice
// total.
func (s *Service) GenerateCreditTransferFile(tenantID uuid.UUID, invoiceIDs []uuid.UUID, executionDate time.Time) (*ExportFile, error) {
	if len(invoiceIDs) == 0 {
		return nil, apperrors.NewValidationError("no invoices selected")
	}

	invoices, err := s.invoiceRepo.GetByIDs(tenantID, invoiceIDs)
	if err != nil {
		return nil, err
	}

	rejections := checkBatchable(invoices)

	_, detailRejections := ValidateBankDetails(invoices)
	for _, r := range detailRejections {
		rejections = append(rejections, apperrors.InvoiceRejection{
			InvoiceID:     r.Invoice.ID,
			InvoiceNumber: r.Invoice.InvoiceNumber,
			Reason:        r.Reason(),
		})
	}
	if len(rejections) > 0 {
		return nil, &apperrors.ValidationError{
			Message:  "invoices not eligible for credit transfer",
			Invoices: rejections,
		}
	}

	transfers := make([]Transfer, 0, len(invoices))
	total := decimal.Zero
	for _, inv := range invoices {
		amount := inv.TotalTTC.Abs()
		total = total.Add(amount)
		transfers = append(transfers, Transfer{
			EndToEndID:   endToEndID(inv.InvoiceNumber),
			Amount:       amount,
			CreditorName: inv.ClientName,
			CreditorIBAN: inv.IBAN,
			CreditorBIC:  inv.BIC,
			Remittance:   fmt.Sprintf("Avoir %s", inv.InvoiceNumber),
		})
	}

	content, msgID, err := BuildCreditTransfer(transfers, s.creditor, executionDate)
	if err != nil {
		return nil, err
	}

	file := &ExportFile{
		Filename:   fmt.Sprintf("sepa-ct-%s-%s.xml", executionDate.Format("2006-01-02"), msgID),
		MessageID:  msgID,
		ControlSum: total,
		Content:    content,
	}
	if err := s.recordExport(tenantID, models.FileTypeCreditTransfer, file, invoices, executionDate); err != nil {
		return nil, err
	}
	return file, nil
}

// recordExport persists the export row and stamps the included invoices as
// exported in one database transaction, so a retry can never re-export the
// same collection.
func (s *Service) recordExport(tenantID uuid.UUID, fileType string, file *ExportFile, invoices []models.Invoice, requestedDate time.Time) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		export := &models.SepaExport{
			ID:               uuid.New(),
			TenantID:         tenantID,
			MessageID:        file.MessageID,
			FileType:         fileType,
			Filename:         file.Filename,
			ControlSum:       file.ControlSum,
			TransactionCount: len(invoices),
			RequestedDate:    requestedDate,
		}
		if err := tx.Create(export).Error; err != nil {
			return err
		}

		now := time.Now()
		ids := make([]uuid.UUID, 0, len(invoices))
		for _, inv := range invoices {
			ids = append(ids, inv.ID)
		}
		return tx.Model(&models.Invoice{}).
			Where("tenant_id = ? AND id IN ?", tenantID, ids).
			Updates(map[string]interface{}{
				"status":      models.InvoiceStatusExported,
				"exported_at": &now,
			}).Error
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("file", file.Filename).
		Str("message_id", file.MessageID).
		Str("control_sum", file.ControlSum.StringFixed(2)).
		Int("invoices", len(invoices)).
		Msg("sepa file generated")
	return nil
}
