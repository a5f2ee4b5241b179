package reconciliation

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/apperrors"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// scanWindow bounds the candidate search to the most recent credits.
const scanWindow = 150

// allocateRetries bounds the optimistic retry loop when concurrent
// allocations race on the same transaction.
const allocateRetries = 3

var fivePercent = decimal.NewFromFloat(0.05)

// MatchQuality classifies how well a candidate covers an invoice.
type MatchQuality string

const (
	MatchExact MatchQuality = "exact"
	MatchClose MatchQuality = "close"
	MatchFits  MatchQuality = "fits"
	MatchNone  MatchQuality = "none"
)

// Candidate annotates a credit transaction with its reconciliation state
// relative to one invoice.
type Candidate struct {
	Transaction           models.BankTransaction `json:"transaction"`
	RemainingAmount       decimal.Decimal        `json:"remaining_amount"`
	ReconciledAmount      decimal.Decimal        `json:"reconciled_amount"`
	IsPartiallyReconciled bool                   `json:"is_partially_reconciled"`
	Match                 MatchQuality           `json:"match"`
}

// SuggestionResult partitions candidates into plausible matches and the rest.
type SuggestionResult struct {
	Suggested []Candidate `json:"suggested"`
	Others    []Candidate `json:"others"`
}

type Service struct {
	invoiceRepo    *repository.InvoiceRepository
	txRepo         *repository.BankTransactionRepository
	allocationRepo *repository.AllocationRepository
	db             *gorm.DB
	log            zerolog.Logger
}

func NewService(
	invoiceRepo *repository.InvoiceRepository,
	txRepo *repository.BankTransactionRepository,
	allocationRepo *repository.AllocationRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		invoiceRepo:    invoiceRepo,
		txRepo:         txRepo,
		allocationRepo: allocationRepo,
		db:             invoiceRepo.DB(),
		log:            log,
	}
}

// classify grades a candidate's remaining amount against the invoice amount.
func classify(remaining, invoiceAmount decimal.Decimal) MatchQuality {
	diff := remaining.Sub(invoiceAmount).Abs()
	switch {
	case diff.LessThan(models.ReconciliationFloor):
		return MatchExact
	case diff.LessThan(invoiceAmount.Mul(fivePercent)):
		return MatchClose
	case invoiceAmount.LessThanOrEqual(remaining.Add(models.ReconciliationFloor)):
		// The invoice could be carved out of a larger batch payment.
		return MatchFits
	default:
		return MatchNone
	}
}

func rank(q MatchQuality) int {
	switch q {
	case MatchExact:
		return 0
	case MatchClose:
		return 1
	case MatchFits:
		return 2
	default:
		return 3
	}
}

// Suggest ranks unreconciled and partially reconciled credit transactions as
// payment candidates for one invoice.
func (s *Service) Suggest(tenantID, invoiceID uuid.UUID) (SuggestionResult, error) {
	invoice, err := s.invoiceRepo.GetByID(tenantID, invoiceID)
	if err != nil {
		return SuggestionResult{}, err
	}

	transactions, err := s.txRepo.CreditCandidates(tenantID, scanWindow)
	if err != nil {
		return SuggestionResult{}, err
	}

	candidates := make([]Candidate, 0, len(transactions))
	for _, tx := range transactions {
		remaining := tx.RemainingAmount()
		candidates = append(candidates, Candidate{
			Transaction:           tx,
			RemainingAmount:       remaining,
			ReconciledAmount:      tx.ReconciledAmount,
			IsPartiallyReconciled: tx.IsPartiallyReconciled(),
			Match:                 classify(remaining, invoice.TotalTTC),
		})
	}

	// Candidates arrive most recent first; a stable sort on rank preserves
	// recency within each grade.
	sort.SliceStable(candidates, func(i, j int) bool {
		return rank(candidates[i].Match) < rank(candidates[j].Match)
	})

	result := SuggestionResult{
		Suggested: make([]Candidate, 0),
		Others:    make([]Candidate, 0),
	}
	for _, c := range candidates {
		if c.Match == MatchNone {
			result.Others = append(result.Others, c)
		} else {
			result.Suggested = append(result.Suggested, c)
		}
	}
	return result, nil
}

// Allocate assigns part of a transaction's amount to an invoice. The
// increment is guarded by an optimistic compare-and-set on the previous
// reconciled amount, so two concurrent allocations can never jointly
// over-allocate.
func (s *Service) Allocate(tenantID, transactionID, invoiceID uuid.UUID, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperrors.NewValidationError("allocation amount must be positive")
	}

	for attempt := 0; attempt < allocateRetries; attempt++ {
		stale, err := s.tryAllocate(tenantID, transactionID, invoiceID, amount)
		if stale {
			continue
		}
		return err
	}
	return apperrors.ErrAllocationConflict
}

func (s *Service) tryAllocate(tenantID, transactionID, invoiceID uuid.UUID, amount decimal.Decimal) (bool, error) {
	stale := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var row models.BankTransaction
		if err := tx.First(&row, "tenant_id = ? AND id = ?", tenantID, transactionID).Error; err != nil {
			return err
		}
		if row.Type != models.TypeCredit {
			return apperrors.NewValidationError("transaction %s is a debit and cannot fund invoices", row.ID)
		}
		if amount.GreaterThan(row.RemainingAmount()) {
			return apperrors.ErrOverAllocation
		}

		invoice, err := s.invoiceRepo.GetByID(tenantID, invoiceID)
		if err != nil {
			return err
		}

		allocated, err := s.allocationRepo.SumForInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		outstanding := invoice.TotalTTC.Sub(allocated)
		if amount.GreaterThan(outstanding) {
			return apperrors.ErrOverAllocation
		}

		// CAS: the update only lands if reconciled_amount is still the value
		// we read. A miss means a concurrent allocation won; retry.
		result := tx.Model(&models.BankTransaction{}).
			Where("id = ? AND reconciled_amount = ?", row.ID, row.ReconciledAmount).
			Update("reconciled_amount", row.ReconciledAmount.Add(amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			stale = true
			return nil
		}

		allocation := &models.Allocation{
			ID:            uuid.New(),
			TenantID:      tenantID,
			TransactionID: row.ID,
			InvoiceID:     invoice.ID,
			Amount:        amount,
		}
		if err := tx.Create(allocation).Error; err != nil {
			return err
		}

		newAllocated := allocated.Add(amount)
		invoicePaid := invoice.TotalTTC.Sub(newAllocated).LessThan(models.ReconciliationFloor)
		if invoicePaid {
			now := time.Now()
			err := tx.Model(invoice).Updates(map[string]interface{}{
				"status":  models.InvoiceStatusPaid,
				"paid_at": &now,
			}).Error
			if err != nil {
				return err
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"amount":             amount.StringFixed(2),
			"transaction_amount": row.Amount.StringFixed(2),
			"remaining_before":   row.RemainingAmount().StringFixed(2),
			"invoice_total":      invoice.TotalTTC.StringFixed(2),
			"invoice_allocated":  newAllocated.StringFixed(2),
			"invoice_paid":       invoicePaid,
		})
		logRow := &models.AllocationLog{
			ID:            uuid.New(),
			TenantID:      tenantID,
			TransactionID: row.ID,
			InvoiceID:     invoice.ID,
			Action:        "allocate",
			Amount:        amount,
			Details:       details,
		}
		return tx.Create(logRow).Error
	})

	if err == nil && !stale {
		s.log.Info().
			Str("transaction", transactionID.String()).
			Str("invoice", invoiceID.String()).
			Str("amount", amount.StringFixed(2)).
			Msg("allocation applied")
	}
	return stale, err
}

// InvoiceAllocations exposes the allocations funding an invoice, so callers
// can derive a partially-paid view.
func (s *Service) InvoiceAllocations(tenantID, invoiceID uuid.UUID) ([]models.Allocation, error) {
	return s.allocationRepo.ListForInvoice(tenantID, invoiceID)
}
