package repository

import (
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AllocationRepository struct {
	db *gorm.DB
}

func NewAllocationRepository(db *gorm.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// SumForInvoice returns the total amount already allocated to an invoice.
// Runs on the given handle so callers can read inside their own transaction.
func (r *AllocationRepository) SumForInvoice(db *gorm.DB, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := db.Model(&models.Allocation{}).
		Where("invoice_id = ?", invoiceID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}

// CountForTransaction reports how many invoices a transaction funds.
func (r *AllocationRepository) CountForTransaction(db *gorm.DB, transactionID uuid.UUID) (int64, error) {
	var count int64
	err := db.Model(&models.Allocation{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error
	return count, err
}

// ListForInvoice returns the allocations funding an invoice, oldest first.
func (r *AllocationRepository) ListForInvoice(tenantID, invoiceID uuid.UUID) ([]models.Allocation, error) {
	var allocations []models.Allocation
	err := r.db.
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("created_at ASC").
		Find(&allocations).Error
	return allocations, err
}
