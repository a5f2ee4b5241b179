package repository

import (
	"fmt"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Expose DB if needed
func (r *InvoiceRepository) DB() *gorm.DB {
	return r.db
}

// GetByID fetch a single invoice by ID
func (r *InvoiceRepository) GetByID(tenantID, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.First(&invoice, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetByIDs fetches a selection of invoices, failing when any id is unknown so
// a batch can never silently shrink.
func (r *InvoiceRepository) GetByIDs(tenantID uuid.UUID, ids []uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Where("tenant_id = ? AND id IN ?", tenantID, ids).Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	if len(invoices) != len(ids) {
		return nil, fmt.Errorf("%d of %d invoices not found", len(ids)-len(invoices), len(ids))
	}
	return invoices, nil
}

// Upsert inserts the invoice, ignoring duplicates on invoice number.
func (r *InvoiceRepository) Upsert(invoice *models.Invoice) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(invoice).Error
}
