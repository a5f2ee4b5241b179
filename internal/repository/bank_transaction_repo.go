package repository

import (
	"errors"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

func (r *BankTransactionRepository) DB() *gorm.DB {
	return r.db
}

func (r *BankTransactionRepository) GetByID(tenantID, id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	err := r.db.First(&tx, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// FindByExternalID looks up the idempotency key for re-sync. Returns nil
// without error when no row exists.
func (r *BankTransactionRepository) FindByExternalID(db *gorm.DB, accountID uuid.UUID, externalID string) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	err := db.First(&tx, "account_id = ? AND external_id = ?", accountID, externalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// CreditCandidates returns the tenant's most recent credit transactions that
// still have more than one cent unallocated, bounded to a scan window.
func (r *BankTransactionRepository) CreditCandidates(tenantID uuid.UUID, window int) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	err := r.db.
		Where("tenant_id = ? AND type = ?", tenantID, models.TypeCredit).
		Where("amount > 0 AND amount - reconciled_amount > ?", models.ReconciliationFloor).
		Order("transaction_date DESC").
		Limit(window).
		Find(&txs).Error
	return txs, err
}

// ListByAccount pages through an account's transactions with a cursor.
func (r *BankTransactionRepository) ListByAccount(
	tenantID, accountID uuid.UUID,
	cursor string,
	limit int,
) ([]models.BankTransaction, string, bool, error) {

	var txs []models.BankTransaction
	query := r.db.
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID).
		Order("id ASC").
		Limit(limit + 1)

	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}

	if err := query.Find(&txs).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := false
	var nextCursor string
	if len(txs) > limit {
		hasMore = true
		nextCursor = txs[limit-1].ID.String()
		txs = txs[:limit]
	}

	return txs, nextCursor, hasMore, nil
}
