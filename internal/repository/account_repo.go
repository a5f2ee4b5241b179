package repository

import (
	"time"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Expose DB if needed
func (r *AccountRepository) DB() *gorm.DB {
	return r.db
}

func (r *AccountRepository) GetByID(tenantID, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.First(&account, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) List(tenantID uuid.UUID) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Where("tenant_id = ?", tenantID).Order("created_at ASC").Find(&accounts).Error
	return accounts, err
}

// Create inserts the account, demoting any existing primary account for the
// tenant first so at most one primary exists.
func (r *AccountRepository) Create(account *models.Account) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if account.IsPrimary {
			err := tx.Model(&models.Account{}).
				Where("tenant_id = ? AND is_primary", account.TenantID).
				Update("is_primary", false).Error
			if err != nil {
				return err
			}
		}
		return tx.Create(account).Error
	})
}

// RecordSyncResult stamps the outcome of a sync attempt on the account.
func (r *AccountRepository) RecordSyncResult(tenantID, id uuid.UUID, syncErr error) error {
	updates := map[string]interface{}{
		"last_sync_at":    time.Now(),
		"last_sync_error": nil,
	}
	if syncErr != nil {
		msg := syncErr.Error()
		updates["last_sync_error"] = &msg
	}
	return r.db.Model(&models.Account{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}
