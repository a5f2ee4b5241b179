package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AccountStatusActive   = "active"
	AccountStatusInactive = "inactive"
)

type Account struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID         uuid.UUID       `gorm:"type:uuid;index"`
	BankName         string
	DisplayName      string
	IBAN             string          `gorm:"column:iban"`
	BIC              string          `gorm:"column:bic"`
	AccountType      string
	Currency         string
	CurrentBalance   decimal.Decimal `gorm:"type:numeric(14,2)"`
	AvailableBalance decimal.Decimal `gorm:"type:numeric(14,2)"`
	Status           string          `gorm:"index"`
	IsPrimary        bool
	LastSyncAt       *time.Time
	LastSyncError    *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
