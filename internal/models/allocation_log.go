package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AllocationLog records every reconciliation decision for auditing.
type AllocationLog struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID       `gorm:"type:uuid;index"`
	TransactionID uuid.UUID       `gorm:"index"`
	InvoiceID     uuid.UUID
	Action        string
	Amount        decimal.Decimal `gorm:"type:numeric(14,2)"`
	PerformedBy   string
	Details       datatypes.JSON
	CreatedAt     time.Time
}
