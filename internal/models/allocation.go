package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation links part of a transaction's amount to one invoice. A single
// transaction may fund several invoices and a single invoice may be funded
// by several transactions, so this is a join entity rather than a foreign
// key on either side.
type Allocation struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID       `gorm:"type:uuid;index"`
	TransactionID uuid.UUID       `gorm:"type:uuid;index"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;index"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2)"`
	CreatedAt     time.Time
}
