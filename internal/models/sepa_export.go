package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	FileTypeDirectDebit    = "pain.008"
	FileTypeCreditTransfer = "pain.001"
)

// SepaExport is the durable record of a generated bank file. It is written
// in the same database transaction that stamps the included invoices as
// exported, so a retry can never re-export the same collection.
type SepaExport struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID         uuid.UUID       `gorm:"type:uuid;index"`
	MessageID        string          `gorm:"uniqueIndex"`
	FileType         string
	Filename         string
	ControlSum       decimal.Decimal `gorm:"type:numeric(14,2)"`
	TransactionCount int
	RequestedDate    time.Time
	CreatedAt        time.Time
}
