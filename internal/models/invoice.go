package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusExported  = "exported"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCancelled = "cancelled"
)

const (
	SequenceTypeFirst     = "FRST"
	SequenceTypeRecurrent = "RCUR"
)

type Invoice struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID       `gorm:"type:uuid;index"`
	InvoiceNumber string          `gorm:"uniqueIndex"`
	ClientName    string          `gorm:"index"`
	TotalTTC      decimal.Decimal `gorm:"column:total_ttc;type:numeric(14,2)"`
	Status        string          `gorm:"index"`
	PaymentMethod string
	DebitDate     *time.Time
	// Client SEPA fields, required before the invoice may enter a
	// direct-debit batch.
	IBAN             string `gorm:"column:iban"`
	BIC              string `gorm:"column:bic"`
	SepaMandate      string
	SepaMandateDate  *time.Time
	SepaSequenceType string
	ExportedAt       *time.Time
	PaidAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
