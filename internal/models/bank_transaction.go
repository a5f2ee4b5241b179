package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType disambiguates direction explicitly; Amount always stores
// the absolute value.
type TransactionType string

const (
	TypeCredit TransactionType = "credit"
	TypeDebit  TransactionType = "debit"
)

// ReconciliationFloor is the one-cent tolerance applied wherever remaining
// amounts are compared, to absorb rounding of upstream decimal payloads.
var ReconciliationFloor = decimal.NewFromFloat(0.01)

type BankTransaction struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID         uuid.UUID       `gorm:"type:uuid;index"`
	AccountID        uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_tx_account_external"`
	ExternalID       string          `gorm:"uniqueIndex:idx_tx_account_external"`
	TransactionDate  time.Time       `gorm:"index"`
	ValueDate        *time.Time
	Type             TransactionType `gorm:"index"`
	Amount           decimal.Decimal `gorm:"type:numeric(14,2)"`
	Currency         string
	Label            string
	CounterpartyName string
	CounterpartyIBAN string          `gorm:"column:counterparty_iban"`
	Category         *string
	SubCategory      *string
	// ReconciledAmount is the portion already allocated to invoices and is
	// the authoritative partial-reconciliation state.
	ReconciledAmount decimal.Decimal `gorm:"type:numeric(14,2)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SignedAmount returns the amount with its direction applied.
func (t *BankTransaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// RemainingAmount is the portion still available for new allocations.
func (t *BankTransaction) RemainingAmount() decimal.Decimal {
	return t.Amount.Sub(t.ReconciledAmount)
}

// IsReconciled is derived from ReconciledAmount, never stored.
func (t *BankTransaction) IsReconciled() bool {
	return t.Type == TypeCredit && t.RemainingAmount().LessThan(ReconciliationFloor)
}

// IsPartiallyReconciled reports whether some but not all of the amount has
// been allocated.
func (t *BankTransaction) IsPartiallyReconciled() bool {
	return t.ReconciledAmount.GreaterThan(decimal.Zero) && !t.IsReconciled()
}
