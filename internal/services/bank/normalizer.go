package bank

import (
	"errors"
	"time"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"

	"github.com/shopspring/decimal"
)

// ProviderTransaction is one entry of the normalized Open Banking feed. The
// amount is signed: positive for money in, negative for money out.
type ProviderTransaction struct {
	ID                    string          `json:"id"`
	InternalTransactionID string          `json:"internal_transaction_id"`
	BookingDate           time.Time       `json:"booking_date"`
	ValueDate             *time.Time      `json:"value_date"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	CounterpartyName      string          `json:"counterparty_name"`
	CounterpartyIBAN      string          `json:"counterparty_iban"`
	RemittanceText        string          `json:"remittance_text"`
}

// NormalizedTransaction is the canonical shape persisted to the ledger.
type NormalizedTransaction struct {
	ExternalID       string
	Type             models.TransactionType
	Amount           decimal.Decimal
	Currency         string
	TransactionDate  time.Time
	ValueDate        *time.Time
	Label            string
	CounterpartyName string
	CounterpartyIBAN string
}

// Normalize converts a provider payload into the canonical transaction shape.
// Pure: persistence and balance effects belong to the sync service.
func Normalize(p ProviderTransaction) (NormalizedTransaction, error) {
	externalID := p.ID
	if externalID == "" {
		externalID = p.InternalTransactionID
	}
	if externalID == "" {
		return NormalizedTransaction{}, errors.New("provider transaction has no usable identifier")
	}
	if p.BookingDate.IsZero() {
		return NormalizedTransaction{}, errors.New("provider transaction has no booking date")
	}

	txType := models.TypeCredit
	if p.Amount.IsNegative() {
		txType = models.TypeDebit
	}

	return NormalizedTransaction{
		ExternalID:       externalID,
		Type:             txType,
		Amount:           p.Amount.Abs(),
		Currency:         p.Currency,
		TransactionDate:  p.BookingDate,
		ValueDate:        p.ValueDate,
		Label:            p.RemittanceText,
		CounterpartyName: p.CounterpartyName,
		CounterpartyIBAN: p.CounterpartyIBAN,
	}, nil
}
