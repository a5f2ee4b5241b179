package bank

import (
	"context"
	"time"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"
)

// RateLimit is the provider quota state observed on the last call, returned
// alongside each sync result so callers can decide on backoff without
// reaching into client internals.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// TransactionFeed abstracts the Open Banking provider. Transport concerns
// (signing, token refresh, retries) live behind this interface.
type TransactionFeed interface {
	FetchTransactions(ctx context.Context, account *models.Account, from, to time.Time) ([]ProviderTransaction, RateLimit, error)
}
