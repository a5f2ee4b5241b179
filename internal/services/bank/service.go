package bank

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/apperrors"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service owns transaction ingestion and the account balance. Every balance
// change is committed in the same unit of work as the transaction row it
// belongs to.
type Service struct {
	accountRepo    *repository.AccountRepository
	txRepo         *repository.BankTransactionRepository
	allocationRepo *repository.AllocationRepository
	db             *gorm.DB
	log            zerolog.Logger
	accountLocks   sync.Map // accountID -> *sync.Mutex
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Created   int             `json:"created"`
	Updated   int             `json:"updated"`
	Balance   decimal.Decimal `json:"balance"`
	RateLimit RateLimit       `json:"rate_limit"`
}

func NewService(
	accountRepo *repository.AccountRepository,
	txRepo *repository.BankTransactionRepository,
	allocationRepo *repository.AllocationRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		accountRepo:    accountRepo,
		txRepo:         txRepo,
		allocationRepo: allocationRepo,
		db:             accountRepo.DB(),
		log:            log,
	}
}

// lockAccount serializes operations within one account's transaction stream.
// Distinct accounts proceed concurrently.
func (s *Service) lockAccount(accountID uuid.UUID) *sync.Mutex {
	val, _ := s.accountLocks.LoadOrStore(accountID, &sync.Mutex{})
	mu := val.(*sync.Mutex)
	mu.Lock()
	return mu
}

// SyncAccount pulls the feed for a date range and ingests it. Feed failures
// are recorded on the account and returned as a SyncError.
func (s *Service) SyncAccount(ctx context.Context, tenantID, accountID uuid.UUID, feed TransactionFeed, from, to time.Time) (SyncResult, error) {
	account, err := s.accountRepo.GetByID(tenantID, accountID)
	if err != nil {
		return SyncResult{}, err
	}

	payload, rateLimit, err := feed.FetchTransactions(ctx, account, from, to)
	if err != nil {
		syncErr := &apperrors.SyncError{AccountID: accountID, Err: err}
		if recErr := s.accountRepo.RecordSyncResult(tenantID, accountID, syncErr); recErr != nil {
			s.log.Error().Err(recErr).Str("account", accountID.String()).Msg("failed to record sync error")
		}
		return SyncResult{RateLimit: rateLimit}, syncErr
	}

	result, err := s.Ingest(ctx, tenantID, accountID, payload)
	result.RateLimit = rateLimit
	if err != nil {
		return result, err
	}

	if err := s.accountRepo.RecordSyncResult(tenantID, accountID, nil); err != nil {
		return result, err
	}
	return result, nil
}

// Ingest normalizes and upserts a provider payload for one account. Re-runs
// with the same payload are idempotent: existing rows are updated by delta,
// never double counted.
func (s *Service) Ingest(ctx context.Context, tenantID, accountID uuid.UUID, payload []ProviderTransaction) (SyncResult, error) {
	mu := s.lockAccount(accountID)
	defer mu.Unlock()

	var result SyncResult
	for _, p := range payload {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		norm, err := Normalize(p)
		if err != nil {
			s.log.Warn().Err(err).Str("account", accountID.String()).Msg("skipping malformed provider transaction")
			continue
		}

		created, err := s.upsert(tenantID, accountID, norm)
		if err != nil {
			return result, err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	account, err := s.accountRepo.GetByID(tenantID, accountID)
	if err != nil {
		return result, err
	}
	result.Balance = account.CurrentBalance

	s.log.Info().
		Str("account", accountID.String()).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Str("balance", result.Balance.StringFixed(2)).
		Msg("account ingested")
	return result, nil
}

// upsert writes one transaction and its balance effect in a single database
// transaction, keyed on (account, external id).
func (s *Service) upsert(tenantID, accountID uuid.UUID, norm NormalizedTransaction) (bool, error) {
	created := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var account models.Account
		if err := tx.First(&account, "tenant_id = ? AND id = ?", tenantID, accountID).Error; err != nil {
			return err
		}

		existing, err := s.txRepo.FindByExternalID(tx, accountID, norm.ExternalID)
		if err != nil {
			return err
		}

		if existing == nil {
			row := &models.BankTransaction{
				ID:               uuid.New(),
				TenantID:         tenantID,
				AccountID:        accountID,
				ExternalID:       norm.ExternalID,
				TransactionDate:  norm.TransactionDate,
				ValueDate:        norm.ValueDate,
				Type:             norm.Type,
				Amount:           norm.Amount,
				Currency:         norm.Currency,
				Label:            norm.Label,
				CounterpartyName: norm.CounterpartyName,
				CounterpartyIBAN: norm.CounterpartyIBAN,
				ReconciledAmount: decimal.Zero,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			created = true
			return applyBalanceDelta(tx, &account, row.SignedAmount())
		}

		// Update path: apply only the delta between old and new signed
		// amounts, to avoid double counting on re-sync.
		oldSigned := existing.SignedAmount()

		newType := norm.Type
		if newType == models.TypeDebit && existing.ReconciledAmount.GreaterThan(decimal.Zero) {
			return &apperrors.IntegrityError{
				Op:     "ingest",
				Detail: fmt.Sprintf("transaction %s became a debit but has %s allocated", existing.ID, existing.ReconciledAmount.StringFixed(2)),
			}
		}
		if norm.Amount.LessThan(existing.ReconciledAmount) {
			return &apperrors.IntegrityError{
				Op:     "ingest",
				Detail: fmt.Sprintf("transaction %s amount %s below allocated %s", existing.ID, norm.Amount.StringFixed(2), existing.ReconciledAmount.StringFixed(2)),
			}
		}

		existing.Type = newType
		existing.Amount = norm.Amount
		existing.Currency = norm.Currency
		existing.TransactionDate = norm.TransactionDate
		existing.ValueDate = norm.ValueDate
		existing.Label = norm.Label
		existing.CounterpartyName = norm.CounterpartyName
		existing.CounterpartyIBAN = norm.CounterpartyIBAN
		if err := tx.Save(existing).Error; err != nil {
			return err
		}

		delta := existing.SignedAmount().Sub(oldSigned)
		if delta.IsZero() {
			return nil
		}
		return applyBalanceDelta(tx, &account, delta)
	})
	return created, err
}

// DeleteTransaction removes a transaction and reverses its balance effect
// atomically. Transactions with allocations cannot be deleted.
func (s *Service) DeleteTransaction(tenantID, transactionID uuid.UUID) error {
	row, err := s.txRepo.GetByID(tenantID, transactionID)
	if err != nil {
		return err
	}

	mu := s.lockAccount(row.AccountID)
	defer mu.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var current models.BankTransaction
		if err := tx.First(&current, "tenant_id = ? AND id = ?", tenantID, transactionID).Error; err != nil {
			return err
		}

		count, err := s.allocationRepo.CountForTransaction(tx, current.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperrors.NewValidationError("transaction %s funds %d invoice(s) and cannot be deleted", current.ID, count)
		}

		var account models.Account
		err = tx.First(&account, "tenant_id = ? AND id = ?", tenantID, current.AccountID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &apperrors.IntegrityError{
				Op:     "delete",
				Detail: fmt.Sprintf("account %s not found for transaction %s", current.AccountID, current.ID),
			}
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&current).Error; err != nil {
			return err
		}
		return applyBalanceDelta(tx, &account, current.SignedAmount().Neg())
	})
}

// Categorize sets the user-assignable category fields.
func (s *Service) Categorize(tenantID, transactionID uuid.UUID, category, subCategory *string) error {
	result := s.db.Model(&models.BankTransaction{}).
		Where("tenant_id = ? AND id = ?", tenantID, transactionID).
		Updates(map[string]interface{}{
			"category":     category,
			"sub_category": subCategory,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func applyBalanceDelta(tx *gorm.DB, account *models.Account, delta decimal.Decimal) error {
	newBalance := account.CurrentBalance.Add(delta)
	return tx.Model(account).Updates(map[string]interface{}{
		"current_balance":   newBalance,
		"available_balance": account.AvailableBalance.Add(delta),
	}).Error
}
