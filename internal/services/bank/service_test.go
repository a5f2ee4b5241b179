package bank

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/apperrors"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/logger"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Account{},
		&models.BankTransaction{},
		&models.Invoice{},
		&models.Allocation{},
		&models.AllocationLog{},
	))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewService(
		repository.NewAccountRepository(db),
		repository.NewBankTransactionRepository(db),
		repository.NewAllocationRepository(db),
		logger.NewWithWriter(io.Discard),
	)
	return svc, db
}

func createAccount(t *testing.T, db *gorm.DB, tenantID uuid.UUID) *models.Account {
	t.Helper()
	account := &models.Account{
		ID:               uuid.New(),
		TenantID:         tenantID,
		BankName:         "Credit Test",
		DisplayName:      "Compte courant",
		IBAN:             "FR7630006000011234567890189",
		Currency:         "EUR",
		CurrentBalance:   decimal.Zero,
		AvailableBalance: decimal.Zero,
		Status:           models.AccountStatusActive,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func providerPayload() []ProviderTransaction {
	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	return []ProviderTransaction{
		{ID: "ext-1", BookingDate: day, Amount: decimal.NewFromFloat(100.00), Currency: "EUR", CounterpartyName: "ACME"},
		{ID: "ext-2", BookingDate: day.AddDate(0, 0, 1), Amount: decimal.NewFromFloat(-40.00), Currency: "EUR"},
		{ID: "ext-3", BookingDate: day.AddDate(0, 0, 2), Amount: decimal.NewFromFloat(60.50), Currency: "EUR"},
	}
}

func TestIngestCreatesTransactionsAndBalance(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()
	account := createAccount(t, db, tenant)

	result, err := svc.Ingest(context.Background(), tenant, account.ID, providerPayload())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.True(t, result.Balance.Equal(decimal.NewFromFloat(120.50)), "balance = %s", result.Balance)
}

func TestIngestIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()
	account := createAccount(t, db, tenant)

	first, err := svc.Ingest(context.Background(), tenant, account.ID, providerPayload())
	require.NoError(t, err)

	second, err := svc.Ingest(context.Background(), tenant, account.ID, providerPayload())
	require.NoError(t, err)

	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 3, second.Updated)
	assert.True(t, second.Balance.Equal(first.Balance))

	var count int64
	db.Model(&models.BankTransaction{}).Where("account_id = ?", account.ID).Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestIngestUpdateAppliesDeltaOnly(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()
	account := createAccount(t, db, tenant)

	_, err := svc.Ingest(context.Background(), tenant, account.ID, providerPayload())
	require.NoError(t, err)

	// The provider corrected ext-1 from 100.00 to 110.00.
	changed := providerPayload()
	changed[0].Amount = decimal.NewFromFloat(110.00)

	result, err := svc.Ingest(context.Background(), tenant, account.ID, changed)
	require.NoError(t, err)
	assert.True(t, result.Balance.Equal(decimal.NewFromFloat(130.50)), "balance = %s", result.Balance)
}

func TestIngestSkipsMalformedEntries(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()
	account := createAccount(t, db, tenant)

	payload := append(providerPayload(), ProviderTransaction{
		Amount: decimal.NewFromInt(999),
	})
	result, err := svc.Ingest(context.Background(), tenant, account.ID, payload)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
}

func TestBalanceReplayEquivalence(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()
	account := createAccount(t, db, tenant)

	payload := providerPayload()
	for i := 0; i < 7; i++ {
		amount := decimal.NewFromFloat(float64(i*13) - 30.5)
		payload = append(payload, ProviderTransaction{
			ID:          fmt.Sprintf("ext-extra-%d", i),
			BookingDate: time.Date(2025, 4, 10+i, 0, 0, 0, 0, time.UTC),
			Amount:      amount,
		})
	}

	result, err := svc.Ingest(context.Background(), tenant, account.ID, payload)
	require.NoError(t, err)

	var rows []models.BankTransaction
	require.NoError(t, db.Where("account_id = ?", account.ID).Order("transaction_date ASC").Find(&rows).Error)

	replayed := decimal.Zero
	for i := range rows {
		replayed = replayed.Add(rows[i].SignedAmount())
	}
	assert.True(t, result.Balance.Equal(replayed), "incremental %s != replayed %s", result.Balance, replayed)
}

func TestDeleteTransactionReversesBalance(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()
	account := createAccount(t, db, tenant)

	_, err := svc.Ingest(context.Background(), tenant, account.ID, providerPayload())
	require.NoError(t, err)

	var row models.BankTransaction
	require.NoError(t, db.First(&row, "external_id = ?", "ext-2").Error)

	require.NoError(t, svc.DeleteTransaction(tenant, row.ID))

	var updated models.Account
	require.NoError(t, db.First(&updated, "id = ?", account.ID).Error)
	assert.True(t, updated.CurrentBalance.Equal(decimal.NewFromFloat(160.50)), "balance = %s", updated.CurrentBalance)

	var count int64
	db.Model(&models.BankTransaction{}).Where("id = ?", row.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDeleteTransactionWithAllocationsRejected(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()
	account := createAccount(t, db, tenant)

	_, err := svc.Ingest(context.Background(), tenant, account.ID, providerPayload())
	require.NoError(t, err)

	var row models.BankTransaction
	require.NoError(t, db.First(&row, "external_id = ?", "ext-1").Error)

	require.NoError(t, db.Create(&models.Allocation{
		ID:            uuid.New(),
		TenantID:      tenant,
		TransactionID: row.ID,
		InvoiceID:     uuid.New(),
		Amount:        decimal.NewFromInt(50),
	}).Error)

	err = svc.DeleteTransaction(tenant, row.ID)
	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestDeleteTransactionMissingAccountIsIntegrityError(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()
	account := createAccount(t, db, tenant)

	_, err := svc.Ingest(context.Background(), tenant, account.ID, providerPayload())
	require.NoError(t, err)

	var row models.BankTransaction
	require.NoError(t, db.First(&row, "external_id = ?", "ext-1").Error)

	require.NoError(t, db.Delete(&models.Account{}, "id = ?", account.ID).Error)

	err = svc.DeleteTransaction(tenant, row.ID)
	var integrityErr *apperrors.IntegrityError
	assert.ErrorAs(t, err, &integrityErr)
}

type failingFeed struct{}

func (failingFeed) FetchTransactions(ctx context.Context, account *models.Account, from, to time.Time) ([]ProviderTransaction, RateLimit, error) {
	return nil, RateLimit{Limit: 100, Remaining: 0}, errors.New("provider unavailable")
}

func TestSyncAccountRecordsFeedFailure(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()
	account := createAccount(t, db, tenant)

	_, err := svc.SyncAccount(context.Background(), tenant, account.ID, failingFeed{}, time.Now().AddDate(0, -1, 0), time.Now())

	var syncErr *apperrors.SyncError
	assert.ErrorAs(t, err, &syncErr)

	var updated models.Account
	require.NoError(t, db.First(&updated, "id = ?", account.ID).Error)
	assert.NotNil(t, updated.LastSyncAt)
	require.NotNil(t, updated.LastSyncError)
	assert.Contains(t, *updated.LastSyncError, "provider unavailable")
}

type staticFeed struct {
	payload []ProviderTransaction
	limit   RateLimit
}

func (f staticFeed) FetchTransactions(ctx context.Context, account *models.Account, from, to time.Time) ([]ProviderTransaction, RateLimit, error) {
	return f.payload, f.limit, nil
}

func TestSyncAccountReturnsRateLimit(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()
	account := createAccount(t, db, tenant)

	feed := staticFeed{
		payload: providerPayload(),
		limit:   RateLimit{Limit: 100, Remaining: 42},
	}
	result, err := svc.SyncAccount(context.Background(), tenant, account.ID, feed, time.Now().AddDate(0, -1, 0), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 42, result.RateLimit.Remaining)

	var updated models.Account
	require.NoError(t, db.First(&updated, "id = ?", account.ID).Error)
	assert.NotNil(t, updated.LastSyncAt)
	assert.Nil(t, updated.LastSyncError)
}
