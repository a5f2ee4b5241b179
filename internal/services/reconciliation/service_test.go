package reconciliation

import (
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
		repository.NewInvoiceRepository(db),
		repository.NewBankTransactionRepository(db),
		repository.NewAllocationRepository(db),
		logger.NewWithWriter(io.Discard),
	)
	return svc, db
}

func createCredit(t *testing.T, db *gorm.DB, tenant uuid.UUID, amount, reconciled float64, daysAgo int) *models.BankTransaction {
	t.Helper()
	tx := &models.BankTransaction{
		ID:               uuid.New(),
		TenantID:         tenant,
		AccountID:        uuid.New(),
		ExternalID:       uuid.NewString(),
		TransactionDate:  time.Now().AddDate(0, 0, -daysAgo),
		Type:             models.TypeCredit,
		Amount:           decimal.NewFromFloat(amount),
		Currency:         "EUR",
		ReconciledAmount: decimal.NewFromFloat(reconciled),
	}
	require.NoError(t, db.Create(tx).Error)
	return tx
}

func createInvoice(t *testing.T, db *gorm.DB, tenant uuid.UUID, total float64) *models.Invoice {
	t.Helper()
	inv := &models.Invoice{
		ID:            uuid.New(),
		TenantID:      tenant,
		InvoiceNumber: uuid.NewString(),
		ClientName:    "Client Test",
		TotalTTC:      decimal.NewFromFloat(total),
		Status:        models.InvoiceStatusSent,
	}
	require.NoError(t, db.Create(inv).Error)
	return inv
}

func TestClassify(t *testing.T) {
	invoiceAmount := decimal.NewFromFloat(100.00)

	assert.Equal(t, MatchExact, classify(decimal.NewFromFloat(100.00), invoiceAmount))
	assert.Equal(t, MatchExact, classify(decimal.NewFromFloat(100.005), invoiceAmount))
	assert.Equal(t, MatchClose, classify(decimal.NewFromFloat(102.00), invoiceAmount))
	assert.Equal(t, MatchClose, classify(decimal.NewFromFloat(96.00), invoiceAmount))
	assert.Equal(t, MatchFits, classify(decimal.NewFromFloat(500.00), invoiceAmount))
	assert.Equal(t, MatchNone, classify(decimal.NewFromFloat(50.00), invoiceAmount))
}

func TestSuggestRanksExactFirst(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()
	invoice := createInvoice(t, db, tenant, 100.00)

	fits := createCredit(t, db, tenant, 500.00, 0, 1)
	exact := createCredit(t, db, tenant, 100.00, 0, 5)
	near := createCredit(t, db, tenant, 102.00, 0, 2)
	tooSmall := createCredit(t, db, tenant, 50.00, 0, 0)

	result, err := svc.Suggest(tenant, invoice.ID)
	require.NoError(t, err)

	require.Len(t, result.Suggested, 3)
	assert.Equal(t, exact.ID, result.Suggested[0].Transaction.ID)
	assert.Equal(t, MatchExact, result.Suggested[0].Match)
	assert.Equal(t, near.ID, result.Suggested[1].Transaction.ID)
	assert.Equal(t, fits.ID, result.Suggested[2].Transaction.ID)

	require.Len(t, result.Others, 1)
	assert.Equal(t, tooSmall.ID, result.Others[0].Transaction.ID)
}

func TestSuggestUsesRemainingAmount(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()
	invoice := createInvoice(t, db, tenant, 100.00)

	// 300 received, 200 already allocated elsewhere: remaining 100 is exact.
	partial := createCredit(t, db, tenant, 300.00, 200.00, 1)
	// Fully reconciled, must not appear at all.
	createCredit(t, db, tenant, 100.00, 100.00, 0)

	result, err := svc.Suggest(tenant, invoice.ID)
	require.NoError(t, err)

	require.Len(t, result.Suggested, 1)
	c := result.Suggested[0]
	assert.Equal(t, partial.ID, c.Transaction.ID)
	assert.Equal(t, MatchExact, c.Match)
	assert.True(t, c.RemainingAmount.Equal(decimal.NewFromFloat(100.00)))
	assert.True(t, c.IsPartiallyReconciled)
	assert.Empty(t, result.Others)
}

func TestSuggestExcludesDebitsAndOtherTenants(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()
	invoice := createInvoice(t, db, tenant, 100.00)

	createCredit(t, db, uuid.New(), 100.00, 0, 0)
	debit := &models.BankTransaction{
		ID:              uuid.New(),
		TenantID:        tenant,
		AccountID:       uuid.New(),
		ExternalID:      uuid.NewString(),
		TransactionDate: time.Now(),
		Type:            models.TypeDebit,
		Amount:          decimal.NewFromFloat(100.00),
	}
	require.NoError(t, db.Create(debit).Error)

	result, err := svc.Suggest(tenant, invoice.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Suggested)
	assert.Empty(t, result.Others)
}

func TestAllocateBatchPayment(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	tx := createCredit(t, db, tenant, 300.00, 0, 0)
	invoiceA := createInvoice(t, db, tenant, 120.00)
	invoiceB := createInvoice(t, db, tenant, 180.00)

	require.NoError(t, svc.Allocate(tenant, tx.ID, invoiceA.ID, decimal.NewFromFloat(120.00)))
	require.NoError(t, svc.Allocate(tenant, tx.ID, invoiceB.ID, decimal.NewFromFloat(180.00)))

	var updated models.BankTransaction
	require.NoError(t, db.First(&updated, "id = ?", tx.ID).Error)
	assert.True(t, updated.RemainingAmount().Equal(decimal.Zero), "remaining = %s", updated.RemainingAmount())
	assert.True(t, updated.IsReconciled())

	for _, id := range []uuid.UUID{invoiceA.ID, invoiceB.ID} {
		var inv models.Invoice
		require.NoError(t, db.First(&inv, "id = ?", id).Error)
		assert.Equal(t, models.InvoiceStatusPaid, inv.Status)
		assert.NotNil(t, inv.PaidAt)
	}
}

func TestAllocatePartialLeavesInvoiceSent(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	tx := createCredit(t, db, tenant, 50.00, 0, 0)
	invoice := createInvoice(t, db, tenant, 120.00)

	require.NoError(t, svc.Allocate(tenant, tx.ID, invoice.ID, decimal.NewFromFloat(50.00)))

	var inv models.Invoice
	require.NoError(t, db.First(&inv, "id = ?", invoice.ID).Error)
	assert.Equal(t, models.InvoiceStatusSent, inv.Status)

	allocated, err := repository.NewAllocationRepository(db).SumForInvoice(db, invoice.ID)
	require.NoError(t, err)
	assert.True(t, allocated.Equal(decimal.NewFromFloat(50.00)))
}

func TestAllocateOverTransactionRemainingRejected(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	tx := createCredit(t, db, tenant, 300.00, 250.00, 0)
	invoice := createInvoice(t, db, tenant, 500.00)

	err := svc.Allocate(tenant, tx.ID, invoice.ID, decimal.NewFromFloat(100.00))
	assert.ErrorIs(t, err, apperrors.ErrOverAllocation)

	// Rejected, not clamped: state unchanged.
	var updated models.BankTransaction
	require.NoError(t, db.First(&updated, "id = ?", tx.ID).Error)
	assert.True(t, updated.ReconciledAmount.Equal(decimal.NewFromFloat(250.00)))

	var count int64
	db.Model(&models.Allocation{}).Where("transaction_id = ?", tx.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestAllocateOverInvoiceOutstandingRejected(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	tx := createCredit(t, db, tenant, 500.00, 0, 0)
	invoice := createInvoice(t, db, tenant, 100.00)

	err := svc.Allocate(tenant, tx.ID, invoice.ID, decimal.NewFromFloat(200.00))
	assert.ErrorIs(t, err, apperrors.ErrOverAllocation)
}

func TestAllocateRejectsNonPositiveAmount(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	tx := createCredit(t, db, tenant, 100.00, 0, 0)
	invoice := createInvoice(t, db, tenant, 100.00)

	err := svc.Allocate(tenant, tx.ID, invoice.ID, decimal.Zero)
	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestAllocateRejectsDebit(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	debit := &models.BankTransaction{
		ID:              uuid.New(),
		TenantID:        tenant,
		AccountID:       uuid.New(),
		ExternalID:      uuid.NewString(),
		TransactionDate: time.Now(),
		Type:            models.TypeDebit,
		Amount:          decimal.NewFromFloat(100.00),
	}
	require.NoError(t, db.Create(debit).Error)
	invoice := createInvoice(t, db, tenant, 100.00)

	err := svc.Allocate(tenant, debit.ID, invoice.ID, decimal.NewFromFloat(100.00))
	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestAllocateInvariantHolds(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	tx := createCredit(t, db, tenant, 100.00, 0, 0)

	for i := 0; i < 4; i++ {
		invoice := createInvoice(t, db, tenant, 30.00)
		err := svc.Allocate(tenant, tx.ID, invoice.ID, decimal.NewFromFloat(30.00))
		if i < 3 {
			require.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, apperrors.ErrOverAllocation)
		}

		var current models.BankTransaction
		require.NoError(t, db.First(&current, "id = ?", tx.ID).Error)
		assert.True(t, current.ReconciledAmount.GreaterThanOrEqual(decimal.Zero))
		assert.True(t, current.ReconciledAmount.LessThanOrEqual(current.Amount))
	}
}

func TestAllocateWritesAuditLog(t *testing.T) {
	svc, db := newTestService(t)
	tenant := uuid.New()

	tx := createCredit(t, db, tenant, 100.00, 0, 0)
	invoice := createInvoice(t, db, tenant, 100.00)

	require.NoError(t, svc.Allocate(tenant, tx.ID, invoice.ID, decimal.NewFromFloat(100.00)))

	var logs []models.AllocationLog
	require.NoError(t, db.Where("transaction_id = ?", tx.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "allocate", logs[0].Action)
	assert.Equal(t, invoice.ID, logs[0].InvoiceID)
}
