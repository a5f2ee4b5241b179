package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/config"
	handler "github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/handlers"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/repository"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/services/bank"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/services/reconciliation"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/services/sepa"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, creditor config.CreditorProfile, log zerolog.Logger) {
	accountRepo := repository.NewAccountRepository(db)
	txRepo := repository.NewBankTransactionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)

	bankService := bank.NewService(accountRepo, txRepo, allocationRepo, log)
	reconService := reconciliation.NewService(invoiceRepo, txRepo, allocationRepo, log)
	sepaService := sepa.NewService(invoiceRepo, sepa.Party{
		Name:     creditor.Name,
		IBAN:     creditor.IBAN,
		BIC:      creditor.BIC,
		SchemeID: creditor.ICS,
	}, log)

	accountHandler := handler.NewAccountHandler(accountRepo, txRepo, bankService)
	reconHandler := handler.NewReconciliationHandler(reconService, invoiceRepo)
	sepaHandler := handler.NewSepaHandler(sepaService)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	scoped := api.Group("", handler.TenantRequired())

	accounts := scoped.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.ListAccounts)
	accounts.POST("/:id/sync", accountHandler.SyncAccount)
	accounts.GET("/:id/transactions", accountHandler.ListTransactions)

	tx := scoped.Group("/transactions")
	tx.DELETE("/:id", accountHandler.DeleteTransaction)
	tx.PUT("/:id/category", accountHandler.CategorizeTransaction)

	invoices := scoped.Group("/invoices")
	invoices.POST("", reconHandler.CreateInvoice)
	invoices.GET("/:id/suggestions", reconHandler.Suggest)
	invoices.GET("/:id/allocations", reconHandler.InvoiceAllocations)

	recon := scoped.Group("/reconciliation")
	recon.POST("/allocate", reconHandler.Allocate)

	files := scoped.Group("/sepa")
	files.POST("/direct-debit", sepaHandler.DirectDebit)
	files.POST("/credit-transfer", sepaHandler.CreditTransfer)
}
