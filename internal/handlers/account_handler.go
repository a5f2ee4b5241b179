package handler

import (
	"net/http"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/repository"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/services/bank"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountHandler struct {
	accountRepo *repository.AccountRepository
	txRepo      *repository.BankTransactionRepository
	bankService *bank.Service
}

func NewAccountHandler(
	accountRepo *repository.AccountRepository,
	txRepo *repository.BankTransactionRepository,
	bankService *bank.Service,
) *AccountHandler {
	return &AccountHandler{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		bankService: bankService,
	}
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var payload struct {
		BankName    string `json:"bank_name"`
		DisplayName string `json:"display_name"`
		IBAN        string `json:"iban"`
		BIC         string `json:"bic"`
		AccountType string `json:"account_type"`
		Currency    string `json:"currency"`
		IsPrimary   bool   `json:"is_primary"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.DisplayName == "" || payload.IBAN == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "display name and IBAN are required"})
		return
	}

	currency := payload.Currency
	if currency == "" {
		currency = "EUR"
	}

	account := &models.Account{
		ID:               uuid.New(),
		TenantID:         tenantID(c),
		BankName:         payload.BankName,
		DisplayName:      payload.DisplayName,
		IBAN:             payload.IBAN,
		BIC:              payload.BIC,
		AccountType:      payload.AccountType,
		Currency:         currency,
		CurrentBalance:   decimal.Zero,
		AvailableBalance: decimal.Zero,
		Status:           models.AccountStatusActive,
		IsPrimary:        payload.IsPrimary,
	}
	if err := h.accountRepo.Create(account); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "account created", "account": account})
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.accountRepo.List(tenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// SyncAccount ingests a normalized provider payload for one account.
func (h *AccountHandler) SyncAccount(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account ID"})
		return
	}

	var payload struct {
		Transactions []bank.ProviderTransaction `json:"transactions"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	result, err := h.bankService.Ingest(c.Request.Context(), tenantID(c), accountID, payload.Transactions)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"created": result.Created,
		"updated": result.Updated,
		"balance": result.Balance,
	})
}

func (h *AccountHandler) ListTransactions(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account ID"})
		return
	}

	cursor := c.Query("cursor")
	limit := 50

	txs, nextCursor, hasMore, err := h.txRepo.ListByAccount(tenantID(c), accountID, cursor, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       txs,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	})
}

func (h *AccountHandler) DeleteTransaction(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	if err := h.bankService.DeleteTransaction(tenantID(c), txID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction deleted"})
}

func (h *AccountHandler) CategorizeTransaction(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		Category    *string `json:"category"`
		SubCategory *string `json:"sub_category"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.bankService.Categorize(tenantID(c), txID, payload.Category, payload.SubCategory); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction categorized"})
}
