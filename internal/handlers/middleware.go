package handler

import (
	"errors"
	"net/http"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const tenantKey = "tenantID"

// TenantRequired extracts the tenant scope from the X-Tenant-ID header.
// Every core operation is tenant-scoped; there is no default tenant.
func TenantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader("X-Tenant-ID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing or invalid X-Tenant-ID header"})
			return
		}
		c.Set(tenantKey, id)
		c.Next()
	}
}

func tenantID(c *gin.Context) uuid.UUID {
	return c.MustGet(tenantKey).(uuid.UUID)
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var validationErr *apperrors.ValidationError
	var syncErr *apperrors.SyncError
	var integrityErr *apperrors.IntegrityError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    validationErr.Message,
			"invoices": validationErr.Invoices,
		})
	case errors.Is(err, apperrors.ErrOverAllocation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrAllocationConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &syncErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": syncErr.Error()})
	case errors.As(err, &integrityErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": integrityErr.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
