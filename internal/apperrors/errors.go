package apperrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrOverAllocation is returned when an allocation would exceed either the
// transaction's remaining amount or the invoice's outstanding amount. The
// request is rejected, never clamped.
var ErrOverAllocation = errors.New("allocation exceeds remaining amount")

// ErrAllocationConflict is returned when concurrent allocations against the
// same transaction kept invalidating each other; the caller should re-fetch
// the remaining amounts and retry.
var ErrAllocationConflict = errors.New("concurrent allocation conflict")

// InvoiceRejection names one invoice that cannot be part of a batch and why.
type InvoiceRejection struct {
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Reason        string    `json:"reason"`
}

// ValidationError carries the full list of offending invoices so the caller
// can surface every problem at once instead of fixing them one by one.
type ValidationError struct {
	Message  string             `json:"message"`
	Invoices []InvoiceRejection `json:"invoices,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Invoices) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (%d invoice(s) rejected)", e.Message, len(e.Invoices))
}

// NewValidationError builds a ValidationError with no per-invoice detail.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// SyncError wraps a provider failure during account synchronization. Scheduled
// syncs record it on the account; manual syncs propagate it to the caller.
type SyncError struct {
	AccountID uuid.UUID
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed for account %s: %v", e.AccountID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IntegrityError signals a balance/transaction divergence that should never
// happen. The operation aborts; balances are never silently recomputed.
type IntegrityError struct {
	Op     string
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation in %s: %s", e.Op, e.Detail)
}
