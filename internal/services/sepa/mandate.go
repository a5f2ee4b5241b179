package sepa

import (
	"strings"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"
)

// MandateRejection names one invoice whose client cannot be direct-debited
// and every missing field.
type MandateRejection struct {
	Invoice models.Invoice
	Reasons []string
}

func (r MandateRejection) Reason() string {
	return strings.Join(r.Reasons, ", ")
}

// ValidateMandates checks SEPA mandate completeness for a set of invoices.
// An invoice is batchable only if its client has IBAN, BIC, a mandate
// reference and a mandate signature date. The caller must refuse to build a
// file when any invoice is rejected; dropping entries silently is not an
// option.
func ValidateMandates(invoices []models.Invoice) (valid []models.Invoice, rejected []MandateRejection) {
	for _, inv := range invoices {
		var reasons []string
		if inv.IBAN == "" {
			reasons = append(reasons, "missing IBAN")
		}
		if inv.BIC == "" {
			reasons = append(reasons, "missing BIC")
		}
		if inv.SepaMandate == "" {
			reasons = append(reasons, "missing mandate reference")
		}
		if inv.SepaMandateDate == nil {
			reasons = append(reasons, "missing mandate signature date")
		}

		if len(reasons) > 0 {
			rejected = append(rejected, MandateRejection{Invoice: inv, Reasons: reasons})
			continue
		}
		valid = append(valid, inv)
	}
	return valid, rejected
}

// ValidateBankDetails checks the subset needed for a credit transfer, where
// no mandate is involved.
func ValidateBankDetails(invoices []models.Invoice) (valid []models.Invoice, rejected []MandateRejection) {
	for _, inv := range invoices {
		var reasons []string
		if inv.IBAN == "" {
			reasons = append(reasons, "missing IBAN")
		}
		if inv.BIC == "" {
			reasons = append(reasons, "missing BIC")
		}

		if len(reasons) > 0 {
			rejected = append(rejected, MandateRejection{Invoice: inv, Reasons: reasons})
			continue
		}
		valid = append(valid, inv)
	}
	return valid, rejected
}
