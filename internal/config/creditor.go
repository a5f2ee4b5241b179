package config

import "os"

// CreditorProfile holds the company-side SEPA identity used when generating
// bank files. Kept as an explicit structure so completeness can be checked
// field by field before any file build.
type CreditorProfile struct {
	Name string
	IBAN string
	BIC  string
	// ICS is the SEPA creditor scheme identifier, required for direct debit
	// only.
	ICS string
}

// LoadCreditorProfile reads the profile from the environment. Completeness is
// validated at file-generation time, where the missing fields can be reported
// to the caller.
func LoadCreditorProfile() CreditorProfile {
	return CreditorProfile{
		Name: os.Getenv("SEPA_CREDITOR_NAME"),
		IBAN: os.Getenv("SEPA_CREDITOR_IBAN"),
		BIC:  os.Getenv("SEPA_CREDITOR_BIC"),
		ICS:  os.Getenv("SEPA_CREDITOR_ICS"),
	}
}
