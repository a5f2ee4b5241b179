package sepa

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/apperrors"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	namespaceDirectDebit    = "urn:iso:std:iso:20022:tech:xsd:pain.008.001.02"
	namespaceCreditTransfer = "urn:iso:std:iso:20022:tech:xsd:pain.001.001.03"
)

// Party identifies the company side of a file: creditor for direct debits,
// debtor for credit transfers. SchemeID (the ICS) is required only for
// direct debit.
type Party struct {
	Name     string
	IBAN     string
	BIC      string
	SchemeID string
}

// Debit is one collection inside a pain.008 batch.
type Debit struct {
	EndToEndID   string
	Amount       decimal.Decimal
	DebtorName   string
	DebtorIBAN   string
	DebtorBIC    string
	MandateID    string
	MandateDate  time.Time
	SequenceType string
	Remittance   string
}

// Transfer is one payment inside a pain.001 batch.
type Transfer struct {
	EndToEndID   string
	Amount       decimal.Decimal
	CreditorName string
	CreditorIBAN string
	CreditorBIC  string
	Remittance   string
}

// XML document shapes, mirroring the pain schemas field for field.

type amountValue struct {
	Ccy   string `xml:"Ccy,attr"`
	Value string `xml:",chardata"`
}

type partyName struct {
	Nm string `xml:"Nm"`
}

type accountIdentification struct {
	IBAN string `xml:"Id>IBAN"`
}

type financialAgent struct {
	BIC string `xml:"FinInstnId>BIC"`
}

type codeField struct {
	Cd string `xml:"Cd"`
}

type remittanceInfo struct {
	Ustrd string `xml:"Ustrd"`
}

type groupHeader struct {
	MsgID    string    `xml:"MsgId"`
	CreDtTm  string    `xml:"CreDtTm"`
	NbOfTxs  int       `xml:"NbOfTxs"`
	CtrlSum  string    `xml:"CtrlSum"`
	InitgPty partyName `xml:"InitgPty"`
}

type creditorSchemeID struct {
	ID       string `xml:"Id>PrvtId>Othr>Id"`
	SchemeNm string `xml:"Id>PrvtId>Othr>SchmeNm>Prtry"`
}

type directDebitTx struct {
	EndToEndID string                `xml:"PmtId>EndToEndId"`
	InstdAmt   amountValue           `xml:"InstdAmt"`
	MndtID     string                `xml:"DrctDbtTx>MndtRltdInf>MndtId"`
	DtOfSgntr  string                `xml:"DrctDbtTx>MndtRltdInf>DtOfSgntr"`
	DbtrAgt    financialAgent        `xml:"DbtrAgt"`
	Dbtr       partyName             `xml:"Dbtr"`
	DbtrAcct   accountIdentification `xml:"DbtrAcct"`
	RmtInf     remittanceInfo        `xml:"RmtInf"`
}

type directDebitPaymentInfo struct {
	PmtInfID     string                `xml:"PmtInfId"`
	PmtMtd       string                `xml:"PmtMtd"`
	NbOfTxs      int                   `xml:"NbOfTxs"`
	CtrlSum      string                `xml:"CtrlSum"`
	SvcLvl       codeField             `xml:"PmtTpInf>SvcLvl"`
	LclInstrm    codeField             `xml:"PmtTpInf>LclInstrm"`
	SeqTp        string                `xml:"PmtTpInf>SeqTp"`
	ReqdColltnDt string                `xml:"ReqdColltnDt"`
	Cdtr         partyName             `xml:"Cdtr"`
	CdtrAcct     accountIdentification `xml:"CdtrAcct"`
	CdtrAgt      financialAgent        `xml:"CdtrAgt"`
	ChrgBr       string                `xml:"ChrgBr"`
	CdtrSchmeID  creditorSchemeID      `xml:"CdtrSchmeId"`
	Txs          []directDebitTx       `xml:"DrctDbtTxInf"`
}

type directDebitDocument struct {
	XMLName xml.Name                 `xml:"Document"`
	Xmlns   string                   `xml:"xmlns,attr"`
	GrpHdr  groupHeader              `xml:"CstmrDrctDbtInitn>GrpHdr"`
	PmtInf  []directDebitPaymentInfo `xml:"CstmrDrctDbtInitn>PmtInf"`
}

type creditTransferTx struct {
	EndToEndID string                `xml:"PmtId>EndToEndId"`
	InstdAmt   amountValue           `xml:"Amt>InstdAmt"`
	CdtrAgt    financialAgent        `xml:"CdtrAgt"`
	Cdtr       partyName             `xml:"Cdtr"`
	CdtrAcct   accountIdentification `xml:"CdtrAcct"`
	RmtInf     remittanceInfo        `xml:"RmtInf"`
}

type creditTransferPaymentInfo struct {
	PmtInfID    string                `xml:"PmtInfId"`
	PmtMtd      string                `xml:"PmtMtd"`
	NbOfTxs     int                   `xml:"NbOfTxs"`
	CtrlSum     string                `xml:"CtrlSum"`
	SvcLvl      codeField             `xml:"PmtTpInf>SvcLvl"`
	ReqdExctnDt string                `xml:"ReqdExctnDt"`
	Dbtr        partyName             `xml:"Dbtr"`
	DbtrAcct    accountIdentification `xml:"DbtrAcct"`
	DbtrAgt     financialAgent        `xml:"DbtrAgt"`
	ChrgBr      string                `xml:"ChrgBr"`
	Txs         []creditTransferTx    `xml:"CdtTrfTxInf"`
}

type creditTransferDocument struct {
	XMLName xml.Name                    `xml:"Document"`
	Xmlns   string                      `xml:"xmlns,attr"`
	GrpHdr  groupHeader                 `xml:"CstmrCdtTrfInitn>GrpHdr"`
	PmtInf  []creditTransferPaymentInfo `xml:"CstmrCdtTrfInitn>PmtInf"`
}

// newMessageID generates an identifier unique across submissions to the same
// bank: UTC timestamp plus a random suffix.
func newMessageID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102150405"), suffix)
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func validateParty(p Party, requireSchemeID bool) error {
	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.IBAN == "" {
		missing = append(missing, "IBAN")
	}
	if p.BIC == "" {
		missing = append(missing, "BIC")
	}
	if requireSchemeID && p.SchemeID == "" {
		missing = append(missing, "creditor scheme identifier")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("incomplete party profile, missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// BuildDirectDebit renders a pain.008.001.02 document. Pure function of its
// input: all validation happens before any XML is assembled, and a violation
// aborts the whole build.
func BuildDirectDebit(debits []Debit, creditor Party, collectionDate time.Time) ([]byte, string, error) {
	if len(debits) == 0 {
		return nil, "", apperrors.NewValidationError("direct debit batch is empty")
	}
	if err := validateParty(creditor, true); err != nil {
		return nil, "", err
	}
	for _, d := range debits {
		if !d.Amount.GreaterThan(decimal.Zero) {
			return nil, "", apperrors.NewValidationError("debit %s has non-positive amount %s", d.EndToEndID, formatAmount(d.Amount))
		}
		if d.DebtorIBAN == "" || d.DebtorBIC == "" || d.MandateID == "" || d.MandateDate.IsZero() {
			return nil, "", apperrors.NewValidationError("debit %s has incomplete mandate data", d.EndToEndID)
		}
	}

	msgID := newMessageID()

	// One PmtInf per sequence type: FRST and RCUR collections cannot share a
	// payment block.
	var order []string
	grouped := make(map[string][]Debit)
	for _, d := range debits {
		seq := d.SequenceType
		if seq != models.SequenceTypeFirst {
			seq = models.SequenceTypeRecurrent
		}
		if _, ok := grouped[seq]; !ok {
			order = append(order, seq)
		}
		grouped[seq] = append(grouped[seq], d)
	}

	total := decimal.Zero
	var blocks []directDebitPaymentInfo
	for i, seq := range order {
		batch := grouped[seq]
		sum := decimal.Zero
		txs := make([]directDebitTx, 0, len(batch))
		for _, d := range batch {
			sum = sum.Add(d.Amount)
			txs = append(txs, directDebitTx{
				EndToEndID: d.EndToEndID,
				InstdAmt:   amountValue{Ccy: "EUR", Value: formatAmount(d.Amount)},
				MndtID:     d.MandateID,
				DtOfSgntr:  d.MandateDate.Format("2006-01-02"),
				DbtrAgt:    financialAgent{BIC: d.DebtorBIC},
				Dbtr:       partyName{Nm: d.DebtorName},
				DbtrAcct:   accountIdentification{IBAN: d.DebtorIBAN},
				RmtInf:     remittanceInfo{Ustrd: d.Remittance},
			})
		}
		total = total.Add(sum)

		blocks = append(blocks, directDebitPaymentInfo{
			PmtInfID:     fmt.Sprintf("%s-P%d", msgID, i+1),
			PmtMtd:       "DD",
			NbOfTxs:      len(batch),
			CtrlSum:      formatAmount(sum),
			SvcLvl:       codeField{Cd: "SEPA"},
			LclInstrm:    codeField{Cd: "CORE"},
			SeqTp:        seq,
			ReqdColltnDt: collectionDate.Format("2006-01-02"),
			Cdtr:         partyName{Nm: creditor.Name},
			CdtrAcct:     accountIdentification{IBAN: creditor.IBAN},
			CdtrAgt:      financialAgent{BIC: creditor.BIC},
			ChrgBr:       "SLEV",
			CdtrSchmeID:  creditorSchemeID{ID: creditor.SchemeID, SchemeNm: "SEPA"},
			Txs:          txs,
		})
	}

	doc := directDebitDocument{
		Xmlns: namespaceDirectDebit,
		GrpHdr: groupHeader{
			MsgID:    msgID,
			CreDtTm:  time.Now().UTC().Format("2006-01-02T15:04:05"),
			NbOfTxs:  len(debits),
			CtrlSum:  formatAmount(total),
			InitgPty: partyName{Nm: creditor.Name},
		},
		PmtInf: blocks,
	}

	out, err := marshalDocument(doc)
	return out, msgID, err
}

// BuildCreditTransfer renders a pain.001.001.03 document for refund-style
// transfers. Creditor names are accent-stripped and capped before insertion.
func BuildCreditTransfer(transfers []Transfer, debtor Party, executionDate time.Time) ([]byte, string, error) {
	if len(transfers) == 0 {
		return nil, "", apperrors.NewValidationError("credit transfer batch is empty")
	}
	if err := validateParty(debtor, false); err != nil {
		return nil, "", err
	}
	for _, t := range transfers {
		if !t.Amount.GreaterThan(decimal.Zero) {
			return nil, "", apperrors.NewValidationError("transfer %s has non-positive amount %s", t.EndToEndID, formatAmount(t.Amount))
		}
		if t.CreditorIBAN == "" || t.CreditorBIC == "" {
			return nil, "", apperrors.NewValidationError("transfer %s has incomplete creditor bank details", t.EndToEndID)
		}
	}

	msgID := newMessageID()

	sum := decimal.Zero
	txs := make([]creditTransferTx, 0, len(transfers))
	for _, t := range transfers {
		sum = sum.Add(t.Amount)
		txs = append(txs, creditTransferTx{
			EndToEndID: t.EndToEndID,
			InstdAmt:   amountValue{Ccy: "EUR", Value: formatAmount(t.Amount)},
			CdtrAgt:    financialAgent{BIC: t.CreditorBIC},
			Cdtr:       partyName{Nm: sanitizeName(t.CreditorName)},
			CdtrAcct:   accountIdentification{IBAN: t.CreditorIBAN},
			RmtInf:     remittanceInfo{Ustrd: t.Remittance},
		})
	}

	doc := creditTransferDocument{
		Xmlns: namespaceCreditTransfer,
		GrpHdr: groupHeader{
			MsgID:    msgID,
			CreDtTm:  time.Now().UTC().Format("2006-01-02T15:04:05"),
			NbOfTxs:  len(transfers),
			CtrlSum:  formatAmount(sum),
			InitgPty: partyName{Nm: sanitizeName(debtor.Name)},
		},
		PmtInf: []creditTransferPaymentInfo{{
			PmtInfID:    fmt.Sprintf("%s-P1", msgID),
			PmtMtd:      "TRF",
			NbOfTxs:     len(transfers),
			CtrlSum:     formatAmount(sum),
			SvcLvl:      codeField{Cd: "SEPA"},
			ReqdExctnDt: executionDate.Format("2006-01-02"),
			Dbtr:        partyName{Nm: sanitizeName(debtor.Name)},
			DbtrAcct:    accountIdentification{IBAN: debtor.IBAN},
			DbtrAgt:     financialAgent{BIC: debtor.BIC},
			ChrgBr:      "SLEV",
			Txs:         txs,
		}},
	}

	out, err := marshalDocument(doc)
	return out, msgID, err
}

func marshalDocument(doc interface{}) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
