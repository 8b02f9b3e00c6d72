// Package record models the parent documents returned by the Cin7 v1 list
// endpoints (sales orders, credit notes, purchase orders) and the helpers
// used to normalise their timestamps and monetary values.
package record

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is one product entry nested in a parent record.
type LineItem struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Qty         decimal.Decimal `json:"qty"`
	Option3     string          `json:"option3"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"discount"`
	CreatedDate string          `json:"createdDate"`
}

// AccountingAttributes is the optional accounting sub-object.
type AccountingAttributes struct {
	AccountingImportStatus string `json:"accountingImportStatus"`
}

// RawRecord is one decoded parent document from an API page.
type RawRecord struct {
	ID               int64               `json:"id"`
	Reference        string              `json:"reference"`
	InvoiceNumber    Text                `json:"invoiceNumber"`
	CreditNoteNumber string              `json:"creditNoteNumber"`
	CustomerOrderNo  string              `json:"customerOrderNo"`
	SalesReference   string              `json:"salesReference"`
	Company          string              `json:"company"`
	FirstName        string              `json:"firstName"`
	LastName         string              `json:"lastName"`
	ProjectName      string              `json:"projectName"`
	Source           string              `json:"source"`
	CurrencyCode     string              `json:"currencyCode"`
	CurrencyRate     decimal.NullDecimal `json:"currencyRate"`
	DeliveryCountry  string              `json:"deliveryCountry"`
	BranchID         Text                `json:"branchId"`
	TaxRate          decimal.NullDecimal `json:"taxRate"`
	DiscountTotal    decimal.Decimal     `json:"discountTotal"`
	Status           string              `json:"status"`
	Stage            string              `json:"stage"`
	IsVoid           bool                `json:"isVoid"`
	InternalComments string              `json:"internalComments"`

	InvoiceDate           string `json:"invoiceDate"`
	CreatedDate           string `json:"createdDate"`
	CompletedDate         string `json:"completedDate"`
	DispatchedDate        string `json:"dispatchedDate"`
	EstimatedDeliveryDate string `json:"estimatedDeliveryDate"`
	FullyReceivedDate     string `json:"fullyReceivedDate"`

	LineItems            []LineItem            `json:"lineItems"`
	AccountingAttributes *AccountingAttributes `json:"accountingAttributes"`
	CustomFields         map[string]any        `json:"customFields"`

	decodeErr error
}

// Date field names accepted by RawRecord.Date.
const (
	FieldInvoiceDate           = "invoiceDate"
	FieldCreatedDate           = "createdDate"
	FieldCompletedDate         = "completedDate"
	FieldDispatchedDate        = "dispatchedDate"
	FieldEstimatedDeliveryDate = "estimatedDeliveryDate"
	FieldFullyReceivedDate     = "fullyReceivedDate"
)

// Date returns the raw timestamp string of a named date field.
func (r *RawRecord) Date(field string) string {
	switch field {
	case FieldInvoiceDate:
		return r.InvoiceDate
	case FieldCreatedDate:
		return r.CreatedDate
	case FieldCompletedDate:
		return r.CompletedDate
	case FieldDispatchedDate:
		return r.DispatchedDate
	case FieldEstimatedDeliveryDate:
		return r.EstimatedDeliveryDate
	case FieldFullyReceivedDate:
		return r.FullyReceivedDate
	default:
		return ""
	}
}

// Rate returns the currency rate, defaulting to 1 when absent.
func (r *RawRecord) Rate() decimal.Decimal {
	if !r.CurrencyRate.Valid {
		return decimal.NewFromInt(1)
	}
	return r.CurrencyRate.Decimal
}

// CustomField returns a custom field rendered as text and whether it exists.
func (r *RawRecord) CustomField(name string) (string, bool) {
	v, ok := r.CustomFields[name]
	if !ok {
		return "", false
	}
	if v == nil {
		return "", true
	}
	return fmt.Sprint(v), true
}

// DecodeErr returns the error hit while decoding this record, if any.
// A record with a decode error only carries best-effort ID and Reference.
func (r *RawRecord) DecodeErr() error {
	return r.decodeErr
}

// DecodePage decodes a JSON array page into records. A malformed page is an
// error; a malformed element yields a record whose DecodeErr is set so the
// rest of the page can still be processed.
func DecodePage(data []byte) ([]RawRecord, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}

	records := make([]RawRecord, 0, len(elems))
	for _, elem := range elems {
		records = append(records, decodeRecord(elem))
	}
	return records, nil
}

func decodeRecord(elem json.RawMessage) RawRecord {
	var rec RawRecord
	err := json.Unmarshal(elem, &rec)
	if err == nil {
		return rec
	}

	var ident struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
	}
	_ = json.Unmarshal(elem, &ident)
	return RawRecord{
		ID:        ident.ID,
		Reference: ident.Reference,
		decodeErr: fmt.Errorf("decode record: %w", err),
	}
}

// Text is a scalar that the API sends either as a JSON string or a number.
type Text string

// UnmarshalJSON accepts strings, numbers and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("text field: %w", err)
	}
	*t = Text(n.String())
	return nil
}

// String returns the text value.
func (t Text) String() string {
	return string(t)
}

// Identity renders the record for diagnostics.
func (r *RawRecord) Identity() string {
	var b strings.Builder
	fmt.Fprintf(&b, "id=%d", r.ID)
	if r.Reference != "" {
		fmt.Fprintf(&b, " ref=%s", r.Reference)
	}
	return b.String()
}
