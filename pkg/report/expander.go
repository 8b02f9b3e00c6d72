package report

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/cin7-report-sync/pkg/record"
)

var (
	// ErrMissingAccounting is returned when a variant needs accounting
	// attributes and the record has none.
	ErrMissingAccounting = errors.New("missing accountingAttributes")

	// ErrMissingCustomField is returned when a variant reads a custom field
	// and the record has no customFields object. A field absent from the
	// object renders as an empty value.
	ErrMissingCustomField = errors.New("missing custom field")
)

// Expander fans a parent record out into one row per line item.
type Expander struct {
	variant Variant
	names   Names
}

// NewExpander creates an expander for v. A nil names map disables
// abbreviation.
func NewExpander(v Variant, names Names) *Expander {
	return &Expander{variant: v, names: names}
}

// Expand produces the rows for rec fetched from account. A record without
// line items yields no rows and no error, whatever sub-objects it lacks. Every row of one record carries
// the same parent fields and the same discount-total share.
func (e *Expander) Expand(rec *record.RawRecord, account string) ([]OutputRow, error) {
	if err := rec.DecodeErr(); err != nil {
		return nil, err
	}

	n := len(rec.LineItems)
	if n == 0 {
		return nil, nil
	}

	var accounting string
	if e.variant.RequireAccounting {
		if rec.AccountingAttributes == nil {
			return nil, ErrMissingAccounting
		}
		accounting = rec.AccountingAttributes.AccountingImportStatus
	}

	var custom string
	if e.variant.CustomField != "" {
		if rec.CustomFields == nil {
			return nil, fmt.Errorf("%w %q", ErrMissingCustomField, e.variant.CustomField)
		}
		custom, _ = rec.CustomField(e.variant.CustomField)
	}

	sourceUser := account
	if e.variant.Abbreviate {
		sourceUser = e.names.Display(account)
	}

	rate := rec.Rate()
	share := record.Share(rec.DiscountTotal, n, rate)

	parent := OutputRow{
		Account:          account,
		SourceUser:       sourceUser,
		DownloadSource:   "Cin7_" + account,
		RecordID:         rec.ID,
		Reference:        rec.Reference,
		InvoiceNumber:    rec.InvoiceNumber.String(),
		CreditNoteNumber: rec.CreditNoteNumber,
		SalesReference:   rec.SalesReference,
		CustomerOrderNo:  rec.CustomerOrderNo,
		AccountingStatus: accounting,
		CustomField:      custom,

		Company:          rec.Company,
		FirstName:        rec.FirstName,
		LastName:         rec.LastName,
		ProjectName:      rec.ProjectName,
		Channel:          rec.Source,
		CurrencyCode:     rec.CurrencyCode,
		DeliveryCountry:  rec.DeliveryCountry,
		BranchID:         rec.BranchID.String(),
		Status:           rec.Status,
		Stage:            rec.Stage,
		InternalComments: rec.InternalComments,

		CreatedDate:           record.FormatDay(rec.CreatedDate),
		InvoiceDate:           record.FormatDay(rec.InvoiceDate),
		CompletedDate:         record.FormatDay(rec.CompletedDate),
		DispatchedDate:        record.FormatDay(rec.DispatchedDate),
		EstimatedDeliveryDate: record.FormatDay(rec.EstimatedDeliveryDate),
		FullyReceivedDate:     record.FormatDay(rec.FullyReceivedDate),

		DiscountShare: share,
	}
	if rec.TaxRate.Valid {
		parent.TaxRate = rec.TaxRate.Decimal.String()
	}

	rows := make([]OutputRow, 0, n)
	for _, item := range rec.LineItems {
		row := parent
		row.LineItemCode = item.Code
		row.LineItemName = item.Name
		row.LineItemOption3 = item.Option3
		row.LineItemCreatedDate = lineItemDate(item.CreatedDate)
		row.Qty = item.Qty
		row.UnitPrice = record.Convert(item.UnitPrice, rate)
		row.Discount = record.Convert(item.Discount, rate)
		rows = append(rows, row)
	}
	return rows, nil
}

// lineItemDate formats a line item date, keeping the raw text when it is
// not a recognised timestamp.
func lineItemDate(raw string) string {
	if day := record.FormatDay(raw); day != "" {
		return day
	}
	return raw
}
