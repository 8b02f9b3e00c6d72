package report

import (
	"time"

	"github.com/Sternrassler/cin7-report-sync/pkg/record"
	"github.com/shopspring/decimal"
)

// Row value keys. Unless a column says otherwise, the key is also the CSV
// header.
const (
	KeySourceUser            = "sourceUser"
	KeyDownloadSource        = "downloadSource"
	KeyAccountingStatus      = "accountingAttributes"
	KeyReference             = "reference"
	KeyInvoiceNumber         = "invoiceNumber"
	KeyCreditNoteNumber      = "creditNoteNumber"
	KeySalesReference        = "salesReference"
	KeyCustomerOrderNo       = "customerOrderNo"
	KeyCreatedDate           = "createdDate"
	KeyLineItemCreatedDate   = "lineItemCreatedDate"
	KeyInvoiceDate           = "invoiceDate"
	KeyCompletedDate         = "completedDate"
	KeyDispatchedDate        = "dispatchedDate"
	KeyEstimatedDeliveryDate = "estimatedDeliveryDate"
	KeyFullyReceivedDate     = "fullyReceivedDate"
	KeyCompany               = "company"
	KeyFirstName             = "firstName"
	KeyLastName              = "lastName"
	KeyProjectName           = "projectName"
	KeyChannel               = "channel"
	KeyTaxRate               = "taxRate"
	KeyCurrencyCode          = "currencyCode"
	KeyDeliveryCountry       = "deliveryCountry"
	KeyBranchID              = "branchId"
	KeyStatus                = "status"
	KeyStage                 = "stage"
	KeyInternalComments      = "internalComments"
	KeyCustomField           = "customField"
	KeyLineItemCode          = "lineItemcode"
	KeyLineItemName          = "lineItemName"
	KeyLineItemQty           = "lineItemQty"
	KeyLineItemOption3       = "lineItemoption3"
	KeyLineItemUnitPrice     = "lineItemUnitPrice"
	KeyLineItemDiscount      = "lineItemDiscount"
	KeyDiscountTotal         = "discountTotal"
)

// OutputRow is one flattened, currency-adjusted line of a report. Dates are
// already formatted as day/month/year.
type OutputRow struct {
	Account        string
	SourceUser     string
	DownloadSource string

	RecordID         int64
	Reference        string
	InvoiceNumber    string
	CreditNoteNumber string
	SalesReference   string
	CustomerOrderNo  string
	AccountingStatus string
	CustomField      string

	Company          string
	FirstName        string
	LastName         string
	ProjectName      string
	Channel          string
	TaxRate          string
	CurrencyCode     string
	DeliveryCountry  string
	BranchID         string
	Status           string
	Stage            string
	InternalComments string

	CreatedDate           string
	InvoiceDate           string
	CompletedDate         string
	DispatchedDate        string
	EstimatedDeliveryDate string
	FullyReceivedDate     string

	LineItemCode        string
	LineItemName        string
	LineItemOption3     string
	LineItemCreatedDate string
	Qty                 decimal.Decimal
	UnitPrice           decimal.Decimal
	Discount            decimal.Decimal
	DiscountShare       decimal.Decimal
}

// Value returns the text for a row value key, or "" for unknown keys.
func (r *OutputRow) Value(key string) string {
	switch key {
	case KeySourceUser:
		return r.SourceUser
	case KeyDownloadSource:
		return r.DownloadSource
	case KeyAccountingStatus:
		return r.AccountingStatus
	case KeyReference:
		return r.Reference
	case KeyInvoiceNumber:
		return r.InvoiceNumber
	case KeyCreditNoteNumber:
		return r.CreditNoteNumber
	case KeySalesReference:
		return r.SalesReference
	case KeyCustomerOrderNo:
		return r.CustomerOrderNo
	case KeyCreatedDate:
		return r.CreatedDate
	case KeyLineItemCreatedDate:
		return r.LineItemCreatedDate
	case KeyInvoiceDate:
		return r.InvoiceDate
	case KeyCompletedDate:
		return r.CompletedDate
	case KeyDispatchedDate:
		return r.DispatchedDate
	case KeyEstimatedDeliveryDate:
		return r.EstimatedDeliveryDate
	case KeyFullyReceivedDate:
		return r.FullyReceivedDate
	case KeyCompany:
		return r.Company
	case KeyFirstName:
		return r.FirstName
	case KeyLastName:
		return r.LastName
	case KeyProjectName:
		return r.ProjectName
	case KeyChannel:
		return r.Channel
	case KeyTaxRate:
		return r.TaxRate
	case KeyCurrencyCode:
		return r.CurrencyCode
	case KeyDeliveryCountry:
		return r.DeliveryCountry
	case KeyBranchID:
		return r.BranchID
	case KeyStatus:
		return r.Status
	case KeyStage:
		return r.Stage
	case KeyInternalComments:
		return r.InternalComments
	case KeyCustomField:
		return r.CustomField
	case KeyLineItemCode:
		return r.LineItemCode
	case KeyLineItemName:
		return r.LineItemName
	case KeyLineItemQty:
		return r.Qty.String()
	case KeyLineItemOption3:
		return r.LineItemOption3
	case KeyLineItemUnitPrice:
		return r.UnitPrice.StringFixed(record.MoneyPlaces)
	case KeyLineItemDiscount:
		return r.Discount.StringFixed(record.MoneyPlaces)
	case KeyDiscountTotal:
		return r.DiscountShare.StringFixed(record.MoneyPlaces)
	default:
		return ""
	}
}

// Values renders the row in column order.
func (r *OutputRow) Values(columns []Column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = r.Value(c.Key)
	}
	return out
}

// ProcessingError records a parent record that could not be expanded.
type ProcessingError struct {
	Account   string
	RecordID  int64
	Reference string
	Err       string
	Timestamp time.Time
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	return e.Account + ": record " + e.Reference + ": " + e.Err
}
