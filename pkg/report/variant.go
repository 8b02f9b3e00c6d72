package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Sternrassler/cin7-report-sync/pkg/record"
)

// Column is one CSV column: the header written to the file and the row
// value it reads.
type Column struct {
	Header string
	Key    string
}

func cols(keys ...string) []Column {
	out := make([]Column, len(keys))
	for i, k := range keys {
		out[i] = Column{Header: k, Key: k}
	}
	return out
}

// as is a single column whose header differs from its key.
func as(header, key string) []Column {
	return []Column{{Header: header, Key: key}}
}

func concat(parts ...[]Column) []Column {
	var out []Column
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Variant is a declarative report definition.
type Variant struct {
	Name        string
	Description string

	// Resource is the API collection to page, e.g. "SalesOrders".
	Resource string
	// Fields is the API field selection.
	Fields []string
	// DateField is the record date that must fall inside the range.
	DateField string

	// ExcludeVoid drops records flagged isVoid.
	ExcludeVoid bool
	// Stage, when set, keeps only records whose stage matches it
	// case-insensitively.
	Stage string
	// RequireAccounting fails expansion for records without accounting
	// attributes.
	RequireAccounting bool
	// CustomField, when set, names a custom field every record must carry.
	CustomField string
	// Abbreviate renders sourceUser through the display-name mapping.
	Abbreviate bool

	Columns    []Column
	FilePrefix string
}

// Headers returns the CSV header line.
func (v Variant) Headers() []string {
	out := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		out[i] = c.Header
	}
	return out
}

// ErrorsFile is the file name processing errors are written to.
func (v Variant) ErrorsFile() string {
	return "errors_" + strings.ReplaceAll(v.Name, "-", "_") + ".csv"
}

var salesFields = []string{
	"id", "reference", "customerOrderNo", "salesReference", "invoiceDate", "createdDate",
	"estimatedDeliveryDate", "dispatchedDate", "company", "firstName", "lastName",
	"projectName", "source", "currencyCode", "currencyRate", "deliveryCountry", "branchId",
	"lineItems", "discountTotal", "completedDate", "invoiceNumber", "taxRate", "accountingAttributes",
}

var purchaseFields = []string{
	"id", "reference", "company", "branchId", "internalComments", "currencyCode",
	"currencyRate", "lineItems", "status", "stage", "projectName", "estimatedDeliveryDate",
	"fullyReceivedDate", "createdDate", "invoiceNumber", "isVoid",
}

var purchaseColumns = cols(
	KeyDownloadSource, KeySourceUser, KeyReference, KeyCompany, KeyBranchID, KeyCurrencyCode,
	KeyLineItemCode, KeyLineItemName, KeyStatus, KeyStage, KeyProjectName, KeyInternalComments,
	KeyLineItemQty, KeyLineItemOption3, KeyLineItemUnitPrice, KeyLineItemDiscount,
	KeyCreatedDate, KeyEstimatedDeliveryDate, KeyFullyReceivedDate,
)

var catalog = map[string]Variant{
	"sales-orders": {
		Name:              "sales-orders",
		Description:       "Invoiced sales orders, one row per line item",
		Resource:          "SalesOrders",
		Fields:            salesFields,
		DateField:         record.FieldInvoiceDate,
		RequireAccounting: true,
		Abbreviate:        true,
		Columns: concat(
			cols(KeySourceUser, KeyAccountingStatus, KeyReference, KeyInvoiceNumber, KeyCustomerOrderNo),
			as(KeyCreatedDate, KeyLineItemCreatedDate),
			cols(KeyEstimatedDeliveryDate, KeyDispatchedDate, KeyCompany, KeyFirstName, KeyLastName,
				KeyProjectName, KeyChannel, KeyTaxRate, KeyCurrencyCode, KeyDeliveryCountry, KeyBranchID,
				KeyLineItemCode, KeyLineItemName, KeyLineItemQty, KeyLineItemOption3, KeyLineItemUnitPrice,
				KeyLineItemDiscount, KeyDiscountTotal, KeyInvoiceDate),
		),
		FilePrefix: "Sales_Orders",
	},
	"sales-custom": {
		Name:        "sales-custom",
		Description: "Invoiced sales orders with the orders_1001 custom field",
		Resource:    "SalesOrders",
		Fields: []string{
			"id", "reference", "customerOrderNo", "salesReference", "invoiceDate", "createdDate",
			"company", "firstName", "lastName", "branchId", "projectName", "source", "currencyCode",
			"currencyRate", "lineItems", "discountTotal", "completedDate", "invoiceNumber", "customFields",
		},
		DateField:   record.FieldInvoiceDate,
		CustomField: "orders_1001",
		Abbreviate:  true,
		Columns: concat(
			cols(KeySourceUser, KeyReference, KeyCompany, KeyFirstName, KeyLastName,
				KeyCreatedDate, KeyBranchID, KeyCurrencyCode, KeyLineItemCode, KeyLineItemQty,
				KeyLineItemUnitPrice, KeyLineItemOption3),
			as("customFieldsorders_1001", KeyCustomField),
			cols(KeyLineItemDiscount, KeyDiscountTotal, KeyInvoiceDate),
		),
		FilePrefix: "Sales_Orders_Custom",
	},
	"credit-notes": {
		Name:        "credit-notes",
		Description: "Completed credit notes, one row per line item",
		Resource:    "CreditNotes",
		Fields: []string{
			"id", "reference", "creditNoteNumber", "salesReference", "company", "firstName",
			"lastName", "projectName", "source", "currencyCode", "currencyRate", "lineItems",
			"discountTotal", "completedDate", "invoiceNumber", "accountingAttributes",
		},
		DateField:         record.FieldCompletedDate,
		RequireAccounting: true,
		Abbreviate:        true,
		Columns: concat(
			cols(KeySourceUser, KeyAccountingStatus, KeyReference, KeyCreditNoteNumber, KeySalesReference),
			as(KeyCreatedDate, KeyLineItemCreatedDate),
			cols(KeyCompany, KeyFirstName, KeyLastName, KeyProjectName, KeyChannel, KeyCurrencyCode,
				KeyLineItemCode, KeyLineItemName, KeyLineItemQty, KeyLineItemOption3, KeyLineItemUnitPrice,
				KeyLineItemDiscount, KeyDiscountTotal, KeyCompletedDate),
		),
		FilePrefix: "Credit_Notes",
	},
	"purchase-orders": {
		Name:        "purchase-orders",
		Description: "Non-void purchase orders created in range",
		Resource:    "PurchaseOrders",
		Fields:      purchaseFields,
		DateField:   record.FieldCreatedDate,
		ExcludeVoid: true,
		Columns:     purchaseColumns,
		FilePrefix:  "Purchase_Orders",
	},
	"received-purchase-orders": {
		Name:        "received-purchase-orders",
		Description: "Purchase orders fully received in range",
		Resource:    "PurchaseOrders",
		Fields:      purchaseFields,
		DateField:   record.FieldFullyReceivedDate,
		Columns:     purchaseColumns,
		FilePrefix:  "Purchase_Orders_Received",
	},
	"void-purchase-orders": {
		Name:        "void-purchase-orders",
		Description: "Purchase orders at the Void stage created in range",
		Resource:    "PurchaseOrders",
		Fields: []string{
			"id", "reference", "stage", "company", "currencyCode", "lineItems", "status",
			"estimatedDeliveryDate", "fullyReceivedDate", "createdDate", "invoiceNumber", "isVoid",
		},
		DateField:   record.FieldCreatedDate,
		ExcludeVoid: true,
		Stage:       "void",
		Abbreviate:  true,
		Columns: cols(KeySourceUser, KeyReference, KeyCompany, KeyCurrencyCode, KeyLineItemCode,
			KeyLineItemName, KeyStatus, KeyStage, KeyLineItemQty, KeyCreatedDate,
			KeyEstimatedDeliveryDate, KeyFullyReceivedDate),
		FilePrefix: "Purchase_Orders_LY",
	},
}

// Lookup returns the named variant.
func Lookup(name string) (Variant, error) {
	v, ok := catalog[name]
	if !ok {
		return Variant{}, fmt.Errorf("unknown report variant %q", name)
	}
	return v, nil
}

// Variants returns every known variant ordered by name.
func Variants() []Variant {
	out := make([]Variant, 0, len(catalog))
	for _, v := range catalog {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
