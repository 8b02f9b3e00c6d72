package record

import (
	"testing"

	"github.com/shopspring/decimal"
)

const samplePage = `[
  {
    "id": 101,
    "reference": "SO-101",
    "invoiceNumber": 5501,
    "company": "Shop One",
    "currencyCode": "EUR",
    "currencyRate": 1.17,
    "branchId": 726,
    "discountTotal": 10,
    "invoiceDate": "2025-02-03T10:00:00Z",
    "accountingAttributes": {"accountingImportStatus": "Imported"},
    "customFields": {"orders_1001": "Retail"},
    "lineItems": [
      {"code": "NBNA-1", "name": "Bag", "qty": 2, "unitPrice": 19.99, "discount": 0},
      {"code": "NBNA-2", "name": "Belt", "qty": 1, "unitPrice": "5.5", "discount": 1}
    ]
  },
  {"id": 102, "reference": "SO-102", "lineItems": "not-a-list"},
  {"id": 103, "reference": "SO-103", "branchId": "B7", "invoiceNumber": null, "currencyRate": null}
]`

func TestDecodePage(t *testing.T) {
	records, err := DecodePage([]byte(samplePage))
	if err != nil {
		t.Fatalf("DecodePage() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("decoded %d records, want 3", len(records))
	}

	first := records[0]
	if first.DecodeErr() != nil {
		t.Fatalf("first record decode error: %v", first.DecodeErr())
	}
	if first.InvoiceNumber != "5501" || first.BranchID != "726" {
		t.Errorf("numeric text fields = %q/%q, want 5501/726", first.InvoiceNumber, first.BranchID)
	}
	if !first.Rate().Equal(decimal.RequireFromString("1.17")) {
		t.Errorf("Rate() = %s, want 1.17", first.Rate())
	}
	if len(first.LineItems) != 2 || !first.LineItems[1].UnitPrice.Equal(decimal.RequireFromString("5.5")) {
		t.Errorf("line items decoded wrong: %+v", first.LineItems)
	}
	if first.AccountingAttributes == nil || first.AccountingAttributes.AccountingImportStatus != "Imported" {
		t.Errorf("accounting attributes = %+v", first.AccountingAttributes)
	}
	if v, ok := first.CustomField("orders_1001"); !ok || v != "Retail" {
		t.Errorf("CustomField() = %q, %v", v, ok)
	}

	broken := records[1]
	if broken.DecodeErr() == nil {
		t.Error("malformed record should carry a decode error")
	}
	if broken.ID != 102 || broken.Reference != "SO-102" {
		t.Errorf("malformed record identity = %s, want id=102 ref=SO-102", broken.Identity())
	}

	third := records[2]
	if third.DecodeErr() != nil {
		t.Fatalf("third record decode error: %v", third.DecodeErr())
	}
	if third.BranchID != "B7" || third.InvoiceNumber != "" {
		t.Errorf("text fields = %q/%q, want B7 and empty", third.BranchID, third.InvoiceNumber)
	}
	if !third.Rate().Equal(decimal.NewFromInt(1)) {
		t.Errorf("missing rate should default to 1, got %s", third.Rate())
	}
}

func TestDecodePage_Empty(t *testing.T) {
	for _, body := range []string{"[]", "null"} {
		records, err := DecodePage([]byte(body))
		if err != nil {
			t.Errorf("DecodePage(%s) error = %v", body, err)
		}
		if len(records) != 0 {
			t.Errorf("DecodePage(%s) returned %d records", body, len(records))
		}
	}
}

func TestDecodePage_NotAnArray(t *testing.T) {
	if _, err := DecodePage([]byte(`{"message":"unauthorised"}`)); err == nil {
		t.Error("expected error for non-array page")
	}
}

func TestRawRecord_Date(t *testing.T) {
	r := RawRecord{
		InvoiceDate:       "inv",
		CreatedDate:       "created",
		CompletedDate:     "completed",
		FullyReceivedDate: "received",
	}

	tests := map[string]string{
		FieldInvoiceDate:       "inv",
		FieldCreatedDate:       "created",
		FieldCompletedDate:     "completed",
		FieldFullyReceivedDate: "received",
		FieldDispatchedDate:    "",
		"unknown":              "",
	}
	for field, want := range tests {
		if got := r.Date(field); got != want {
			t.Errorf("Date(%q) = %q, want %q", field, got, want)
		}
	}
}

func TestRawRecord_CustomField(t *testing.T) {
	r := RawRecord{CustomFields: map[string]any{"a": nil, "b": 12.0}}

	if _, ok := r.CustomField("missing"); ok {
		t.Error("missing field reported present")
	}
	if v, ok := r.CustomField("a"); !ok || v != "" {
		t.Errorf("null field = %q, %v", v, ok)
	}
	if v, _ := r.CustomField("b"); v != "12" {
		t.Errorf("numeric field = %q, want 12", v)
	}
}
