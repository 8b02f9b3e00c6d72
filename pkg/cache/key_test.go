package cache

import (
	"strings"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name       string
		key        CacheKey
		wantPrefix string
	}{
		{
			name:       "resource and account",
			key:        CacheKey{Account: "ARL", Resource: "SalesOrders", Page: 3, Rows: 250},
			wantPrefix: "cin7:page:SalesOrders:ARL:page=3:rows=250",
		},
		{
			name:       "resource slashes trimmed",
			key:        CacheKey{Account: "ARL", Resource: "/CreditNotes/", Page: 1, Rows: 50},
			wantPrefix: "cin7:page:CreditNotes:ARL:page=1:rows=50",
		},
		{
			name:       "no account",
			key:        CacheKey{Resource: "PurchaseOrders", Page: 2, Rows: 250},
			wantPrefix: "cin7:page:PurchaseOrders:page=2:rows=250",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.wantPrefix {
				t.Errorf("String() = %q, want %q", got, tt.wantPrefix)
			}
		})
	}
}

func TestCacheKey_FieldsDigest(t *testing.T) {
	a := CacheKey{Account: "ARL", Resource: "SalesOrders", Fields: "id,reference", Page: 1, Rows: 250}
	b := a
	b.Fields = "id,reference,lineItems"

	if !strings.Contains(a.String(), ":fields=") {
		t.Fatalf("key %q lacks fields digest", a.String())
	}
	if a.String() == b.String() {
		t.Error("different field lists must produce different keys")
	}
	if again := a; again.String() != a.String() {
		t.Error("key generation must be deterministic")
	}
	if len(a.String()) > 80 {
		t.Errorf("key unexpectedly long: %q", a.String())
	}
}
