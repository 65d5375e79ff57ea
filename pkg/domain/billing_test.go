package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestInvoiceTotal(t *testing.T) {
	inv := &Invoice{
		Items: []InvoiceItem{
			{Description: "Consultation", Quantity: 1, UnitPrice: 30000},
			{Description: "Paracetamol 500mg", Quantity: 3, UnitPrice: 1500},
		},
	}

	if got := inv.Total(); got != 34500 {
		t.Errorf("Total = %d, want 34500", got)
	}
}

func TestInvoiceTotalEmpty(t *testing.T) {
	inv := &Invoice{}
	if got := inv.Total(); got != 0 {
		t.Errorf("Total = %d, want 0", got)
	}
}

func TestInvoicePayable(t *testing.T) {
	tests := []struct {
		status InvoiceStatus
		want   bool
	}{
		{InvoiceIssued, true},
		{InvoiceDraft, false},
		{InvoicePaid, false},
		{InvoiceVoid, false},
	}
	for _, tt := range tests {
		inv := &Invoice{Status: tt.status}
		if got := inv.Payable(); got != tt.want {
			t.Errorf("Payable(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	s := &Session{ID: uuid.New(), ExpiresAt: now}

	if !s.Expired(now) {
		t.Error("a session expiring exactly now is expired")
	}
	if !s.Expired(now.Add(time.Second)) {
		t.Error("a past expiry is expired")
	}
	if s.Expired(now.Add(-time.Second)) {
		t.Error("a future expiry is not expired")
	}
}

func TestStockItemLowStock(t *testing.T) {
	tests := []struct {
		quantity, reorder int
		want              bool
	}{
		{0, 10, true},
		{10, 10, true},
		{11, 10, false},
	}
	for _, tt := range tests {
		s := &StockItem{QuantityOnHand: tt.quantity, ReorderLevel: tt.reorder}
		if got := s.LowStock(); got != tt.want {
			t.Errorf("LowStock(%d/%d) = %v, want %v", tt.quantity, tt.reorder, got, tt.want)
		}
	}
}

func TestOneTimeCodeUsable(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	consumed := now.Add(-time.Minute)

	tests := []struct {
		name string
		code OneTimeCode
		want bool
	}{
		{"fresh", OneTimeCode{ExpiresAt: now.Add(time.Minute)}, true},
		{"expired", OneTimeCode{ExpiresAt: now.Add(-time.Minute)}, false},
		{"consumed", OneTimeCode{ExpiresAt: now.Add(time.Minute), ConsumedAt: &consumed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.code.Usable(now); got != tt.want {
				t.Errorf("Usable = %v, want %v", got, tt.want)
			}
		})
	}
}
