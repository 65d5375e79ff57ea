package domain

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft  InvoiceStatus = "draft"
	InvoiceIssued InvoiceStatus = "issued"
	InvoicePaid   InvoiceStatus = "paid"
	InvoiceVoid   InvoiceStatus = "void"
)

// Invoice is a bill for consultations and dispensed items. Amounts
// are in the smallest currency unit.
type Invoice struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	AppointmentID *uuid.UUID
	Status        InvoiceStatus
	TotalAmount   int64
	PaidAt        *time.Time
	// ClientRef carries the bill ID generated at the point of sale so
	// offline-created bills can be synced without duplicates.
	ClientRef *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Items     []InvoiceItem
}

// InvoiceItem is one line on an invoice.
type InvoiceItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Description string
	Quantity    int
	UnitPrice   int64
	StockItemID *uuid.UUID
}

// Amount returns the line total.
func (i *InvoiceItem) Amount() int64 {
	return int64(i.Quantity) * i.UnitPrice
}

// Total sums the invoice's line amounts.
func (inv *Invoice) Total() int64 {
	var total int64
	for _, item := range inv.Items {
		total += item.Amount()
	}
	return total
}

// Payable reports whether the invoice can be marked paid.
func (inv *Invoice) Payable() bool {
	return inv.Status == InvoiceIssued
}

// LedgerSummary aggregates billing activity over a day range.
type LedgerSummary struct {
	From         time.Time
	To           time.Time
	InvoiceCount int
	IssuedTotal  int64
	PaidTotal    int64
	Outstanding  int64
}
