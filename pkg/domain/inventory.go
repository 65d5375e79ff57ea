package domain

import (
	"time"

	"github.com/google/uuid"
)

// StockItem is one pharmacy inventory line: a medicine or supply with
// quantity on hand. Quantity never goes negative; a dispense that
// would overdraw it is rejected.
type StockItem struct {
	ID             uuid.UUID
	Name           string
	SKU            string
	QuantityOnHand int
	ReorderLevel   int
	UnitPrice      int64
	BatchNo        *string
	ExpiresAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LowStock reports whether the item is at or below its reorder level.
func (s *StockItem) LowStock() bool {
	return s.QuantityOnHand <= s.ReorderLevel
}

// Dispense records stock leaving the pharmacy against an invoice.
type Dispense struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	StockItemID uuid.UUID
	Quantity    int
	DispensedBy uuid.UUID
	DispensedAt time.Time
}
