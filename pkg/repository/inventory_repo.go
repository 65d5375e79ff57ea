package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
)

// InventoryRepository handles pharmacy stock persistence.
type InventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new inventory repository.
func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

const stockColumns = `
	id, name, sku, quantity_on_hand, reorder_level, unit_price, batch_no, expires_at, created_at, updated_at
`

func scanStockItem(row interface{ Scan(...any) error }) (*domain.StockItem, error) {
	s := &domain.StockItem{}
	err := row.Scan(
		&s.ID, &s.Name, &s.SKU, &s.QuantityOnHand, &s.ReorderLevel,
		&s.UnitPrice, &s.BatchNo, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStockItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Upsert creates a stock item or replaces its mutable fields, keyed
// by SKU.
func (r *InventoryRepository) Upsert(ctx context.Context, s *domain.StockItem) error {
	query := `
		INSERT INTO stock_items (id, name, sku, quantity_on_hand, reorder_level, unit_price, batch_no, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			quantity_on_hand = EXCLUDED.quantity_on_hand,
			reorder_level = EXCLUDED.reorder_level,
			unit_price = EXCLUDED.unit_price,
			batch_no = EXCLUDED.batch_no,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, s.SKU, s.QuantityOnHand, s.ReorderLevel,
		s.UnitPrice, s.BatchNo, s.ExpiresAt, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// GetByID retrieves a stock item by ID.
func (r *InventoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.StockItem, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_items WHERE id = $1`
	return scanStockItem(r.db.QueryRowContext(ctx, query, id))
}

// AdjustStockTx changes quantity on hand by delta within a
// transaction. The guard in the WHERE clause keeps quantity from
// going negative under concurrent dispenses; hitting it surfaces as
// ErrInsufficientStock.
func (r *InventoryRepository) AdjustStockTx(ctx context.Context, q Querier, id uuid.UUID, delta int) error {
	query := `
		UPDATE stock_items
		SET quantity_on_hand = quantity_on_hand + $2, updated_at = NOW()
		WHERE id = $1 AND quantity_on_hand + $2 >= 0
	`
	result, err := q.ExecContext(ctx, query, id, delta)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var exists bool
		if err := q.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM stock_items WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrStockItemNotFound
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

// RecordDispenseTx stores a dispense row within a transaction.
func (r *InventoryRepository) RecordDispenseTx(ctx context.Context, q Querier, d *domain.Dispense) error {
	query := `
		INSERT INTO dispenses (id, invoice_id, stock_item_id, quantity, dispensed_by, dispensed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.ExecContext(ctx, query,
		d.ID, d.InvoiceID, d.StockItemID, d.Quantity, d.DispensedBy, d.DispensedAt,
	)
	return err
}

// ListLowStock returns items at or below their reorder level.
func (r *InventoryRepository) ListLowStock(ctx context.Context) ([]*domain.StockItem, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM stock_items
		WHERE quantity_on_hand <= reorder_level
		ORDER BY quantity_on_hand, name
	`
	return r.list(ctx, query)
}

// ListExpiringWithin returns items whose batch expires within the
// given number of days.
func (r *InventoryRepository) ListExpiringWithin(ctx context.Context, days int) ([]*domain.StockItem, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM stock_items
		WHERE expires_at IS NOT NULL AND expires_at < NOW() + make_interval(days => $1)
		ORDER BY expires_at, name
	`
	return r.list(ctx, query, days)
}

func (r *InventoryRepository) list(ctx context.Context, query string, args ...any) ([]*domain.StockItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.StockItem
	for rows.Next() {
		s, err := scanStockItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
