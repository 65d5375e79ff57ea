package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
)

// InvoicesRepository handles invoice and ledger persistence.
type InvoicesRepository struct {
	db *sql.DB
}

// NewInvoicesRepository creates a new invoices repository.
func NewInvoicesRepository(db *sql.DB) *InvoicesRepository {
	return &InvoicesRepository{db: db}
}

// Create stores an invoice with its line items in one transaction.
// A duplicate client_ref is silently skipped so offline bills can be
// re-synced without creating doubles; the return value reports
// whether a row was actually inserted.
func (r *InvoicesRepository) Create(ctx context.Context, inv *domain.Invoice) (bool, error) {
	inserted := false
	err := Tx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO invoices (id, patient_id, appointment_id, status, total_amount, client_ref, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (client_ref) WHERE client_ref IS NOT NULL DO NOTHING
		`
		result, err := tx.ExecContext(ctx, query,
			inv.ID, inv.PatientID, inv.AppointmentID, inv.Status,
			inv.TotalAmount, inv.ClientRef, inv.CreatedAt, inv.UpdatedAt,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		inserted = true

		itemQuery := `
			INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_price, stock_item_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		for _, item := range inv.Items {
			if _, err := tx.ExecContext(ctx, itemQuery,
				item.ID, item.InvoiceID, item.Description,
				item.Quantity, item.UnitPrice, item.StockItemID,
			); err != nil {
				return err
			}
		}
		return nil
	})
	return inserted, err
}

// GetByID retrieves an invoice with its line items.
func (r *InvoicesRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	query := `
		SELECT id, patient_id, appointment_id, status, total_amount, paid_at, client_ref, created_at, updated_at
		FROM invoices
		WHERE id = $1
	`
	inv := &domain.Invoice{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&inv.ID, &inv.PatientID, &inv.AppointmentID, &inv.Status,
		&inv.TotalAmount, &inv.PaidAt, &inv.ClientRef,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}

	itemQuery := `
		SELECT id, invoice_id, description, quantity, unit_price, stock_item_id
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY description
	`
	rows, err := r.db.QueryContext(ctx, itemQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		item := domain.InvoiceItem{}
		if err := rows.Scan(
			&item.ID, &item.InvoiceID, &item.Description,
			&item.Quantity, &item.UnitPrice, &item.StockItemID,
		); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

// ListByPatient returns a patient's invoices, newest first, without
// line items.
func (r *InvoicesRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*domain.Invoice, error) {
	query := `
		SELECT id, patient_id, appointment_id, status, total_amount, paid_at, client_ref, created_at, updated_at
		FROM invoices
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*domain.Invoice
	for rows.Next() {
		inv := &domain.Invoice{}
		if err := rows.Scan(
			&inv.ID, &inv.PatientID, &inv.AppointmentID, &inv.Status,
			&inv.TotalAmount, &inv.PaidAt, &inv.ClientRef,
			&inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// MarkPaid transitions an issued invoice to paid.
func (r *InvoicesRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE invoices
		SET status = $2, paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, id, domain.InvoicePaid, domain.InvoiceIssued)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvoiceNotPayable
	}
	return nil
}

// LedgerSummary aggregates invoice totals over [from, to).
func (r *InvoicesRepository) LedgerSummary(ctx context.Context, from, to time.Time) (*domain.LedgerSummary, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(total_amount) FILTER (WHERE status = 'paid'), 0)
		FROM invoices
		WHERE created_at >= $1 AND created_at < $2 AND status <> 'void'
	`
	summary := &domain.LedgerSummary{From: from, To: to}
	err := r.db.QueryRowContext(ctx, query, from, to).Scan(
		&summary.InvoiceCount, &summary.IssuedTotal, &summary.PaidTotal,
	)
	if err != nil {
		return nil, err
	}
	summary.Outstanding = summary.IssuedTotal - summary.PaidTotal
	return summary, nil
}
