package offline

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
	"github.com/medira/clinic-server/pkg/repository"
	"github.com/robfig/cron/v3"
)

// DrainerConfig controls how the queue is flushed.
type DrainerConfig struct {
	// Schedule is a cron expression; defaults to every 30 seconds.
	Schedule   string
	BatchSize  int
	MaxRetries int
}

// Drainer flushes queued offline bills into the invoices table once
// the database answers pings again.
type Drainer struct {
	queue    *Queue
	db       *sql.DB
	invoices *repository.InvoicesRepository
	logger   *slog.Logger
	cron     *cron.Cron
	cfg      DrainerConfig
}

// NewDrainer creates a drainer; Start launches its schedule.
func NewDrainer(queue *Queue, db *sql.DB, invoices *repository.InvoicesRepository, logger *slog.Logger, cfg DrainerConfig) *Drainer {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 30s"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Drainer{
		queue:    queue,
		db:       db,
		invoices: invoices,
		logger:   logger,
		cron:     cron.New(),
		cfg:      cfg,
	}
	_, _ = d.cron.AddFunc(cfg.Schedule, func() {
		d.Drain(context.Background())
	})
	return d
}

// Start launches the cron schedule.
func (d *Drainer) Start() {
	d.cron.Start()
}

// Stop cancels the schedule and waits for a running drain to finish.
func (d *Drainer) Stop() {
	<-d.cron.Stop().Done()
}

// Drain flushes one batch. Bills that keep failing past the retry cap
// are dropped with an error log rather than wedging the queue.
func (d *Drainer) Drain(ctx context.Context) {
	if err := d.db.PingContext(ctx); err != nil {
		d.logger.Debug("database still unreachable, keeping offline bills queued", "error", err)
		return
	}

	bills, keys, err := d.queue.Batch(d.cfg.BatchSize)
	if err != nil {
		d.logger.Error("offline queue read failed", "error", err)
		return
	}

	for i, bill := range bills {
		if err := d.syncOne(ctx, bill); err != nil {
			bill.Retries++
			if bill.Retries >= d.cfg.MaxRetries {
				d.logger.Error("dropping offline bill after max retries",
					"client_ref", bill.ClientRef, "retries", bill.Retries, "error", err)
				_ = d.queue.Remove(keys[i])
				continue
			}
			d.logger.Warn("offline bill sync failed, will retry",
				"client_ref", bill.ClientRef, "retries", bill.Retries, "error", err)
			_ = d.queue.Update(keys[i], bill)
			continue
		}
		if err := d.queue.Remove(keys[i]); err != nil {
			d.logger.Error("failed to remove synced bill from queue", "error", err)
		}
	}
}

func (d *Drainer) syncOne(ctx context.Context, bill PendingBill) error {
	inv := BillToInvoice(bill)
	inserted, err := d.invoices.Create(ctx, inv)
	if err != nil {
		return err
	}
	if !inserted {
		d.logger.Debug("offline bill already synced", "client_ref", bill.ClientRef)
	}
	return nil
}

// BillToInvoice converts a pending bill into a domain invoice ready
// for insertion.
func BillToInvoice(bill PendingBill) *domain.Invoice {
	clientRef := bill.ClientRef
	inv := &domain.Invoice{
		ID:        uuid.New(),
		PatientID: bill.PatientID,
		Status:    bill.Status,
		ClientRef: &clientRef,
		CreatedAt: bill.CreatedAt,
		UpdatedAt: time.Now(),
	}
	if inv.Status == "" {
		inv.Status = domain.InvoiceIssued
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = bill.EnqueuedAt
	}
	for _, item := range bill.Items {
		inv.Items = append(inv.Items, domain.InvoiceItem{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			StockItemID: item.StockItemID,
		})
	}
	inv.TotalAmount = inv.Total()
	return inv
}
