package pharmacy

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/internal/http/middleware"
	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/pkg/domain"
	"github.com/medira/clinic-server/pkg/repository"
)

// Handler handles pharmacy stock and dispensing endpoints.
type Handler struct {
	logger    *slog.Logger
	db        *sql.DB
	inventory *repository.InventoryRepository
}

// NewHandler creates a new pharmacy handler.
func NewHandler(logger *slog.Logger, db *sql.DB, inventory *repository.InventoryRepository) *Handler {
	return &Handler{logger: logger, db: db, inventory: inventory}
}

// StockRequest represents a stock item upsert keyed by SKU.
type StockRequest struct {
	Name         string     `json:"name"`
	SKU          string     `json:"sku"`
	Quantity     int        `json:"quantity"`
	ReorderLevel int        `json:"reorder_level"`
	UnitPrice    int64      `json:"unit_price"`
	BatchNo      *string    `json:"batch_no,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// StockResponse represents a stock item in responses.
type StockResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	SKU          string     `json:"sku"`
	Quantity     int        `json:"quantity"`
	ReorderLevel int        `json:"reorder_level"`
	UnitPrice    int64      `json:"unit_price"`
	BatchNo      *string    `json:"batch_no,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	LowStock     bool       `json:"low_stock"`
}

// UpsertStock creates or replaces a stock item by SKU.
// PUT /v1/stock
func (h *Handler) UpsertStock(w http.ResponseWriter, r *http.Request) {
	var req StockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.SKU == "" {
		httputil.Error(w, http.StatusBadRequest, "name and sku are required")
		return
	}
	if req.Quantity < 0 || req.ReorderLevel < 0 || req.UnitPrice < 0 {
		httputil.Error(w, http.StatusBadRequest, "quantities and prices must not be negative")
		return
	}

	item := &domain.StockItem{
		ID:             uuid.New(),
		Name:           req.Name,
		SKU:            req.SKU,
		QuantityOnHand: req.Quantity,
		ReorderLevel:   req.ReorderLevel,
		UnitPrice:      req.UnitPrice,
		BatchNo:        req.BatchNo,
		ExpiresAt:      req.ExpiresAt,
	}
	if err := h.inventory.Upsert(r.Context(), item); err != nil {
		h.logger.Error("failed to upsert stock item", "error", err, "sku", req.SKU)
		httputil.Error(w, http.StatusInternalServerError, "failed to save stock item")
		return
	}

	httputil.JSON(w, http.StatusOK, renderStock(item))
}

// LowStock lists items at or below their reorder level.
// GET /v1/stock/low
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.ListLowStock(r.Context())
	if err != nil {
		h.logger.Error("failed to list low stock", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to list stock")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"items": renderStockList(items)})
}

// Expiring lists items whose batches expire within the given days
// (default 30).
// GET /v1/stock/expiring?days=
func (h *Handler) Expiring(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.Error(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	items, err := h.inventory.ListExpiringWithin(r.Context(), days)
	if err != nil {
		h.logger.Error("failed to list expiring stock", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to list stock")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"items": renderStockList(items)})
}

// DispenseRequest represents dispensing stock against an invoice.
type DispenseRequest struct {
	InvoiceID string `json:"invoice_id"`
	Items     []struct {
		StockItemID string `json:"stock_item_id"`
		Quantity    int    `json:"quantity"`
	} `json:"items"`
}

// Dispense decrements stock and records the dispense in one
// transaction. A line that would overdraw any item aborts the whole
// batch.
// POST /v1/dispense
func (h *Handler) Dispense(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req DispenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid invoice_id")
		return
	}
	if len(req.Items) == 0 {
		httputil.Error(w, http.StatusBadRequest, "items is required")
		return
	}

	type line struct {
		stockItemID uuid.UUID
		quantity    int
	}
	lines := make([]line, 0, len(req.Items))
	for _, item := range req.Items {
		id, err := uuid.Parse(item.StockItemID)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid stock_item_id")
			return
		}
		if item.Quantity <= 0 {
			httputil.Error(w, http.StatusBadRequest, "quantity must be positive")
			return
		}
		lines = append(lines, line{stockItemID: id, quantity: item.Quantity})
	}

	now := time.Now()
	err = repository.Tx(r.Context(), h.db, func(tx *sql.Tx) error {
		for _, l := range lines {
			if err := h.inventory.AdjustStockTx(r.Context(), tx, l.stockItemID, -l.quantity); err != nil {
				return err
			}
			d := &domain.Dispense{
				ID:          uuid.New(),
				InvoiceID:   invoiceID,
				StockItemID: l.stockItemID,
				Quantity:    l.quantity,
				DispensedBy: principal.UserID,
				DispensedAt: now,
			}
			if err := h.inventory.RecordDispenseTx(r.Context(), tx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStockItemNotFound):
			httputil.Error(w, http.StatusNotFound, "stock item not found")
		case errors.Is(err, domain.ErrInsufficientStock):
			httputil.Error(w, http.StatusConflict, "insufficient stock on hand")
		default:
			h.logger.Error("dispense failed", "error", err, "invoice_id", invoiceID)
			httputil.Error(w, http.StatusInternalServerError, "dispense failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "dispensed"})
}

func renderStock(s *domain.StockItem) StockResponse {
	return StockResponse{
		ID:           s.ID.String(),
		Name:         s.Name,
		SKU:          s.SKU,
		Quantity:     s.QuantityOnHand,
		ReorderLevel: s.ReorderLevel,
		UnitPrice:    s.UnitPrice,
		BatchNo:      s.BatchNo,
		ExpiresAt:    s.ExpiresAt,
		LowStock:     s.LowStock(),
	}
}

func renderStockList(items []*domain.StockItem) []StockResponse {
	out := make([]StockResponse, 0, len(items))
	for _, s := range items {
		out = append(out, renderStock(s))
	}
	return out
}
