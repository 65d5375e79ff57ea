package billing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/medira/clinic-server/internal/http/middleware"
	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/internal/notification"
	"github.com/medira/clinic-server/internal/offline"
	"github.com/medira/clinic-server/pkg/auth"
	"github.com/medira/clinic-server/pkg/domain"
	"github.com/medira/clinic-server/pkg/repository"
)

// pinger reports database connectivity. *sql.DB satisfies it.
type pinger interface {
	PingContext(ctx context.Context) error
}

// Handler handles invoicing and ledger endpoints.
type Handler struct {
	logger    *slog.Logger
	db        pinger
	invoices  *repository.InvoicesRepository
	patients  *repository.PatientsRepository
	shareLink *auth.ShareLinkService
	queue     *offline.Queue             // nil when the offline buffer is disabled
	email     *notification.EmailService // nil when not configured
	sends     *notification.Log
}

// NewHandler creates a new billing handler.
func NewHandler(
	logger *slog.Logger,
	db pinger,
	invoices *repository.InvoicesRepository,
	patients *repository.PatientsRepository,
	shareLink *auth.ShareLinkService,
	queue *offline.Queue,
	email *notification.EmailService,
	sends *notification.Log,
) *Handler {
	return &Handler{
		logger:    logger,
		db:        db,
		invoices:  invoices,
		patients:  patients,
		shareLink: shareLink,
		queue:     queue,
		email:     email,
		sends:     sends,
	}
}

// canQueue decides whether a failed insert should be parked offline: the
// buffer must be on, the bill must be deduplicatable by client_ref, and
// the database must actually be down. SQL errors against a live
// database (a bad foreign key, say) are permanent and must surface to
// the caller instead of being parked and dropped later.
func (h *Handler) canQueue(ctx context.Context, clientRef *uuid.UUID) bool {
	if h.queue == nil || clientRef == nil {
		return false
	}
	return h.db == nil || h.db.PingContext(ctx) != nil
}

// ItemRequest is one invoice line in a request.
type ItemRequest struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   int64   `json:"unit_price"`
	StockItemID *string `json:"stock_item_id,omitempty"`
}

// CreateRequest represents an invoice creation.
type CreateRequest struct {
	PatientID     string        `json:"patient_id"`
	AppointmentID *string       `json:"appointment_id,omitempty"`
	ClientRef     *string       `json:"client_ref,omitempty"`
	Items         []ItemRequest `json:"items"`
}

// InvoiceResponse represents an invoice in responses.
type InvoiceResponse struct {
	ID          string         `json:"id"`
	PatientID   string         `json:"patient_id"`
	Status      string         `json:"status"`
	TotalAmount int64          `json:"total_amount"`
	PaidAt      *time.Time     `json:"paid_at,omitempty"`
	ClientRef   *string        `json:"client_ref,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Items       []ItemResponse `json:"items"`
}

// ItemResponse is one invoice line in a response.
type ItemResponse struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Amount      int64  `json:"amount"`
}

// Create issues an invoice. When the database is unreachable and the
// bill carries a client_ref, it is parked in the offline queue and
// accepted with 202.
// POST /v1/invoices
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, errMsg := invoiceFromRequest(&req)
	if errMsg != "" {
		httputil.Error(w, http.StatusBadRequest, errMsg)
		return
	}

	inserted, err := h.invoices.Create(r.Context(), inv)
	if err != nil {
		if h.canQueue(r.Context(), inv.ClientRef) {
			bill := billFromInvoice(inv)
			if qerr := h.queue.Enqueue(bill); qerr == nil {
				h.logger.Warn("database unreachable, invoice parked offline", "client_ref", *inv.ClientRef, "error", err)
				httputil.JSON(w, http.StatusAccepted, map[string]string{
					"status":     "queued",
					"client_ref": inv.ClientRef.String(),
				})
				return
			}
			h.logger.Error("failed to park invoice offline", "error", err)
		}
		h.logger.Error("failed to create invoice", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to create invoice")
		return
	}

	if !inserted {
		// client_ref already landed, report the stored row.
		httputil.JSON(w, http.StatusOK, map[string]any{
			"status":     "already synced",
			"client_ref": inv.ClientRef.String(),
		})
		return
	}

	httputil.JSON(w, http.StatusCreated, renderInvoice(inv))
}

// Get returns one invoice. Patients see only their own.
// GET /v1/invoices/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid invoice id")
		return
	}

	inv, err := h.invoices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			httputil.Error(w, http.StatusNotFound, "invoice not found")
			return
		}
		h.logger.Error("failed to load invoice", "error", err, "invoice_id", id)
		httputil.Error(w, http.StatusInternalServerError, "failed to load invoice")
		return
	}

	if principal.Role == domain.RolePatient && !h.ownsInvoice(r, principal, inv) {
		httputil.Error(w, http.StatusNotFound, "invoice not found")
		return
	}

	httputil.JSON(w, http.StatusOK, renderInvoice(inv))
}

// Pay marks an issued invoice paid.
// POST /v1/invoices/{id}/pay
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid invoice id")
		return
	}

	if err := h.invoices.MarkPaid(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvoiceNotFound):
			httputil.Error(w, http.StatusNotFound, "invoice not found")
		case errors.Is(err, domain.ErrInvoiceNotPayable):
			httputil.Error(w, http.StatusConflict, "invoice is not in a payable state")
		default:
			h.logger.Error("failed to mark invoice paid", "error", err, "invoice_id", id)
			httputil.Error(w, http.StatusInternalServerError, "failed to mark invoice paid")
		}
		return
	}

	h.sendReceipt(r.Context(), id)

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

// sendReceipt mails the patient a receipt. Best effort: the payment is
// already recorded, so failures are only logged.
func (h *Handler) sendReceipt(ctx context.Context, invoiceID uuid.UUID) {
	if h.email == nil {
		return
	}
	inv, err := h.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		h.logger.Warn("receipt skipped, failed to reload invoice", "error", err, "invoice_id", invoiceID)
		return
	}
	patient, err := h.patients.GetByID(ctx, inv.PatientID)
	if err != nil || patient.Email == nil {
		return
	}

	token, err := h.shareLink.Mint(inv.ID)
	if err != nil {
		h.logger.Warn("receipt skipped, failed to mint download link", "error", err, "invoice_id", invoiceID)
		return
	}
	if err := h.email.SendInvoiceReceipt(*patient.Email, patient.Name, inv.TotalAmount, "/v1/public/invoices/"+token); err != nil {
		h.logger.Warn("failed to send receipt", "error", err, "invoice_id", invoiceID)
		return
	}
	if h.sends != nil {
		h.sends.Record(notification.SendRecord{Channel: "email", Kind: "receipt", To: *patient.Email})
	}
}

// Statement lists a patient's invoices for staff.
// GET /v1/patients/{id}/invoices
func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	h.listForPatient(w, r, patientID)
}

// Mine lists the signed-in patient's invoices.
// GET /v1/invoices/mine
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	patient, err := h.patients.GetByUserID(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrPatientNotFound) {
			httputil.JSON(w, http.StatusOK, map[string]any{"invoices": []InvoiceResponse{}})
			return
		}
		h.logger.Error("failed to resolve patient", "error", err, "user_id", principal.UserID)
		httputil.Error(w, http.StatusInternalServerError, "failed to list invoices")
		return
	}
	h.listForPatient(w, r, patient.ID)
}

// Ledger aggregates billing over a date range.
// GET /v1/ledger?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		// Inclusive end of day.
		to = parsed.AddDate(0, 0, 1)
	}

	summary, err := h.invoices.LedgerSummary(r.Context(), from, to)
	if err != nil {
		h.logger.Error("ledger summary failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "ledger summary failed")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"from":          summary.From.Format("2006-01-02"),
		"to":            summary.To.Format("2006-01-02"),
		"invoice_count": summary.InvoiceCount,
		"issued_total":  summary.IssuedTotal,
		"paid_total":    summary.PaidTotal,
		"outstanding":   summary.Outstanding,
	})
}

// Share mints a time-limited download link for an invoice.
// POST /v1/invoices/{id}/share
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid invoice id")
		return
	}

	if _, err := h.invoices.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			httputil.Error(w, http.StatusNotFound, "invoice not found")
			return
		}
		h.logger.Error("failed to load invoice", "error", err, "invoice_id", id)
		httputil.Error(w, http.StatusInternalServerError, "failed to load invoice")
		return
	}

	token, err := h.shareLink.Mint(id)
	if err != nil {
		h.logger.Error("failed to mint share link", "error", err, "invoice_id", id)
		httputil.Error(w, http.StatusInternalServerError, "failed to mint share link")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{
		"token": token,
		"url":   "/v1/public/invoices/" + token,
	})
}

// PublicDownload serves an invoice behind a share-link token, no
// session required.
// GET /v1/public/invoices/{token}
func (h *Handler) PublicDownload(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	invoiceID, err := h.shareLink.Validate(token)
	if err != nil {
		httputil.Error(w, http.StatusUnauthorized, "invalid or expired link")
		return
	}

	inv, err := h.invoices.GetByID(r.Context(), invoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			httputil.Error(w, http.StatusNotFound, "invoice not found")
			return
		}
		h.logger.Error("failed to load shared invoice", "error", err, "invoice_id", invoiceID)
		httputil.Error(w, http.StatusInternalServerError, "failed to load invoice")
		return
	}

	httputil.JSON(w, http.StatusOK, renderInvoice(inv))
}

// SyncRequest carries bills created at an offline point of sale.
type SyncRequest struct {
	Bills []SyncBill `json:"bills"`
}

// SyncBill is one offline bill in a sync batch.
type SyncBill struct {
	ClientRef string        `json:"client_ref"`
	PatientID string        `json:"patient_id"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
	Items     []ItemRequest `json:"items"`
}

// SyncResult reports the fate of one synced bill.
type SyncResult struct {
	ClientRef string `json:"client_ref"`
	Status    string `json:"status"` // created, duplicate, queued, error
	InvoiceID string `json:"invoice_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Sync lands a batch of offline bills, deduplicating on client_ref.
// POST /v1/invoices/sync
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Bills) == 0 {
		httputil.Error(w, http.StatusBadRequest, "bills is required")
		return
	}

	results := make([]SyncResult, 0, len(req.Bills))
	for _, raw := range req.Bills {
		results = append(results, h.syncOne(r, raw))
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) syncOne(r *http.Request, raw SyncBill) SyncResult {
	clientRef, err := uuid.Parse(raw.ClientRef)
	if err != nil {
		return SyncResult{ClientRef: raw.ClientRef, Status: "error", Error: "invalid client_ref"}
	}
	patientID, err := uuid.Parse(raw.PatientID)
	if err != nil {
		return SyncResult{ClientRef: raw.ClientRef, Status: "error", Error: "invalid patient_id"}
	}
	if len(raw.Items) == 0 {
		return SyncResult{ClientRef: raw.ClientRef, Status: "error", Error: "items is required"}
	}

	bill := offline.PendingBill{
		ClientRef: clientRef,
		PatientID: patientID,
		Status:    domain.InvoiceIssued,
	}
	if raw.CreatedAt != nil {
		bill.CreatedAt = *raw.CreatedAt
	}
	for _, item := range raw.Items {
		if item.Quantity <= 0 || item.UnitPrice < 0 || item.Description == "" {
			return SyncResult{ClientRef: raw.ClientRef, Status: "error", Error: "invalid item"}
		}
		bill.Items = append(bill.Items, offline.PendingItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			StockItemID: parseOptionalUUID(item.StockItemID),
		})
	}

	inv := offline.BillToInvoice(bill)

	inserted, err := h.invoices.Create(r.Context(), inv)
	if err != nil {
		if h.canQueue(r.Context(), &clientRef) {
			if qerr := h.queue.Enqueue(bill); qerr == nil {
				return SyncResult{ClientRef: raw.ClientRef, Status: "queued"}
			}
		}
		h.logger.Error("failed to sync offline bill", "error", err, "client_ref", clientRef)
		return SyncResult{ClientRef: raw.ClientRef, Status: "error", Error: "database error"}
	}
	if !inserted {
		return SyncResult{ClientRef: raw.ClientRef, Status: "duplicate"}
	}
	return SyncResult{ClientRef: raw.ClientRef, Status: "created", InvoiceID: inv.ID.String()}
}

func (h *Handler) listForPatient(w http.ResponseWriter, r *http.Request, patientID uuid.UUID) {
	invoices, err := h.invoices.ListByPatient(r.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to list invoices", "error", err, "patient_id", patientID)
		httputil.Error(w, http.StatusInternalServerError, "failed to list invoices")
		return
	}

	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, renderInvoice(inv))
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"invoices": out})
}

func (h *Handler) ownsInvoice(r *http.Request, principal *domain.Principal, inv *domain.Invoice) bool {
	patient, err := h.patients.GetByUserID(r.Context(), principal.UserID)
	return err == nil && patient.ID == inv.PatientID
}

func invoiceFromRequest(req *CreateRequest) (*domain.Invoice, string) {
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, "invalid patient_id"
	}
	if len(req.Items) == 0 {
		return nil, "items is required"
	}

	now := time.Now()
	inv := &domain.Invoice{
		ID:        uuid.New(),
		PatientID: patientID,
		Status:    domain.InvoiceIssued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.AppointmentID != nil {
		id, err := uuid.Parse(*req.AppointmentID)
		if err != nil {
			return nil, "invalid appointment_id"
		}
		inv.AppointmentID = &id
	}
	if req.ClientRef != nil {
		ref, err := uuid.Parse(*req.ClientRef)
		if err != nil {
			return nil, "invalid client_ref"
		}
		inv.ClientRef = &ref
	}

	for _, item := range req.Items {
		if item.Description == "" {
			return nil, "item description is required"
		}
		if item.Quantity <= 0 {
			return nil, "item quantity must be positive"
		}
		if item.UnitPrice < 0 {
			return nil, "item unit_price must not be negative"
		}
		inv.Items = append(inv.Items, domain.InvoiceItem{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			StockItemID: parseOptionalUUID(item.StockItemID),
		})
	}
	inv.TotalAmount = inv.Total()
	return inv, ""
}

func billFromInvoice(inv *domain.Invoice) offline.PendingBill {
	bill := offline.PendingBill{
		ClientRef: *inv.ClientRef,
		PatientID: inv.PatientID,
		Status:    inv.Status,
		CreatedAt: inv.CreatedAt,
	}
	for _, item := range inv.Items {
		bill.Items = append(bill.Items, offline.PendingItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			StockItemID: item.StockItemID,
		})
	}
	return bill
}

func parseOptionalUUID(raw *string) *uuid.UUID {
	if raw == nil || *raw == "" {
		return nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil
	}
	return &id
}

func renderInvoice(inv *domain.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:          inv.ID.String(),
		PatientID:   inv.PatientID.String(),
		Status:      string(inv.Status),
		TotalAmount: inv.TotalAmount,
		PaidAt:      inv.PaidAt,
		CreatedAt:   inv.CreatedAt,
	}
	if inv.ClientRef != nil {
		ref := inv.ClientRef.String()
		resp.ClientRef = &ref
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, ItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount(),
		})
	}
	return resp
}
