package billing

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/internal/offline"
)

func strPtr(s string) *string { return &s }

type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

func TestCanQueue(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	queue := &offline.Queue{}
	ref := uuid.New()

	tests := []struct {
		name    string
		handler *Handler
		ref     *uuid.UUID
		want    bool
	}{
		{
			name:    "database down",
			handler: &Handler{logger: logger, db: fakePinger{err: errors.New("connection refused")}, queue: queue},
			ref:     &ref,
			want:    true,
		},
		{
			// A SQL error against a healthy database is permanent.
			// Parking the bill would acknowledge it and then drop it.
			name:    "database reachable",
			handler: &Handler{logger: logger, db: fakePinger{}, queue: queue},
			ref:     &ref,
			want:    false,
		},
		{
			name:    "no client_ref",
			handler: &Handler{logger: logger, db: fakePinger{err: errors.New("connection refused")}, queue: queue},
			ref:     nil,
			want:    false,
		},
		{
			name:    "buffer disabled",
			handler: &Handler{logger: logger, db: fakePinger{err: errors.New("connection refused")}},
			ref:     &ref,
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.handler.canQueue(context.Background(), tt.ref); got != tt.want {
				t.Errorf("canQueue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvoiceFromRequest(t *testing.T) {
	patientID := uuid.New().String()
	clientRef := uuid.New().String()

	t.Run("valid", func(t *testing.T) {
		inv, errMsg := invoiceFromRequest(&CreateRequest{
			PatientID: patientID,
			ClientRef: &clientRef,
			Items: []ItemRequest{
				{Description: "Consultation", Quantity: 1, UnitPrice: 30000},
				{Description: "Ibuprofen 400mg", Quantity: 2, UnitPrice: 2000},
			},
		})
		if errMsg != "" {
			t.Fatalf("unexpected error: %s", errMsg)
		}
		if inv.TotalAmount != 34000 {
			t.Errorf("TotalAmount = %d, want 34000", inv.TotalAmount)
		}
		if inv.ClientRef == nil || inv.ClientRef.String() != clientRef {
			t.Error("client_ref not carried over")
		}
		if len(inv.Items) != 2 {
			t.Errorf("items = %d, want 2", len(inv.Items))
		}
		for _, item := range inv.Items {
			if item.InvoiceID != inv.ID {
				t.Error("items must reference the new invoice")
			}
		}
	})

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"bad patient id", CreateRequest{PatientID: "nope", Items: []ItemRequest{{Description: "x", Quantity: 1}}}},
		{"no items", CreateRequest{PatientID: patientID}},
		{"empty description", CreateRequest{PatientID: patientID, Items: []ItemRequest{{Quantity: 1}}}},
		{"zero quantity", CreateRequest{PatientID: patientID, Items: []ItemRequest{{Description: "x", Quantity: 0}}}},
		{"negative price", CreateRequest{PatientID: patientID, Items: []ItemRequest{{Description: "x", Quantity: 1, UnitPrice: -1}}}},
		{"bad client ref", CreateRequest{PatientID: patientID, ClientRef: strPtr("nope"), Items: []ItemRequest{{Description: "x", Quantity: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, errMsg := invoiceFromRequest(&tt.req); errMsg == "" {
				t.Error("want validation error")
			}
		})
	}
}

func TestBillFromInvoiceRoundTrip(t *testing.T) {
	clientRef := uuid.New().String()
	inv, errMsg := invoiceFromRequest(&CreateRequest{
		PatientID: uuid.New().String(),
		ClientRef: &clientRef,
		Items: []ItemRequest{
			{Description: "Consultation", Quantity: 1, UnitPrice: 30000},
		},
	})
	if errMsg != "" {
		t.Fatalf("unexpected error: %s", errMsg)
	}

	bill := billFromInvoice(inv)
	if bill.ClientRef != *inv.ClientRef {
		t.Error("client_ref must survive the offline round trip")
	}
	if bill.PatientID != inv.PatientID {
		t.Error("patient must survive the offline round trip")
	}
	if len(bill.Items) != 1 || bill.Items[0].UnitPrice != 30000 {
		t.Errorf("items lost in conversion: %+v", bill.Items)
	}
}
