package offline

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
	bolt "go.etcd.io/bbolt"
)

func testQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := Open(filepath.Join(t.TempDir(), "bills.db"))
	if err != nil {
		t.Fatalf("Open: unexpected error %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func testBill() PendingBill {
	return PendingBill{
		ClientRef: uuid.New(),
		PatientID: uuid.New(),
		Status:    domain.InvoiceIssued,
		Items: []PendingItem{
			{Description: "Consultation", Quantity: 1, UnitPrice: 30000},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestQueueEnqueueAndBatch(t *testing.T) {
	q := testQueue(t)

	first := testBill()
	second := testBill()
	if err := q.Enqueue(first); err != nil {
		t.Fatalf("Enqueue: unexpected error %v", err)
	}
	if err := q.Enqueue(second); err != nil {
		t.Fatalf("Enqueue: unexpected error %v", err)
	}

	n, err := q.Len()
	if err != nil {
		t.Fatalf("Len: unexpected error %v", err)
	}
	if n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}

	bills, keys, err := q.Batch(10)
	if err != nil {
		t.Fatalf("Batch: unexpected error %v", err)
	}
	if len(bills) != 2 || len(keys) != 2 {
		t.Fatalf("Batch returned %d bills and %d keys, want 2 each", len(bills), len(keys))
	}
	// Keys are time-prefixed, so the batch preserves enqueue order.
	if bills[0].ClientRef != first.ClientRef {
		t.Errorf("first bill = %v, want %v", bills[0].ClientRef, first.ClientRef)
	}
}

func TestQueueBatchLimit(t *testing.T) {
	q := testQueue(t)
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(testBill()); err != nil {
			t.Fatalf("Enqueue: unexpected error %v", err)
		}
	}

	bills, _, err := q.Batch(3)
	if err != nil {
		t.Fatalf("Batch: unexpected error %v", err)
	}
	if len(bills) != 3 {
		t.Errorf("Batch returned %d bills, want 3", len(bills))
	}
}

func TestQueueRemove(t *testing.T) {
	q := testQueue(t)
	if err := q.Enqueue(testBill()); err != nil {
		t.Fatalf("Enqueue: unexpected error %v", err)
	}

	_, keys, err := q.Batch(1)
	if err != nil {
		t.Fatalf("Batch: unexpected error %v", err)
	}
	if err := q.Remove(keys[0]); err != nil {
		t.Fatalf("Remove: unexpected error %v", err)
	}

	n, err := q.Len()
	if err != nil {
		t.Fatalf("Len: unexpected error %v", err)
	}
	if n != 0 {
		t.Errorf("Len = %d, want 0 after remove", n)
	}
}

func TestQueueUpdate(t *testing.T) {
	q := testQueue(t)
	bill := testBill()
	if err := q.Enqueue(bill); err != nil {
		t.Fatalf("Enqueue: unexpected error %v", err)
	}

	bills, keys, err := q.Batch(1)
	if err != nil {
		t.Fatalf("Batch: unexpected error %v", err)
	}
	bills[0].Retries = 3
	if err := q.Update(keys[0], bills[0]); err != nil {
		t.Fatalf("Update: unexpected error %v", err)
	}

	bills, _, err = q.Batch(1)
	if err != nil {
		t.Fatalf("Batch: unexpected error %v", err)
	}
	if bills[0].Retries != 3 {
		t.Errorf("Retries = %d, want 3 after update", bills[0].Retries)
	}
}

func TestQueueBatchDropsCorruptRecords(t *testing.T) {
	q := testQueue(t)
	bill := testBill()
	if err := q.Enqueue(bill); err != nil {
		t.Fatalf("Enqueue: unexpected error %v", err)
	}
	// A record that no longer decodes as JSON.
	err := q.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(q.bucket).Put([]byte("0:corrupt"), []byte("{not json"))
	})
	if err != nil {
		t.Fatalf("seeding corrupt record: %v", err)
	}

	bills, keys, err := q.Batch(10)
	if err != nil {
		t.Fatalf("Batch: unexpected error %v", err)
	}
	if len(bills) != 1 || len(keys) != 1 {
		t.Fatalf("Batch returned %d bills and %d keys, want 1 each", len(bills), len(keys))
	}
	if bills[0].ClientRef != bill.ClientRef {
		t.Errorf("surviving bill = %v, want %v", bills[0].ClientRef, bill.ClientRef)
	}

	n, err := q.Len()
	if err != nil {
		t.Fatalf("Len: unexpected error %v", err)
	}
	if n != 1 {
		t.Errorf("Len = %d, want 1 after corrupt record removal", n)
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bills.db")
	q, err := Open(path)
	if err != nil {
		t.Fatalf("Open: unexpected error %v", err)
	}
	bill := testBill()
	if err := q.Enqueue(bill); err != nil {
		t.Fatalf("Enqueue: unexpected error %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close: unexpected error %v", err)
	}

	q, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: unexpected error %v", err)
	}
	defer q.Close()

	bills, _, err := q.Batch(1)
	if err != nil {
		t.Fatalf("Batch: unexpected error %v", err)
	}
	if len(bills) != 1 || bills[0].ClientRef != bill.ClientRef {
		t.Errorf("queued bill lost across reopen")
	}
}

func TestBillToInvoice(t *testing.T) {
	bill := testBill()
	bill.Items = append(bill.Items, PendingItem{Description: "Amoxicillin", Quantity: 2, UnitPrice: 4500})

	inv := BillToInvoice(bill)

	if inv.ClientRef == nil || *inv.ClientRef != bill.ClientRef {
		t.Error("client_ref must carry over")
	}
	if inv.PatientID != bill.PatientID {
		t.Error("patient must carry over")
	}
	if len(inv.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(inv.Items))
	}
	if inv.Items[0].InvoiceID != inv.ID {
		t.Error("items must reference the new invoice")
	}
	if got := inv.Total(); got != 39000 {
		t.Errorf("Total = %d, want 39000", got)
	}
}
