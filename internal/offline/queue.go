package offline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
	bolt "go.etcd.io/bbolt"
)

const defaultBucket = "pending_bills"

// PendingBill is an offline-created bill waiting to reach the
// database. ClientRef deduplicates retries end to end: the invoices
// table skips rows whose client_ref already landed.
type PendingBill struct {
	ClientRef  uuid.UUID            `json:"client_ref"`
	PatientID  uuid.UUID            `json:"patient_id"`
	Status     domain.InvoiceStatus `json:"status"`
	Items      []PendingItem        `json:"items"`
	CreatedAt  time.Time            `json:"created_at"`
	EnqueuedAt time.Time            `json:"enqueued_at"`
	Retries    int                  `json:"retries"`
}

// PendingItem is one line of an offline bill.
type PendingItem struct {
	Description string     `json:"description"`
	Quantity    int        `json:"quantity"`
	UnitPrice   int64      `json:"unit_price"`
	StockItemID *uuid.UUID `json:"stock_item_id,omitempty"`
}

// Queue persists offline bills in a local BoltDB file so they survive
// process restarts while the database is unreachable.
type Queue struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string) (*Queue, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(defaultBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Queue{db: db, bucket: []byte(defaultBucket)}, nil
}

// Close releases the BoltDB file.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue stores a pending bill keyed by enqueue time and client ref,
// so drains run oldest first.
func (q *Queue) Enqueue(bill PendingBill) error {
	if bill.ClientRef == uuid.Nil {
		bill.ClientRef = uuid.New()
	}
	if bill.EnqueuedAt.IsZero() {
		bill.EnqueuedAt = time.Now()
	}

	payload, err := json.Marshal(bill)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%d:%s", bill.EnqueuedAt.UnixNano(), bill.ClientRef)
	return q.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(q.bucket).Put([]byte(key), payload)
	})
}

// Batch returns up to limit pending bills without removing them,
// paired with their internal keys for later removal. Records that no
// longer decode are deleted so they cannot wedge the queue.
func (q *Queue) Batch(limit int) ([]PendingBill, [][]byte, error) {
	if limit <= 0 {
		limit = 50
	}

	var bills []PendingBill
	var keys [][]byte
	var corrupt [][]byte
	err := q.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(q.bucket).Cursor()
		for k, v := c.First(); k != nil && len(bills) < limit; k, v = c.Next() {
			var bill PendingBill
			if err := json.Unmarshal(v, &bill); err != nil {
				corrupt = append(corrupt, append([]byte(nil), k...))
				continue
			}
			bills = append(bills, bill)
			keys = append(keys, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if len(corrupt) > 0 {
		err = q.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(q.bucket)
			for _, k := range corrupt {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return bills, keys, err
}

// Remove deletes a drained bill by its internal key.
func (q *Queue) Remove(key []byte) error {
	return q.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(q.bucket).Delete(key)
	})
}

// Update rewrites a bill in place (retry counter bumps).
func (q *Queue) Update(key []byte, bill PendingBill) error {
	payload, err := json.Marshal(bill)
	if err != nil {
		return err
	}
	return q.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(q.bucket).Put(key, payload)
	})
}

// Len reports the number of pending bills.
func (q *Queue) Len() (int, error) {
	var n int
	err := q.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(q.bucket).Stats().KeyN
		return nil
	})
	return n, err
}
