package notification

import (
	"sync"
	"time"
)

// SendRecord is one outbound message noted in the send log.
type SendRecord struct {
	Channel string    `json:"channel"` // whatsapp or email
	Kind    string    `json:"kind"`    // e.g. reminder, receipt, otp
	To      string    `json:"to"`
	SentAt  time.Time `json:"sent_at"`
}

// Log keeps a bounded in-memory record of recent outbound messages for
// the admin send-history endpoint. Oldest entries are overwritten once
// capacity is reached; nothing is persisted.
type Log struct {
	mu      sync.Mutex
	entries []SendRecord
	next    int
	full    bool
}

// NewLog creates a send log holding up to capacity records.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 100
	}
	return &Log{entries: make([]SendRecord, capacity)}
}

// Record notes a sent message.
func (l *Log) Record(rec SendRecord) {
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = rec
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.full = true
	}
}

// Recent returns the recorded sends, newest first.
func (l *Log) Recent() []SendRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.next
	if l.full {
		n = len(l.entries)
	}
	out := make([]SendRecord, 0, n)
	for i := 0; i < n; i++ {
		idx := l.next - 1 - i
		if idx < 0 {
			idx += len(l.entries)
		}
		out = append(out, l.entries[idx])
	}
	return out
}
