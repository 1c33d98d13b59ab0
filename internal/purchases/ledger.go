// Package purchases keeps the local log of completed purchases.
package purchases

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/Mohsinsiddi/w3market/internal/config"
	"github.com/Mohsinsiddi/w3market/internal/storage"
)

// Record is one confirmed purchase. Records are never modified once created.
type Record struct {
	ItemID string `json:"id"`
	Name   string `json:"name"`
	Price  string `json:"price"` // decimal ether
	TxHash string `json:"txHash"`
	Date   string `json:"date"` // ISO-8601 UTC
}

// Ledger is a newest-first, capacity-bounded purchase log persisted under
// config.KeyPurchaseHistory. The in-memory copy is authoritative; storage
// failures are logged and otherwise ignored.
type Ledger struct {
	mu       sync.RWMutex
	store    *storage.Local
	records  []Record
	capacity int
	log      *slog.Logger
}

// NewLedger returns an empty ledger backed by store. Call Load to read the
// persisted snapshot.
func NewLedger(store *storage.Local, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ledger{store: store, capacity: config.PurchaseHistoryCap, log: log}
}

// Load replaces the in-memory log with the persisted snapshot. A missing or
// unreadable snapshot yields an empty log.
func (l *Ledger) Load() {
	records := l.read().OrElse(nil)
	if len(records) > l.capacity {
		records = records[:l.capacity]
	}

	l.mu.Lock()
	l.records = records
	l.mu.Unlock()
}

// Append prepends r, drops everything past capacity and persists the
// result. A record whose TxHash is already present is ignored.
func (l *Ledger) Append(r Record) {
	l.mu.Lock()
	for _, existing := range l.records {
		if existing.TxHash == r.TxHash {
			l.mu.Unlock()
			l.log.Debug("purchase already recorded", "tx", r.TxHash)
			return
		}
	}
	next := make([]Record, 0, len(l.records)+1)
	next = append(next, r)
	next = append(next, l.records...)
	if len(next) > l.capacity {
		next = next[:l.capacity]
	}
	l.records = next
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	if err := l.write(snapshot); err != nil {
		l.log.Warn("could not persist purchase history", "err", err)
	}
}

// Clear empties the log and removes the persisted snapshot.
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.records = nil
	l.mu.Unlock()

	if err := l.store.Remove(config.KeyPurchaseHistory); err != nil {
		l.log.Warn("could not remove purchase history", "err", err)
	}
}

// Records returns a copy of the log, newest first.
func (l *Ledger) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

func (l *Ledger) snapshotLocked() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Ledger) read() storage.Result[[]Record] {
	raw, err := l.store.Get(config.KeyPurchaseHistory).Unwrap()
	if err != nil {
		return storage.Err[[]Record](err)
	}
	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		l.log.Warn("discarding unreadable purchase history", "err", err)
		return storage.Err[[]Record](err)
	}
	return storage.Ok(records)
}

func (l *Ledger) write(records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return l.store.Set(config.KeyPurchaseHistory, string(data))
}
