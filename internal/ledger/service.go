package ledger

import (
	"context"
	"sort"
	"sync"

	"payrelay/internal/logger"
)

// Ledger is the in-memory set of processed event identities. It grows
// without eviction; at this system's event volume that is an accepted
// scaling limit. Only the poll loop writes; reads may come from the admin
// status endpoint.
type Ledger struct {
	store  Store
	logger logger.Logger

	mu      sync.RWMutex
	entries map[string]struct{}
	dirty   bool
}

func NewLedger(store Store, log logger.Logger) *Ledger {
	return &Ledger{
		store:   store,
		logger:  log,
		entries: make(map[string]struct{}),
	}
}

// Load initializes the ledger from durable storage. An unreadable or corrupt
// store degrades to an empty ledger: already-processed events may be
// redelivered once, which beats refusing to start.
func (l *Ledger) Load(ctx context.Context) {
	ids, err := l.store.Load(ctx)
	if err != nil {
		l.logger.WarnwCtx(ctx, "Ledger unreadable, starting empty", "error", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		l.entries[id] = struct{}{}
	}

	l.logger.InfowCtx(ctx, "Ledger loaded", "entries", len(l.entries))
}

func (l *Ledger) Contains(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[id]
	return ok
}

func (l *Ledger) Add(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[id]; ok {
		return
	}
	l.entries[id] = struct{}{}
	l.dirty = true
}

func (l *Ledger) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Persist flushes the full identity set. On failure the in-memory set stays
// authoritative for the rest of the process lifetime and the next Persist
// retries the flush.
func (l *Ledger) Persist(ctx context.Context) error {
	l.mu.RLock()
	if !l.dirty {
		l.mu.RUnlock()
		return nil
	}
	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	l.mu.RUnlock()

	sort.Strings(ids)

	if err := l.store.Save(ctx, ids); err != nil {
		return err
	}

	l.mu.Lock()
	l.dirty = false
	l.mu.Unlock()

	return nil
}
