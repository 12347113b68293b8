package store

import (
	"context"
	"sync"
)

// Snapshotter is implemented by the in-memory stores so the in-memory
// transaction runner can roll them back on failure.
type Snapshotter interface {
	Snapshot() any
	Restore(any)
}

// InMemoryTx gives the in-memory stores the same all-or-nothing behavior as
// PgxTx: it snapshots every participating store, runs the function, and
// restores the snapshots if the function fails. A single mutex serializes
// transactions, which is enough for tests and local development.
type InMemoryTx struct {
	mu     sync.Mutex
	stores []Snapshotter
}

func NewInMemoryTx(stores ...Snapshotter) *InMemoryTx {
	return &InMemoryTx{stores: stores}
}

func (r *InMemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snaps := make([]any, len(r.stores))
	for i, s := range r.stores {
		snaps[i] = s.Snapshot()
	}
	if err := fn(ctx); err != nil {
		for i, s := range r.stores {
			s.Restore(snaps[i])
		}
		return err
	}
	return nil
}
