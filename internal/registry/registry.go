// Package registry tracks the open transactions on one connection,
// mapping the transaction id returned by BEGIN to the engine transaction
// handle it was opened against. It mirrors the teacher's atomic-counter +
// mutex-guarded-map transaction manager, generalized from a raft-group
// identifier to an arbitrary engine handle.
package registry

import (
	"sync"

	"github.com/ordodb/ordo/internal/engine"
)

// Registry is one connection's open-transaction table. It is safe for
// concurrent use, though in practice only the connection's message-loop
// goroutine (through its worker manager) ever touches it.
type Registry struct {
	mu   sync.Mutex
	open map[int64]*engine.Transaction
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{open: make(map[int64]*engine.Transaction)}
}

// Store records tx under its own ID, making it visible to Get/Remove.
func (r *Registry) Store(tx *engine.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open[tx.ID()] = tx
}

// Get looks up the transaction handle for id. ok is false if id is not (or
// is no longer) open on this connection.
func (r *Registry) Get(id int64) (tx *engine.Transaction, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok = r.open[id]
	return tx, ok
}

// Remove forgets id, typically after the transaction's worker has joined.
func (r *Registry) Remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.open, id)
}

// Snapshot returns every transaction handle currently open on this
// connection. The worker manager uses this during connection teardown to
// abort and drain every surviving transaction.
func (r *Registry) Snapshot() []*engine.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*engine.Transaction, 0, len(r.open))
	for _, tx := range r.open {
		out = append(out, tx)
	}
	return out
}
