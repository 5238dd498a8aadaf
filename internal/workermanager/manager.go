// Package workermanager owns one connection's set of per-transaction
// workers: it creates a worker when BEGIN opens a transaction, routes every
// later transaction-bound opcode to that transaction's worker, and tears
// every surviving worker down when the connection closes. It is the
// generalization of the teacher's transaction manager (one atomic counter
// plus a mutex-guarded map) from tracking bare transaction state to owning
// a live worker goroutine per entry.
package workermanager

import (
	"sync"

	"github.com/ordodb/ordo/internal/dispatch"
	"github.com/ordodb/ordo/internal/engine"
	"github.com/ordodb/ordo/internal/registry"
	"github.com/ordodb/ordo/internal/wire"
	"github.com/ordodb/ordo/internal/worker"
)

// Manager dispatches one connection's RPCs against a shared Database.
type Manager struct {
	db       *engine.Database
	registry *registry.Registry

	mu      sync.Mutex
	workers map[int64]*worker.Worker
}

// New returns a Manager for one connection, backed by db.
func New(db *engine.Database) *Manager {
	return &Manager{
		db:       db,
		registry: registry.New(),
		workers:  make(map[int64]*worker.Worker),
	}
}

// Dispatch routes one decoded request to the right place: BEGIN and FENCE
// are handled without an existing worker, every other opcode is routed by
// the transaction id carried in its payload to that transaction's worker.
// It returns the response payload to write back, and the header's
// MessageType to answer with — which always matches the request's opcode
// in this protocol, since every RPC is request/response in kind.
func (m *Manager) Dispatch(messageType wire.MessageType, payload []byte) []byte {
	switch messageType {
	case wire.Begin:
		return m.begin()
	case wire.Fence:
		return m.fence()
	default:
		return m.dispatchToWorker(messageType, payload)
	}
}

// begin starts a new worker, opens a new transaction on it, and registers
// both under the new transaction id.
func (m *Manager) begin() []byte {
	w := worker.New()
	w.Start()

	var tx *engine.Transaction
	result := w.EnqueueAndWait(func() interface{} {
		var resp *wire.BeginResponse
		tx, resp = dispatch.Begin(m.db)
		return resp
	})
	resp, _ := result.(*wire.BeginResponse)
	if resp == nil {
		w.Shutdown()
		return nil
	}

	m.mu.Lock()
	m.workers[tx.ID()] = w
	m.mu.Unlock()
	m.registry.Store(tx)

	return resp.Marshal()
}

// fence runs FENCE on a throwaway worker of its own, rather than inline on
// the connection's message-loop goroutine, so a panic inside the engine's
// barrier is contained by the same recover() every other RPC gets.
func (m *Manager) fence() []byte {
	w := worker.New()
	w.Start()
	defer w.Shutdown()

	result := w.EnqueueAndWait(func() interface{} {
		return dispatch.Fence(m.db)
	})
	resp, _ := result.(*wire.FenceResponse)
	if resp == nil {
		resp = &wire.FenceResponse{}
	}
	return resp.Marshal()
}

// dispatchToWorker peeks the transaction id out of payload, finds that
// transaction's worker, and runs the opcode's handler on it. If the
// transaction id is unknown — never opened, or already ended — every
// handler is defined to behave like an already-aborted transaction, since
// the wire schema has no room for a distinct "unknown transaction" error.
func (m *Manager) dispatchToWorker(messageType wire.MessageType, payload []byte) []byte {
	txID, err := wire.PeekTransactionID(payload)
	if err != nil {
		return abortedResponse(messageType)
	}

	m.mu.Lock()
	w, ok := m.workers[txID]
	m.mu.Unlock()
	if !ok {
		return abortedResponse(messageType)
	}

	tx, ok := m.registry.Get(txID)
	if !ok {
		return abortedResponse(messageType)
	}

	result := w.EnqueueAndWait(func() interface{} {
		return m.runHandler(messageType, tx, payload)
	})

	if messageType == wire.End {
		m.forget(txID)
	}

	marshaler, ok := result.(marshaler)
	if !ok {
		return abortedResponse(messageType)
	}
	return marshaler.Marshal()
}

func (m *Manager) runHandler(messageType wire.MessageType, tx *engine.Transaction, payload []byte) interface{} {
	switch messageType {
	case wire.Abort:
		return dispatch.Abort(tx)
	case wire.Read:
		return dispatch.Read(tx, payload)
	case wire.Write:
		return dispatch.Write(tx, payload)
	case wire.Scan:
		return dispatch.Scan(tx, payload)
	case wire.End:
		return dispatch.End(m.db, tx, payload)
	default:
		return nil
	}
}

// forget shuts down and removes the bookkeeping for a finished
// transaction. Shutdown runs synchronously here and returns once the
// worker has joined: it is safe to call after the END job already ran,
// since the worker's queue is empty at that point in the common case, and
// Shutdown itself drains anything left.
func (m *Manager) forget(txID int64) {
	m.mu.Lock()
	w, ok := m.workers[txID]
	delete(m.workers, txID)
	m.mu.Unlock()
	if ok {
		w.Shutdown()
	}
	m.registry.Remove(txID)
}

// Teardown is called when the connection closes. It aborts and shuts down
// every transaction still open on this connection, so an engine latch
// stripe can never be left held by a worker whose connection vanished
// mid-transaction.
func (m *Manager) Teardown() {
	for _, tx := range m.registry.Snapshot() {
		tx.Abort()
		m.forget(tx.ID())
	}
}

type marshaler interface {
	Marshal() []byte
}

func abortedResponse(messageType wire.MessageType) []byte {
	switch messageType {
	case wire.Abort:
		return (&wire.AbortResponse{}).Marshal()
	case wire.Read:
		return (&wire.ReadResponse{IsAborted: true}).Marshal()
	case wire.Write:
		return (&wire.WriteResponse{IsAborted: true}).Marshal()
	case wire.Scan:
		return (&wire.ScanResponse{IsAborted: true}).Marshal()
	case wire.End:
		return (&wire.EndResponse{IsAborted: true}).Marshal()
	default:
		return nil
	}
}
