// Package engine is an embedded, in-process key-value store offering
// single-version optimistic concurrency control in the style of Silo: a
// transaction buffers its reads (remembering the version observed) and
// writes locally, and only takes locks — on the stripes its write-set
// hashes to — at EndTransaction, to validate that nothing it read has
// changed and then publish its writes.
//
// There is no Go binding for the C++ storage engine this gateway was
// originally built over, so this package is a from-scratch implementation
// of the same commit protocol, grounded in the teacher's latch table
// (github.com/google/btree for the ordered keyspace, github.com/dgryski/go-farm
// for latch striping, go.uber.org/atomic for the counters) rather than a
// port of any single teacher file.
package engine

import (
	"sync"

	"github.com/google/btree"
	"go.uber.org/atomic"
)

// Database is a single embedded keyspace. It corresponds to the gateway's
// one-process-wide storage handle: every connection's transactions operate
// against the same Database.
type Database struct {
	mu      sync.RWMutex
	tree    *btree.BTree
	latches *latchTable
	nextTx  *atomic.Int64
}

// Open creates an empty Database. dbPath is accepted for interface parity
// with a disk-backed engine and future persistence, but this implementation
// is purely in-memory.
func Open(dbPath string) (*Database, error) {
	return &Database{
		tree:    newKeyspace(),
		latches: newLatchTable(),
		nextTx:  atomic.NewInt64(0),
	}, nil
}

// Close releases the Database's resources. There is nothing to flush for
// the in-memory keyspace; it exists so callers can treat Database like any
// other closeable resource.
func (db *Database) Close() error { return nil }

// BeginTransaction starts a new optimistic transaction against db.
func (db *Database) BeginTransaction() *Transaction {
	return &Transaction{
		db:       db,
		id:       db.nextTx.Inc(),
		readSet:  make(map[string]uint64),
		writeSet: make(map[string]writeOp),
	}
}

// EndTransaction validates and, if validation succeeds, commits tx's
// buffered writes. statusCallback, if non-nil, is invoked with the outcome
// before EndTransaction returns, mirroring the original engine's
// commit-hook shape. It returns the commit outcome: true if committed,
// false if validation failed or tx was already aborted.
func (db *Database) EndTransaction(tx *Transaction, statusCallback func(committed bool)) bool {
	committed := db.endTransaction(tx)
	if statusCallback != nil {
		statusCallback(committed)
	}
	return committed
}

func (db *Database) endTransaction(tx *Transaction) bool {
	if tx.IsAborted() {
		return false
	}
	if len(tx.writeSet) == 0 {
		// Read-only transaction: nothing to validate against concurrent
		// writers beyond what Read already observed under db.mu.
		return true
	}

	writeKeys := make([][]byte, 0, len(tx.writeSet))
	for k := range tx.writeSet {
		writeKeys = append(writeKeys, []byte(k))
	}
	release := db.latches.acquire(writeKeys)
	defer release()

	// Validate and apply under the same write-lock critical section: if
	// they were split across separate RLock/Lock sections, a writer that
	// never touches tx's write-set keys (so never contends on tx's latch
	// stripes) could still slip in between validate and apply and
	// invalidate a key tx read without being caught.
	db.mu.Lock()
	defer db.mu.Unlock()
	if !db.validateLocked(tx) {
		tx.aborted.Store(true)
		return false
	}
	db.applyLocked(tx)
	return true
}

// validateLocked checks that every key tx read still has the version tx
// observed. Must be called with db.mu held for reading.
func (db *Database) validateLocked(tx *Transaction) bool {
	for key, sawVersion := range tx.readSet {
		item := db.tree.Get(&record{key: []byte(key)})
		var curVersion uint64
		if item != nil {
			curVersion = item.(*record).version
		}
		if curVersion != sawVersion {
			return false
		}
	}
	return true
}

// applyLocked publishes tx's write-set, bumping each key's version. Must be
// called with db.mu held for writing.
func (db *Database) applyLocked(tx *Transaction) {
	for key, op := range tx.writeSet {
		existing := db.tree.Get(&record{key: []byte(key)})
		var version uint64
		if existing != nil {
			version = existing.(*record).version
		}
		db.tree.ReplaceOrInsert(&record{
			key:     []byte(key),
			version: version + 1,
			value:   op.value,
			deleted: op.isDelete,
		})
	}
}

// Fence blocks until every transaction currently inside EndTransaction has
// finished validating and applying its writes. It is the engine-level
// counterpart of the FENCE opcode: a barrier with no transactional
// semantics of its own.
func (db *Database) Fence() {
	release := db.latches.acquireAll()
	release()
}
