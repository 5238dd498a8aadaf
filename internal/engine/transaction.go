package engine

import (
	"bytes"
	"sort"

	"github.com/google/btree"
	"go.uber.org/atomic"
)

// writeOp is a single buffered write. isDelete marks a tombstone; Write
// turns a zero-length value into one, so an op with isDelete unset always
// carries a non-empty value.
type writeOp struct {
	value    []byte
	isDelete bool
}

// Transaction is a single optimistic transaction. It is not safe for
// concurrent use: the worker that owns it (internal/worker) already
// guarantees a transaction is only ever touched by one goroutine at a
// time.
type Transaction struct {
	db      *Database
	id      int64
	aborted atomic.Bool

	// readSet remembers, for every key Read has observed, the version it
	// was at when read. EndTransaction revalidates these at commit time.
	readSet map[string]uint64

	// writeSet buffers uncommitted writes so a transaction's own later
	// reads see its own prior writes without touching db.tree.
	writeSet map[string]writeOp
}

// ID returns the transaction's identifier, used by the worker manager and
// dispatcher for routing and logging; it is distinct from the connection
// sender id carried on the wire.
func (tx *Transaction) ID() int64 { return tx.id }

// Read returns the current value of key, preferring tx's own uncommitted
// write over the committed keyspace (read-your-writes). found is false if
// the key has never been written, or has been deleted by this or an
// already-applied transaction.
func (tx *Transaction) Read(key []byte) (value []byte, found bool) {
	if tx.IsAborted() {
		return nil, false
	}
	k := string(key)
	if op, ok := tx.writeSet[k]; ok {
		if op.isDelete {
			return nil, false
		}
		return op.value, true
	}

	tx.db.mu.RLock()
	defer tx.db.mu.RUnlock()
	item := tx.db.tree.Get(&record{key: key})
	if item == nil {
		if _, seen := tx.readSet[k]; !seen {
			tx.readSet[k] = 0
		}
		return nil, false
	}
	rec := item.(*record)
	if _, seen := tx.readSet[k]; !seen {
		tx.readSet[k] = rec.version
	}
	if rec.deleted {
		return nil, false
	}
	return rec.value, true
}

// Write buffers value for key. The write only becomes visible to other
// transactions once EndTransaction successfully validates and commits. A
// nil or zero-length value is treated as a delete: the protocol has no
// separate delete opcode, so an empty value is how callers ask for a
// tombstone instead of a present-but-empty record.
func (tx *Transaction) Write(key, value []byte) {
	if tx.IsAborted() {
		return
	}
	if len(value) == 0 {
		tx.Delete(key)
		return
	}
	tx.writeSet[string(key)] = writeOp{value: value}
}

// Delete buffers a tombstone for key.
func (tx *Transaction) Delete(key []byte) {
	if tx.IsAborted() {
		return
	}
	tx.writeSet[string(key)] = writeOp{isDelete: true}
}

// ScanResult is one key/value pair yielded by Scan.
type ScanResult struct {
	Key   []byte
	Value []byte
}

// Scan returns every live key in [prefix, succKey(prefix)) — i.e. every key
// sharing prefix as a prefix — merging tx's own uncommitted write-set over
// the committed keyspace. Results are returned in key order.
//
// Every key the scan visits in the committed keyspace is added to tx's
// read-set at its observed version, exactly like Read, so a concurrent
// commit that changes or deletes one of those keys fails tx's commit-time
// validation. A key inserted into the range after the scan is not in the
// read-set and is not detected (phantoms are not prevented).
func (tx *Transaction) Scan(prefix []byte) []ScanResult {
	if tx.IsAborted() {
		return nil
	}
	upper := succKey(prefix)
	inRange := func(key []byte) bool {
		if bytes.Compare(key, prefix) < 0 {
			return false
		}
		return upper == nil || bytes.Compare(key, upper) < 0
	}

	merged := make(map[string]ScanResult)

	tx.db.mu.RLock()
	visit := func(item btree.Item) bool {
		rec := item.(*record)
		if !inRange(rec.key) {
			return false
		}
		k := string(rec.key)
		if _, seen := tx.readSet[k]; !seen {
			tx.readSet[k] = rec.version
		}
		if !rec.deleted {
			merged[k] = ScanResult{Key: append([]byte(nil), rec.key...), Value: append([]byte(nil), rec.value...)}
		}
		return true
	}
	tx.db.tree.AscendGreaterOrEqual(&record{key: prefix}, visit)
	tx.db.mu.RUnlock()

	for k, op := range tx.writeSet {
		if !inRange([]byte(k)) {
			continue
		}
		if op.isDelete {
			delete(merged, k)
			continue
		}
		merged[k] = ScanResult{Key: []byte(k), Value: op.value}
	}

	out := make([]ScanResult, 0, len(merged))
	for _, v := range merged {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out
}

// Abort marks tx as aborted. Further Read/Write/Scan calls become no-ops
// and EndTransaction will report it as uncommitted.
func (tx *Transaction) Abort() {
	tx.aborted.Store(true)
}

// IsAborted reports whether tx has been aborted, either explicitly via
// Abort or because EndTransaction's validation failed.
func (tx *Transaction) IsAborted() bool {
	return tx.aborted.Load()
}
