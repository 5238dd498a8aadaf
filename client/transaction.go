package client

import (
	"github.com/ordodb/ordo/internal/wire"
)

// Transaction is the client-side proxy for one open server-side
// transaction. It adds two things a raw Conn doesn't have: table-name
// prefixing (ChooseTable prepends "<table>/" to every key so distinct
// tables never collide in the shared keyspace) and a statement-scoped
// read cache.
//
// The read cache exists for the same reason the original in-process
// client needed one: code that calls Read and keeps the returned byte
// slice around across statement boundaries relies on that slice still
// being valid and unchanged later in the same transaction. Caching the
// last value seen per key, and serving repeat reads of an
// already-cached key from that cache, preserves that stability without
// requiring a round trip to re-fetch a value the transaction already
// knows about.
type Transaction struct {
	conn           *Conn
	id             int64
	table          string
	aborted        bool
	statementCache map[string][]byte
}

// Begin opens a new transaction on conn.
func Begin(conn *Conn) (*Transaction, error) {
	payload, err := conn.sendRequest(wire.Begin, (&wire.BeginRequest{}).Marshal())
	if err != nil {
		return nil, err
	}
	var resp wire.BeginResponse
	if err := resp.Unmarshal(payload); err != nil {
		return nil, err
	}
	return &Transaction{
		conn:           conn,
		id:             resp.TransactionID,
		statementCache: make(map[string][]byte),
	}, nil
}

// ChooseTable scopes every subsequent key this Transaction touches under
// table, and clears the statement-scoped read cache: a new table means a
// new statement context, per the original proxy's own reset-on-retarget
// behavior.
func (t *Transaction) ChooseTable(table string) {
	t.table = table
	t.statementCache = make(map[string][]byte)
}

func (t *Transaction) tableKey(key []byte) []byte {
	prefix := make([]byte, 0, len(t.table)+1+len(key))
	prefix = append(prefix, t.table...)
	prefix = append(prefix, '/')
	prefix = append(prefix, key...)
	return prefix
}

// IsAborted reports whether the server has reported this transaction as
// aborted at any point so far.
func (t *Transaction) IsAborted() bool { return t.aborted }

// SetStatusToAbort marks the transaction aborted locally, short-circuiting
// further RPCs the same way the server itself does once a commit
// validation has failed. It does not by itself notify the server; call
// Abort or End to do that.
func (t *Transaction) SetStatusToAbort() { t.aborted = true }

// Read returns the value stored at key, preferring the statement-scoped
// cache. found is false if the key has no value.
func (t *Transaction) Read(key []byte) (value []byte, found bool, err error) {
	if t.aborted {
		return nil, false, nil
	}
	cacheKey := string(t.tableKey(key))
	if cached, ok := t.statementCache[cacheKey]; ok {
		return cached, cached != nil, nil
	}

	req := &wire.ReadRequest{TransactionID: t.id, Key: t.tableKey(key)}
	payload, err := t.conn.sendRequest(wire.Read, req.Marshal())
	if err != nil {
		return nil, false, err
	}
	var resp wire.ReadResponse
	if err := resp.Unmarshal(payload); err != nil {
		return nil, false, err
	}
	t.aborted = t.aborted || resp.IsAborted
	if resp.Found {
		t.statementCache[cacheKey] = resp.Value
		return resp.Value, true, nil
	}
	t.statementCache[cacheKey] = nil
	return nil, false, nil
}

// Write stores value at key and records it in that key's statement cache
// entry so a later Read in the same statement observes it. An empty value
// is recorded as absent, since the server treats it as a delete.
func (t *Transaction) Write(key, value []byte) error {
	if t.aborted {
		return nil
	}
	req := &wire.WriteRequest{TransactionID: t.id, Key: t.tableKey(key), Value: value}
	payload, err := t.conn.sendRequest(wire.Write, req.Marshal())
	if err != nil {
		return err
	}
	var resp wire.WriteResponse
	if err := resp.Unmarshal(payload); err != nil {
		return err
	}
	t.aborted = t.aborted || resp.IsAborted
	if len(value) == 0 {
		t.statementCache[string(t.tableKey(key))] = nil
	} else {
		t.statementCache[string(t.tableKey(key))] = value
	}
	return nil
}

// Delete removes key, recorded on the wire as a write of an empty value —
// the protocol has no separate delete opcode.
func (t *Transaction) Delete(key []byte) error {
	return t.Write(key, nil)
}

// KV is one key/value pair returned by a scan, with the current table's
// prefix already stripped from Key.
type KV struct {
	Key   []byte
	Value []byte
}

// scan issues a SCAN for every key under the current table sharing
// firstKeyPart as an additional prefix.
func (t *Transaction) scan(firstKeyPart []byte) ([]KV, error) {
	if t.aborted {
		return nil, nil
	}
	req := &wire.ScanRequest{
		TransactionID: t.id,
		DBTableKey:    []byte(t.table + "/"),
		FirstKeyPart:  firstKeyPart,
	}
	payload, err := t.conn.sendRequest(wire.Scan, req.Marshal())
	if err != nil {
		return nil, err
	}
	var resp wire.ScanResponse
	if err := resp.Unmarshal(payload); err != nil {
		return nil, err
	}
	t.aborted = t.aborted || resp.IsAborted

	out := make([]KV, 0, len(resp.KeyValues))
	for _, kv := range resp.KeyValues {
		out = append(out, KV{Key: kv.Key, Value: kv.Value})
	}
	return out, nil
}

// GetAllKeys returns every key/value pair currently stored under the
// current table.
func (t *Transaction) GetAllKeys() ([]KV, error) {
	return t.scan(nil)
}

// GetMatchingKeys returns every key/value pair under the current table
// whose key starts with prefix.
func (t *Transaction) GetMatchingKeys(prefix []byte) ([]KV, error) {
	return t.scan(prefix)
}

// Abort tells the server to abort this transaction.
func (t *Transaction) Abort() error {
	req := &wire.AbortRequest{TransactionID: t.id}
	_, err := t.conn.sendRequest(wire.Abort, req.Marshal())
	t.aborted = true
	return err
}

// End commits (or, if the transaction was already aborted, rolls back) the
// transaction. If fence is true, the server performs a global barrier
// before applying this transaction's writes.
func (t *Transaction) End(fence bool) (committed bool, err error) {
	req := &wire.EndRequest{TransactionID: t.id, Fence: fence}
	payload, err := t.conn.sendRequest(wire.End, req.Marshal())
	if err != nil {
		return false, err
	}
	var resp wire.EndResponse
	if err := resp.Unmarshal(payload); err != nil {
		return false, err
	}
	t.aborted = resp.IsAborted
	return !resp.IsAborted, nil
}

// Fence issues a standalone FENCE RPC, not tied to any transaction.
func Fence(conn *Conn) error {
	_, err := conn.sendRequest(wire.Fence, (&wire.FenceRequest{}).Marshal())
	return err
}
