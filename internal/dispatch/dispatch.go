// Package dispatch implements the gateway's RPC handlers: one function per
// opcode, each decoding a request payload, driving an engine transaction,
// and encoding a response payload. It corresponds to the original's
// per-opcode rpc handler table, generalized from the source engine's own
// request/response types to this package's bespoke wire schema.
//
// A payload that fails to decode is treated the same way a transaction
// that fails validation is: the handler returns a response with IsAborted
// set, rather than propagating a decode error up through the worker and
// connection loop. The protocol has no room in its response schema for a
// "malformed request" error distinct from "transaction aborted", so this
// package folds the two together deliberately rather than inventing an
// out-of-band error channel the wire format doesn't have.
package dispatch

import (
	"github.com/ordodb/ordo/internal/engine"
	"github.com/ordodb/ordo/internal/wire"
)

// Begin starts a new transaction against db and returns its BEGIN response.
func Begin(db *engine.Database) (*engine.Transaction, *wire.BeginResponse) {
	tx := db.BeginTransaction()
	return tx, &wire.BeginResponse{TransactionID: tx.ID()}
}

// Abort aborts tx and returns the ABORT response.
func Abort(tx *engine.Transaction) *wire.AbortResponse {
	tx.Abort()
	return &wire.AbortResponse{}
}

// Read decodes payload, performs the read against tx, and returns the READ
// response. A decode failure is reported as an aborted read rather than
// propagated.
func Read(tx *engine.Transaction, payload []byte) *wire.ReadResponse {
	var req wire.ReadRequest
	if err := req.Unmarshal(payload); err != nil {
		return &wire.ReadResponse{IsAborted: true}
	}
	value, found := tx.Read(req.Key)
	return &wire.ReadResponse{
		Found:     found,
		Value:     value,
		IsAborted: tx.IsAborted(),
	}
}

// Write decodes payload and buffers the write against tx.
func Write(tx *engine.Transaction, payload []byte) *wire.WriteResponse {
	var req wire.WriteRequest
	if err := req.Unmarshal(payload); err != nil {
		return &wire.WriteResponse{IsAborted: true}
	}
	tx.Write(req.Key, req.Value)
	return &wire.WriteResponse{
		Success:   !tx.IsAborted(),
		IsAborted: tx.IsAborted(),
	}
}

// Scan decodes payload and returns every live key/value pair sharing
// DBTableKey+FirstKeyPart as a prefix, with only DBTableKey stripped from
// the keys returned: FirstKeyPart stays part of each returned key, so a
// caller can distinguish which first-key-part matched without having
// tracked it itself (matching the proxy's own table-prefix bookkeeping in
// the client package, where DBTableKey is just "<table>/").
func Scan(tx *engine.Transaction, payload []byte) *wire.ScanResponse {
	var req wire.ScanRequest
	if err := req.Unmarshal(payload); err != nil {
		return &wire.ScanResponse{IsAborted: true}
	}
	prefix := append(append([]byte(nil), req.DBTableKey...), req.FirstKeyPart...)
	results := tx.Scan(prefix)

	kvs := make([]wire.KV, 0, len(results))
	for _, r := range results {
		kvs = append(kvs, wire.KV{
			Key:   r.Key[len(req.DBTableKey):],
			Value: r.Value,
		})
	}
	return &wire.ScanResponse{KeyValues: kvs, IsAborted: tx.IsAborted()}
}

// Fence performs a global barrier against db, with no transactional
// semantics of its own: it only guarantees that every EndTransaction call
// already in flight has finished applying its writes by the time Fence
// returns.
func Fence(db *engine.Database) *wire.FenceResponse {
	db.Fence()
	return &wire.FenceResponse{}
}

// End decodes payload, commits or rolls back tx via EndTransaction, and
// optionally fences the database first if the request asked for it. It
// returns the EndResponse reporting the transaction's final abort state.
func End(db *engine.Database, tx *engine.Transaction, payload []byte) *wire.EndResponse {
	var req wire.EndRequest
	if err := req.Unmarshal(payload); err != nil {
		tx.Abort()
		db.EndTransaction(tx, nil)
		return &wire.EndResponse{IsAborted: true}
	}
	if req.Fence {
		db.Fence()
	}
	db.EndTransaction(tx, nil)
	return &wire.EndResponse{IsAborted: tx.IsAborted()}
}
