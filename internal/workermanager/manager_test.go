package workermanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordodb/ordo/internal/engine"
	"github.com/ordodb/ordo/internal/wire"
)

func newManager(t *testing.T) *Manager {
	db, err := engine.Open("")
	require.NoError(t, err)
	return New(db)
}

func TestBeginReadWriteEndFlow(t *testing.T) {
	m := newManager(t)

	beginResp := m.Dispatch(wire.Begin, nil)
	var begin wire.BeginResponse
	require.NoError(t, begin.Unmarshal(beginResp))

	writeResp := m.Dispatch(wire.Write, (&wire.WriteRequest{
		TransactionID: begin.TransactionID,
		Key:           []byte("k"),
		Value:         []byte("v"),
	}).Marshal())
	var write wire.WriteResponse
	require.NoError(t, write.Unmarshal(writeResp))
	assert.True(t, write.Success)

	readResp := m.Dispatch(wire.Read, (&wire.ReadRequest{
		TransactionID: begin.TransactionID,
		Key:           []byte("k"),
	}).Marshal())
	var read wire.ReadResponse
	require.NoError(t, read.Unmarshal(readResp))
	assert.True(t, read.Found)
	assert.Equal(t, "v", string(read.Value))

	endResp := m.Dispatch(wire.End, (&wire.EndRequest{TransactionID: begin.TransactionID}).Marshal())
	var end wire.EndResponse
	require.NoError(t, end.Unmarshal(endResp))
	assert.False(t, end.IsAborted)
}

func TestUnknownTransactionIDReportsAborted(t *testing.T) {
	m := newManager(t)
	resp := m.Dispatch(wire.Read, (&wire.ReadRequest{TransactionID: 999, Key: []byte("k")}).Marshal())
	var read wire.ReadResponse
	require.NoError(t, read.Unmarshal(resp))
	assert.True(t, read.IsAborted)
}

func TestEndRemovesWorkerFromTable(t *testing.T) {
	m := newManager(t)
	beginResp := m.Dispatch(wire.Begin, nil)
	var begin wire.BeginResponse
	require.NoError(t, begin.Unmarshal(beginResp))

	m.Dispatch(wire.End, (&wire.EndRequest{TransactionID: begin.TransactionID}).Marshal())

	m.mu.Lock()
	_, stillThere := m.workers[begin.TransactionID]
	m.mu.Unlock()
	assert.False(t, stillThere)

	// A second read against the same, now-finished transaction id must be
	// reported as aborted rather than panicking or hanging.
	resp := m.Dispatch(wire.Read, (&wire.ReadRequest{TransactionID: begin.TransactionID, Key: []byte("k")}).Marshal())
	var read wire.ReadResponse
	require.NoError(t, read.Unmarshal(resp))
	assert.True(t, read.IsAborted)
}

func TestFenceRespondsWithoutTransaction(t *testing.T) {
	m := newManager(t)
	resp := m.Dispatch(wire.Fence, nil)
	var fence wire.FenceResponse
	assert.NoError(t, fence.Unmarshal(resp))
}

func TestTeardownAbortsOpenTransactions(t *testing.T) {
	m := newManager(t)
	beginResp := m.Dispatch(wire.Begin, nil)
	var begin wire.BeginResponse
	require.NoError(t, begin.Unmarshal(beginResp))
	tx, ok := m.registry.Get(begin.TransactionID)
	require.True(t, ok)

	m.Teardown()

	m.mu.Lock()
	count := len(m.workers)
	m.mu.Unlock()
	assert.Equal(t, 0, count)
	assert.True(t, tx.IsAborted())
}
