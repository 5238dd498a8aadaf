package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordodb/ordo/internal/engine"
	"github.com/ordodb/ordo/internal/wire"
)

func newDB(t *testing.T) *engine.Database {
	db, err := engine.Open("")
	require.NoError(t, err)
	return db
}

func TestBeginAssignsTransactionID(t *testing.T) {
	db := newDB(t)
	tx, resp := Begin(db)
	assert.Equal(t, tx.ID(), resp.TransactionID)
}

func TestWriteThenReadWithinTransaction(t *testing.T) {
	db := newDB(t)
	tx, _ := Begin(db)

	writeReq := &wire.WriteRequest{TransactionID: tx.ID(), Key: []byte("k"), Value: []byte("v")}
	writeResp := Write(tx, writeReq.Marshal())
	require.True(t, writeResp.Success)
	require.False(t, writeResp.IsAborted)

	readReq := &wire.ReadRequest{TransactionID: tx.ID(), Key: []byte("k")}
	readResp := Read(tx, readReq.Marshal())
	assert.True(t, readResp.Found)
	assert.Equal(t, "v", string(readResp.Value))
}

func TestReadMalformedPayloadReportsAborted(t *testing.T) {
	db := newDB(t)
	tx, _ := Begin(db)
	resp := Read(tx, []byte{1, 2})
	assert.True(t, resp.IsAborted)
}

func TestAbortMarksTransaction(t *testing.T) {
	db := newDB(t)
	tx, _ := Begin(db)
	resp := Abort(tx)
	assert.NotNil(t, resp)
	assert.True(t, tx.IsAborted())
}

func TestScanStripsTablePrefix(t *testing.T) {
	db := newDB(t)
	seed, _ := Begin(db)
	Write(seed, (&wire.WriteRequest{Key: []byte("users/1"), Value: []byte("alice")}).Marshal())
	Write(seed, (&wire.WriteRequest{Key: []byte("users/2"), Value: []byte("bob")}).Marshal())
	End(db, seed, (&wire.EndRequest{}).Marshal())

	tx, _ := Begin(db)
	scanReq := &wire.ScanRequest{DBTableKey: []byte("users/"), FirstKeyPart: nil}
	resp := Scan(tx, scanReq.Marshal())
	require.Len(t, resp.KeyValues, 2)
	assert.Equal(t, "1", string(resp.KeyValues[0].Key))
	assert.Equal(t, "alice", string(resp.KeyValues[0].Value))
}

func TestEndCommitsTransaction(t *testing.T) {
	db := newDB(t)
	tx, _ := Begin(db)
	Write(tx, (&wire.WriteRequest{Key: []byte("k"), Value: []byte("v")}).Marshal())

	resp := End(db, tx, (&wire.EndRequest{TransactionID: tx.ID()}).Marshal())
	assert.False(t, resp.IsAborted)

	verify, _ := Begin(db)
	readResp := Read(verify, (&wire.ReadRequest{Key: []byte("k")}).Marshal())
	assert.True(t, readResp.Found)
}

func TestFenceReturnsResponse(t *testing.T) {
	db := newDB(t)
	resp := Fence(db)
	assert.NotNil(t, resp)
}
