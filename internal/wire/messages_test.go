package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{SenderID: 42, MessageType: Read, PayloadSize: 7}
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, h))
	got, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestReadHeaderShortRead(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte{1, 2, 3}))
	require.Error(t, err)
}

func TestReadPayloadInvalidOpcode(t *testing.T) {
	h := Header{MessageType: 99, PayloadSize: 0}
	_, err := ReadPayload(bytes.NewReader(nil), h, DefaultMaxPayload)
	require.Error(t, err)
}

func TestReadPayloadOversized(t *testing.T) {
	h := Header{MessageType: Read, PayloadSize: 100}
	_, err := ReadPayload(bytes.NewReader(make([]byte, 100)), h, 10)
	require.Error(t, err)
}

func TestReadWriteRoundTrip(t *testing.T) {
	req := &WriteRequest{TransactionID: 5, Key: []byte("t/a"), Value: []byte("1")}
	payload := req.Marshal()

	var got WriteRequest
	require.NoError(t, got.Unmarshal(payload))
	assert.Equal(t, *req, got)
}

func TestScanResponseRoundTrip(t *testing.T) {
	resp := &ScanResponse{
		KeyValues: []KV{
			{Key: []byte("a1"), Value: []byte("x")},
			{Key: []byte("a2"), Value: []byte("y")},
		},
		IsAborted: false,
	}
	payload := resp.Marshal()

	var got ScanResponse
	require.NoError(t, got.Unmarshal(payload))
	assert.Equal(t, resp.IsAborted, got.IsAborted)
	require.Len(t, got.KeyValues, 2)
	assert.Equal(t, "a1", string(got.KeyValues[0].Key))
	assert.Equal(t, "x", string(got.KeyValues[0].Value))
}

func TestScanResponseEmpty(t *testing.T) {
	resp := &ScanResponse{IsAborted: true}
	payload := resp.Marshal()

	var got ScanResponse
	require.NoError(t, got.Unmarshal(payload))
	assert.Empty(t, got.KeyValues)
	assert.True(t, got.IsAborted)
}

func TestPeekTransactionID(t *testing.T) {
	req := &ReadRequest{TransactionID: 123, Key: []byte("k")}
	id, err := PeekTransactionID(req.Marshal())
	require.NoError(t, err)
	assert.EqualValues(t, 123, id)
}

func TestUnmarshalTruncated(t *testing.T) {
	var got ReadRequest
	err := got.Unmarshal([]byte{1, 2, 3})
	require.Error(t, err)
}
