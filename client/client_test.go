package client_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordodb/ordo/client"
	"github.com/ordodb/ordo/internal/engine"
	"github.com/ordodb/ordo/internal/netserver"
)

func startServer(t *testing.T) (addr string, stop func()) {
	db, err := engine.Open("")
	require.NoError(t, err)
	s := netserver.New(db, 0, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr = ln.Addr().String()

	go s.ServeListener(ln) //nolint:errcheck

	return addr, func() { ln.Close() }
}

func TestTransactionWriteReadEndRoundTrip(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	conn, err := client.Dial(addr, 1)
	require.NoError(t, err)
	defer conn.Close()

	tx, err := client.Begin(conn)
	require.NoError(t, err)
	tx.ChooseTable("users")

	require.NoError(t, tx.Write([]byte("1"), []byte("alice")))

	value, found, err := tx.Read([]byte("1"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "alice", string(value))

	committed, err := tx.End(false)
	require.NoError(t, err)
	assert.True(t, committed)
}

func TestReadCacheServesRepeatReadWithoutRoundTrip(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	conn, err := client.Dial(addr, 2)
	require.NoError(t, err)
	defer conn.Close()

	tx, err := client.Begin(conn)
	require.NoError(t, err)
	tx.ChooseTable("users")
	require.NoError(t, tx.Write([]byte("1"), []byte("alice")))

	first, _, err := tx.Read([]byte("1"))
	require.NoError(t, err)
	second, _, err := tx.Read([]byte("1"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	// Both reads are served from the same cached slice, not a fresh response.
	assert.True(t, &first[0] == &second[0])
}

func TestGetAllKeysScopesToTable(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	conn, err := client.Dial(addr, 3)
	require.NoError(t, err)
	defer conn.Close()

	tx, err := client.Begin(conn)
	require.NoError(t, err)
	tx.ChooseTable("users")
	require.NoError(t, tx.Write([]byte("1"), []byte("alice")))
	require.NoError(t, tx.Write([]byte("2"), []byte("bob")))
	tx.ChooseTable("groups")
	require.NoError(t, tx.Write([]byte("1"), []byte("admins")))
	_, err = tx.End(false)
	require.NoError(t, err)

	tx2, err := client.Begin(conn)
	require.NoError(t, err)
	tx2.ChooseTable("users")
	kvs, err := tx2.GetAllKeys()
	require.NoError(t, err)
	assert.Len(t, kvs, 2)
}

func TestGetMatchingKeysKeepsFirstKeyPartInReturnedKey(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	conn, err := client.Dial(addr, 5)
	require.NoError(t, err)
	defer conn.Close()

	tx, err := client.Begin(conn)
	require.NoError(t, err)
	tx.ChooseTable("t")
	require.NoError(t, tx.Write([]byte("a1"), []byte("x")))
	require.NoError(t, tx.Write([]byte("a2"), []byte("y")))
	require.NoError(t, tx.Write([]byte("b1"), []byte("z")))
	_, err = tx.End(false)
	require.NoError(t, err)

	tx2, err := client.Begin(conn)
	require.NoError(t, err)
	tx2.ChooseTable("t")
	kvs, err := tx2.GetMatchingKeys([]byte("a"))
	require.NoError(t, err)
	require.Len(t, kvs, 2)

	gotKeys := map[string]string{}
	for _, kv := range kvs {
		gotKeys[string(kv.Key)] = string(kv.Value)
	}
	assert.Equal(t, "x", gotKeys["a1"])
	assert.Equal(t, "y", gotKeys["a2"])
}

func TestAbortPreventsCommit(t *testing.T) {
	addr, stop := startServer(t)
	defer stop()

	conn, err := client.Dial(addr, 4)
	require.NoError(t, err)
	defer conn.Close()

	tx, err := client.Begin(conn)
	require.NoError(t, err)
	tx.ChooseTable("users")
	require.NoError(t, tx.Write([]byte("1"), []byte("alice")))
	require.NoError(t, tx.Abort())

	committed, err := tx.End(false)
	require.NoError(t, err)
	assert.False(t, committed)
}
