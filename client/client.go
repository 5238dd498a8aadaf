// Package client is the gateway's client-side library: a socket wrapper
// that speaks the same length-prefixed framing as internal/wire, and a
// transaction proxy (Transaction) built on top of it that adds table-name
// prefixing and a statement-scoped read cache, mirroring the original
// proxy library's split between a raw connection and the higher-level
// transaction object application code actually calls.
package client

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/ordodb/ordo/internal/wire"
)

// Conn is a single connection to an ordo-server, framing requests and
// responses the way internal/netserver expects.
type Conn struct {
	conn     net.Conn
	senderID uint64
}

// Dial connects to an ordo-server at addr. senderID identifies this client
// across the lifetime of the connection; it is echoed back unchanged in
// every response header.
func Dial(addr string, senderID uint64) (*Conn, error) {
	nc, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &Conn{conn: nc, senderID: senderID}, nil
}

// DialAuto is Dial with a locally-generated sender id, for callers — like
// the ordo-cli REPL — that have no natural id of their own to use.
func DialAuto(addr string) (*Conn, error) {
	return Dial(addr, nextSenderID())
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// sendRequest writes one frame and blocks for its response payload. The
// protocol is strictly request/response per connection: Conn never has
// more than one request in flight, so there is no need to match responses
// to requests by id.
func (c *Conn) sendRequest(messageType wire.MessageType, payload []byte) ([]byte, error) {
	if err := wire.WriteFrame(c.conn, c.senderID, messageType, payload); err != nil {
		return nil, err
	}
	header, err := wire.ReadHeader(c.conn)
	if err != nil {
		return nil, err
	}
	return wire.ReadPayload(c.conn, header, wire.DefaultMaxPayload)
}

var localSenderSeq uint64

// nextSenderID hands out a locally-unique sender id when the caller has no
// id of its own to use, e.g. the ordo-cli REPL.
func nextSenderID() uint64 {
	return atomic.AddUint64(&localSenderSeq, 1)
}
