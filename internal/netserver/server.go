// Package netserver accepts TCP connections and runs the gateway's
// message loop over each one: read a frame header, read its payload,
// dispatch it, write the response frame, repeat until the connection
// closes. It is modeled on the original's raw-socket accept loop, adapted
// from blocking recv/send calls with MSG_PEEK framing to Go's io.Reader
// framing over net.Conn.
package netserver

import (
	"io"
	"net"
	"time"

	"github.com/ngaut/log"

	"github.com/ordodb/ordo/internal/engine"
	"github.com/ordodb/ordo/internal/wire"
	"github.com/ordodb/ordo/internal/workermanager"
)

// acceptRetryDelay is how long Serve waits before retrying Accept after a
// transient error, mirroring the short fixed backoff the original accept
// loop uses rather than growing it on repeated failures.
const acceptRetryDelay = 100 * time.Millisecond

// Server accepts connections and runs one message loop per connection
// against a shared Database.
type Server struct {
	db         *engine.Database
	maxPayload uint32
	onFrame    func(messageType wire.MessageType, elapsed time.Duration)
}

// New returns a Server backed by db. maxPayload bounds a single frame's
// payload size; 0 means DefaultMaxPayload. onFrame, if non-nil, is invoked
// after every dispatched frame for profiling (see internal/profiling) and
// must return quickly since it runs on the connection's own goroutine.
func New(db *engine.Database, maxPayload uint32, onFrame func(wire.MessageType, time.Duration)) *Server {
	if maxPayload == 0 {
		maxPayload = wire.DefaultMaxPayload
	}
	return &Server{db: db, maxPayload: maxPayload, onFrame: onFrame}
}

// Serve listens on addr and blocks, accepting connections until the
// listener itself errors out unrecoverably. Each accepted connection gets
// its own goroutine; Serve does not wait for them, matching the original
// gateway's fire-and-forget connection handling — the process is expected
// to exit, not to drain in-flight connections, when it shuts down.
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	return s.ServeListener(ln)
}

// ServeListener is Serve for a listener the caller has already bound,
// useful for tests that need to know the ephemeral port before the
// accept loop starts.
func (s *Server) ServeListener(ln net.Listener) error {
	log.Infof("ordo: listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				log.Warnf("ordo: transient accept error: %v", err)
				time.Sleep(acceptRetryDelay)
				continue
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// handleConn runs one connection's strictly sequential message loop:
// there is no pipelining at the frame level, since the protocol is
// synchronous request/response per sender.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	manager := workermanager.New(s.db)
	defer manager.Teardown()

	for {
		header, err := wire.ReadHeader(conn)
		if err != nil {
			if err != io.EOF {
				log.Debugf("ordo: connection %s closed: %v", conn.RemoteAddr(), err)
			}
			return
		}

		payload, err := wire.ReadPayload(conn, header, s.maxPayload)
		if err != nil {
			log.Warnf("ordo: connection %s: %v", conn.RemoteAddr(), err)
			return
		}

		start := time.Now()
		respPayload := manager.Dispatch(header.MessageType, payload)
		if s.onFrame != nil {
			s.onFrame(header.MessageType, time.Since(start))
		}

		if err := wire.WriteFrame(conn, header.SenderID, header.MessageType, respPayload); err != nil {
			log.Warnf("ordo: connection %s: write failed: %v", conn.RemoteAddr(), err)
			return
		}
	}
}
