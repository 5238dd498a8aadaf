// Package wire implements the gateway's length-prefixed binary RPC
// protocol: a fixed 16-byte header followed by an opaque, schema-encoded
// payload. See the MessageType values below for the opcode numbering.
package wire

// MessageType identifies the RPC carried by one frame. This is the
// "newer" opcode set described in the protocol notes: IsAborted is folded
// into every data-plane response instead of being a distinct opcode.
type MessageType uint32

const (
	Unknown MessageType = 0
	Begin   MessageType = 1
	Abort   MessageType = 2
	Read    MessageType = 3
	Write   MessageType = 4
	Scan    MessageType = 5
	Fence   MessageType = 6
	End     MessageType = 7
)

func (t MessageType) String() string {
	switch t {
	case Unknown:
		return "UNKNOWN"
	case Begin:
		return "BEGIN"
	case Abort:
		return "ABORT"
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	case Scan:
		return "SCAN"
	case Fence:
		return "FENCE"
	case End:
		return "END"
	default:
		return "INVALID"
	}
}

// Valid reports whether t is one of the enumerated opcodes other than the
// UNKNOWN sentinel.
func (t MessageType) Valid() bool {
	return t >= Begin && t <= End
}

// BoundToTransaction reports whether the opcode carries a transaction id
// as its first schema field and must be routed to an existing worker
// rather than a new or ad-hoc one.
func (t MessageType) BoundToTransaction() bool {
	switch t {
	case Abort, Read, Write, Scan, End:
		return true
	default:
		return false
	}
}
