package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// HeaderSize is the size in bytes of a wire frame's fixed header:
// sender_id(8) + message_type(4) + payload_size(4), all big-endian.
const HeaderSize = 16

// DefaultMaxPayload bounds the payload size the codec will accept; the
// source this protocol is modeled on enforces no cap at all, which this
// implementation treats as a latent bug (see spec notes on OversizedPayload).
const DefaultMaxPayload = 16 * 1024 * 1024

// ErrShortRead is returned when the socket closes mid-header or mid-payload.
var ErrShortRead = errors.New("wire: short read")

// ErrInvalidOpcode is returned when message_type is zero or out of range.
var ErrInvalidOpcode = errors.New("wire: invalid opcode")

// ErrOversizedPayload is returned when payload_size exceeds the configured cap.
var ErrOversizedPayload = errors.New("wire: oversized payload")

// Header is the fixed portion of every frame.
type Header struct {
	SenderID    uint64
	MessageType MessageType
	PayloadSize uint32
}

// ReadHeader blocks until a full header has been read from r, or returns
// ErrShortRead if the peer closes mid-header.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, errors.Wrap(ErrShortRead, err.Error())
	}
	h := Header{
		SenderID:    binary.BigEndian.Uint64(buf[0:8]),
		MessageType: MessageType(binary.BigEndian.Uint32(buf[8:12])),
		PayloadSize: binary.BigEndian.Uint32(buf[12:16]),
	}
	return h, nil
}

// WriteHeader writes h's wire representation to w.
func WriteHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	binary.BigEndian.PutUint64(buf[0:8], h.SenderID)
	binary.BigEndian.PutUint32(buf[8:12], uint32(h.MessageType))
	binary.BigEndian.PutUint32(buf[12:16], h.PayloadSize)
	_, err := w.Write(buf[:])
	return err
}

// ReadPayload reads exactly h.PayloadSize bytes following a header already
// read by ReadHeader, checking the opcode and size cap along the way.
func ReadPayload(r io.Reader, h Header, maxPayload uint32) ([]byte, error) {
	if !h.MessageType.Valid() {
		return nil, errors.Wrapf(ErrInvalidOpcode, "message_type=%d", h.MessageType)
	}
	if maxPayload > 0 && h.PayloadSize > maxPayload {
		return nil, errors.Wrapf(ErrOversizedPayload, "payload_size=%d max=%d", h.PayloadSize, maxPayload)
	}
	if h.PayloadSize == 0 {
		return nil, nil
	}
	payload := make([]byte, h.PayloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(ErrShortRead, err.Error())
	}
	return payload, nil
}

// WriteFrame writes a full frame (header + payload) to w in one call.
func WriteFrame(w io.Writer, senderID uint64, messageType MessageType, payload []byte) error {
	h := Header{SenderID: senderID, MessageType: messageType, PayloadSize: uint32(len(payload))}
	if err := WriteHeader(w, h); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}
