package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// ErrTruncated is returned by Unmarshal when a payload is shorter than its
// own field lengths claim. The dispatcher treats this like any other
// decode failure: a defaulted, "assume aborted" response (see the package
// doc of internal/dispatch).
var ErrTruncated = errors.New("wire: truncated payload")

// encoder builds a payload as a sequence of length-prefixed fields. It is
// the bespoke little-endian schema this protocol uses in place of a
// generated, field-tagged schema encoder (the generator itself is treated
// as an external collaborator the gateway never runs).
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) putInt64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	e.buf.Write(b[:])
}

func (e *encoder) putBool(v bool) {
	if v {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

func (e *encoder) putBytes(v []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v)))
	e.buf.Write(lenBuf[:])
	e.buf.Write(v)
}

func (e *encoder) bytes() []byte {
	return e.buf.Bytes()
}

// decoder reads fields out of a payload in the order an encoder wrote them.
type decoder struct {
	r *bytes.Reader
}

func newDecoder(payload []byte) *decoder {
	return &decoder{r: bytes.NewReader(payload)}
}

func (d *decoder) getInt64() (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, ErrTruncated
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func (d *decoder) getBool() (bool, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return false, ErrTruncated
	}
	return b != 0, nil
}

func (d *decoder) getBytes() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(d.r, lenBuf[:]); err != nil {
		return nil, ErrTruncated
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(d.r, out); err != nil {
		return nil, ErrTruncated
	}
	return out, nil
}
