package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
)

// reader is a big-endian cursor with a sticky error: once a read runs past
// the end every later read returns zero and err stays set.
type reader struct {
	b   []byte
	off int
	err error
}

func newReader(b []byte) *reader {
	return &reader{b: b}
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = &offsetError{off: r.off, err: err}
	}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.off+n > len(r.b) {
		r.fail(ErrTruncated)
		return false
	}
	return true
}

func (r *reader) u1() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.b[r.off]
	r.off++
	return v
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.b[r.off:])
	r.off += 2
	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *reader) u8() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.b[r.off:])
	r.off += 8
	return v
}

// bytes returns a copy so that the model never aliases the input buffer.
func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	out := append([]byte(nil), r.b[r.off:r.off+n]...)
	r.off += n
	return out
}

func (r *reader) remaining() int {
	return len(r.b) - r.off
}

// writer accumulates big-endian output. Length prefixes go through safecast
// so that an oversized table is reported instead of silently truncated.
type writer struct {
	buf bytes.Buffer
	err error
}

func (w *writer) u1(v uint8) {
	w.buf.WriteByte(v)
}

func (w *writer) u2(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) u4(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) u8(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) raw(b []byte) {
	w.buf.Write(b)
}

// count writes n as a u2 table length.
func (w *writer) count(n int, what string) {
	v, err := safecast.Conv[uint16](n)
	if err != nil {
		w.setErr(fmt.Errorf("classfile: %s count %d: %w", what, n, err))
		return
	}
	w.u2(v)
}

// length writes n as a u4 attribute length.
func (w *writer) length(n int, what string) {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		w.setErr(fmt.Errorf("classfile: %s length %d: %w", what, n, err))
		return
	}
	w.u4(v)
}

func (w *writer) setErr(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}
