// Package codec provides the explicit, byte-deterministic binary framing
// shared by the log entry encoding and the snapshot format (§6). It
// deliberately avoids reflection-based encoders (gob, json) whose wire
// shape is not pinned across struct field reordering.
package codec

import (
	"encoding/binary"
	"fmt"
	"io"

	dec "github.com/abdoElHodaky/tradSys/internal/engine/decimal"
)

// Writer appends primitives to an in-memory byte buffer in a fixed,
// explicit layout.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) WriteUint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

// WriteBytes writes a u32 length prefix followed by the raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteString writes a u32 length prefix followed by the UTF-8 bytes.
func (w *Writer) WriteString(s string) { w.WriteBytes([]byte(s)) }

// WriteDecimal writes a Decimal via its binary marshaler, which encodes
// the exact (coefficient, exponent) pair -- no precision loss, no
// string-parsing ambiguity across locales.
func (w *Writer) WriteDecimal(d dec.Decimal) error {
	b, err := d.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal decimal: %w", err)
	}
	w.WriteBytes(b)
	return nil
}

// Reader consumes primitives from a byte slice in the same fixed layout
// Writer produces.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(b []byte) *Reader { return &Reader{buf: b} }

func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	return v != 0, err
}

func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return b, nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ReadDecimal() (dec.Decimal, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return dec.Zero, err
	}
	var d dec.Decimal
	if err := d.UnmarshalBinary(b); err != nil {
		return dec.Zero, fmt.Errorf("unmarshal decimal: %w", err)
	}
	return d, nil
}
