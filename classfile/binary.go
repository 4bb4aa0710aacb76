package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// decoder reads big-endian values from a buffer. The first error sticks;
// later reads return zero values so callers can check once at the end.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if n < 0 || len(d.buf)-d.off < n {
		d.fail(fmt.Errorf("%w: need %d bytes at offset %d", ErrTruncated, n, d.off))
		return false
	}
	return true
}

func (d *decoder) u1() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.buf[d.off]
	d.off++
	return v
}

func (d *decoder) u2() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v
}

func (d *decoder) u4() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

// length reads a u4 length and converts it to int.
func (d *decoder) length() int {
	n := d.u4()
	if uint64(n) > math.MaxInt32 {
		d.fail(fmt.Errorf("%w: length %d", ErrMalformed, n))
		return 0
	}
	return int(n)
}

// bytes returns a copy of the next n bytes.
func (d *decoder) bytes(n int) []byte {
	if !d.need(n) {
		return nil
	}
	out := make([]byte, n)
	copy(out, d.buf[d.off:])
	d.off += n
	return out
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

// finish reports the sticky error or trailing bytes.
func (d *decoder) finish(what string) error {
	if d.err != nil {
		return fmt.Errorf("%s: %w", what, d.err)
	}
	if n := d.remaining(); n > 0 {
		return fmt.Errorf("%w: %s has %d trailing bytes", ErrMalformed, what, n)
	}
	return nil
}

type encoder struct {
	buf []byte
}

func (e *encoder) u1(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *encoder) u2(v uint16) {
	e.buf = binary.BigEndian.AppendUint16(e.buf, v)
}

func (e *encoder) u4(v uint32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
}

func (e *encoder) bytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// count writes a u2 element count, failing if n does not fit.
func (e *encoder) count(n int, what string) error {
	if n > math.MaxUint16 {
		return fmt.Errorf("%w: %d %s", ErrMalformed, n, what)
	}
	e.u2(uint16(n))
	return nil
}
