package classfile

import (
	"fmt"
	"math"
)

// MaxCodeLength is the largest method body the format allows.
const MaxCodeLength = math.MaxUint16

// Code is a decoded Code attribute.
type Code struct {
	MaxStack       uint16
	MaxLocals      uint16
	Code           []byte
	ExceptionTable []ExceptionHandler
	Attributes     []*Attribute
}

// ExceptionHandler is one exception table row. Offsets are absolute
// positions in the method's bytecode.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

func parseCode(info []byte) (*Code, error) {
	d := &decoder{buf: info}
	c := &Code{}
	c.MaxStack = d.u2()
	c.MaxLocals = d.u2()
	c.Code = d.bytes(d.length())
	n := int(d.u2())
	for i := 0; i < n && d.err == nil; i++ {
		c.ExceptionTable = append(c.ExceptionTable, ExceptionHandler{
			StartPC:   d.u2(),
			EndPC:     d.u2(),
			HandlerPC: d.u2(),
			CatchType: d.u2(),
		})
	}
	c.Attributes = parseAttributes(d)
	if err := d.finish("Code attribute"); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Code) encode() ([]byte, error) {
	if len(c.Code) == 0 {
		return nil, fmt.Errorf("%w: empty code", ErrMalformed)
	}
	if len(c.Code) > MaxCodeLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrCodeTooLarge, len(c.Code))
	}
	e := &encoder{buf: make([]byte, 0, 12+len(c.Code)+8*len(c.ExceptionTable))}
	e.u2(c.MaxStack)
	e.u2(c.MaxLocals)
	e.u4(uint32(len(c.Code))) //nolint:gosec // bounded by MaxCodeLength
	e.bytes(c.Code)
	if err := e.count(len(c.ExceptionTable), "exception handlers"); err != nil {
		return nil, err
	}
	for _, h := range c.ExceptionTable {
		e.u2(h.StartPC)
		e.u2(h.EndPC)
		e.u2(h.HandlerPC)
		e.u2(h.CatchType)
	}
	if err := encodeAttributes(e, c.Attributes); err != nil {
		return nil, err
	}
	return e.buf, nil
}
