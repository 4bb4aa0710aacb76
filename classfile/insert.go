package classfile

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// InsertBefore places prologue ahead of the first instruction of m.
//
// prologue must be straight-line code that falls through with an empty
// operand stack, does not touch local variables, and needs at most stack
// operand slots. It is padded with nop to a multiple of four bytes.
func (cf *ClassFile) InsertBefore(m *Member, prologue []byte, stack uint16) error {
	if len(prologue) == 0 {
		return nil
	}
	if err := Walk(prologue, nil); err != nil {
		return fmt.Errorf("prologue: %w", err)
	}
	code, err := cf.Code(m)
	if err != nil {
		return err
	}

	shift := (len(prologue) + 3) &^ 3
	if shift+len(code.Code) > MaxCodeLength {
		return fmt.Errorf("%w: %s would be %d bytes", ErrCodeTooLarge, cf.MemberName(m), shift+len(code.Code))
	}
	body := make([]byte, 0, shift+len(code.Code))
	body = append(body, prologue...)
	for len(body) < shift {
		body = append(body, OpNop)
	}
	body = append(body, code.Code...)
	if err := Walk(body, nil); err != nil {
		return fmt.Errorf("code of %s: %w", cf.MemberName(m), err)
	}

	delta := uint16(shift) //nolint:gosec // bounded by MaxCodeLength
	code.Code = body
	code.MaxStack = max(code.MaxStack, stack)
	for i := range code.ExceptionTable {
		h := &code.ExceptionTable[i]
		h.StartPC += delta
		h.EndPC += delta
		h.HandlerPC += delta
	}
	for _, a := range code.Attributes {
		var err error
		switch cf.Pool.text(a.NameIndex) {
		case AttrLineNumberTable:
			a.Info, err = shiftLineNumbers(a.Info, delta)
		case AttrLocalVariableTable, AttrLocalVariableTypeTable:
			a.Info, err = shiftLocalVariables(a.Info, delta)
		case AttrStackMapTable:
			a.Info, err = shiftStackMap(a.Info, delta)
		case AttrRuntimeVisibleTypeAnnotations, AttrRuntimeInvisibleTypeAnnotations:
			a.Info, err = shiftTypeAnnotations(a.Info, delta)
		}
		if err != nil {
			return fmt.Errorf("code of %s: %w", cf.MemberName(m), err)
		}
	}
	return cf.SetCode(m, code)
}

// shiftLineNumbers moves every entry by delta except one anchored at 0, which
// then also covers the prologue.
func shiftLineNumbers(info []byte, delta uint16) ([]byte, error) {
	d := &decoder{buf: info}
	e := &encoder{buf: make([]byte, 0, len(info))}
	n := d.u2()
	e.u2(n)
	for i := 0; i < int(n) && d.err == nil; i++ {
		pc := d.u2()
		line := d.u2()
		if pc != 0 {
			pc += delta
		}
		e.u2(pc)
		e.u2(line)
	}
	if err := d.finish(AttrLineNumberTable); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// shiftLocalVariables moves every range by delta. Ranges starting at 0 stay
// anchored there and grow by delta, since parameters are live on entry.
func shiftLocalVariables(info []byte, delta uint16) ([]byte, error) {
	d := &decoder{buf: info}
	e := &encoder{buf: make([]byte, 0, len(info))}
	n := d.u2()
	e.u2(n)
	for i := 0; i < int(n) && d.err == nil; i++ {
		start := d.u2()
		length := d.u2()
		if start == 0 {
			length += delta
		} else {
			start += delta
		}
		e.u2(start)
		e.u2(length)
		e.u2(d.u2()) // name
		e.u2(d.u2()) // descriptor or signature
		e.u2(d.u2()) // slot
	}
	if err := d.finish("local variable table"); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// shiftStackMap moves the first frame by delta (later frames are relative to
// it) and every uninitialized type, whose index is an absolute offset.
func shiftStackMap(info []byte, delta uint16) ([]byte, error) {
	frames, err := parseStackMapTable(info)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return info, nil
	}
	frames[0].OffsetDelta += delta
	for i := range frames {
		shiftUninitialized(frames[i].Locals, delta)
		shiftUninitialized(frames[i].Stack, delta)
	}
	return encodeStackMapTable(frames)
}

func shiftUninitialized(types []VerificationType, delta uint16) {
	for i := range types {
		if types[i].Tag == VTUninitialized {
			types[i].Index += delta
		}
	}
}

// Type annotation targets that may appear on a Code attribute.
const (
	targetLocalVariable     = 0x40
	targetResourceVariable  = 0x41
	targetExceptionParam    = 0x42
	targetOffsetFirst       = 0x43 // instanceof, new, method references
	targetOffsetLast        = 0x46
	targetTypeArgumentFirst = 0x47 // casts, generic invocations
	targetTypeArgumentLast  = 0x4b
)

// shiftTypeAnnotations moves the bytecode offsets held by type annotation
// targets. Local variable ranges follow the LocalVariableTable rule.
func shiftTypeAnnotations(info []byte, delta uint16) ([]byte, error) {
	out := slices.Clone(info)
	d := &decoder{buf: out}
	put := func(at int, v uint16) {
		if d.err == nil {
			binary.BigEndian.PutUint16(out[at:], v)
		}
	}
	n := d.u2()
	for i := 0; i < int(n) && d.err == nil; i++ {
		switch target := d.u1(); {
		case target == targetLocalVariable || target == targetResourceVariable:
			ranges := d.u2()
			for j := 0; j < int(ranges) && d.err == nil; j++ {
				at := d.off
				start := d.u2()
				length := d.u2()
				d.u2() // slot
				if start == 0 {
					put(at+2, length+delta)
				} else {
					put(at, start+delta)
				}
			}
		case target == targetExceptionParam:
			d.u2() // exception table index
		case target >= targetOffsetFirst && target <= targetOffsetLast:
			at := d.off
			put(at, d.u2()+delta)
		case target >= targetTypeArgumentFirst && target <= targetTypeArgumentLast:
			at := d.off
			put(at, d.u2()+delta)
			d.u1() // type argument
		default:
			d.fail(fmt.Errorf("%w: type annotation target 0x%02x on code", ErrMalformed, target))
		}
		pathLen := d.u1()
		d.bytes(2 * int(pathLen))
		skipAnnotation(d)
	}
	if err := d.finish("type annotations"); err != nil {
		return nil, err
	}
	return out, nil
}

func skipAnnotation(d *decoder) {
	d.u2() // type
	pairs := d.u2()
	for i := 0; i < int(pairs) && d.err == nil; i++ {
		d.u2() // name
		skipElementValue(d)
	}
}

func skipElementValue(d *decoder) {
	switch tag := d.u1(); tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		d.u2()
	case 'e':
		d.u2()
		d.u2()
	case '@':
		skipAnnotation(d)
	case '[':
		n := d.u2()
		for i := 0; i < int(n) && d.err == nil; i++ {
			skipElementValue(d)
		}
	default:
		d.fail(fmt.Errorf("%w: element value tag %q", ErrMalformed, tag))
	}
}
