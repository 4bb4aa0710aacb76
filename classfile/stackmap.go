package classfile

import "fmt"

// Verification type tags.
const (
	VTTop               uint8 = 0
	VTInteger           uint8 = 1
	VTFloat             uint8 = 2
	VTDouble            uint8 = 3
	VTLong              uint8 = 4
	VTNull              uint8 = 5
	VTUninitializedThis uint8 = 6
	VTObject            uint8 = 7
	VTUninitialized     uint8 = 8
)

// VerificationType is one stack map slot type.
type VerificationType struct {
	Tag uint8

	// Index is the Class constant for VTObject, or the bytecode offset of
	// the creating new instruction for VTUninitialized.
	Index uint16
}

// FrameKind groups the frame_type encodings by shape.
type FrameKind uint8

const (
	FrameSame FrameKind = iota
	FrameSameLocals1StackItem
	FrameChop
	FrameAppend
	FrameFull
)

// Frame is a decoded stack map frame. Encoding picks the compact or
// extended form from OffsetDelta.
type Frame struct {
	Kind        FrameKind
	OffsetDelta uint16
	Chop        int
	Locals      []VerificationType
	Stack       []VerificationType
}

func parseStackMapTable(info []byte) ([]Frame, error) {
	d := &decoder{buf: info}
	n := int(d.u2())
	var frames []Frame //nolint:prealloc // n is untrusted
	for i := 0; i < n && d.err == nil; i++ {
		t := d.u1()
		var f Frame
		switch {
		case t <= 63:
			f = Frame{Kind: FrameSame, OffsetDelta: uint16(t)}
		case t <= 127:
			f = Frame{Kind: FrameSameLocals1StackItem, OffsetDelta: uint16(t - 64)}
			f.Stack = readTypes(d, 1)
		case t < 247:
			d.fail(fmt.Errorf("%w: reserved frame type %d", ErrInvalidFrame, t))
		case t == 247:
			f = Frame{Kind: FrameSameLocals1StackItem, OffsetDelta: d.u2()}
			f.Stack = readTypes(d, 1)
		case t <= 250:
			f = Frame{Kind: FrameChop, OffsetDelta: d.u2(), Chop: int(251 - t)}
		case t == 251:
			f = Frame{Kind: FrameSame, OffsetDelta: d.u2()}
		case t <= 254:
			f = Frame{Kind: FrameAppend, OffsetDelta: d.u2()}
			f.Locals = readTypes(d, int(t-251))
		default:
			f = Frame{Kind: FrameFull, OffsetDelta: d.u2()}
			f.Locals = readTypes(d, int(d.u2()))
			f.Stack = readTypes(d, int(d.u2()))
		}
		frames = append(frames, f)
	}
	if err := d.finish("StackMapTable"); err != nil {
		return nil, err
	}
	return frames, nil
}

func readTypes(d *decoder, n int) []VerificationType {
	var types []VerificationType //nolint:prealloc // n is untrusted
	for i := 0; i < n && d.err == nil; i++ {
		vt := VerificationType{Tag: d.u1()}
		switch vt.Tag {
		case VTObject, VTUninitialized:
			vt.Index = d.u2()
		case VTTop, VTInteger, VTFloat, VTDouble, VTLong, VTNull, VTUninitializedThis:
		default:
			d.fail(fmt.Errorf("%w: verification type %d", ErrInvalidFrame, vt.Tag))
		}
		types = append(types, vt)
	}
	return types
}

func encodeStackMapTable(frames []Frame) ([]byte, error) {
	e := &encoder{}
	if err := e.count(len(frames), "frames"); err != nil {
		return nil, err
	}
	for i, f := range frames {
		switch f.Kind {
		case FrameSame:
			if f.OffsetDelta <= 63 {
				e.u1(uint8(f.OffsetDelta))
			} else {
				e.u1(251)
				e.u2(f.OffsetDelta)
			}
		case FrameSameLocals1StackItem:
			if len(f.Stack) != 1 {
				return nil, fmt.Errorf("%w: frame %d has %d stack items", ErrInvalidFrame, i, len(f.Stack))
			}
			if f.OffsetDelta <= 63 {
				e.u1(64 + uint8(f.OffsetDelta))
			} else {
				e.u1(247)
				e.u2(f.OffsetDelta)
			}
			writeTypes(e, f.Stack)
		case FrameChop:
			if f.Chop < 1 || f.Chop > 3 {
				return nil, fmt.Errorf("%w: frame %d chops %d locals", ErrInvalidFrame, i, f.Chop)
			}
			e.u1(uint8(251 - f.Chop))
			e.u2(f.OffsetDelta)
		case FrameAppend:
			if len(f.Locals) < 1 || len(f.Locals) > 3 {
				return nil, fmt.Errorf("%w: frame %d appends %d locals", ErrInvalidFrame, i, len(f.Locals))
			}
			e.u1(uint8(251 + len(f.Locals)))
			e.u2(f.OffsetDelta)
			writeTypes(e, f.Locals)
		case FrameFull:
			e.u1(255)
			e.u2(f.OffsetDelta)
			if err := e.count(len(f.Locals), "locals"); err != nil {
				return nil, err
			}
			writeTypes(e, f.Locals)
			if err := e.count(len(f.Stack), "stack items"); err != nil {
				return nil, err
			}
			writeTypes(e, f.Stack)
		default:
			return nil, fmt.Errorf("%w: frame %d kind %d", ErrInvalidFrame, i, f.Kind)
		}
	}
	return e.buf, nil
}

func writeTypes(e *encoder, types []VerificationType) {
	for _, vt := range types {
		e.u1(vt.Tag)
		if vt.Tag == VTObject || vt.Tag == VTUninitialized {
			e.u2(vt.Index)
		}
	}
}
