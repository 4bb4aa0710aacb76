package classfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// switchCode is a static (I)V body: a tableswitch over {0, 1} whose targets
// are the two returns at 24 and 25.
var switchCode = []byte{
	0x1a,          // 0: iload_0
	OpTableswitch, // 1
	0, 0,          // 2: padding
	0, 0, 0, 23, // 4: default -> 24
	0, 0, 0, 0, // 8: low
	0, 0, 0, 1, // 12: high
	0, 0, 0, 23, // 16: 0 -> 24
	0, 0, 0, 24, // 20: 1 -> 25
	OpReturn, // 24
	OpReturn, // 25
}

func addSwitchMethod(t *testing.T, cf *ClassFile) *Member {
	t.Helper()

	attr := func(name string, info []byte) *Attribute {
		ni, err := cf.Pool.AddUtf8(name)
		require.NoError(t, err)
		return &Attribute{NameIndex: ni, Info: info}
	}
	nameIdx, err := cf.Pool.AddUtf8("x")
	require.NoError(t, err)
	descIdx, err := cf.Pool.AddUtf8("I")
	require.NoError(t, err)

	lines := &encoder{}
	lines.u2(2)
	lines.u2(0)
	lines.u2(10)
	lines.u2(24)
	lines.u2(11)

	locals := &encoder{}
	locals.u2(2)
	for _, r := range [][2]uint16{{0, 26}, {24, 2}} {
		locals.u2(r[0])
		locals.u2(r[1])
		locals.u2(nameIdx)
		locals.u2(descIdx)
		locals.u2(0)
	}

	frames, err := encodeStackMapTable([]Frame{
		{Kind: FrameSame, OffsetDelta: 24},
		{
			Kind:   FrameFull,
			Locals: []VerificationType{{Tag: VTInteger}},
			Stack:  []VerificationType{{Tag: VTUninitialized, Index: 1}},
		},
	})
	require.NoError(t, err)

	m, err := cf.AddMethod(AccPublic|AccStatic, "init", "(I)V", &Code{
		MaxStack:       1,
		MaxLocals:      1,
		Code:           append([]byte(nil), switchCode...),
		ExceptionTable: []ExceptionHandler{{StartPC: 0, EndPC: 24, HandlerPC: 25}},
		Attributes: []*Attribute{
			attr(AttrLineNumberTable, lines.buf),
			attr(AttrLocalVariableTable, locals.buf),
			attr(AttrStackMapTable, frames),
		},
	})
	require.NoError(t, err)
	return m
}

func TestInsertBeforeShiftsOffsets(t *testing.T) {
	t.Parallel()

	cf := newTestClass(t)
	m := addSwitchMethod(t, cf)

	prologue, err := cf.AppendPrintln(nil, "Injected code before init")
	require.NoError(t, err)
	require.Len(t, prologue, 9)
	require.NoError(t, cf.InsertBefore(m, prologue, PrintlnStack))

	// Re-parse to make sure the edit survives encoding.
	data, err := cf.Bytes()
	require.NoError(t, err)
	cf, err = Parse(data)
	require.NoError(t, err)
	m, err = cf.FindMethod("init")
	require.NoError(t, err)
	code, err := cf.Code(m)
	require.NoError(t, err)

	const shift = 12
	require.Len(t, code.Code, len(switchCode)+shift)
	assert.Equal(t, prologue, code.Code[:9])
	assert.Equal(t, []byte{OpNop, OpNop, OpNop}, code.Code[9:shift])
	assert.Equal(t, switchCode, code.Code[shift:])
	assert.Equal(t, uint16(PrintlnStack), code.MaxStack)
	assert.Equal(t, uint16(1), code.MaxLocals)

	// Switch targets still land on the original returns.
	var targets []int
	require.NoError(t, Walk(code.Code, func(in Instruction) error {
		if in.Opcode != OpTableswitch {
			return nil
		}
		ops := in.Operands[len(in.Operands)-20:]
		for _, off := range []int{0, 12, 16} {
			targets = append(targets, in.PC+int(int32(binary.BigEndian.Uint32(ops[off:])))) //nolint:gosec // test data
		}
		return nil
	}))
	assert.Equal(t, []int{24 + shift, 24 + shift, 25 + shift}, targets)

	assert.Equal(t, []ExceptionHandler{{StartPC: shift, EndPC: 24 + shift, HandlerPC: 25 + shift}}, code.ExceptionTable)

	lines := cf.attribute(code.Attributes, AttrLineNumberTable)
	require.NotNil(t, lines)
	assert.Equal(t, []byte{0, 2, 0, 0, 0, 10, 0, 24 + shift, 0, 11}, lines.Info)

	locals := cf.attribute(code.Attributes, AttrLocalVariableTable)
	require.NotNil(t, locals)
	d := &decoder{buf: locals.Info}
	require.Equal(t, uint16(2), d.u2())
	assert.Equal(t, [2]uint16{0, 26 + shift}, [2]uint16{d.u2(), d.u2()})
	d.off += 6
	assert.Equal(t, [2]uint16{24 + shift, 2}, [2]uint16{d.u2(), d.u2()})

	smt := cf.attribute(code.Attributes, AttrStackMapTable)
	require.NotNil(t, smt)
	frames, err := parseStackMapTable(smt.Info)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, Frame{Kind: FrameSame, OffsetDelta: 24 + shift}, frames[0])
	assert.Equal(t, uint16(0), frames[1].OffsetDelta)
	assert.Equal(t, []VerificationType{{Tag: VTUninitialized, Index: 1 + shift}}, frames[1].Stack)

	literals, err := cf.StringLiterals(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"Injected code before init"}, literals)
}

func TestInsertBeforeTwice(t *testing.T) {
	t.Parallel()

	cf := newTestClass(t)
	m, err := cf.FindMethod("main")
	require.NoError(t, err)

	for _, msg := range []string{"first", "second"} {
		prologue, err := cf.AppendPrintln(nil, msg)
		require.NoError(t, err)
		require.NoError(t, cf.InsertBefore(m, prologue, PrintlnStack))
	}

	literals, err := cf.StringLiterals(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first", "hello"}, literals)
}

func TestInsertBeforeRejectsBadPrologue(t *testing.T) {
	t.Parallel()

	cf := newTestClass(t)
	m, err := cf.FindMethod("main")
	require.NoError(t, err)
	require.ErrorIs(t, cf.InsertBefore(m, []byte{0xcb}, 1), ErrInvalidOpcode)
}

func TestInsertBeforeCodeTooLarge(t *testing.T) {
	t.Parallel()

	cf := newTestClass(t)
	big := make([]byte, MaxCodeLength-4)
	big[len(big)-1] = OpReturn
	m, err := cf.AddMethod(AccPublic|AccStatic, "init", "()V", &Code{Code: big})
	require.NoError(t, err)

	prologue, err := cf.AppendPrintln(nil, "x")
	require.NoError(t, err)
	require.ErrorIs(t, cf.InsertBefore(m, prologue, PrintlnStack), ErrCodeTooLarge)
}

func TestShiftStackMapWidensFrames(t *testing.T) {
	t.Parallel()

	info, err := encodeStackMapTable([]Frame{
		{Kind: FrameSameLocals1StackItem, OffsetDelta: 55, Stack: []VerificationType{{Tag: VTObject, Index: 3}}},
		{Kind: FrameSame, OffsetDelta: 60},
	})
	require.NoError(t, err)
	assert.Equal(t, byte(64+55), info[2])

	shifted, err := shiftStackMap(info, 12)
	require.NoError(t, err)
	assert.Equal(t, byte(247), shifted[2], "delta 67 needs the extended form")

	frames, err := parseStackMapTable(shifted)
	require.NoError(t, err)
	assert.Equal(t, []Frame{
		{Kind: FrameSameLocals1StackItem, OffsetDelta: 67, Stack: []VerificationType{{Tag: VTObject, Index: 3}}},
		{Kind: FrameSame, OffsetDelta: 60},
	}, frames)
}

func TestShiftTypeAnnotations(t *testing.T) {
	t.Parallel()

	e := &encoder{}
	e.u2(4)
	// @A on a local variable with one range from 0 and one from 8.
	e.u1(targetLocalVariable)
	e.u2(2)
	for _, r := range [][3]uint16{{0, 20, 1}, {8, 4, 2}} {
		e.u2(r[0])
		e.u2(r[1])
		e.u2(r[2])
	}
	e.u1(0)
	e.u2(7)
	e.u2(0)
	// @B on a new at 5, with a nested annotation value.
	e.u1(0x44)
	e.u2(5)
	e.u1(1)
	e.u1(0)
	e.u1(0)
	e.u2(7)
	e.u2(1)
	e.u2(8)
	e.u1('@')
	e.u2(7)
	e.u2(1)
	e.u2(8)
	e.u1('[')
	e.u2(2)
	e.u1('I')
	e.u2(9)
	e.u1('e')
	e.u2(9)
	e.u2(9)
	// @C on a catch parameter.
	e.u1(targetExceptionParam)
	e.u2(0)
	e.u1(0)
	e.u2(7)
	e.u2(0)
	// @D on a cast type argument at 11.
	e.u1(0x47)
	e.u2(11)
	e.u1(0)
	e.u1(0)
	e.u2(7)
	e.u2(0)

	shifted, err := shiftTypeAnnotations(e.buf, 12)
	require.NoError(t, err)
	require.Len(t, shifted, len(e.buf))

	d := &decoder{buf: shifted}
	require.Equal(t, uint16(4), d.u2())
	d.off++
	require.Equal(t, uint16(2), d.u2())
	assert.Equal(t, [3]uint16{0, 32, 1}, [3]uint16{d.u2(), d.u2(), d.u2()})
	assert.Equal(t, [3]uint16{20, 4, 2}, [3]uint16{d.u2(), d.u2(), d.u2()})
	d.off += 5
	d.off++
	assert.Equal(t, uint16(17), d.u2(), "offset target")
	d.off += 3 + 2 + 2 + 2 + 1 + 2 + 2 + 2 + 1 + 2 + 1 + 2 + 1 + 2 + 2
	d.off++
	assert.Equal(t, uint16(0), d.u2(), "exception table index")
	d.off += 5
	d.off++
	assert.Equal(t, uint16(23), d.u2(), "type argument target")
	assert.Equal(t, uint8(0), d.u1())

	_, err = shiftTypeAnnotations([]byte{0, 1, 0x10, 0, 0}, 12)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestStackMapRoundTrip(t *testing.T) {
	t.Parallel()

	frames := []Frame{
		{Kind: FrameAppend, OffsetDelta: 4, Locals: []VerificationType{{Tag: VTInteger}, {Tag: VTLong}}},
		{Kind: FrameChop, OffsetDelta: 300, Chop: 2},
		{Kind: FrameSame, OffsetDelta: 1},
		{Kind: FrameFull, OffsetDelta: 9, Locals: []VerificationType{{Tag: VTObject, Index: 7}}},
	}
	info, err := encodeStackMapTable(frames)
	require.NoError(t, err)
	got, err := parseStackMapTable(info)
	require.NoError(t, err)
	assert.Equal(t, frames, got)

	_, err = parseStackMapTable([]byte{0, 1, 200})
	require.ErrorIs(t, err, ErrInvalidFrame)
	_, err = encodeStackMapTable([]Frame{{Kind: FrameChop, Chop: 4}})
	require.ErrorIs(t, err, ErrInvalidFrame)
}
