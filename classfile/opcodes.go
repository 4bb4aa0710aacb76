package classfile

import (
	"encoding/binary"
	"fmt"
)

// Opcodes the package emits or must special-case when walking code.
const (
	OpNop           uint8 = 0x00
	OpLdc           uint8 = 0x12
	OpLdcW          uint8 = 0x13
	OpIinc          uint8 = 0x84
	OpGoto          uint8 = 0xa7
	OpTableswitch   uint8 = 0xaa
	OpLookupswitch  uint8 = 0xab
	OpIreturn       uint8 = 0xac
	OpReturn        uint8 = 0xb1
	OpGetstatic     uint8 = 0xb2
	OpInvokevirtual uint8 = 0xb6
	OpWide          uint8 = 0xc4
)

// instrLen holds the length of each fixed-size instruction including the
// opcode byte. Zero marks variable-length instructions and -1 undefined
// opcodes.
var instrLen = func() (t [256]int8) {
	for i := range t {
		t[i] = -1
	}
	set := func(lo, hi int, n int8) {
		for op := lo; op <= hi; op++ {
			t[op] = n
		}
	}
	set(0x00, 0x0f, 1) // nop, constants
	t[0x10] = 2        // bipush
	t[0x11] = 3        // sipush
	t[0x12] = 2        // ldc
	t[0x13] = 3        // ldc_w
	t[0x14] = 3        // ldc2_w
	set(0x15, 0x19, 2) // loads with index
	set(0x1a, 0x35, 1)
	set(0x36, 0x3a, 2) // stores with index
	set(0x3b, 0x83, 1)
	t[0x84] = 3 // iinc
	set(0x85, 0x98, 1)
	set(0x99, 0xa8, 3) // conditional branches, goto, jsr
	t[0xa9] = 2        // ret
	t[0xaa] = 0
	t[0xab] = 0
	set(0xac, 0xb1, 1) // returns
	set(0xb2, 0xb8, 3) // field access, invokes
	t[0xb9] = 5        // invokeinterface
	t[0xba] = 5        // invokedynamic
	t[0xbb] = 3        // new
	t[0xbc] = 2        // newarray
	t[0xbd] = 3        // anewarray
	t[0xbe] = 1
	t[0xbf] = 1
	t[0xc0] = 3 // checkcast
	t[0xc1] = 3 // instanceof
	t[0xc2] = 1
	t[0xc3] = 1
	t[0xc4] = 0
	t[0xc5] = 4 // multianewarray
	t[0xc6] = 3
	t[0xc7] = 3
	t[0xc8] = 5 // goto_w
	t[0xc9] = 5 // jsr_w
	t[0xca] = 1 // breakpoint
	t[0xfe] = 1
	t[0xff] = 1
	return t
}()

// Instruction is one decoded instruction. Operands aliases the code slice
// and, for switches, includes the alignment padding.
type Instruction struct {
	PC       int
	Opcode   uint8
	Operands []byte
}

// Walk calls fn for every instruction in code. It fails if code contains an
// undefined opcode or an instruction that runs past the end. A nil fn only
// checks that the instruction stream is well formed.
func Walk(code []byte, fn func(Instruction) error) error {
	for pc := 0; pc < len(code); {
		n, err := instructionLength(code, pc)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(Instruction{PC: pc, Opcode: code[pc], Operands: code[pc+1 : pc+n]}); err != nil {
				return err
			}
		}
		pc += n
	}
	return nil
}

func instructionLength(code []byte, pc int) (int, error) {
	op := code[pc]
	n := int64(instrLen[op])
	switch {
	case n < 0:
		return 0, fmt.Errorf("%w: %#02x at %d", ErrInvalidOpcode, op, pc)
	case n == 0:
		var err error
		if n, err = variableLength(code, pc); err != nil {
			return 0, err
		}
	}
	if int64(pc)+n > int64(len(code)) {
		return 0, fmt.Errorf("%w: instruction %#02x at %d overruns code", ErrTruncated, op, pc)
	}
	return int(n), nil
}

func variableLength(code []byte, pc int) (int64, error) {
	op := code[pc]
	if op == OpWide {
		if pc+1 >= len(code) {
			return 0, fmt.Errorf("%w: wide at %d", ErrTruncated, pc)
		}
		if code[pc+1] == OpIinc {
			return 6, nil
		}
		return 4, nil
	}

	// Switch operands start at the next multiple of four.
	pad := 3 - pc%4
	base := pc + 1 + pad
	header := 8
	if op == OpTableswitch {
		header = 12
	}
	if base+header > len(code) {
		return 0, fmt.Errorf("%w: switch at %d", ErrTruncated, pc)
	}
	if op == OpTableswitch {
		low := int64(int32(binary.BigEndian.Uint32(code[base+4:])))  //nolint:gosec // signed operand
		high := int64(int32(binary.BigEndian.Uint32(code[base+8:]))) //nolint:gosec // signed operand
		if high < low {
			return 0, fmt.Errorf("%w: tableswitch at %d has high < low", ErrMalformed, pc)
		}
		return int64(1+pad+12) + (high-low+1)*4, nil
	}
	npairs := int64(int32(binary.BigEndian.Uint32(code[base+4:]))) //nolint:gosec // signed operand
	if npairs < 0 {
		return 0, fmt.Errorf("%w: lookupswitch at %d has %d pairs", ErrMalformed, pc, npairs)
	}
	return int64(1+pad+8) + npairs*8, nil
}

// U2 returns the first two operand bytes as an unsigned index.
func (in Instruction) U2() uint16 {
	if len(in.Operands) < 2 {
		return 0
	}
	return binary.BigEndian.Uint16(in.Operands)
}
