package classfile

import (
	"fmt"
	"strings"
)

// PrintlnStack is the operand stack depth the println sequence needs.
const PrintlnStack = 2

const (
	systemClass      = "java/lang/System"
	printStreamClass = "java/io/PrintStream"
	printStreamDesc  = "Ljava/io/PrintStream;"
	printlnDesc      = "(Ljava/lang/String;)V"
)

// AppendPrintln appends the bytecode for System.out.println(message) to dst,
// adding the constants it references to the pool.
func (cf *ClassFile) AppendPrintln(dst []byte, message string) ([]byte, error) {
	out, err := cf.Pool.AddFieldref(systemClass, "out", printStreamDesc)
	if err != nil {
		return nil, err
	}
	str, err := cf.Pool.AddString(message)
	if err != nil {
		return nil, err
	}
	printlnRef, err := cf.Pool.AddMethodref(printStreamClass, "println", printlnDesc)
	if err != nil {
		return nil, err
	}
	return append(dst,
		OpGetstatic, byte(out>>8), byte(out),
		OpLdcW, byte(str>>8), byte(str),
		OpInvokevirtual, byte(printlnRef>>8), byte(printlnRef),
	), nil
}

// StringLiterals returns the string constants loaded by the code of m, in
// instruction order.
func (cf *ClassFile) StringLiterals(m *Member) ([]string, error) {
	code, err := cf.Code(m)
	if err != nil {
		return nil, err
	}
	var out []string
	err = Walk(code.Code, func(in Instruction) error {
		var idx uint16
		switch in.Opcode {
		case OpLdc:
			idx = uint16(in.Operands[0])
		case OpLdcW:
			idx = in.U2()
		default:
			return nil
		}
		c, err := cf.Pool.Get(idx)
		if err != nil {
			return err
		}
		if c.Tag() != TagString {
			return nil
		}
		s, err := cf.Pool.StringValue(idx)
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// ArgSlots returns the number of local variable slots the parameters of a
// method descriptor occupy, not counting this.
func ArgSlots(descriptor string) (int, error) {
	if !strings.HasPrefix(descriptor, "(") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDescriptor, descriptor)
	}
	slots := 0
	i := 1
	for i < len(descriptor) && descriptor[i] != ')' {
		switch c := descriptor[i]; c {
		case 'J', 'D':
			slots += 2
			i++
		case 'B', 'C', 'F', 'I', 'S', 'Z':
			slots++
			i++
		case 'L', '[':
			for i < len(descriptor) && descriptor[i] == '[' {
				i++
			}
			if i >= len(descriptor) {
				return 0, fmt.Errorf("%w: %q", ErrInvalidDescriptor, descriptor)
			}
			if descriptor[i] == 'L' {
				end := strings.IndexByte(descriptor[i:], ';')
				if end < 0 {
					return 0, fmt.Errorf("%w: %q", ErrInvalidDescriptor, descriptor)
				}
				i += end + 1
			} else if strings.IndexByte("BCDFIJSZ", descriptor[i]) >= 0 {
				i++
			} else {
				return 0, fmt.Errorf("%w: %q", ErrInvalidDescriptor, descriptor)
			}
			slots++
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidDescriptor, descriptor)
		}
	}
	if i >= len(descriptor) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDescriptor, descriptor)
	}
	return slots, nil
}
