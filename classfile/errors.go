package classfile

import "errors"

// Sentinel errors for class file parsing and editing.
var (
	// ErrInvalidMagic is returned when the input does not start with 0xCAFEBABE.
	ErrInvalidMagic = errors.New("classfile: invalid magic")

	// ErrTruncated is returned when a structure ends before its declared length.
	ErrTruncated = errors.New("classfile: truncated")

	// ErrMalformed is returned for structurally invalid class files.
	ErrMalformed = errors.New("classfile: malformed")

	// ErrUnknownTag is returned for constant pool tags the format does not define.
	ErrUnknownTag = errors.New("classfile: unknown constant tag")

	// ErrInvalidIndex is returned when a constant pool index is out of range
	// or refers to a constant of the wrong kind.
	ErrInvalidIndex = errors.New("classfile: invalid constant index")

	// ErrPoolOverflow is returned when the constant pool would exceed 65535 slots.
	ErrPoolOverflow = errors.New("classfile: constant pool full")

	// ErrStringTooLong is returned when a string does not fit a Utf8 constant.
	ErrStringTooLong = errors.New("classfile: string too long")

	// ErrMethodNotFound is returned when no method with the requested name is declared.
	ErrMethodNotFound = errors.New("classfile: method not found")

	// ErrDuplicateMethod is returned when adding a method whose name and
	// descriptor are already declared.
	ErrDuplicateMethod = errors.New("classfile: duplicate method")

	// ErrNoCode is returned when a method has no Code attribute (abstract or native).
	ErrNoCode = errors.New("classfile: method has no code")

	// ErrCodeTooLarge is returned when a method body would exceed 65535 bytes.
	ErrCodeTooLarge = errors.New("classfile: code too large")

	// ErrInvalidOpcode is returned when bytecode contains an undefined opcode.
	ErrInvalidOpcode = errors.New("classfile: invalid opcode")

	// ErrInvalidFrame is returned for malformed StackMapTable frames.
	ErrInvalidFrame = errors.New("classfile: invalid stack map frame")

	// ErrInvalidDescriptor is returned for malformed method descriptors.
	ErrInvalidDescriptor = errors.New("classfile: invalid descriptor")
)
