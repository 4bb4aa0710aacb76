// Package classfile reads, edits and writes JVM class files.
//
// The package models a class at the level needed for structural patching:
// the constant pool, fields and methods with their raw attributes, and the
// Code attribute of a method. Anything the package does not interpret is
// carried through untouched, so parsing and re-encoding an unmodified class
// yields the original bytes.
//
// # Editing
//
// Two edits are supported:
//
//   - [ClassFile.AddMethod] appends a new method with an assembled body.
//   - [ClassFile.InsertBefore] prepends straight-line code to an existing
//     method body.
//
// InsertBefore pads the inserted code to a multiple of four bytes so that the
// alignment of tableswitch and lookupswitch operands is unchanged, then
// shifts every absolute bytecode offset held outside the instruction stream:
// the exception table, LineNumberTable, LocalVariableTable,
// LocalVariableTypeTable, StackMapTable and the targets of type annotations
// attached to the Code attribute. Branch offsets inside the
// instruction stream are relative and need no adjustment.
//
// New constants are always appended to the pool, so existing constant
// indices stay valid across edits.
package classfile
