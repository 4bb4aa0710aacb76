package jarpatch

import (
	"fmt"
	"strconv"
	"strings"
)

// ClassPool resolves classes by dotted name from registered class paths.
type ClassPool interface {
	// InsertClassPath registers a directory of class files. Paths inserted
	// later are searched first.
	InsertClassPath(dir string) error

	// Get loads the named class. It fails with ErrClassNotFound when no
	// class path holds the class.
	Get(name string) (Class, error)
}

// Class is an editable class loaded from a ClassPool. Method queries only
// consider methods declared directly on the class, excluding constructors
// and static initializers.
type Class interface {
	// Name returns the dotted class name.
	Name() string

	// HasDeclaredMethod reports whether a method with the given name is
	// declared on the class.
	HasDeclaredMethod(name string) bool

	// DeclaredMethods returns the declared method names in class file order.
	DeclaredMethods() []string

	// AddMethod adds a new method built from spec.
	AddMethod(spec MethodSpec) error

	// InsertBefore inserts stmt at the start of the first method named
	// method. It fails with ErrMethodNotFound if there is none.
	InsertBefore(method string, stmt Statement) error

	// WriteFile serializes the class into dir at its class path location,
	// replacing any existing file.
	WriteFile(dir string) error
}

// Statement prints a fixed message to standard output.
type Statement struct {
	Message string
}

// Println returns a statement printing message.
func Println(message string) Statement {
	return Statement{Message: message}
}

// String renders the statement as Java source.
func (s Statement) String() string {
	return "System.out.println(" + strconv.Quote(s.Message) + ");"
}

// MethodSpec describes a method to synthesize.
type MethodSpec struct {
	Name       string
	Descriptor string
	Public     bool
	Static     bool
	Body       []Statement
}

// MainMethod returns the entry-point method added to classes without one.
func MainMethod() MethodSpec {
	return MethodSpec{
		Name:       MainMethodName,
		Descriptor: MainDescriptor,
		Public:     true,
		Static:     true,
		Body:       []Statement{Println(MainAddedMessage)},
	}
}

// String renders the method header and body.
func (m MethodSpec) String() string {
	var b strings.Builder
	if m.Public {
		b.WriteString("public ")
	}
	if m.Static {
		b.WriteString("static ")
	}
	fmt.Fprintf(&b, "%s%s {", m.Name, m.Descriptor)
	for _, s := range m.Body {
		b.WriteString(" " + s.String())
	}
	b.WriteString(" }")
	return b.String()
}
