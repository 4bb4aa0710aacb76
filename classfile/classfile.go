package classfile

import (
	"fmt"
	"math"
)

// Magic is the first four bytes of every class file.
const Magic = 0xCAFEBABE

// Access flags.
const (
	AccPublic    uint16 = 0x0001
	AccPrivate   uint16 = 0x0002
	AccProtected uint16 = 0x0004
	AccStatic    uint16 = 0x0008
	AccFinal     uint16 = 0x0010
	AccSuper     uint16 = 0x0020
	AccNative    uint16 = 0x0100
	AccInterface uint16 = 0x0200
	AccAbstract  uint16 = 0x0400
	AccSynthetic uint16 = 0x1000
)

// Attribute names the package interprets.
const (
	AttrCode                   = "Code"
	AttrLineNumberTable        = "LineNumberTable"
	AttrLocalVariableTable     = "LocalVariableTable"
	AttrLocalVariableTypeTable = "LocalVariableTypeTable"
	AttrStackMapTable          = "StackMapTable"

	AttrRuntimeVisibleTypeAnnotations   = "RuntimeVisibleTypeAnnotations"
	AttrRuntimeInvisibleTypeAnnotations = "RuntimeInvisibleTypeAnnotations"
)

// Special method names.
const (
	ConstructorName = "<init>"
	InitializerName = "<clinit>"
)

// DefaultMajorVersion is the class file version used by New (Java 8).
const DefaultMajorVersion = 52

// ClassFile is a parsed class file.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         *Pool
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []*Member
	Methods      []*Member
	Attributes   []*Attribute
}

// Member is a field or method.
type Member struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []*Attribute
}

// Attribute is an attribute kept as its raw body.
type Attribute struct {
	NameIndex uint16
	Info      []byte
}

// New returns an empty public class with the given internal names. An empty
// super leaves super_class unset, which is only valid for java/lang/Object.
func New(name, super string) (*ClassFile, error) {
	cf := &ClassFile{
		MajorVersion: DefaultMajorVersion,
		Pool:         NewPool(),
		AccessFlags:  AccPublic | AccSuper,
	}
	this, err := cf.Pool.AddClass(name)
	if err != nil {
		return nil, err
	}
	cf.ThisClass = this
	if super != "" {
		if cf.SuperClass, err = cf.Pool.AddClass(super); err != nil {
			return nil, err
		}
	}
	return cf, nil
}

// Parse decodes a class file.
func Parse(data []byte) (*ClassFile, error) {
	d := &decoder{buf: data}
	magic := d.u4()
	if d.err != nil {
		return nil, d.err
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: %#08x", ErrInvalidMagic, magic)
	}

	cf := &ClassFile{}
	cf.MinorVersion = d.u2()
	cf.MajorVersion = d.u2()
	pool, err := parsePool(d)
	if err != nil {
		return nil, err
	}
	cf.Pool = pool
	cf.AccessFlags = d.u2()
	cf.ThisClass = d.u2()
	cf.SuperClass = d.u2()

	n := int(d.u2())
	for i := 0; i < n && d.err == nil; i++ {
		cf.Interfaces = append(cf.Interfaces, d.u2())
	}
	cf.Fields = parseMembers(d)
	cf.Methods = parseMembers(d)
	cf.Attributes = parseAttributes(d)
	if err := d.finish("class file"); err != nil {
		return nil, err
	}
	if err := cf.validate(); err != nil {
		return nil, err
	}
	return cf, nil
}

func parseMembers(d *decoder) []*Member {
	n := int(d.u2())
	var members []*Member //nolint:prealloc // n is untrusted
	for i := 0; i < n && d.err == nil; i++ {
		m := &Member{}
		m.AccessFlags = d.u2()
		m.NameIndex = d.u2()
		m.DescriptorIndex = d.u2()
		m.Attributes = parseAttributes(d)
		members = append(members, m)
	}
	return members
}

func parseAttributes(d *decoder) []*Attribute {
	n := int(d.u2())
	var attrs []*Attribute //nolint:prealloc // n is untrusted
	for i := 0; i < n && d.err == nil; i++ {
		a := &Attribute{NameIndex: d.u2()}
		a.Info = d.bytes(d.length())
		attrs = append(attrs, a)
	}
	return attrs
}

// validate checks the indices the accessors rely on.
func (cf *ClassFile) validate() error {
	if _, err := cf.Pool.ClassName(cf.ThisClass); err != nil {
		return fmt.Errorf("this_class: %w", err)
	}
	if cf.SuperClass != 0 {
		if _, err := cf.Pool.ClassName(cf.SuperClass); err != nil {
			return fmt.Errorf("super_class: %w", err)
		}
	}
	if err := cf.validateAttributes(cf.Attributes); err != nil {
		return err
	}
	for _, members := range [][]*Member{cf.Fields, cf.Methods} {
		for i, m := range members {
			if _, err := cf.Pool.Utf8(m.NameIndex); err != nil {
				return fmt.Errorf("member %d name: %w", i, err)
			}
			if _, err := cf.Pool.Utf8(m.DescriptorIndex); err != nil {
				return fmt.Errorf("member %d descriptor: %w", i, err)
			}
			if err := cf.validateAttributes(m.Attributes); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cf *ClassFile) validateAttributes(attrs []*Attribute) error {
	for _, a := range attrs {
		if _, err := cf.Pool.Utf8(a.NameIndex); err != nil {
			return fmt.Errorf("attribute name: %w", err)
		}
	}
	return nil
}

// Bytes encodes the class file.
func (cf *ClassFile) Bytes() ([]byte, error) {
	e := &encoder{buf: make([]byte, 0, 4096)}
	e.u4(Magic)
	e.u2(cf.MinorVersion)
	e.u2(cf.MajorVersion)
	if err := cf.Pool.encode(e); err != nil {
		return nil, err
	}
	e.u2(cf.AccessFlags)
	e.u2(cf.ThisClass)
	e.u2(cf.SuperClass)
	if err := e.count(len(cf.Interfaces), "interfaces"); err != nil {
		return nil, err
	}
	for _, i := range cf.Interfaces {
		e.u2(i)
	}
	if err := encodeMembers(e, cf.Fields); err != nil {
		return nil, err
	}
	if err := encodeMembers(e, cf.Methods); err != nil {
		return nil, err
	}
	if err := encodeAttributes(e, cf.Attributes); err != nil {
		return nil, err
	}
	return e.buf, nil
}

func encodeMembers(e *encoder, members []*Member) error {
	if err := e.count(len(members), "members"); err != nil {
		return err
	}
	for _, m := range members {
		e.u2(m.AccessFlags)
		e.u2(m.NameIndex)
		e.u2(m.DescriptorIndex)
		if err := encodeAttributes(e, m.Attributes); err != nil {
			return err
		}
	}
	return nil
}

func encodeAttributes(e *encoder, attrs []*Attribute) error {
	if err := e.count(len(attrs), "attributes"); err != nil {
		return err
	}
	for _, a := range attrs {
		if uint64(len(a.Info)) > math.MaxUint32 {
			return fmt.Errorf("%w: attribute of %d bytes", ErrMalformed, len(a.Info))
		}
		e.u2(a.NameIndex)
		e.u4(uint32(len(a.Info)))
		e.bytes(a.Info)
	}
	return nil
}

// Name returns the internal name of the class, e.g. "com/example/App".
func (cf *ClassFile) Name() string {
	name, _ := cf.Pool.ClassName(cf.ThisClass) //nolint:errcheck // validated by Parse and New
	return name
}

// MemberName returns the name of a field or method.
func (cf *ClassFile) MemberName(m *Member) string {
	return cf.Pool.text(m.NameIndex)
}

// MemberDescriptor returns the descriptor of a field or method.
func (cf *ClassFile) MemberDescriptor(m *Member) string {
	return cf.Pool.text(m.DescriptorIndex)
}

// MethodNames returns the names of all declared methods in declaration
// order, constructors and static initializers included.
func (cf *ClassFile) MethodNames() []string {
	names := make([]string, 0, len(cf.Methods))
	for _, m := range cf.Methods {
		names = append(names, cf.MemberName(m))
	}
	return names
}

// FindMethod returns the first declared method called name, whatever its
// descriptor.
func (cf *ClassFile) FindMethod(name string) (*Member, error) {
	for _, m := range cf.Methods {
		if cf.MemberName(m) == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrMethodNotFound, cf.Name(), name)
}

// AddMethod declares a new method. A nil code declares a method without a
// body, which is only valid with AccAbstract or AccNative.
func (cf *ClassFile) AddMethod(access uint16, name, descriptor string, code *Code) (*Member, error) {
	for _, m := range cf.Methods {
		if cf.MemberName(m) == name && cf.MemberDescriptor(m) == descriptor {
			return nil, fmt.Errorf("%w: %s%s", ErrDuplicateMethod, name, descriptor)
		}
	}
	if len(cf.Methods) >= math.MaxUint16 {
		return nil, fmt.Errorf("%w: too many methods", ErrMalformed)
	}

	ni, err := cf.Pool.AddUtf8(name)
	if err != nil {
		return nil, err
	}
	di, err := cf.Pool.AddUtf8(descriptor)
	if err != nil {
		return nil, err
	}
	m := &Member{AccessFlags: access, NameIndex: ni, DescriptorIndex: di}
	if code != nil {
		if err := cf.SetCode(m, code); err != nil {
			return nil, err
		}
	}
	cf.Methods = append(cf.Methods, m)
	return m, nil
}

// Code decodes the Code attribute of m.
func (cf *ClassFile) Code(m *Member) (*Code, error) {
	a := cf.attribute(m.Attributes, AttrCode)
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCode, cf.MemberName(m))
	}
	code, err := parseCode(a.Info)
	if err != nil {
		return nil, fmt.Errorf("code of %s: %w", cf.MemberName(m), err)
	}
	if err := cf.validateAttributes(code.Attributes); err != nil {
		return nil, fmt.Errorf("code of %s: %w", cf.MemberName(m), err)
	}
	return code, nil
}

// SetCode encodes c into the Code attribute of m, adding the attribute if
// m has none.
func (cf *ClassFile) SetCode(m *Member, c *Code) error {
	info, err := c.encode()
	if err != nil {
		return err
	}
	a := cf.attribute(m.Attributes, AttrCode)
	if a == nil {
		ni, err := cf.Pool.AddUtf8(AttrCode)
		if err != nil {
			return err
		}
		a = &Attribute{NameIndex: ni}
		m.Attributes = append(m.Attributes, a)
	}
	a.Info = info
	return nil
}

func (cf *ClassFile) attribute(attrs []*Attribute, name string) *Attribute {
	for _, a := range attrs {
		if cf.Pool.text(a.NameIndex) == name {
			return a
		}
	}
	return nil
}
