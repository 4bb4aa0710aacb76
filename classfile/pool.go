package classfile

import (
	"bytes"
	"fmt"
	"math"
)

// Constant pool tags.
const (
	TagUtf8               uint8 = 1
	TagInteger            uint8 = 3
	TagFloat              uint8 = 4
	TagLong               uint8 = 5
	TagDouble             uint8 = 6
	TagClass              uint8 = 7
	TagString             uint8 = 8
	TagFieldref           uint8 = 9
	TagMethodref          uint8 = 10
	TagInterfaceMethodref uint8 = 11
	TagNameAndType        uint8 = 12
	TagMethodHandle       uint8 = 15
	TagMethodType         uint8 = 16
	TagDynamic            uint8 = 17
	TagInvokeDynamic      uint8 = 18
	TagModule             uint8 = 19
	TagPackage            uint8 = 20
)

// Constant is one constant pool entry.
type Constant interface {
	Tag() uint8
}

// ConstantUtf8 holds a string in modified UTF-8.
type ConstantUtf8 struct {
	Bytes []byte
}

func (c *ConstantUtf8) Tag() uint8 { return TagUtf8 }

// String decodes the constant.
func (c *ConstantUtf8) String() string { return decodeMUTF8(c.Bytes) }

type ConstantClass struct {
	NameIndex uint16
}

func (c *ConstantClass) Tag() uint8 { return TagClass }

type ConstantString struct {
	StringIndex uint16
}

func (c *ConstantString) Tag() uint8 { return TagString }

// ConstantRef is a field, method or interface method reference.
type ConstantRef struct {
	Kind             uint8
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantRef) Tag() uint8 { return c.Kind }

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() uint8 { return TagNameAndType }

// ConstantRaw carries a constant the package never edits (numeric values,
// method handles, dynamic call sites, modules, packages) as its encoded body.
type ConstantRaw struct {
	Kind uint8
	Data []byte
}

func (c *ConstantRaw) Tag() uint8 { return c.Kind }

// Pool is a class constant pool. Slot 0 is unused and the slot following a
// long or double constant is nil.
type Pool struct {
	entries []Constant
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{entries: []Constant{nil}}
}

// Count returns constant_pool_count, one more than the highest index.
func (p *Pool) Count() int {
	return len(p.entries)
}

// Get returns the constant at index i.
func (p *Pool) Get(i uint16) (Constant, error) {
	if i == 0 || int(i) >= len(p.entries) || p.entries[i] == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, i)
	}
	return p.entries[i], nil
}

// Utf8 returns the decoded Utf8 constant at index i.
func (p *Pool) Utf8(i uint16) (string, error) {
	c, err := p.Get(i)
	if err != nil {
		return "", err
	}
	u, ok := c.(*ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("%w: %d has tag %d, want Utf8", ErrInvalidIndex, i, c.Tag())
	}
	return u.String(), nil
}

// ClassName returns the internal name referenced by the Class constant at i.
func (p *Pool) ClassName(i uint16) (string, error) {
	c, err := p.Get(i)
	if err != nil {
		return "", err
	}
	cl, ok := c.(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("%w: %d has tag %d, want Class", ErrInvalidIndex, i, c.Tag())
	}
	return p.Utf8(cl.NameIndex)
}

// StringValue returns the value of the String constant at i.
func (p *Pool) StringValue(i uint16) (string, error) {
	c, err := p.Get(i)
	if err != nil {
		return "", err
	}
	s, ok := c.(*ConstantString)
	if !ok {
		return "", fmt.Errorf("%w: %d has tag %d, want String", ErrInvalidIndex, i, c.Tag())
	}
	return p.Utf8(s.StringIndex)
}

// text returns the Utf8 constant at i, or "" when i is not one. Used for
// indices Parse has already validated.
func (p *Pool) text(i uint16) string {
	s, err := p.Utf8(i)
	if err != nil {
		return ""
	}
	return s
}

// AddUtf8 returns the index of a Utf8 constant holding s, appending one if needed.
func (p *Pool) AddUtf8(s string) (uint16, error) {
	b := encodeMUTF8(s)
	if len(b) > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(b))
	}
	if i, ok := p.find(func(c Constant) bool {
		u, ok := c.(*ConstantUtf8)
		return ok && bytes.Equal(u.Bytes, b)
	}); ok {
		return i, nil
	}
	return p.add(&ConstantUtf8{Bytes: b})
}

// AddClass returns the index of a Class constant for the internal name.
func (p *Pool) AddClass(name string) (uint16, error) {
	ni, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	if i, ok := p.find(func(c Constant) bool {
		cl, ok := c.(*ConstantClass)
		return ok && cl.NameIndex == ni
	}); ok {
		return i, nil
	}
	return p.add(&ConstantClass{NameIndex: ni})
}

// AddString returns the index of a String constant for s.
func (p *Pool) AddString(s string) (uint16, error) {
	si, err := p.AddUtf8(s)
	if err != nil {
		return 0, err
	}
	if i, ok := p.find(func(c Constant) bool {
		cs, ok := c.(*ConstantString)
		return ok && cs.StringIndex == si
	}); ok {
		return i, nil
	}
	return p.add(&ConstantString{StringIndex: si})
}

// AddNameAndType returns the index of a NameAndType constant.
func (p *Pool) AddNameAndType(name, descriptor string) (uint16, error) {
	ni, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	di, err := p.AddUtf8(descriptor)
	if err != nil {
		return 0, err
	}
	if i, ok := p.find(func(c Constant) bool {
		nt, ok := c.(*ConstantNameAndType)
		return ok && nt.NameIndex == ni && nt.DescriptorIndex == di
	}); ok {
		return i, nil
	}
	return p.add(&ConstantNameAndType{NameIndex: ni, DescriptorIndex: di})
}

// AddFieldref returns the index of a Fieldref constant.
func (p *Pool) AddFieldref(class, name, descriptor string) (uint16, error) {
	return p.addRef(TagFieldref, class, name, descriptor)
}

// AddMethodref returns the index of a Methodref constant.
func (p *Pool) AddMethodref(class, name, descriptor string) (uint16, error) {
	return p.addRef(TagMethodref, class, name, descriptor)
}

func (p *Pool) addRef(kind uint8, class, name, descriptor string) (uint16, error) {
	ci, err := p.AddClass(class)
	if err != nil {
		return 0, err
	}
	nti, err := p.AddNameAndType(name, descriptor)
	if err != nil {
		return 0, err
	}
	if i, ok := p.find(func(c Constant) bool {
		r, ok := c.(*ConstantRef)
		return ok && r.Kind == kind && r.ClassIndex == ci && r.NameAndTypeIndex == nti
	}); ok {
		return i, nil
	}
	return p.add(&ConstantRef{Kind: kind, ClassIndex: ci, NameAndTypeIndex: nti})
}

func (p *Pool) find(match func(Constant) bool) (uint16, bool) {
	for i, c := range p.entries {
		if c != nil && match(c) {
			return uint16(i), true //nolint:gosec // pool length is bounded by add
		}
	}
	return 0, false
}

func (p *Pool) add(c Constant) (uint16, error) {
	if len(p.entries) >= math.MaxUint16 {
		return 0, ErrPoolOverflow
	}
	p.entries = append(p.entries, c)
	return uint16(len(p.entries) - 1), nil //nolint:gosec // checked above
}

func parsePool(d *decoder) (*Pool, error) {
	count := int(d.u2())
	if d.err != nil {
		return nil, d.err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: empty constant pool", ErrMalformed)
	}

	p := &Pool{entries: make([]Constant, count)}
	for i := 1; i < count; i++ {
		tag := d.u1()
		switch tag {
		case TagUtf8:
			n := int(d.u2())
			p.entries[i] = &ConstantUtf8{Bytes: d.bytes(n)}
		case TagInteger, TagFloat:
			p.entries[i] = &ConstantRaw{Kind: tag, Data: d.bytes(4)}
		case TagLong, TagDouble:
			if i == count-1 {
				return nil, fmt.Errorf("%w: wide constant at last index %d", ErrMalformed, i)
			}
			p.entries[i] = &ConstantRaw{Kind: tag, Data: d.bytes(8)}
			i++
		case TagClass:
			p.entries[i] = &ConstantClass{NameIndex: d.u2()}
		case TagString:
			p.entries[i] = &ConstantString{StringIndex: d.u2()}
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			ci := d.u2()
			nti := d.u2()
			p.entries[i] = &ConstantRef{Kind: tag, ClassIndex: ci, NameAndTypeIndex: nti}
		case TagNameAndType:
			ni := d.u2()
			di := d.u2()
			p.entries[i] = &ConstantNameAndType{NameIndex: ni, DescriptorIndex: di}
		case TagMethodHandle:
			p.entries[i] = &ConstantRaw{Kind: tag, Data: d.bytes(3)}
		case TagMethodType, TagModule, TagPackage:
			p.entries[i] = &ConstantRaw{Kind: tag, Data: d.bytes(2)}
		case TagDynamic, TagInvokeDynamic:
			p.entries[i] = &ConstantRaw{Kind: tag, Data: d.bytes(4)}
		default:
			if d.err == nil {
				return nil, fmt.Errorf("%w: %d at index %d", ErrUnknownTag, tag, i)
			}
		}
		if d.err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, d.err)
		}
	}
	return p, nil
}

func (p *Pool) encode(e *encoder) error {
	if err := e.count(len(p.entries), "constants"); err != nil {
		return err
	}
	for _, c := range p.entries[1:] {
		if c == nil {
			continue
		}
		e.u1(c.Tag())
		switch c := c.(type) {
		case *ConstantUtf8:
			if len(c.Bytes) > math.MaxUint16 {
				return fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(c.Bytes))
			}
			e.u2(uint16(len(c.Bytes)))
			e.bytes(c.Bytes)
		case *ConstantClass:
			e.u2(c.NameIndex)
		case *ConstantString:
			e.u2(c.StringIndex)
		case *ConstantRef:
			e.u2(c.ClassIndex)
			e.u2(c.NameAndTypeIndex)
		case *ConstantNameAndType:
			e.u2(c.NameIndex)
			e.u2(c.DescriptorIndex)
		case *ConstantRaw:
			e.bytes(c.Data)
		default:
			return fmt.Errorf("%w: %T", ErrUnknownTag, c)
		}
	}
	return nil
}
