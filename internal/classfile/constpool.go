package classfile

import (
	"bytes"
	"fmt"
)

// Tag identifies the kind of a constant pool entry.
type Tag uint8

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

func (t Tag) String() string {
	switch t {
	case TagUtf8:
		return "Utf8"
	case TagInteger:
		return "Integer"
	case TagFloat:
		return "Float"
	case TagLong:
		return "Long"
	case TagDouble:
		return "Double"
	case TagClass:
		return "Class"
	case TagString:
		return "String"
	case TagFieldref:
		return "Fieldref"
	case TagMethodref:
		return "Methodref"
	case TagInterfaceMethodref:
		return "InterfaceMethodref"
	case TagNameAndType:
		return "NameAndType"
	case TagMethodHandle:
		return "MethodHandle"
	case TagMethodType:
		return "MethodType"
	case TagDynamic:
		return "Dynamic"
	case TagInvokeDynamic:
		return "InvokeDynamic"
	case TagModule:
		return "Module"
	case TagPackage:
		return "Package"
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// Constant is one pool slot. Which fields are meaningful depends on Tag:
//
//	Utf8                          Bytes (modified UTF-8, kept verbatim)
//	Integer, Float                Bits32
//	Long, Double                  Bits64
//	Class, String, MethodType,
//	Module, Package               A
//	*ref, NameAndType,
//	Dynamic, InvokeDynamic        A, B
//	MethodHandle                  Kind, A
//
// Float and Double keep raw bits so NaN payloads survive a round trip.
type Constant struct {
	Tag    Tag
	Bytes  []byte
	Bits32 uint32
	Bits64 uint64
	Kind   uint8
	A, B   uint16
}

func (c Constant) wide() bool {
	return c.Tag == TagLong || c.Tag == TagDouble
}

func (c Constant) equal(o Constant) bool {
	return c.Tag == o.Tag && c.Bits32 == o.Bits32 && c.Bits64 == o.Bits64 &&
		c.Kind == o.Kind && c.A == o.A && c.B == o.B && bytes.Equal(c.Bytes, o.Bytes)
}

// MemberRef names a field or method by owner, name and descriptor.
// Owner uses internal form (java/lang/Object).
type MemberRef struct {
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

func (m MemberRef) String() string {
	return m.Owner + "." + m.Name + m.Descriptor
}

// Pool is the constant pool. Slot 0 and the slot following a Long or Double
// are unusable and hold a zero Constant. Entries are only ever appended.
type Pool struct {
	entries []Constant
	valid   []bool
}

// NewPool returns an empty pool (count 1).
func NewPool() *Pool {
	return &Pool{entries: make([]Constant, 1), valid: make([]bool, 1)}
}

// Count is the constant_pool_count value: one more than the highest index.
func (p *Pool) Count() int {
	return len(p.entries)
}

// Get returns the entry at i.
func (p *Pool) Get(i uint16) (Constant, error) {
	if int(i) >= len(p.entries) || !p.valid[i] {
		return Constant{}, fmt.Errorf("%w: #%d", ErrBadIndex, i)
	}
	return p.entries[i], nil
}

func (p *Pool) expect(i uint16, tags ...Tag) (Constant, error) {
	c, err := p.Get(i)
	if err != nil {
		return c, err
	}
	for _, t := range tags {
		if c.Tag == t {
			return c, nil
		}
	}
	return c, fmt.Errorf("%w: #%d is %s, want %v", ErrParse, i, c.Tag, tags)
}

// Utf8 decodes the Utf8 entry at i.
func (p *Pool) Utf8(i uint16) (string, error) {
	c, err := p.expect(i, TagUtf8)
	if err != nil {
		return "", err
	}
	return decodeMUTF8(c.Bytes), nil
}

// ClassName resolves a Class entry to its internal name.
func (p *Pool) ClassName(i uint16) (string, error) {
	c, err := p.expect(i, TagClass)
	if err != nil {
		return "", err
	}
	return p.Utf8(c.A)
}

// NameAndType resolves a NameAndType entry.
func (p *Pool) NameAndType(i uint16) (name, desc string, err error) {
	c, err := p.expect(i, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.Utf8(c.A); err != nil {
		return "", "", err
	}
	if desc, err = p.Utf8(c.B); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// MemberRef resolves a Fieldref, Methodref or InterfaceMethodref entry.
func (p *Pool) MemberRef(i uint16) (MemberRef, error) {
	c, err := p.expect(i, TagFieldref, TagMethodref, TagInterfaceMethodref)
	if err != nil {
		return MemberRef{}, err
	}
	owner, err := p.ClassName(c.A)
	if err != nil {
		return MemberRef{}, err
	}
	name, desc, err := p.NameAndType(c.B)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{Owner: owner, Name: name, Descriptor: desc, Interface: c.Tag == TagInterfaceMethodref}, nil
}

func (p *Pool) find(c Constant) (uint16, bool) {
	for i := 1; i < len(p.entries); i++ {
		if p.valid[i] && p.entries[i].equal(c) {
			return uint16(i), true
		}
	}
	return 0, false
}

// add appends c unless an identical entry already exists.
func (p *Pool) add(c Constant) (uint16, error) {
	if i, ok := p.find(c); ok {
		return i, nil
	}
	slots := 1
	if c.wide() {
		slots = 2
	}
	if len(p.entries)+slots > 0xFFFF {
		return 0, ErrPoolFull
	}
	idx := uint16(len(p.entries))
	p.entries = append(p.entries, c)
	p.valid = append(p.valid, true)
	if slots == 2 {
		p.entries = append(p.entries, Constant{})
		p.valid = append(p.valid, false)
	}
	return idx, nil
}

// AddUtf8 returns the index of a Utf8 entry holding s.
func (p *Pool) AddUtf8(s string) (uint16, error) {
	return p.add(Constant{Tag: TagUtf8, Bytes: encodeMUTF8(s)})
}

// AddClass returns the index of a Class entry for an internal name.
func (p *Pool) AddClass(name string) (uint16, error) {
	n, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagClass, A: n})
}

// AddNameAndType returns the index of a NameAndType entry.
func (p *Pool) AddNameAndType(name, desc string) (uint16, error) {
	n, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	d, err := p.AddUtf8(desc)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagNameAndType, A: n, B: d})
}

// AddMethodref returns the index of a Methodref (or InterfaceMethodref) entry.
func (p *Pool) AddMethodref(ref MemberRef) (uint16, error) {
	owner, err := p.AddClass(ref.Owner)
	if err != nil {
		return 0, err
	}
	nat, err := p.AddNameAndType(ref.Name, ref.Descriptor)
	if err != nil {
		return 0, err
	}
	tag := TagMethodref
	if ref.Interface {
		tag = TagInterfaceMethodref
	}
	return p.add(Constant{Tag: tag, A: owner, B: nat})
}

// AddInteger returns the index of an Integer entry.
func (p *Pool) AddInteger(v int32) (uint16, error) {
	return p.add(Constant{Tag: TagInteger, Bits32: uint32(v)})
}

// AddString returns the index of a String entry.
func (p *Pool) AddString(s string) (uint16, error) {
	u, err := p.AddUtf8(s)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagString, A: u})
}

func readPool(r *reader) (*Pool, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	p := &Pool{entries: make([]Constant, count), valid: make([]bool, count)}
	for i := 1; i < count; i++ {
		c := Constant{Tag: Tag(r.u1())}
		switch c.Tag {
		case TagUtf8:
			n := int(r.u2())
			c.Bytes = r.bytes(n)
		case TagInteger, TagFloat:
			c.Bits32 = r.u4()
		case TagLong, TagDouble:
			c.Bits64 = r.u8()
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.A = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			c.A = r.u2()
			c.B = r.u2()
		case TagMethodHandle:
			c.Kind = r.u1()
			c.A = r.u2()
		default:
			if r.err == nil {
				r.fail(fmt.Errorf("%w %d at #%d", ErrBadConstantTag, uint8(c.Tag), i))
			}
		}
		if r.err != nil {
			return nil, r.err
		}
		p.entries[i] = c
		p.valid[i] = true
		if c.wide() {
			i++
			if i >= count {
				r.fail(fmt.Errorf("%w: wide constant at last slot", ErrBadIndex))
				return nil, r.err
			}
		}
	}
	return p, nil
}

func (p *Pool) write(w *writer) {
	w.count(len(p.entries), "constant pool")
	for i := 1; i < len(p.entries); i++ {
		if !p.valid[i] {
			continue
		}
		c := p.entries[i]
		w.u1(uint8(c.Tag))
		switch c.Tag {
		case TagUtf8:
			w.count(len(c.Bytes), "utf8")
			w.raw(c.Bytes)
		case TagInteger, TagFloat:
			w.u4(c.Bits32)
		case TagLong, TagDouble:
			w.u8(c.Bits64)
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			w.u2(c.A)
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			w.u2(c.A)
			w.u2(c.B)
		case TagMethodHandle:
			w.u1(c.Kind)
			w.u2(c.A)
		}
	}
}
