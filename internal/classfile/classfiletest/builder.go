// Package classfiletest assembles small class files for tests.
//
// The builder writes bytes directly instead of going through the classfile
// package, so tests of the parser and patcher see input produced by an
// independent encoder.
package classfiletest

import (
	"bytes"
	"encoding/binary"
)

// Attr is a raw attribute.
type Attr struct {
	Name string
	Info []byte
}

// Method describes one method with an optional body.
type Method struct {
	Access     uint16
	Name       string
	Desc       string
	MaxStack   uint16
	MaxLocals  uint16
	Code       []byte // nil for abstract methods
	Exceptions [][4]uint16
	CodeAttrs  []Attr
	Attrs      []Attr
}

// Class accumulates a constant pool and members.
type Class struct {
	Name    string
	Super   string
	Access  uint16
	Major   uint16
	pool    [][]byte
	index   map[string]uint16
	next    uint16
	methods []Method
	fields  []Method
	attrs   []Attr
}

// New starts a class named name (internal form) extending super.
func New(name, super string) *Class {
	return &Class{
		Name:   name,
		Super:  super,
		Access: 0x0021,
		Major:  61,
		index:  map[string]uint16{},
		next:   1,
	}
}

func (c *Class) add(entry []byte, slots uint16) uint16 {
	key := string(entry)
	if i, ok := c.index[key]; ok {
		return i
	}
	i := c.next
	c.pool = append(c.pool, entry)
	c.index[key] = i
	c.next += slots
	return i
}

// Utf8 interns an ASCII string.
func (c *Class) Utf8(s string) uint16 {
	b := []byte{1}
	b = binary.BigEndian.AppendUint16(b, uint16(len(s)))
	return c.add(append(b, s...), 1)
}

// ClassRef interns a Class entry.
func (c *Class) ClassRef(name string) uint16 {
	n := c.Utf8(name)
	return c.add(binary.BigEndian.AppendUint16([]byte{7}, n), 1)
}

// NameAndType interns a NameAndType entry.
func (c *Class) NameAndType(name, desc string) uint16 {
	n, d := c.Utf8(name), c.Utf8(desc)
	b := binary.BigEndian.AppendUint16([]byte{12}, n)
	return c.add(binary.BigEndian.AppendUint16(b, d), 1)
}

// Methodref interns a Methodref entry.
func (c *Class) Methodref(owner, name, desc string) uint16 {
	o, nt := c.ClassRef(owner), c.NameAndType(name, desc)
	b := binary.BigEndian.AppendUint16([]byte{10}, o)
	return c.add(binary.BigEndian.AppendUint16(b, nt), 1)
}

// Long interns a Long entry, which occupies two slots.
func (c *Class) Long(v int64) uint16 {
	return c.add(binary.BigEndian.AppendUint64([]byte{5}, uint64(v)), 2)
}

// Method adds a method.
func (c *Class) Method(m Method) {
	c.Utf8(m.Name)
	c.Utf8(m.Desc)
	if m.Code != nil {
		c.Utf8("Code")
	}
	for _, a := range m.CodeAttrs {
		c.Utf8(a.Name)
	}
	for _, a := range m.Attrs {
		c.Utf8(a.Name)
	}
	c.methods = append(c.methods, m)
}

// Field adds a field. Only Access, Name, Desc and Attrs are used.
func (c *Class) Field(f Method) {
	c.Utf8(f.Name)
	c.Utf8(f.Desc)
	for _, a := range f.Attrs {
		c.Utf8(a.Name)
	}
	c.fields = append(c.fields, f)
}

// Attribute adds a class attribute.
func (c *Class) Attribute(a Attr) {
	c.Utf8(a.Name)
	c.attrs = append(c.attrs, a)
}

// Bytes assembles the class file.
func (c *Class) Bytes() []byte {
	this := c.ClassRef(c.Name)
	var super uint16
	if c.Super != "" {
		super = c.ClassRef(c.Super)
	}
	var out bytes.Buffer
	u2 := func(v uint16) { _ = binary.Write(&out, binary.BigEndian, v) }
	u4 := func(v uint32) { _ = binary.Write(&out, binary.BigEndian, v) }
	u4(0xCAFEBABE)
	u2(0)
	u2(c.Major)
	u2(c.next)
	for _, e := range c.pool {
		out.Write(e)
	}
	u2(c.Access)
	u2(this)
	u2(super)
	u2(0)
	writeAttrs := func(attrs []Attr) {
		u2(uint16(len(attrs)))
		for _, a := range attrs {
			u2(c.index[string(utf8Entry(a.Name))])
			u4(uint32(len(a.Info)))
			out.Write(a.Info)
		}
	}
	u2(uint16(len(c.fields)))
	for _, f := range c.fields {
		u2(f.Access)
		u2(c.Utf8(f.Name))
		u2(c.Utf8(f.Desc))
		writeAttrs(f.Attrs)
	}
	u2(uint16(len(c.methods)))
	for _, m := range c.methods {
		u2(m.Access)
		u2(c.Utf8(m.Name))
		u2(c.Utf8(m.Desc))
		attrs := m.Attrs
		if m.Code != nil {
			attrs = append([]Attr{{Name: "Code", Info: c.codeInfo(m)}}, attrs...)
		}
		writeAttrs(attrs)
	}
	writeAttrs(c.attrs)
	return out.Bytes()
}

func utf8Entry(s string) []byte {
	b := binary.BigEndian.AppendUint16([]byte{1}, uint16(len(s)))
	return append(b, s...)
}

func (c *Class) codeInfo(m Method) []byte {
	var b []byte
	b = binary.BigEndian.AppendUint16(b, m.MaxStack)
	b = binary.BigEndian.AppendUint16(b, m.MaxLocals)
	b = binary.BigEndian.AppendUint32(b, uint32(len(m.Code)))
	b = append(b, m.Code...)
	b = binary.BigEndian.AppendUint16(b, uint16(len(m.Exceptions)))
	for _, e := range m.Exceptions {
		for _, v := range e {
			b = binary.BigEndian.AppendUint16(b, v)
		}
	}
	b = binary.BigEndian.AppendUint16(b, uint16(len(m.CodeAttrs)))
	for _, a := range m.CodeAttrs {
		b = binary.BigEndian.AppendUint16(b, c.Utf8(a.Name))
		b = binary.BigEndian.AppendUint32(b, uint32(len(a.Info)))
		b = append(b, a.Info...)
	}
	return b
}

// Op encodes an instruction with a u2 operand, such as invokespecial #idx.
func Op(op byte, idx uint16) []byte {
	return binary.BigEndian.AppendUint16([]byte{op}, idx)
}

// Branch encodes a 16-bit branch with a relative offset.
func Branch(op byte, rel int16) []byte {
	return binary.BigEndian.AppendUint16([]byte{op}, uint16(rel))
}

// Concat joins instruction fragments.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// U2s encodes a sequence of u2 values, used for tables such as LineNumberTable.
func U2s(vs ...uint16) []byte {
	var out []byte
	for _, v := range vs {
		out = binary.BigEndian.AppendUint16(out, v)
	}
	return out
}
