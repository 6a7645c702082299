// Package classfile is an editable in-memory model of a compiled JVM module
// (a .class file).
//
// The model keeps everything it does not need to understand as raw bytes, so
// that Parse followed by Bytes reproduces the input exactly. Method bodies are
// only decoded on request (DecodeCode); a Code value that was not edited is
// never re-encoded.
//
// Edits are append-only with respect to the constant pool: existing indices
// never move, so every reference already present in the module stays valid.
package classfile

import (
	"fmt"
)

// Magic is the class file signature.
const Magic uint32 = 0xCAFEBABE

// Access flags used by the patcher.
const (
	AccPublic = 0x0001
	AccStatic = 0x0008
	AccSuper  = 0x0020
)

// Attribute is an attribute whose payload is kept verbatim.
type Attribute struct {
	NameIndex uint16
	Info      []byte
}

// Member is a field or a method.
type Member struct {
	Access     uint16
	NameIndex  uint16
	DescIndex  uint16
	Attributes []Attribute
}

// ClassFile is one parsed module.
type ClassFile struct {
	Minor      uint16
	Major      uint16
	Pool       *Pool
	Access     uint16
	This       uint16
	Super      uint16
	Interfaces []uint16
	Fields     []*Member
	Methods    []*Member
	Attributes []Attribute
}

// Parse decodes a class file. Any structural mismatch is reported as an error
// wrapping ErrParse.
func Parse(data []byte) (*ClassFile, error) {
	r := newReader(data)
	if magic := r.u4(); r.err == nil && magic != Magic {
		return nil, fmt.Errorf("%w: %#08x", ErrBadMagic, magic)
	}
	cf := &ClassFile{}
	cf.Minor = r.u2()
	cf.Major = r.u2()
	if r.err != nil {
		return nil, r.err
	}
	pool, err := readPool(r)
	if err != nil {
		return nil, err
	}
	cf.Pool = pool
	cf.Access = r.u2()
	cf.This = r.u2()
	cf.Super = r.u2()
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		cf.Interfaces = append(cf.Interfaces, r.u2())
	}
	cf.Fields = readMembers(r)
	cf.Methods = readMembers(r)
	cf.Attributes = readAttributes(r)
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() != 0 {
		return nil, &offsetError{off: r.off, err: ErrTrailingBytes}
	}
	if _, err := cf.Name(); err != nil {
		return nil, err
	}
	return cf, nil
}

func readMembers(r *reader) []*Member {
	n := int(r.u2())
	out := make([]*Member, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		m := &Member{}
		m.Access = r.u2()
		m.NameIndex = r.u2()
		m.DescIndex = r.u2()
		m.Attributes = readAttributes(r)
		out = append(out, m)
	}
	return out
}

func readAttributes(r *reader) []Attribute {
	n := int(r.u2())
	out := make([]Attribute, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		a := Attribute{NameIndex: r.u2()}
		size := r.u4()
		if uint64(size) > uint64(r.remaining()) {
			r.fail(ErrTruncated)
			break
		}
		a.Info = r.bytes(int(size))
		out = append(out, a)
	}
	return out
}

// Bytes serialises the model.
func (cf *ClassFile) Bytes() ([]byte, error) {
	w := &writer{}
	w.u4(Magic)
	w.u2(cf.Minor)
	w.u2(cf.Major)
	cf.Pool.write(w)
	w.u2(cf.Access)
	w.u2(cf.This)
	w.u2(cf.Super)
	w.count(len(cf.Interfaces), "interface")
	for _, i := range cf.Interfaces {
		w.u2(i)
	}
	writeMembers(w, cf.Fields, "field")
	writeMembers(w, cf.Methods, "method")
	writeAttributes(w, cf.Attributes)
	return w.Bytes()
}

func writeMembers(w *writer, ms []*Member, what string) {
	w.count(len(ms), what)
	for _, m := range ms {
		w.u2(m.Access)
		w.u2(m.NameIndex)
		w.u2(m.DescIndex)
		writeAttributes(w, m.Attributes)
	}
}

func writeAttributes(w *writer, attrs []Attribute) {
	w.count(len(attrs), "attribute")
	for _, a := range attrs {
		w.u2(a.NameIndex)
		w.length(len(a.Info), "attribute")
		w.raw(a.Info)
	}
}

// Name returns the internal name of this class.
func (cf *ClassFile) Name() (string, error) {
	return cf.Pool.ClassName(cf.This)
}

// MemberName returns the name and descriptor of a field or method.
func (cf *ClassFile) MemberName(m *Member) (name, desc string, err error) {
	if name, err = cf.Pool.Utf8(m.NameIndex); err != nil {
		return "", "", err
	}
	if desc, err = cf.Pool.Utf8(m.DescIndex); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// FindMethods returns the methods called name. desc is ignored when empty.
func (cf *ClassFile) FindMethods(name, desc string) []*Member {
	var out []*Member
	for _, m := range cf.Methods {
		n, d, err := cf.MemberName(m)
		if err != nil || n != name {
			continue
		}
		if desc != "" && d != desc {
			continue
		}
		out = append(out, m)
	}
	return out
}

// AttributeName resolves the name of an attribute.
func (cf *ClassFile) AttributeName(a Attribute) (string, error) {
	return cf.Pool.Utf8(a.NameIndex)
}

func (cf *ClassFile) findAttribute(attrs []Attribute, name string) int {
	for i, a := range attrs {
		if n, err := cf.AttributeName(a); err == nil && n == name {
			return i
		}
	}
	return -1
}

// Code decodes the Code attribute of m. It returns nil, nil for abstract and
// native methods.
func (cf *ClassFile) Code(m *Member) (*Code, error) {
	i := cf.findAttribute(m.Attributes, "Code")
	if i < 0 {
		return nil, nil
	}
	code, err := DecodeCode(cf, m.Attributes[i].Info)
	if err != nil {
		n, d, _ := cf.MemberName(m)
		return nil, fmt.Errorf("method %s%s: %w", n, d, err)
	}
	return code, nil
}

// SetCode re-encodes code into m's Code attribute.
func (cf *ClassFile) SetCode(m *Member, code *Code) error {
	i := cf.findAttribute(m.Attributes, "Code")
	if i < 0 {
		return fmt.Errorf("classfile: method has no Code attribute")
	}
	info, err := code.Encode(cf)
	if err != nil {
		return err
	}
	m.Attributes[i].Info = info
	return nil
}
