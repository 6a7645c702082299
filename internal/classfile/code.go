package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Insn is one decoded instruction.
//
// Offset is the byte offset in the original stream, or -1 for inserted
// instructions. Branches store their absolute original Target instead of a
// relative offset, so that relayout can re-resolve them. Before and After hold
// instructions spliced around this one; a branch to this instruction lands on
// the first of its Before instructions.
type Insn struct {
	Offset   int
	Op       Opcode
	Wide     bool
	Operands []byte
	Target   int
	Switch   *Switch
	Before   []*Insn
	After    []*Insn

	pos int
}

// Switch is the payload of tableswitch and lookupswitch. Targets are absolute
// original offsets.
type Switch struct {
	Default int
	Low     int32
	High    int32
	Keys    []int32
	Targets []int
}

// ExceptionEntry is one exception table row in original offsets.
type ExceptionEntry struct {
	Start     int
	End       int
	Handler   int
	CatchType uint16
}

// Code is a decoded Code attribute.
type Code struct {
	MaxStack   uint16
	MaxLocals  uint16
	Insns      []*Insn
	Exceptions []ExceptionEntry
	Attributes []Attribute

	length int
	dirty  bool
}

// NewInsn builds an instruction for insertion.
func NewInsn(op Opcode, operands ...byte) *Insn {
	return &Insn{Offset: -1, Op: op, Operands: operands}
}

// InvokeStatic builds an invokestatic instruction for a pool index.
func InvokeStatic(methodref uint16) *Insn {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], methodref)
	return NewInsn(OpInvokestatic, b[:]...)
}

// PoolIndex returns the u2 pool operand of field, invoke, new, checkcast and
// similar instructions.
func (in *Insn) PoolIndex() (uint16, bool) {
	if len(in.Operands) < 2 || in.Op.IsBranch() || in.Wide {
		return 0, false
	}
	switch {
	case in.Op.IsInvoke(), in.Op >= 0xb2 && in.Op <= 0xb5, in.Op == OpNew, in.Op == 0xbd, in.Op == 0xc0, in.Op == 0xc1, in.Op == 0xc5, in.Op == 0x13, in.Op == 0x14:
		return binary.BigEndian.Uint16(in.Operands), true
	}
	return 0, false
}

// InsertBefore splices insns in front of in.
func (c *Code) InsertBefore(in *Insn, insns ...*Insn) {
	in.Before = append(in.Before, insns...)
	c.dirty = true
}

// InsertAfter splices insns right after in.
func (c *Code) InsertAfter(in *Insn, insns ...*Insn) {
	in.After = append(in.After, insns...)
	c.dirty = true
}

// GrowStack raises MaxStack by n, saturating at the format limit.
func (c *Code) GrowStack(n int) {
	v := int(c.MaxStack) + n
	if v > math.MaxUint16 {
		v = math.MaxUint16
	}
	c.MaxStack = uint16(v)
	c.dirty = true
}

// Modified reports whether any edit touched this code.
func (c *Code) Modified() bool {
	return c.dirty
}

// DecodeCode parses the payload of a Code attribute.
func DecodeCode(cf *ClassFile, info []byte) (*Code, error) {
	r := newReader(info)
	c := &Code{}
	c.MaxStack = r.u2()
	c.MaxLocals = r.u2()
	n := r.u4()
	if r.err != nil {
		return nil, r.err
	}
	if n == 0 || n > math.MaxUint16 || int(n) > r.remaining() {
		return nil, fmt.Errorf("%w: code length %d", ErrBadCode, n)
	}
	c.length = int(n)
	insns, err := decodeInsns(info[r.off : r.off+int(n)])
	if err != nil {
		return nil, err
	}
	c.Insns = insns
	r.off += int(n)

	boundaries := make(map[int]bool, len(insns)+1)
	for _, in := range insns {
		boundaries[in.Offset] = true
	}
	boundaries[c.length] = true
	for _, in := range insns {
		targets := []int{}
		if in.Op.IsBranch() {
			targets = append(targets, in.Target)
		}
		if in.Switch != nil {
			targets = append(targets, in.Switch.Default)
			targets = append(targets, in.Switch.Targets...)
		}
		for _, t := range targets {
			if t == c.length || !boundaries[t] {
				return nil, fmt.Errorf("%w: branch at %d to %d", ErrBadCode, in.Offset, t)
			}
		}
	}

	ne := int(r.u2())
	for i := 0; i < ne && r.err == nil; i++ {
		e := ExceptionEntry{
			Start:     int(r.u2()),
			End:       int(r.u2()),
			Handler:   int(r.u2()),
			CatchType: r.u2(),
		}
		if r.err == nil && (!boundaries[e.Start] || !boundaries[e.End] || !boundaries[e.Handler]) {
			return nil, fmt.Errorf("%w: exception range %d-%d -> %d", ErrBadCode, e.Start, e.End, e.Handler)
		}
		c.Exceptions = append(c.Exceptions, e)
	}
	c.Attributes = readAttributes(r)
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() != 0 {
		return nil, &offsetError{off: r.off, err: ErrBadCode}
	}
	return c, nil
}

func decodeInsns(code []byte) ([]*Insn, error) {
	var out []*Insn
	r := newReader(code)
	for r.remaining() > 0 && r.err == nil {
		off := r.off
		in := &Insn{Offset: off, Op: Opcode(r.u1())}
		switch {
		case in.Op == OpWide:
			in.Wide = true
			in.Op = Opcode(r.u1())
			switch {
			case in.Op == OpIinc:
				in.Operands = r.bytes(4)
			case (in.Op >= 0x15 && in.Op <= 0x19) || (in.Op >= 0x36 && in.Op <= 0x3a) || in.Op == 0xa9:
				in.Operands = r.bytes(2)
			default:
				return nil, fmt.Errorf("%w: wide %#x at %d", ErrBadCode, byte(in.Op), off)
			}
		case in.Op == OpTableswitch || in.Op == OpLookupswitch:
			r.off += switchPad(off)
			if r.off > len(code) {
				return nil, fmt.Errorf("%w: switch padding at %d", ErrBadCode, off)
			}
			sw := &Switch{Default: off + int(int32(r.u4()))}
			if in.Op == OpTableswitch {
				sw.Low = int32(r.u4())
				sw.High = int32(r.u4())
				if sw.High < sw.Low || int64(sw.High)-int64(sw.Low) >= int64(len(code)) {
					return nil, fmt.Errorf("%w: tableswitch bounds at %d", ErrBadCode, off)
				}
				for k := int64(sw.Low); k <= int64(sw.High) && r.err == nil; k++ {
					sw.Targets = append(sw.Targets, off+int(int32(r.u4())))
				}
			} else {
				npairs := int32(r.u4())
				if npairs < 0 || int(npairs) > len(code) {
					return nil, fmt.Errorf("%w: lookupswitch pairs at %d", ErrBadCode, off)
				}
				for k := int32(0); k < npairs && r.err == nil; k++ {
					sw.Keys = append(sw.Keys, int32(r.u4()))
					sw.Targets = append(sw.Targets, off+int(int32(r.u4())))
				}
			}
			in.Switch = sw
		case in.Op.wideBranch():
			in.Target = off + int(int32(r.u4()))
		case in.Op.IsBranch():
			in.Target = off + int(int16(r.u2()))
		case in.Op.valid():
			in.Operands = r.bytes(int(opWidth[in.Op]))
		default:
			return nil, fmt.Errorf("%w: opcode %#x at %d", ErrBadCode, byte(in.Op), off)
		}
		out = append(out, in)
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCode, r.err)
	}
	return out, nil
}

func switchPad(off int) int {
	return (4 - (off+1)%4) % 4
}

func (in *Insn) size(pos int) int {
	switch {
	case in.Wide:
		return 2 + len(in.Operands)
	case in.Switch != nil && in.Op == OpTableswitch:
		return 1 + switchPad(pos) + 12 + 4*len(in.Switch.Targets)
	case in.Switch != nil:
		return 1 + switchPad(pos) + 8 + 8*len(in.Switch.Targets)
	case in.Op.wideBranch():
		return 5
	case in.Op.IsBranch():
		return 3
	}
	return 1 + len(in.Operands)
}

// offsetMap translates original offsets into the new layout. label is where a
// jump to the original instruction lands (its first Before instruction); pos
// is where the original instruction itself now sits.
type offsetMap struct {
	label map[int]int
	pos   map[int]int
}

func (m offsetMap) toLabel(old int) (int, error) {
	v, ok := m.label[old]
	if !ok {
		return 0, fmt.Errorf("%w: no instruction at offset %d", ErrBadCode, old)
	}
	return v, nil
}

func (m offsetMap) toPos(old int) (int, error) {
	v, ok := m.pos[old]
	if !ok {
		return 0, fmt.Errorf("%w: no instruction at offset %d", ErrBadCode, old)
	}
	return v, nil
}

func (c *Code) layout() (offsetMap, int) {
	m := offsetMap{label: make(map[int]int, len(c.Insns)+1), pos: make(map[int]int, len(c.Insns)+1)}
	pos := 0
	place := func(in *Insn) {
		in.pos = pos
		pos += in.size(pos)
	}
	for _, in := range c.Insns {
		m.label[in.Offset] = pos
		for _, b := range in.Before {
			place(b)
		}
		m.pos[in.Offset] = pos
		place(in)
		for _, a := range in.After {
			place(a)
		}
	}
	m.label[c.length] = pos
	m.pos[c.length] = pos
	return m, pos
}

// Encode serialises c as a Code attribute payload, recomputing every offset
// that depends on instruction positions.
func (c *Code) Encode(cf *ClassFile) ([]byte, error) {
	m, total := c.layout()
	if total > math.MaxUint16 {
		return nil, ErrCodeTooLarge
	}

	code := &writer{}
	emit := func(in *Insn) error {
		if in.Wide {
			code.u1(uint8(OpWide))
		}
		code.u1(uint8(in.Op))
		switch {
		case in.Switch != nil:
			for i := 0; i < switchPad(in.pos); i++ {
				code.u1(0)
			}
			rel := func(t int) (uint32, error) {
				l, err := m.toLabel(t)
				return uint32(int32(l - in.pos)), err
			}
			d, err := rel(in.Switch.Default)
			if err != nil {
				return err
			}
			code.u4(d)
			if in.Op == OpTableswitch {
				code.u4(uint32(in.Switch.Low))
				code.u4(uint32(in.Switch.High))
				for _, t := range in.Switch.Targets {
					v, err := rel(t)
					if err != nil {
						return err
					}
					code.u4(v)
				}
			} else {
				code.u4(uint32(len(in.Switch.Targets)))
				for i, t := range in.Switch.Targets {
					v, err := rel(t)
					if err != nil {
						return err
					}
					code.u4(uint32(in.Switch.Keys[i]))
					code.u4(v)
				}
			}
		case in.Op.IsBranch():
			l, err := m.toLabel(in.Target)
			if err != nil {
				return err
			}
			delta := l - in.pos
			if in.Op.wideBranch() {
				code.u4(uint32(int32(delta)))
			} else {
				if delta < math.MinInt16 || delta > math.MaxInt16 {
					return fmt.Errorf("%w: %d at %d", ErrBranchOverflow, delta, in.pos)
				}
				code.u2(uint16(int16(delta)))
			}
		default:
			code.raw(in.Operands)
		}
		return nil
	}
	for _, in := range c.Insns {
		for _, b := range in.Before {
			if err := emit(b); err != nil {
				return nil, err
			}
		}
		if err := emit(in); err != nil {
			return nil, err
		}
		for _, a := range in.After {
			if err := emit(a); err != nil {
				return nil, err
			}
		}
	}
	body, err := code.Bytes()
	if err != nil {
		return nil, err
	}

	w := &writer{}
	w.u2(c.MaxStack)
	w.u2(c.MaxLocals)
	w.length(len(body), "code")
	w.raw(body)
	w.count(len(c.Exceptions), "exception table")
	for _, e := range c.Exceptions {
		start, err := m.toLabel(e.Start)
		if err != nil {
			return nil, err
		}
		end, err := m.toLabel(e.End)
		if err != nil {
			return nil, err
		}
		handler, err := m.toLabel(e.Handler)
		if err != nil {
			return nil, err
		}
		w.u2(uint16(start))
		w.u2(uint16(end))
		w.u2(uint16(handler))
		w.u2(e.CatchType)
	}

	attrs := make([]Attribute, 0, len(c.Attributes))
	for _, a := range c.Attributes {
		name, err := cf.AttributeName(a)
		if err != nil {
			return nil, err
		}
		info, err := relocateAttribute(name, a.Info, m)
		if err != nil {
			return nil, fmt.Errorf("relocate %s: %w", name, err)
		}
		attrs = append(attrs, Attribute{NameIndex: a.NameIndex, Info: info})
	}
	writeAttributes(w, attrs)
	return w.Bytes()
}
