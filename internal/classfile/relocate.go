package classfile

import (
	"fmt"
	"math"
)

// relocateAttribute rewrites the offsets carried by a Code sub-attribute.
// Attributes that carry no offsets are returned unchanged.
func relocateAttribute(name string, info []byte, m offsetMap) ([]byte, error) {
	switch name {
	case "LineNumberTable":
		return relocateLineNumbers(info, m)
	case "LocalVariableTable", "LocalVariableTypeTable":
		return relocateLocals(info, m)
	case "StackMapTable":
		return relocateStackMap(info, m)
	case "RuntimeVisibleTypeAnnotations", "RuntimeInvisibleTypeAnnotations":
		return relocateTypeAnnotations(info, m)
	}
	return info, nil
}

func u16(v int) (uint16, error) {
	if v < 0 || v > math.MaxUint16 {
		return 0, fmt.Errorf("%w: offset %d", ErrCodeTooLarge, v)
	}
	return uint16(v), nil
}

func relocateLineNumbers(info []byte, m offsetMap) ([]byte, error) {
	r := newReader(info)
	w := &writer{}
	n := int(r.u2())
	w.count(n, "line number")
	for i := 0; i < n && r.err == nil; i++ {
		start, err := m.toLabel(int(r.u2()))
		if err != nil {
			return nil, err
		}
		v, err := u16(start)
		if err != nil {
			return nil, err
		}
		w.u2(v)
		w.u2(r.u2())
	}
	if r.err != nil {
		return nil, r.err
	}
	return w.Bytes()
}

// relocateRange maps a [start, start+length) code range.
func relocateRange(start, length int, m offsetMap) (uint16, uint16, error) {
	ns, err := m.toLabel(start)
	if err != nil {
		return 0, 0, err
	}
	ne, err := m.toLabel(start + length)
	if err != nil {
		return 0, 0, err
	}
	s, err := u16(ns)
	if err != nil {
		return 0, 0, err
	}
	l, err := u16(ne - ns)
	if err != nil {
		return 0, 0, err
	}
	return s, l, nil
}

func relocateLocals(info []byte, m offsetMap) ([]byte, error) {
	r := newReader(info)
	w := &writer{}
	n := int(r.u2())
	w.count(n, "local variable")
	for i := 0; i < n && r.err == nil; i++ {
		start, length := int(r.u2()), int(r.u2())
		if r.err != nil {
			break
		}
		s, l, err := relocateRange(start, length, m)
		if err != nil {
			return nil, err
		}
		w.u2(s)
		w.u2(l)
		w.u2(r.u2()) // name
		w.u2(r.u2()) // descriptor or signature
		w.u2(r.u2()) // slot
	}
	if r.err != nil {
		return nil, r.err
	}
	return w.Bytes()
}

// Stack map frame type ranges.
const (
	frameSameMax          = 63
	frameSameLocals1Max   = 127
	frameSameLocals1Ext   = 247
	frameChopMin          = 248
	frameChopMax          = 250
	frameSameExt          = 251
	frameAppendMin        = 252
	frameAppendMax        = 254
	frameFull             = 255
	verificationObject    = 7
	verificationUninitial = 8
)

func relocateStackMap(info []byte, m offsetMap) ([]byte, error) {
	r := newReader(info)
	w := &writer{}
	n := int(r.u2())
	w.count(n, "stack map frame")
	prevOld, prevNew := -1, -1
	for i := 0; i < n && r.err == nil; i++ {
		typ := r.u1()
		var delta int
		switch {
		case typ <= frameSameMax:
			delta = int(typ)
		case typ <= frameSameLocals1Max:
			delta = int(typ) - 64
		case typ >= frameSameLocals1Ext:
			delta = int(r.u2())
		default:
			return nil, fmt.Errorf("%w: reserved frame type %d", ErrBadCode, typ)
		}
		old := prevOld + delta + 1
		nw, err := m.toLabel(old)
		if err != nil {
			return nil, err
		}
		nd := nw - prevNew - 1
		if nd < 0 || nd > math.MaxUint16 {
			return nil, fmt.Errorf("%w: frame delta %d", ErrBadCode, nd)
		}
		prevOld, prevNew = old, nw

		switch {
		case typ <= frameSameMax:
			if nd <= frameSameMax {
				w.u1(uint8(nd))
			} else {
				w.u1(frameSameExt)
				w.u2(uint16(nd))
			}
		case typ <= frameSameLocals1Max:
			if nd <= frameSameLocals1Max-64 {
				w.u1(uint8(64 + nd))
			} else {
				w.u1(frameSameLocals1Ext)
				w.u2(uint16(nd))
			}
			if err := copyVerificationTypes(r, w, 1, m); err != nil {
				return nil, err
			}
		default:
			w.u1(typ)
			w.u2(uint16(nd))
			switch {
			case typ == frameSameLocals1Ext:
				if err := copyVerificationTypes(r, w, 1, m); err != nil {
					return nil, err
				}
			case typ >= frameChopMin && typ <= frameChopMax, typ == frameSameExt:
			case typ >= frameAppendMin && typ <= frameAppendMax:
				if err := copyVerificationTypes(r, w, int(typ)-251, m); err != nil {
					return nil, err
				}
			case typ == frameFull:
				locals := int(r.u2())
				w.u2(uint16(locals))
				if err := copyVerificationTypes(r, w, locals, m); err != nil {
					return nil, err
				}
				stack := int(r.u2())
				w.u2(uint16(stack))
				if err := copyVerificationTypes(r, w, stack, m); err != nil {
					return nil, err
				}
			}
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return w.Bytes()
}

func copyVerificationTypes(r *reader, w *writer, n int, m offsetMap) error {
	for i := 0; i < n; i++ {
		tag := r.u1()
		if r.err != nil {
			return r.err
		}
		w.u1(tag)
		switch tag {
		case verificationObject:
			w.u2(r.u2())
		case verificationUninitial:
			// Uninitialized(offset) names the `new` instruction itself.
			p, err := m.toPos(int(r.u2()))
			if err != nil {
				return err
			}
			v, err := u16(p)
			if err != nil {
				return err
			}
			w.u2(v)
		}
	}
	return r.err
}

func relocateTypeAnnotations(info []byte, m offsetMap) ([]byte, error) {
	r := newReader(info)
	w := &writer{}
	n := int(r.u2())
	w.u2(uint16(n))
	for i := 0; i < n && r.err == nil; i++ {
		target := r.u1()
		w.u1(target)
		switch {
		case target == 0x40 || target == 0x41: // local variable, resource variable
			rows := int(r.u2())
			w.u2(uint16(rows))
			for j := 0; j < rows && r.err == nil; j++ {
				start, length := int(r.u2()), int(r.u2())
				s, l, err := relocateRange(start, length, m)
				if err != nil {
					return nil, err
				}
				w.u2(s)
				w.u2(l)
				w.u2(r.u2())
			}
		case target == 0x42: // catch: exception table index
			w.u2(r.u2())
		case target >= 0x43 && target <= 0x4B: // instanceof, new, method refs, casts
			p, err := m.toPos(int(r.u2()))
			if err != nil {
				return nil, err
			}
			v, err := u16(p)
			if err != nil {
				return nil, err
			}
			w.u2(v)
			if target >= 0x47 {
				w.u1(r.u1())
			}
		default:
			return nil, fmt.Errorf("%w: type annotation target %#x in code", ErrBadCode, target)
		}
		pathLen := int(r.u1())
		w.u1(uint8(pathLen))
		w.raw(r.bytes(2 * pathLen))
		start := r.off
		skipAnnotation(r)
		if r.err != nil {
			break
		}
		w.raw(info[start:r.off])
	}
	if r.err != nil {
		return nil, r.err
	}
	return w.Bytes()
}

// skipAnnotation advances over type_index, num_pairs and element values.
func skipAnnotation(r *reader) {
	r.u2()
	pairs := int(r.u2())
	for i := 0; i < pairs && r.err == nil; i++ {
		r.u2()
		skipElementValue(r)
	}
}

func skipElementValue(r *reader) {
	switch tag := r.u1(); tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		r.u2()
	case 'e':
		r.u2()
		r.u2()
	case '@':
		skipAnnotation(r)
	case '[':
		n := int(r.u2())
		for i := 0; i < n && r.err == nil; i++ {
			skipElementValue(r)
		}
	default:
		if r.err == nil {
			r.fail(fmt.Errorf("%w: element value tag %q", ErrBadCode, tag))
		}
	}
}
