package patch

import (
	"errors"
	"fmt"
	"strings"

	"suppressible/internal/classfile"
)

// ErrNotReference is returned when a wrapped call does not produce an object.
var ErrNotReference = errors.New("patch: wrapped call does not return a reference")

// CallSiteWrap passes the result of every call to Target made inside one host
// method through Wrapper before the caller sees it. With PassReceiver the
// host's this is handed to Wrapper as the first argument.
//
// Stack depth after the wrapped call and the local variable layout are
// unchanged; only the maximum stack grows by the pushed receiver.
type CallSiteWrap struct {
	Owner        string
	HostMethod   string
	HostDesc     string // empty matches every overload
	Target       classfile.MemberRef
	Wrapper      classfile.MemberRef
	PassReceiver bool
}

func (w *CallSiteWrap) Name() string { return "call-site-wrap" }

func (w *CallSiteWrap) Apply(cf *classfile.ClassFile) (bool, error) {
	if _, ok, err := matches(cf, w.Owner); err != nil || !ok {
		return false, err
	}
	var wrapIdx uint16
	changed := false
	for _, m := range cf.FindMethods(w.HostMethod, w.HostDesc) {
		code, err := cf.Code(m)
		if err != nil {
			return false, err
		}
		if code == nil {
			continue
		}
		if w.PassReceiver && m.Access&classfile.AccStatic != 0 {
			return false, fmt.Errorf("host method %s is static, no receiver to pass", w.HostMethod)
		}
		for _, in := range code.Insns {
			ok, err := w.isTarget(cf, in)
			if err != nil {
				return false, err
			}
			if !ok {
				continue
			}
			if wrapIdx == 0 {
				if wrapIdx, err = cf.Pool.AddMethodref(w.Wrapper); err != nil {
					return false, err
				}
			}
			var seq []*classfile.Insn
			if w.PassReceiver {
				seq = append(seq, classfile.NewInsn(classfile.OpAload0), classfile.NewInsn(classfile.OpSwap))
			}
			code.InsertAfter(in, append(seq, classfile.InvokeStatic(wrapIdx))...)
		}
		if !code.Modified() {
			continue
		}
		if w.PassReceiver {
			code.GrowStack(1)
		}
		if err := cf.SetCode(m, code); err != nil {
			return false, err
		}
		changed = true
	}
	return changed, nil
}

func (w *CallSiteWrap) isTarget(cf *classfile.ClassFile, in *classfile.Insn) (bool, error) {
	if !in.Op.IsInvoke() || in.Op == classfile.OpInvokedynamic {
		return false, nil
	}
	idx, ok := in.PoolIndex()
	if !ok {
		return false, nil
	}
	ref, err := cf.Pool.MemberRef(idx)
	if err != nil {
		return false, err
	}
	if ref.Owner != w.Target.Owner || ref.Name != w.Target.Name {
		return false, nil
	}
	if w.Target.Descriptor != "" && ref.Descriptor != w.Target.Descriptor {
		return false, nil
	}
	ret := ref.Descriptor[strings.LastIndexByte(ref.Descriptor, ')')+1:]
	if !strings.HasPrefix(ret, "L") && !strings.HasPrefix(ret, "[") {
		return false, fmt.Errorf("%w: %s", ErrNotReference, ref)
	}
	return true, nil
}
