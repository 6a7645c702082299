package patch

import (
	"suppressible/internal/classfile"
)

// ConstructorTailHook calls a static routine with the new instance right
// before every normal return of each constructor that does not delegate to
// another constructor of the same class. Each construction therefore runs the
// hook exactly once, whichever overload the caller picked.
type ConstructorTailHook struct {
	Owner string              // module to patch; empty matches any
	Hook  classfile.MemberRef // static, takes the instance; descriptor defaults to (LOwner;)V
}

func (h *ConstructorTailHook) Name() string { return "constructor-tail-hook" }

func (h *ConstructorTailHook) Apply(cf *classfile.ClassFile) (bool, error) {
	self, ok, err := matches(cf, h.Owner)
	if err != nil || !ok {
		return false, err
	}
	hook := h.Hook
	if hook.Descriptor == "" {
		hook.Descriptor = "(L" + self + ";)V"
	}

	var hookIdx uint16
	changed := false
	for _, m := range cf.FindMethods("<init>", "") {
		code, err := cf.Code(m)
		if err != nil {
			return false, err
		}
		if code == nil {
			continue
		}
		owner, err := initTarget(cf, code)
		if err != nil {
			return false, err
		}
		if owner == self {
			continue
		}
		for _, in := range code.Insns {
			if in.Op != classfile.OpReturn {
				continue
			}
			if hookIdx == 0 {
				if hookIdx, err = cf.Pool.AddMethodref(hook); err != nil {
					return false, err
				}
			}
			code.InsertBefore(in, classfile.NewInsn(classfile.OpAload0), classfile.InvokeStatic(hookIdx))
		}
		if !code.Modified() {
			continue
		}
		code.GrowStack(1)
		if err := cf.SetCode(m, code); err != nil {
			return false, err
		}
		changed = true
	}
	return changed, nil
}

// initTarget returns the owner of the constructor's own this(...) or
// super(...) call: the first invokespecial <init> not paired with a preceding
// new. It returns "" when there is none.
func initTarget(cf *classfile.ClassFile, code *classfile.Code) (string, error) {
	pending := 0
	for _, in := range code.Insns {
		switch in.Op {
		case classfile.OpNew:
			pending++
		case classfile.OpInvokespecial:
			idx, _ := in.PoolIndex()
			ref, err := cf.Pool.MemberRef(idx)
			if err != nil {
				return "", err
			}
			if ref.Name != "<init>" {
				continue
			}
			if pending > 0 {
				pending--
				continue
			}
			return ref.Owner, nil
		}
	}
	return "", nil
}
