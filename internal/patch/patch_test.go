package patch

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"suppressible/internal/classfile"
	"suppressible/internal/classfile/classfiletest"
)

const infoClass = "demo/Info"

var testHook = classfile.MemberRef{Owner: "demo/Hooks", Name: "after", Descriptor: "(Ldemo/Info;)V"}

// twoConstructors builds a class where ()V delegates to (Ljava/lang/String;)V
// and (I)V builds another instance before calling super.
func twoConstructors(t *testing.T) []byte {
	t.Helper()
	c := classfiletest.New(infoClass, "java/lang/Object")
	super := c.Methodref("java/lang/Object", "<init>", "()V")
	byName := c.Methodref(infoClass, "<init>", "(Ljava/lang/String;)V")
	plain := c.Methodref(infoClass, "<init>", "()V")
	self := c.ClassRef(infoClass)

	c.Method(classfiletest.Method{
		Name: "<init>", Desc: "(Ljava/lang/String;)V", MaxStack: 1, MaxLocals: 2,
		Code: classfiletest.Concat([]byte{0x2a}, classfiletest.Op(0xb7, super), []byte{0xb1}),
	})
	c.Method(classfiletest.Method{
		Name: "<init>", Desc: "()V", MaxStack: 2, MaxLocals: 1,
		Code: classfiletest.Concat([]byte{0x2a, 0x01}, classfiletest.Op(0xb7, byName), []byte{0xb1}),
	})
	c.Method(classfiletest.Method{
		Name: "<init>", Desc: "(I)V", MaxStack: 2, MaxLocals: 2,
		Code: classfiletest.Concat(
			classfiletest.Op(0xbb, self), []byte{0x59}, classfiletest.Op(0xb7, plain), []byte{0x57},
			[]byte{0x2a}, classfiletest.Op(0xb7, super), []byte{0xb1},
		),
	})
	c.Method(classfiletest.Method{Access: 0x0401, Name: "check", Desc: "()V"})
	return c.Bytes()
}

// hookCalls counts invokestatic instructions that target testHook.
func hookCalls(t *testing.T, cf *classfile.ClassFile, code *classfile.Code) int {
	t.Helper()
	n := 0
	for _, in := range code.Insns {
		if in.Op != classfile.OpInvokestatic {
			continue
		}
		idx, _ := in.PoolIndex()
		ref, err := cf.Pool.MemberRef(idx)
		if err != nil {
			t.Fatal(err)
		}
		if ref == testHook {
			n++
		}
	}
	return n
}

// firedPerConstruction follows same-class delegation and counts how many
// hook calls run when the caller invokes the constructor desc.
func firedPerConstruction(t *testing.T, cf *classfile.ClassFile, desc string) int {
	t.Helper()
	ms := cf.FindMethods("<init>", desc)
	if len(ms) != 1 {
		t.Fatalf("constructor %s not found", desc)
	}
	code, err := cf.Code(ms[0])
	if err != nil {
		t.Fatal(err)
	}
	fired := hookCalls(t, cf, code)
	pending := 0
	for _, in := range code.Insns {
		switch in.Op {
		case classfile.OpNew:
			pending++
		case classfile.OpInvokespecial:
			idx, _ := in.PoolIndex()
			ref, _ := cf.Pool.MemberRef(idx)
			if pending > 0 {
				pending--
				continue
			}
			if ref.Owner == infoClass {
				fired += firedPerConstruction(t, cf, ref.Descriptor)
			}
			return fired
		}
	}
	return fired
}

func TestConstructorHookFiresOncePerConstruction(t *testing.T) {
	out, changed, err := Module(twoConstructors(t), &ConstructorTailHook{Owner: infoClass, Hook: testHook})
	if err != nil {
		t.Fatalf("Module: %v", err)
	}
	if !changed {
		t.Fatal("expected the module to change")
	}
	cf, err := classfile.Parse(out)
	if err != nil {
		t.Fatalf("patched module does not parse: %v", err)
	}
	for _, desc := range []string{"(Ljava/lang/String;)V", "()V", "(I)V"} {
		if got := firedPerConstruction(t, cf, desc); got != 1 {
			t.Errorf("constructing via %s fires the hook %d times, want 1", desc, got)
		}
	}

	ms := cf.FindMethods("<init>", "(Ljava/lang/String;)V")
	code, _ := cf.Code(ms[0])
	if code.MaxStack != 2 {
		t.Errorf("max stack = %d, want 2", code.MaxStack)
	}
	last := code.Insns[len(code.Insns)-3:]
	if last[0].Op != classfile.OpAload0 || last[1].Op != classfile.OpInvokestatic || last[2].Op != classfile.OpReturn {
		t.Errorf("hook is not right before return: %v %v %v", last[0].Op, last[1].Op, last[2].Op)
	}
}

func TestConstructorHookDefaultDescriptor(t *testing.T) {
	hook := testHook
	hook.Descriptor = ""
	out, _, err := Module(twoConstructors(t), &ConstructorTailHook{Hook: hook})
	if err != nil {
		t.Fatal(err)
	}
	cf, _ := classfile.Parse(out)
	code, _ := cf.Code(cf.FindMethods("<init>", "(I)V")[0])
	if hookCalls(t, cf, code) != 1 {
		t.Fatal("hook descriptor was not derived from the patched class")
	}
}

func TestMissingTargetIsNoop(t *testing.T) {
	in := twoConstructors(t)
	cases := []Edit{
		&ConstructorTailHook{Owner: "demo/Other", Hook: testHook},
		&CallSiteWrap{Owner: infoClass, HostMethod: "absent", Target: DefaultReportTarget, Wrapper: DefaultInterceptor},
		&CallSiteWrap{Owner: infoClass, HostMethod: "check", Target: DefaultReportTarget, Wrapper: DefaultInterceptor},
	}
	for _, e := range cases {
		out, changed, err := Module(in, e)
		if err != nil {
			t.Fatalf("%s: %v", e.Name(), err)
		}
		if changed || !bytes.Equal(out, in) {
			t.Fatalf("%s: expected untouched bytes", e.Name())
		}
	}
}

func TestModuleRejectsGarbage(t *testing.T) {
	_, _, err := Module([]byte("PK\x03\x04not a class"), ConstructorHook(DefaultConstructorHook))
	if !errors.Is(err, classfile.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func visitorState(t *testing.T, retDesc string, access uint16) ([]byte, uint16) {
	t.Helper()
	c := classfiletest.New(VisitorStateClass, "java/lang/Object")
	target := c.Methodref(DescriptionClass, "applySeverityOverride", "()"+retDesc)
	c.Method(classfiletest.Method{
		Access: access, Name: "reportMatch", Desc: "(L" + DescriptionClass + ";)V", MaxStack: 1, MaxLocals: 3,
		// aload_1; invokevirtual applySeverityOverride; astore_2; return
		Code: classfiletest.Concat([]byte{0x2b}, classfiletest.Op(0xb6, target), []byte{0x4d, 0xb1}),
	})
	return c.Bytes(), target
}

func TestCallSiteWrapPassesReceiver(t *testing.T) {
	in, target := visitorState(t, "L"+DescriptionClass+";", classfile.AccPublic)
	out, changed, err := Module(in, ReportInterception(DefaultReportTarget, DefaultInterceptor))
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected reportMatch to be patched")
	}
	cf, err := classfile.Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	code, err := cf.Code(cf.FindMethods("reportMatch", "")[0])
	if err != nil {
		t.Fatal(err)
	}
	if code.MaxStack != 2 || code.MaxLocals != 3 {
		t.Fatalf("stack/locals = %d/%d, want 2/3", code.MaxStack, code.MaxLocals)
	}
	wrapIdx, err := cf.Pool.AddMethodref(DefaultInterceptor)
	if err != nil {
		t.Fatal(err)
	}
	var want []byte
	want = append(want, 0x2b, 0xb6)
	want = binary.BigEndian.AppendUint16(want, target)
	want = append(want, 0x2a, 0x5f, 0xb8)
	want = binary.BigEndian.AppendUint16(want, wrapIdx)
	want = append(want, 0x4d, 0xb1)

	info := cf.FindMethods("reportMatch", "")[0].Attributes[0].Info
	got := info[8 : 8+binary.BigEndian.Uint32(info[4:8])]
	if !bytes.Equal(got, want) {
		t.Fatalf("code = % x\nwant   % x", got, want)
	}
}

func TestCallSiteWrapErrors(t *testing.T) {
	prim, _ := visitorState(t, "I", classfile.AccPublic)
	if _, _, err := Module(prim, ReportInterception(DefaultReportTarget, DefaultInterceptor)); !errors.Is(err, ErrNotReference) {
		t.Fatalf("expected ErrNotReference, got %v", err)
	}
	static, _ := visitorState(t, "L"+DescriptionClass+";", classfile.AccPublic|classfile.AccStatic)
	if _, _, err := Module(static, ReportInterception(DefaultReportTarget, DefaultInterceptor)); err == nil {
		t.Fatal("expected an error for a static host with PassReceiver")
	}
}
