package classfile

// Opcode is a JVM instruction opcode.
type Opcode byte

// Opcodes the patcher emits or inspects. The full table lives in opWidth.
const (
	OpNop             Opcode = 0x00
	OpAload0          Opcode = 0x2a
	OpPop             Opcode = 0x57
	OpDup             Opcode = 0x59
	OpSwap            Opcode = 0x5f
	OpIinc            Opcode = 0x84
	OpIfeq            Opcode = 0x99
	OpIfAcmpne        Opcode = 0xa6
	OpGoto            Opcode = 0xa7
	OpJsr             Opcode = 0xa8
	OpTableswitch     Opcode = 0xaa
	OpLookupswitch    Opcode = 0xab
	OpIreturn         Opcode = 0xac
	OpAreturn         Opcode = 0xb0
	OpReturn          Opcode = 0xb1
	OpInvokevirtual   Opcode = 0xb6
	OpInvokespecial   Opcode = 0xb7
	OpInvokestatic    Opcode = 0xb8
	OpInvokeinterface Opcode = 0xb9
	OpInvokedynamic   Opcode = 0xba
	OpNew             Opcode = 0xbb
	OpAthrow          Opcode = 0xbf
	OpWide            Opcode = 0xc4
	OpIfnull          Opcode = 0xc6
	OpIfnonnull       Opcode = 0xc7
	OpGotoW           Opcode = 0xc8
	OpJsrW            Opcode = 0xc9
)

// operand byte counts; -1 marks opcodes that are invalid in a class file,
// -2 marks the variable-length switches.
var opWidth [256]int8

func init() {
	for i := range opWidth {
		opWidth[i] = -1
	}
	span := func(from, to byte, w int8) {
		for op := int(from); op <= int(to); op++ {
			opWidth[op] = w
		}
	}
	span(0x00, 0x0f, 0) // nop .. dconst_1
	opWidth[0x10] = 1   // bipush
	opWidth[0x11] = 2   // sipush
	opWidth[0x12] = 1   // ldc
	span(0x13, 0x14, 2) // ldc_w, ldc2_w
	span(0x15, 0x19, 1) // iload .. aload
	span(0x1a, 0x35, 0) // xload_n, xaload
	span(0x36, 0x3a, 1) // istore .. astore
	span(0x3b, 0x83, 0) // xstore_n, xastore, stack ops, arithmetic
	opWidth[0x84] = 2   // iinc
	span(0x85, 0x98, 0) // conversions, comparisons
	span(0x99, 0xa8, 2) // if*, goto, jsr
	opWidth[0xa9] = 1   // ret
	opWidth[0xaa] = -2  // tableswitch
	opWidth[0xab] = -2  // lookupswitch
	span(0xac, 0xb1, 0) // returns
	span(0xb2, 0xb8, 2) // field access, invokevirtual/special/static
	span(0xb9, 0xba, 4) // invokeinterface, invokedynamic
	opWidth[0xbb] = 2   // new
	opWidth[0xbc] = 1   // newarray
	opWidth[0xbd] = 2   // anewarray
	span(0xbe, 0xbf, 0) // arraylength, athrow
	span(0xc0, 0xc1, 2) // checkcast, instanceof
	span(0xc2, 0xc3, 0) // monitorenter, monitorexit
	opWidth[0xc4] = -2  // wide
	opWidth[0xc5] = 3   // multianewarray
	span(0xc6, 0xc7, 2) // ifnull, ifnonnull
	span(0xc8, 0xc9, 4) // goto_w, jsr_w
}

// IsBranch reports whether op carries a relative branch offset.
func (op Opcode) IsBranch() bool {
	return (op >= OpIfeq && op <= OpJsr) || op == OpIfnull || op == OpIfnonnull || op == OpGotoW || op == OpJsrW
}

func (op Opcode) wideBranch() bool {
	return op == OpGotoW || op == OpJsrW
}

// IsInvoke reports whether op invokes a method through a pool reference.
func (op Opcode) IsInvoke() bool {
	return op >= OpInvokevirtual && op <= OpInvokedynamic
}

// IsReturn reports whether op is one of the *return instructions.
func (op Opcode) IsReturn() bool {
	return op >= OpIreturn && op <= OpReturn
}

func (op Opcode) valid() bool {
	return opWidth[op] != -1
}
