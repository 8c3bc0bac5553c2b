package pem

import "fmt"

// ldiOperands holds the operands of a ldi slot.
type ldiOperands struct {
	dst   Reg
	value Const
}

// ldrOperands holds the operands of a ldr slot.
type ldrOperands struct {
	dst  Reg
	addr Addr
}

// strOperands holds the operands of a str slot.
type strOperands struct {
	src  Reg
	addr Addr
}

// aluOperands holds the operands shared by add/sub/mul slots.
type aluOperands struct {
	dst, src1, src2 Reg
}

// Instruction is a bundle of up to six independent optional operation
// slots, one per opcode, all issued in the same clock cycle. An
// instruction with no active slots is a bubble: it consumes one cycle and
// issues nothing.
type Instruction struct {
	ldi *ldiOperands
	ldr *ldrOperands
	str *strOperands
	add *aluOperands
	sub *aluOperands
	mul *aluOperands
}

// NewInstruction returns an empty instruction (a bubble).
func NewInstruction() Instruction {
	return Instruction{}
}

// WithLDI sets the ldi slot: load a 32-bit numeric constant into dst.
// A second call overwrites the first (last writer wins), matching the
// reference builder's behavior for duplicate slot assignment.
func (i Instruction) WithLDI(dst Reg, value Const) Instruction {
	i.ldi = &ldiOperands{dst: dst, value: value}
	return i
}

// WithLDR sets the ldr slot: load mem[addr] into dst.
func (i Instruction) WithLDR(dst Reg, addr Addr) Instruction {
	i.ldr = &ldrOperands{dst: dst, addr: addr}
	return i
}

// WithSTR sets the str slot: store regs[src] into mem[addr].
func (i Instruction) WithSTR(src Reg, addr Addr) Instruction {
	i.str = &strOperands{src: src, addr: addr}
	return i
}

// WithADD sets the add slot: dst = src2 + src1 (src2 on the left of the
// rendered expression, per the machine's fixed operand order).
func (i Instruction) WithADD(dst, src1, src2 Reg) Instruction {
	i.add = &aluOperands{dst: dst, src1: src1, src2: src2}
	return i
}

// WithSUB sets the sub slot: dst = src1 - src2.
func (i Instruction) WithSUB(dst, src1, src2 Reg) Instruction {
	i.sub = &aluOperands{dst: dst, src1: src1, src2: src2}
	return i
}

// WithMUL sets the mul slot: dst = src1 * src2.
func (i Instruction) WithMUL(dst, src1, src2 Reg) Instruction {
	i.mul = &aluOperands{dst: dst, src1: src1, src2: src2}
	return i
}

// String implements fmt.Stringer for debugging and trace output.
func (i Instruction) String() string {
	s := "{"
	if i.ldi != nil {
		s += fmt.Sprintf(" ldi %s %s;", i.ldi.dst, i.ldi.value)
	}
	if i.ldr != nil {
		s += fmt.Sprintf(" ldr %s %s;", i.ldr.dst, i.ldr.addr)
	}
	if i.str != nil {
		s += fmt.Sprintf(" str %s %s;", i.str.src, i.str.addr)
	}
	if i.add != nil {
		s += fmt.Sprintf(" add %s %s %s;", i.add.dst, i.add.src1, i.add.src2)
	}
	if i.sub != nil {
		s += fmt.Sprintf(" sub %s %s %s;", i.sub.dst, i.sub.src1, i.sub.src2)
	}
	if i.mul != nil {
		s += fmt.Sprintf(" mul %s %s %s;", i.mul.dst, i.mul.src1, i.mul.src2)
	}
	return s + " }"
}
