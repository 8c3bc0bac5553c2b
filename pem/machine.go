package pem

import (
	"github.com/golang/glog"
)

// Machine is a single-use cycle-accurate simulator. Once a Compute call has
// advanced the clock past cycle 0, the instance is terminated and later
// calls fail with ErrTerminated; a fresh Machine is required to run another
// program. A call that fails while issuing its first instruction, or that
// runs an empty program, leaves the clock at 0.
type Machine struct {
	regs          [RegisterCount]*ExprHandle
	mem           map[Addr]ExprHandle
	pc            uint64
	pending       *pendingQueue
	allowDataRace bool
}

// NewMachine builds a machine with the given initial memory contents and
// eight empty registers.
func NewMachine(initialMemory map[Addr]ExprHandle) *Machine {
	mem := make(map[Addr]ExprHandle, len(initialMemory))
	for addr, value := range initialMemory {
		mem[addr] = value
	}
	return &Machine{
		mem:     mem,
		pending: newPendingQueue(),
	}
}

// AllowDataRace toggles the machine's race policy. Enabling leniency logs
// a warning, since it silently makes the last popped writer for a
// contested destination win instead of aborting the run.
func (m *Machine) AllowDataRace(allow bool) {
	if allow && !m.allowDataRace {
		glog.Warning("pem: data race detection disabled; retirement order will resolve races silently")
	}
	m.allowDataRace = allow
}

// Compute executes program to completion and returns the final value of
// register 0. The machine issues every instruction's active slots in
// order, then drains the pending-operation heap until empty.
func (m *Machine) Compute(program []Instruction) (ExprHandle, error) {
	if m.pc != 0 {
		return ExprHandle{}, errTerminated()
	}

	for _, inst := range program {
		if err := m.beginExecution(inst); err != nil {
			return ExprHandle{}, err
		}
		if err := m.endCycle(); err != nil {
			return ExprHandle{}, err
		}
		m.pc++
	}

	for !m.pending.empty() {
		if err := m.endCycle(); err != nil {
			return ExprHandle{}, err
		}
		m.pc++
	}

	return m.registerValue(Reg(0))
}

// validatedRegister returns reg if it is a legal register id.
func (m *Machine) validatedRegister(reg Reg) (Reg, error) {
	if uint32(reg) >= RegisterCount {
		return 0, errInvalidRegister(reg, m.pc)
	}
	return reg, nil
}

// registerValue returns the current value held in reg.
func (m *Machine) registerValue(reg Reg) (ExprHandle, error) {
	if uint32(reg) >= RegisterCount {
		return ExprHandle{}, errInvalidRegister(reg, m.pc)
	}
	v := m.regs[reg]
	if v == nil {
		return ExprHandle{}, errUninitializedRegister(reg, m.pc)
	}
	return *v, nil
}

// addressValue returns the current value held at addr.
func (m *Machine) addressValue(addr Addr) (ExprHandle, error) {
	v, ok := m.mem[addr]
	if !ok {
		return ExprHandle{}, errUninitializedMemory(addr, m.pc)
	}
	return v, nil
}

// beginExecution issues every active slot of inst, in the fixed slot
// order, reading all source operands eagerly against the register file as
// it stood at the start of this cycle.
func (m *Machine) beginExecution(inst Instruction) error {
	for _, opcode := range slotOrder {
		if err := m.issueSlot(opcode, inst); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) issueSlot(opcode Opcode, inst Instruction) error {
	switch opcode {
	case OpLDI:
		if inst.ldi == nil {
			return nil
		}
		dst, err := m.validatedRegister(inst.ldi.dst)
		if err != nil {
			return err
		}
		m.pending.push(issuedOp(WriteRegister(dst, FromConst(uint32(inst.ldi.value))), m.pc, OpLDI))

	case OpLDR:
		if inst.ldr == nil {
			return nil
		}
		dst, err := m.validatedRegister(inst.ldr.dst)
		if err != nil {
			return err
		}
		value, err := m.addressValue(inst.ldr.addr)
		if err != nil {
			return err
		}
		m.pending.push(issuedOp(WriteRegister(dst, value), m.pc, OpLDR))

	case OpSTR:
		if inst.str == nil {
			return nil
		}
		value, err := m.registerValue(inst.str.src)
		if err != nil {
			return err
		}
		m.pending.push(issuedOp(WriteMemory(inst.str.addr, value), m.pc, OpSTR))

	case OpADD:
		if inst.add == nil {
			return nil
		}
		dst, err := m.validatedRegister(inst.add.dst)
		if err != nil {
			return err
		}
		v1, err := m.registerValue(inst.add.src1)
		if err != nil {
			return err
		}
		v2, err := m.registerValue(inst.add.src2)
		if err != nil {
			return err
		}
		// src2 is placed on the left of the rendered expression.
		m.pending.push(issuedOp(WriteRegister(dst, Add(v2, v1)), m.pc, OpADD))

	case OpSUB:
		if inst.sub == nil {
			return nil
		}
		dst, err := m.validatedRegister(inst.sub.dst)
		if err != nil {
			return err
		}
		v1, err := m.registerValue(inst.sub.src1)
		if err != nil {
			return err
		}
		v2, err := m.registerValue(inst.sub.src2)
		if err != nil {
			return err
		}
		m.pending.push(issuedOp(WriteRegister(dst, Sub(v1, v2)), m.pc, OpSUB))

	case OpMUL:
		if inst.mul == nil {
			return nil
		}
		dst, err := m.validatedRegister(inst.mul.dst)
		if err != nil {
			return err
		}
		v1, err := m.registerValue(inst.mul.src1)
		if err != nil {
			return err
		}
		v2, err := m.registerValue(inst.mul.src2)
		if err != nil {
			return err
		}
		m.pending.push(issuedOp(WriteRegister(dst, Mul(v1, v2)), m.pc, OpMUL))
	}
	return nil
}

// endCycle retires, at the end of cycle m.pc, every operation whose
// completeBy equals m.pc+1, in heap order, detecting data races between
// adjacent retirements within this cycle only. The caller increments
// m.pc after endCycle returns.
func (m *Machine) endCycle() error {
	var prev *InflightOp

	for {
		next, ok := m.pending.peek()
		if !ok {
			break
		}
		if next.completeBy > m.pc+1 {
			break
		}
		if next.completeBy <= m.pc {
			panic("pem: operation missed its retirement cycle")
		}

		next = m.pending.pop()

		if prev != nil && prev.output.sameDestination(next.output) {
			if !m.allowDataRace {
				switch next.output.kind {
				case destRegister:
					return errRegisterDataRace(next.output.reg, m.pc, prev.issuedAt, next.issuedAt)
				default:
					return errMemoryDataRace(next.output.addr, m.pc, prev.issuedAt, next.issuedAt)
				}
			}
			glog.Warningf("pem: data race on cycle %d between instructions %d and %d (ignored)",
				m.pc, prev.issuedAt, next.issuedAt)
		}

		switch next.output.kind {
		case destRegister:
			value := next.output.value
			m.regs[next.output.reg] = &value
		case destMemory:
			m.mem[next.output.addr] = next.output.value
		}

		prevCopy := next
		prev = &prevCopy
	}

	return nil
}
