// Package parser reads the line-oriented program and startup-memory text
// formats described in the external interfaces of the PEM machine into
// pem.Instruction and pem.ExprHandle values.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zyang01/polynomial-evaluation/pem"
)

// ParseProgram reads a program file: whitespace-delimited opcode lines
// grouped into instructions by a lone `;` terminator line. Lines beginning
// with `#`, and blank lines, are ignored. Encountering the same slot twice
// within one `;`-block is permitted; the later occurrence wins.
func ParseProgram(r io.Reader) ([]pem.Instruction, error) {
	var program []pem.Instruction
	curr := pem.NewInstruction()
	open := false

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		fields := strings.Fields(line)

		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		op := fields[0]
		if op == ";" {
			program = append(program, curr)
			curr = pem.NewInstruction()
			open = false
			continue
		}

		var err error
		curr, err = applySlot(curr, op, fields[1:], lineNum)
		if err != nil {
			return nil, err
		}
		open = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading program: %w", err)
	}

	if open {
		return nil, fmt.Errorf("program: missing `;` terminator at end of file")
	}

	return program, nil
}

func applySlot(inst pem.Instruction, op string, operands []string, lineNum int) (pem.Instruction, error) {
	switch op {
	case "ldi":
		dst, value, err := parsePair(op, operands, lineNum)
		if err != nil {
			return inst, err
		}
		return inst.WithLDI(pem.Reg(dst), pem.Const(value)), nil

	case "ldr":
		reg, addr, err := parsePair(op, operands, lineNum)
		if err != nil {
			return inst, err
		}
		return inst.WithLDR(pem.Reg(reg), pem.Addr(addr)), nil

	case "str":
		reg, addr, err := parsePair(op, operands, lineNum)
		if err != nil {
			return inst, err
		}
		return inst.WithSTR(pem.Reg(reg), pem.Addr(addr)), nil

	case "add", "sub", "mul":
		dst, src1, src2, err := parseTriple(op, operands, lineNum)
		if err != nil {
			return inst, err
		}
		switch op {
		case "add":
			return inst.WithADD(pem.Reg(dst), pem.Reg(src1), pem.Reg(src2)), nil
		case "sub":
			return inst.WithSUB(pem.Reg(dst), pem.Reg(src1), pem.Reg(src2)), nil
		default:
			return inst.WithMUL(pem.Reg(dst), pem.Reg(src1), pem.Reg(src2)), nil
		}

	default:
		return inst, fmt.Errorf("program: line %d: unknown operation %q", lineNum, op)
	}
}

func parsePair(op string, operands []string, lineNum int) (uint32, uint32, error) {
	if len(operands) != 2 {
		return 0, 0, fmt.Errorf("program: line %d: %s expects 2 operands, got %d", lineNum, op, len(operands))
	}
	a, err := strconv.ParseUint(operands[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("program: line %d: invalid %s operand %q: %w", lineNum, op, operands[0], err)
	}
	b, err := strconv.ParseUint(operands[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("program: line %d: invalid %s operand %q: %w", lineNum, op, operands[1], err)
	}
	return uint32(a), uint32(b), nil
}

func parseTriple(op string, operands []string, lineNum int) (uint32, uint32, uint32, error) {
	if len(operands) != 3 {
		return 0, 0, 0, fmt.Errorf("program: line %d: %s expects 3 operands, got %d", lineNum, op, len(operands))
	}
	vals := make([]uint32, 3)
	for i, tok := range operands {
		v, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("program: line %d: invalid %s operand %q: %w", lineNum, op, tok, err)
		}
		vals[i] = uint32(v)
	}
	return vals[0], vals[1], vals[2], nil
}
