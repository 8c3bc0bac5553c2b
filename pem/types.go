// Package pem implements the Polynomial Evaluation Machine: a cycle-accurate
// simulator for a register-and-memory machine whose operands are symbolic
// algebraic expressions rather than numbers.
package pem

import "fmt"

// RegisterCount is the number of general-purpose registers the machine
// exposes, numbered 0 through RegisterCount-1.
const RegisterCount = 8

// Reg identifies a register, valid in the range [0, RegisterCount).
type Reg uint32

// String implements fmt.Stringer.
func (r Reg) String() string {
	return fmt.Sprintf("%d", uint32(r))
}

// Addr identifies a memory cell across the machine's full 32-bit address
// space.
type Addr uint32

// String implements fmt.Stringer.
func (a Addr) String() string {
	return fmt.Sprintf("%d", uint32(a))
}

// Const is a 32-bit immediate value carried by a ldi operation.
type Const uint32

// String implements fmt.Stringer.
func (c Const) String() string {
	return fmt.Sprintf("%d", uint32(c))
}
