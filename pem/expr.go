package pem

import "fmt"

// expressionKind distinguishes the node variants of an Expression.
type expressionKind int

const (
	kindConst expressionKind = iota
	kindSymbol
	kindAdd
	kindSub
	kindMul
)

// Expression is an immutable node in the expression DAG. Children are shared
// by reference and never mutated once constructed, so the graph built by the
// combinators is acyclic by construction: a node can only refer to nodes
// that already existed when it was created.
type Expression struct {
	kind     expressionKind
	value    uint32 // valid when kind == kindConst
	symbol   string // valid when kind == kindSymbol
	lhs, rhs *Expression
}

// ExprHandle is the value type carried in registers and memory cells: a
// shared reference to an Expression node. The engine never inspects a
// handle beyond cloning it, combining it with another handle, or rendering
// it, so equality of the underlying Go pointer is irrelevant to program
// semantics.
type ExprHandle struct {
	node *Expression
}

// FromConst builds a handle wrapping a numeric leaf.
func FromConst(value uint32) ExprHandle {
	return ExprHandle{node: &Expression{kind: kindConst, value: value}}
}

// FromSymbol builds a handle wrapping a symbolic leaf.
func FromSymbol(symbol string) ExprHandle {
	return ExprHandle{node: &Expression{kind: kindSymbol, symbol: symbol}}
}

// Add returns a handle for lhs + rhs.
func Add(lhs, rhs ExprHandle) ExprHandle {
	return ExprHandle{node: &Expression{kind: kindAdd, lhs: lhs.node, rhs: rhs.node}}
}

// Sub returns a handle for lhs - rhs.
func Sub(lhs, rhs ExprHandle) ExprHandle {
	return ExprHandle{node: &Expression{kind: kindSub, lhs: lhs.node, rhs: rhs.node}}
}

// Mul returns a handle for lhs * rhs.
func Mul(lhs, rhs ExprHandle) ExprHandle {
	return ExprHandle{node: &Expression{kind: kindMul, lhs: lhs.node, rhs: rhs.node}}
}

// WeakEval renders the expression with every binary operator
// parenthesised, a pure textual trace of how the node was built.
func (h ExprHandle) WeakEval() string {
	return weakEval(h.node)
}

func weakEval(n *Expression) string {
	switch n.kind {
	case kindConst:
		return fmt.Sprintf("%d", n.value)
	case kindSymbol:
		return n.symbol
	case kindAdd:
		return "(" + weakEval(n.lhs) + " + " + weakEval(n.rhs) + ")"
	case kindSub:
		return "(" + weakEval(n.lhs) + " - " + weakEval(n.rhs) + ")"
	case kindMul:
		return "(" + weakEval(n.lhs) + " * " + weakEval(n.rhs) + ")"
	default:
		panic("pem: unknown expression kind")
	}
}

// precedence tags the shape of a strongly-evaluated subexpression so its
// parent can decide whether it needs parenthesising.
type precedence int

const (
	precAdd precedence = iota
	precSub
	precMul
	precAtom // numeric constant or symbol leaf
)

// evaluated is the result of folding a subtree during StrongEval: either a
// numeric constant (when every leaf beneath it was numeric) or a rendered
// string, tagged with the precedence of its top-level operator.
type evaluated struct {
	numeric    uint32
	isNumeric  bool
	text       string
	precedence precedence
}

func (e evaluated) render() string {
	if e.isNumeric {
		return fmt.Sprintf("%d", e.numeric)
	}
	return e.text
}

// StrongEval renders the expression with minimal parentheses respecting
// standard precedence, folding subtrees whose direct operands are both
// already numeric. Folding does not cascade past one non-numeric operand,
// so `1 + (2 - A)` renders as "1 + 2 - A" rather than "3 - A".
func (h ExprHandle) StrongEval() string {
	return strongEval(h.node).render()
}

func strongEval(n *Expression) evaluated {
	switch n.kind {
	case kindConst:
		return evaluated{numeric: n.value, isNumeric: true, precedence: precAtom}
	case kindSymbol:
		return evaluated{text: n.symbol, precedence: precAtom}
	case kindAdd:
		return evalAdd(strongEval(n.lhs), strongEval(n.rhs))
	case kindSub:
		return evalSub(strongEval(n.lhs), strongEval(n.rhs))
	case kindMul:
		return evalMul(strongEval(n.lhs), strongEval(n.rhs))
	default:
		panic("pem: unknown expression kind")
	}
}

func evalAdd(l, r evaluated) evaluated {
	if l.isNumeric && r.isNumeric {
		return evaluated{numeric: l.numeric + r.numeric, isNumeric: true, precedence: precAtom}
	}
	return evaluated{text: l.render() + " + " + r.render(), precedence: precAdd}
}

func evalSub(l, r evaluated) evaluated {
	if l.isNumeric && r.isNumeric {
		return evaluated{numeric: l.numeric - r.numeric, isNumeric: true, precedence: precAtom}
	}
	if r.precedence == precAdd || r.precedence == precSub {
		return evaluated{text: l.render() + " - (" + r.render() + ")", precedence: precSub}
	}
	return evaluated{text: l.render() + " - " + r.render(), precedence: precSub}
}

func evalMul(l, r evaluated) evaluated {
	if l.isNumeric && r.isNumeric {
		return evaluated{numeric: l.numeric * r.numeric, isNumeric: true, precedence: precAtom}
	}
	return evaluated{text: parenthesizeForMul(l) + " * " + parenthesizeForMul(r), precedence: precMul}
}

func parenthesizeForMul(e evaluated) string {
	if e.precedence == precAdd || e.precedence == precSub {
		return "(" + e.render() + ")"
	}
	return e.render()
}
