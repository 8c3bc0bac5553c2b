package pem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zyang01/polynomial-evaluation/pem"
)

var _ = Describe("Expression", func() {
	Describe("WeakEval", func() {
		It("renders a numeric leaf", func() {
			Expect(pem.FromConst(42).WeakEval()).To(Equal("42"))
		})

		It("renders a symbolic leaf", func() {
			Expect(pem.FromSymbol("A").WeakEval()).To(Equal("A"))
		})

		It("fully parenthesises every binary node", func() {
			a := pem.FromSymbol("A")
			b := pem.FromSymbol("B")
			c := pem.FromConst(1)
			expr := pem.Mul(pem.Add(a, c), pem.Add(b, pem.FromConst(2)))

			Expect(expr.WeakEval()).To(Equal("((A + 1) * (B + 2))"))
		})
	})

	Describe("StrongEval", func() {
		It("folds an all-numeric tree with 32-bit wraparound", func() {
			sum := pem.Add(pem.FromConst(200), pem.FromConst(0xFFFFFFFF))
			Expect(sum.StrongEval()).To(Equal("199"))

			diff := pem.Sub(pem.FromConst(1), pem.FromConst(2))
			Expect(diff.StrongEval()).To(Equal("4294967295"))

			product := pem.Mul(pem.FromConst(3000000000), pem.FromConst(2))
			Expect(product.StrongEval()).To(Equal("1705032704"))
		})

		It("folds the left operand of a subtraction when both its children are numeric", func() {
			// (1+2) - A
			expr := pem.Sub(pem.Add(pem.FromConst(1), pem.FromConst(2)), pem.FromSymbol("A"))
			Expect(expr.StrongEval()).To(Equal("3 - A"))
		})

		It("does not cascade folding past one non-numeric operand", func() {
			// 1 + (2 - A)
			expr := pem.Add(pem.FromConst(1), pem.Sub(pem.FromConst(2), pem.FromSymbol("A")))
			Expect(expr.StrongEval()).To(Equal("1 + 2 - A"))
		})

		It("parenthesises a subtraction only when required by precedence", func() {
			// A*B - ((C+D) - (E*12))
			a, b, c, d, e := pem.FromSymbol("A"), pem.FromSymbol("B"), pem.FromSymbol("C"), pem.FromSymbol("D"), pem.FromSymbol("E")
			expr := pem.Sub(
				pem.Mul(a, b),
				pem.Sub(pem.Add(c, d), pem.Mul(e, pem.FromConst(12))),
			)
			Expect(expr.StrongEval()).To(Equal("A * B - (C + D - E * 12)"))
		})

		It("renders nested add/sub without parentheses regardless of association", func() {
			a, b, c := pem.FromSymbol("A"), pem.FromSymbol("B"), pem.FromSymbol("C")

			left := pem.Add(a, pem.Sub(b, c))
			Expect(left.StrongEval()).To(Equal("A + B - C"))

			right := pem.Sub(pem.Add(a, b), c)
			Expect(right.StrongEval()).To(Equal("A + B - C"))
		})
	})
})
