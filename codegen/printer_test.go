// Copyright 2026 symforge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symforge/symforge/expr"
)

func TestPrintExprC(t *testing.T) {
	ct := CTarget()
	b := expr.NewBuilder()
	a, x, y := b.Symbol("a"), b.Symbol("x"), b.Symbol("y")

	tests := []struct {
		name string
		node *expr.Node
		want string
	}{
		// Canonical child ordering puts composite operands before bare
		// symbols in sums and products.
		{"mul-binds-tighter", b.Add(a, b.Mul(x, y)), "x * y + a"},
		{"sum-in-product", b.Mul(b.Add(a, x), y), "(a + x) * y"},
		{"sub-right-parens", b.Sub(a, b.Sub(x, y)), "a - (x - y)"},
		{"sub-left-plain", b.Sub(b.Sub(a, x), y), "a - x - y"},
		{"div-right-parens", b.Div(a, b.Div(x, y)), "a / (x / y)"},
		{"div-in-sum", b.Add(a, b.Div(x, y)), "x / y + a"},
		{"neg-atom", b.Neg(x), "-x"},
		{"neg-sum", b.Neg(b.Add(x, y)), "-(x + y)"},
		{"neg-in-product", b.Mul(b.Neg(x), y), "-x * y"},
		{"neg-after-operator", b.Add(b.Literal(2), b.Neg(x)), "2.0 + (-x)"},
		{"pow-is-call", b.Pow(x, y), "pow(x, y)"},
		{"call", b.Call("sin", b.Add(x, y)), "sin(x + y)"},
		{"call-mapped", b.Call("abs", x), "fabs(x)"},
		{"literal", b.Literal(2), "2.0"},
		{"literal-frac", b.Literal(0.5), "0.5"},
		{"literal-exp", b.Literal(1e20), "1e+20"},
		{"literal-neg-in-sub", b.Sub(x, b.Literal(-3)), "x - (-3.0)"},
		{"reserved-escaped", b.Symbol("double"), "double_"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PrintExpr(tc.node, ct)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPrintExprF95(t *testing.T) {
	ft := Fortran95Target()
	b := expr.NewBuilder()
	x, y := b.Symbol("x"), b.Symbol("y")

	tests := []struct {
		name string
		node *expr.Node
		want string
	}{
		{"pow-operator", b.Pow(x, y), "x ** y"},
		{"pow-right-assoc", b.Pow(b.Pow(x, y), b.Literal(2)), "(x ** y) ** 2.0d0"},
		{"pow-neg-exponent", b.Pow(x, b.Neg(y)), "x ** (-y)"},
		{"literal-suffix", b.Literal(1.5), "1.5d0"},
		{"literal-int", b.Literal(2), "2.0d0"},
		{"literal-exp-char", b.Literal(1e20), "1d+20"},
		{"ceil-mapped", b.Call("ceil", x), "ceiling(x)"},
		{"reserved-escaped", b.Symbol("end"), "end_v"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PrintExpr(tc.node, ft)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPrintExprUnmappedFunction(t *testing.T) {
	b := expr.NewBuilder()
	_, err := PrintExpr(b.Call("erfc", b.Symbol("x")), CTarget())
	require.Error(t, err)
	var uerr *UnmappedFunctionError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "erfc", uerr.Function)
	assert.Equal(t, "c99", uerr.Target)

	// Recoverable: an override entry fixes the same expression.
	ct := CTarget().Clone()
	ct.Functions["erfc"] = "erfc"
	got, err := PrintExpr(b.Call("erfc", b.Symbol("x")), ct)
	require.NoError(t, err)
	assert.Equal(t, "erfc(x)", got)
}

func TestPrintDeterministicOperandOrder(t *testing.T) {
	// Canonical child ordering makes a+b and b+a print identically.
	b1 := expr.NewBuilder()
	s1, err := PrintExpr(b1.Add(b1.Symbol("b"), b1.Symbol("a")), CTarget())
	require.NoError(t, err)
	b2 := expr.NewBuilder()
	s2, err := PrintExpr(b2.Add(b2.Symbol("a"), b2.Symbol("b")), CTarget())
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}
