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

package expr

import "math"

// DefaultRules returns the built-in optimization passes in their default
// order: constant folding, identity removal, then strength reduction.
func DefaultRules() []RewriteRule {
	return []RewriteRule{
		{Name: "constant-fold", Apply: foldConstants},
		{Name: "add-identity", Apply: dropAddIdentity},
		{Name: "mul-identity", Apply: dropMulIdentity},
		{Name: "sub-cancel", Apply: cancelSub},
		{Name: "div-identity", Apply: dropDivIdentity},
		{Name: "neg-neg", Apply: collapseNeg},
		{Name: "pow-reduce", Apply: reducePow},
	}
}

// finite reports whether a folded value may replace the original
// subtree. Inf and NaN literals would print as uncompilable source, so
// folds that produce them are abandoned and the operator reaches the
// target language unevaluated.
func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// foldConstants evaluates operators over all-literal operands, and for
// the commutative kinds folds the literal operands into one.
func foldConstants(b *Builder, n *Node) *Node {
	switch n.Kind {
	case KindAdd, KindMul:
		lits := 0
		for _, c := range n.Children {
			if c.Kind == KindLiteral {
				lits++
			}
		}
		if lits < 2 {
			return n
		}
		acc := 0.0
		if n.Kind == KindMul {
			acc = 1.0
		}
		rest := make([]*Node, 0, len(n.Children)-lits+1)
		for _, c := range n.Children {
			if c.Kind != KindLiteral {
				rest = append(rest, c)
				continue
			}
			if n.Kind == KindAdd {
				acc += c.Value
			} else {
				acc *= c.Value
			}
		}
		if !finite(acc) {
			return n
		}
		if len(rest) == 0 {
			return b.Literal(acc)
		}
		rest = append(rest, b.Literal(acc))
		if n.Kind == KindAdd {
			return b.Add(rest...)
		}
		return b.Mul(rest...)
	case KindSub:
		if lhs, rhs := n.Children[0], n.Children[1]; lhs.Kind == KindLiteral && rhs.Kind == KindLiteral {
			if v := lhs.Value - rhs.Value; finite(v) {
				return b.Literal(v)
			}
		}
	case KindDiv:
		num, den := n.Children[0], n.Children[1]
		if num.Kind == KindLiteral && den.Kind == KindLiteral && den.Value != 0 {
			if v := num.Value / den.Value; finite(v) {
				return b.Literal(v)
			}
		}
	case KindNeg:
		if c := n.Children[0]; c.Kind == KindLiteral && finite(c.Value) {
			return b.Literal(-c.Value)
		}
	case KindPow:
		base, exp := n.Children[0], n.Children[1]
		if base.Kind == KindLiteral && exp.Kind == KindLiteral {
			if v := math.Pow(base.Value, exp.Value); finite(v) {
				return b.Literal(v)
			}
		}
	}
	return n
}

// dropAddIdentity removes zero terms from sums.
func dropAddIdentity(b *Builder, n *Node) *Node {
	if n.Kind != KindAdd {
		return n
	}
	terms := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Kind == KindLiteral && c.Value == 0 {
			continue
		}
		terms = append(terms, c)
	}
	if len(terms) == len(n.Children) {
		return n
	}
	if len(terms) == 0 {
		return b.Literal(0)
	}
	return b.Add(terms...)
}

// dropMulIdentity removes unit factors from products and collapses
// products with a zero factor.
func dropMulIdentity(b *Builder, n *Node) *Node {
	if n.Kind != KindMul {
		return n
	}
	factors := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Kind == KindLiteral {
			if c.Value == 0 {
				return b.Literal(0)
			}
			if c.Value == 1 {
				continue
			}
		}
		factors = append(factors, c)
	}
	if len(factors) == len(n.Children) {
		return n
	}
	if len(factors) == 0 {
		return b.Literal(1)
	}
	return b.Mul(factors...)
}

// cancelSub rewrites x - 0 to x and x - x to 0. The latter relies on
// interned structural identity, not semantic equality.
func cancelSub(b *Builder, n *Node) *Node {
	if n.Kind != KindSub {
		return n
	}
	lhs, rhs := n.Children[0], n.Children[1]
	if rhs.Kind == KindLiteral && rhs.Value == 0 {
		return lhs
	}
	if lhs == rhs {
		return b.Literal(0)
	}
	return n
}

// dropDivIdentity rewrites x / 1 to x.
func dropDivIdentity(_ *Builder, n *Node) *Node {
	if n.Kind != KindDiv {
		return n
	}
	if den := n.Children[1]; den.Kind == KindLiteral && den.Value == 1 {
		return n.Children[0]
	}
	return n
}

// collapseNeg rewrites -(-x) to x.
func collapseNeg(_ *Builder, n *Node) *Node {
	if n.Kind == KindNeg && n.Children[0].Kind == KindNeg {
		return n.Children[0].Children[0]
	}
	return n
}

// maxPowExpansion bounds pow strength reduction; larger exponents stay
// as calls since repeated multiplication stops paying off.
const maxPowExpansion = 4

// reducePow strength-reduces pow(x, k) for small non-negative integer k
// into repeated multiplication.
func reducePow(b *Builder, n *Node) *Node {
	if n.Kind != KindPow {
		return n
	}
	exp := n.Children[1]
	if exp.Kind != KindLiteral {
		return n
	}
	v := exp.Value
	if v != math.Trunc(v) || v < 0 || v > maxPowExpansion {
		return n
	}
	base := n.Children[0]
	switch int(v) {
	case 0:
		return b.Literal(1)
	case 1:
		return base
	default:
		factors := make([]*Node, int(v))
		for i := range factors {
			factors[i] = base
		}
		return b.Mul(factors...)
	}
}
