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

// Package expr provides the expression intermediate representation for
// symbolic formulas, the adapter that interns externally constructed
// trees into nodes with stable structural identity, common subexpression
// elimination, and the optimizing rewrite pipeline.
package expr

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Kind categorizes IR nodes for dispatch during rewriting and printing.
type Kind int

const (
	// KindLiteral is a numeric constant leaf.
	KindLiteral Kind = iota

	// KindSymbol is a named variable leaf.
	KindSymbol

	// KindAdd is n-ary commutative addition.
	KindAdd

	// KindSub is binary subtraction.
	KindSub

	// KindMul is n-ary commutative multiplication.
	KindMul

	// KindDiv is binary division.
	KindDiv

	// KindNeg is unary negation.
	KindNeg

	// KindPow is binary exponentiation (base, exponent).
	KindPow

	// KindCall is application of a named function to ordered arguments.
	KindCall
)

// String returns a human-readable name for the Kind.
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "Literal"
	case KindSymbol:
		return "Symbol"
	case KindAdd:
		return "Add"
	case KindSub:
		return "Sub"
	case KindMul:
		return "Mul"
	case KindDiv:
		return "Div"
	case KindNeg:
		return "Neg"
	case KindPow:
		return "Pow"
	case KindCall:
		return "Call"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// IsLeaf reports whether the kind carries no children.
func (k Kind) IsLeaf() bool {
	return k == KindLiteral || k == KindSymbol
}

// Node is an immutable expression node. Nodes are created through a
// Builder, which interns them: two structurally identical subtrees built
// through the same Builder are the same *Node, so structural identity is
// pointer identity. Nodes are never mutated after construction and may be
// shared by any number of parents within one compilation request.
type Node struct {
	// Kind is the operator kind.
	Kind Kind

	// Value is the numeric value for KindLiteral nodes.
	Value float64

	// Name is the symbol name (KindSymbol) or callee name (KindCall).
	Name string

	// Children are the ordered operands. Commutative kinds (Add, Mul)
	// hold children in canonical key order.
	Children []*Node

	// id is the creation index within the owning Builder, used for
	// deterministic ordering diagnostics.
	id int

	// key is the canonical structural key used for interning.
	key string
}

// ID returns the node's creation index within its Builder. IDs are
// deterministic given a deterministic construction order.
func (n *Node) ID() int { return n.id }

// Key returns the canonical structural key. Two nodes from the same
// Builder are identical iff their keys are equal.
func (n *Node) Key() string { return n.key }

// String returns a debug rendering of the node.
func (n *Node) String() string {
	switch n.Kind {
	case KindLiteral:
		return fmt.Sprintf("%g", n.Value)
	case KindSymbol:
		return n.Name
	case KindCall:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = c.String()
		}
		return n.Name + "(" + strings.Join(parts, ", ") + ")"
	default:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = c.String()
		}
		return strings.ToLower(n.Kind.String()) + "(" + strings.Join(parts, ", ") + ")"
	}
}

// Builder interns expression nodes for one compilation request. It maps
// canonical structural keys to node identity, which is what makes
// repeated subtrees detectable for CSE. A Builder is not safe for
// concurrent use; each request gets its own, so nothing leaks across
// requests.
type Builder struct {
	interned map[string]*Node
	nextID   int
}

// NewBuilder returns an empty request-scoped interning table.
func NewBuilder() *Builder {
	return &Builder{interned: make(map[string]*Node)}
}

// Len returns the number of distinct nodes interned so far.
func (b *Builder) Len() int { return len(b.interned) }

// intern returns the canonical node for key, creating it via make on a
// miss. All constructors funnel through here.
func (b *Builder) intern(key string, make func() *Node) *Node {
	if n, ok := b.interned[key]; ok {
		return n
	}
	n := make()
	n.key = key
	n.id = b.nextID
	b.nextID++
	b.interned[key] = n
	return n
}

// Literal returns the interned literal node for v.
func (b *Builder) Literal(v float64) *Node {
	key := fmt.Sprintf("l:%016x", math.Float64bits(v))
	return b.intern(key, func() *Node {
		return &Node{Kind: KindLiteral, Value: v}
	})
}

// Symbol returns the interned symbol node for name.
func (b *Builder) Symbol(name string) *Node {
	return b.intern("s:"+name, func() *Node {
		return &Node{Kind: KindSymbol, Name: name}
	})
}

// Add returns the interned sum of terms. Nested sums are flattened and
// terms are ordered by canonical key, so a+(b+c) and (c+a)+b intern to
// the same node. A single term returns that term unchanged.
func (b *Builder) Add(terms ...*Node) *Node {
	return b.nary(KindAdd, "+", terms)
}

// Mul returns the interned product of factors, flattened and ordered by
// canonical key like Add.
func (b *Builder) Mul(factors ...*Node) *Node {
	return b.nary(KindMul, "*", factors)
}

func (b *Builder) nary(kind Kind, tag string, operands []*Node) *Node {
	flat := make([]*Node, 0, len(operands))
	for _, op := range operands {
		if op.Kind == kind {
			flat = append(flat, op.Children...)
		} else {
			flat = append(flat, op)
		}
	}
	if len(flat) == 0 {
		panic("expr: " + kind.String() + " requires at least one operand")
	}
	if len(flat) == 1 {
		return flat[0]
	}
	// Fixed child-ordering rule for commutative operators: sort by the
	// children's canonical keys.
	sort.SliceStable(flat, func(i, j int) bool { return flat[i].key < flat[j].key })
	return b.intern(childKey(tag, flat), func() *Node {
		return &Node{Kind: kind, Children: flat}
	})
}

// Sub returns the interned difference lhs - rhs.
func (b *Builder) Sub(lhs, rhs *Node) *Node {
	ch := []*Node{lhs, rhs}
	return b.intern(childKey("-", ch), func() *Node {
		return &Node{Kind: KindSub, Children: ch}
	})
}

// Div returns the interned quotient num / den.
func (b *Builder) Div(num, den *Node) *Node {
	ch := []*Node{num, den}
	return b.intern(childKey("/", ch), func() *Node {
		return &Node{Kind: KindDiv, Children: ch}
	})
}

// Neg returns the interned negation of operand.
func (b *Builder) Neg(operand *Node) *Node {
	ch := []*Node{operand}
	return b.intern(childKey("n", ch), func() *Node {
		return &Node{Kind: KindNeg, Children: ch}
	})
}

// Pow returns the interned power base**exponent.
func (b *Builder) Pow(base, exponent *Node) *Node {
	ch := []*Node{base, exponent}
	return b.intern(childKey("^", ch), func() *Node {
		return &Node{Kind: KindPow, Children: ch}
	})
}

// Call returns the interned application of the named function to args.
func (b *Builder) Call(name string, args ...*Node) *Node {
	ch := append([]*Node(nil), args...)
	return b.intern(childKey("c:"+name, ch), func() *Node {
		return &Node{Kind: KindCall, Name: name, Children: ch}
	})
}

func childKey(tag string, children []*Node) string {
	var sb strings.Builder
	sb.WriteString(tag)
	sb.WriteByte('(')
	for i, c := range children {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(c.key)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Walk visits n and all reachable children in post-order, calling fn for
// each distinct node exactly once.
func Walk(n *Node, fn func(*Node)) {
	seen := make(map[*Node]bool)
	var visit func(*Node)
	visit = func(n *Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, c := range n.Children {
			visit(c)
		}
		fn(n)
	}
	visit(n)
}

// FreeSymbols returns the distinct symbol names reachable from the given
// roots, sorted alphabetically.
func FreeSymbols(roots ...*Node) []string {
	set := make(map[string]bool)
	for _, r := range roots {
		Walk(r, func(n *Node) {
			if n.Kind == KindSymbol {
				set[n.Name] = true
			}
		})
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
