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

import (
	"fmt"
	"regexp"
)

// TempAssignment is a named temporary produced by common subexpression
// elimination. The sequence returned by Eliminate is topologically
// ordered: every temp's expression references only original symbols or
// earlier temps, never a later temp or itself.
type TempAssignment struct {
	Name string
	Expr *Node
}

// Eliminate hoists subexpressions that occur at least twice across all
// roots combined into ordered temporaries, and returns the rewritten
// roots referencing them. Leaves are never hoisted; hoisting a bare
// symbol or literal produces no benefit and inflates the routine body.
// Equivalence is structural: two mathematically equal but structurally
// different subtrees are not merged.
//
// Temporaries are numbered in the order they are first discovered during
// post-order traversal, so the output is deterministic given a
// deterministic root ordering.
func Eliminate(b *Builder, roots []*Node) ([]TempAssignment, []*Node) {
	counts := make(map[*Node]int)
	var order []*Node
	var visit func(*Node)
	visit = func(n *Node) {
		counts[n]++
		if counts[n] > 1 {
			// Occurrences below an already-seen subtree collapse into
			// the hoisted temp, so they are not re-counted.
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
		order = append(order, n)
	}
	for _, r := range roots {
		visit(r)
	}

	prefix := tempPrefix(roots)
	repl := make(map[*Node]*Node)
	var rebuild func(*Node) *Node
	rebuild = func(n *Node) *Node {
		if s, ok := repl[n]; ok {
			return s
		}
		if n.Kind.IsLeaf() {
			return n
		}
		changed := false
		ch := make([]*Node, len(n.Children))
		for i, c := range n.Children {
			ch[i] = rebuild(c)
			if ch[i] != c {
				changed = true
			}
		}
		if !changed {
			return n
		}
		return b.rebuildWith(n, ch)
	}

	var temps []TempAssignment
	for _, n := range order {
		if counts[n] < 2 || n.Kind.IsLeaf() {
			continue
		}
		name := fmt.Sprintf("%s%d", prefix, len(temps))
		temps = append(temps, TempAssignment{Name: name, Expr: rebuild(n)})
		repl[n] = b.Symbol(name)
	}

	rewritten := make([]*Node, len(roots))
	for i, r := range roots {
		rewritten[i] = rebuild(r)
	}
	return temps, rewritten
}

// rebuildWith reconstructs n with replacement children through the
// interning constructors, preserving canonical ordering.
func (b *Builder) rebuildWith(n *Node, children []*Node) *Node {
	switch n.Kind {
	case KindAdd:
		return b.Add(children...)
	case KindMul:
		return b.Mul(children...)
	case KindSub:
		return b.Sub(children[0], children[1])
	case KindDiv:
		return b.Div(children[0], children[1])
	case KindNeg:
		return b.Neg(children[0])
	case KindPow:
		return b.Pow(children[0], children[1])
	case KindCall:
		return b.Call(n.Name, children...)
	default:
		return n
	}
}

// tempPrefix picks a temp name prefix that cannot collide with any free
// symbol of the input expressions.
func tempPrefix(roots []*Node) string {
	prefix := "t"
	free := FreeSymbols(roots...)
	for {
		pat := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + `\d+$`)
		clash := false
		for _, name := range free {
			if pat.MatchString(name) {
				clash = true
				break
			}
		}
		if !clash {
			return prefix
		}
		prefix += "_"
	}
}
