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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalEliminated evaluates temps in order into the environment, then
// the rewritten root.
func evalEliminated(t *testing.T, temps []TempAssignment, root *Node, env map[string]float64) float64 {
	t.Helper()
	scope := make(map[string]float64, len(env)+len(temps))
	for k, v := range env {
		scope[k] = v
	}
	for _, tmp := range temps {
		v, err := Eval(tmp.Expr, scope)
		require.NoError(t, err)
		scope[tmp.Name] = v
	}
	v, err := Eval(root, scope)
	require.NoError(t, err)
	return v
}

func TestEliminateSharedSubtree(t *testing.T) {
	b := NewBuilder()
	x, y := b.Symbol("x"), b.Symbol("y")
	sum := b.Add(x, y)
	root := b.Mul(sum, b.Call("sin", sum))

	temps, rewritten := Eliminate(b, []*Node{root})
	require.Len(t, temps, 1)
	assert.Equal(t, "t0", temps[0].Name)
	if temps[0].Expr != sum {
		t.Fatalf("temp should hold x+y, got %s", temps[0].Expr)
	}

	want := b.Mul(b.Symbol("t0"), b.Call("sin", b.Symbol("t0")))
	if rewritten[0] != want {
		t.Fatalf("rewritten root %s, want %s", rewritten[0], want)
	}

	for i := 0; i < 20; i++ {
		env := map[string]float64{"x": rand.NormFloat64(), "y": rand.NormFloat64()}
		orig, err := Eval(root, env)
		require.NoError(t, err)
		assert.InDelta(t, orig, evalEliminated(t, temps, rewritten[0], env), 1e-12)
	}
}

func TestEliminateLeavesNeverHoisted(t *testing.T) {
	b := NewBuilder()
	x := b.Symbol("x")
	root := b.Mul(b.Add(x, x), b.Sub(x, b.Literal(1)))

	temps, rewritten := Eliminate(b, []*Node{root})
	assert.Empty(t, temps, "repeated leaves must not become temps")
	if rewritten[0] != root {
		t.Fatal("root without repeated non-leaf subtrees should be unchanged")
	}
}

func TestEliminateAcrossRoots(t *testing.T) {
	b := NewBuilder()
	prod := b.Mul(b.Symbol("x"), b.Symbol("y"))
	r1 := b.Call("sin", prod)
	r2 := b.Call("cos", prod)

	temps, rewritten := Eliminate(b, []*Node{r1, r2})
	require.Len(t, temps, 1, "subtree shared across roots should be hoisted once")
	if temps[0].Expr != prod {
		t.Fatalf("temp should hold x*y, got %s", temps[0].Expr)
	}
	assert.Equal(t, rewritten[0], b.Call("sin", b.Symbol("t0")))
	assert.Equal(t, rewritten[1], b.Call("cos", b.Symbol("t0")))
}

func TestEliminateNestedOrdering(t *testing.T) {
	b := NewBuilder()
	inner := b.Add(b.Symbol("a"), b.Symbol("b"))
	s := b.Call("sin", inner)
	root := b.Mul(inner, b.Call("exp", s), s)

	temps, rewritten := Eliminate(b, []*Node{root})
	require.Len(t, temps, 2)

	// Topological order: the inner sum is discovered before the call
	// that contains it, so no temp references a later one.
	assert.Equal(t, "t0", temps[0].Name)
	if temps[0].Expr != inner {
		t.Fatalf("t0 should hold a+b, got %s", temps[0].Expr)
	}
	assert.Equal(t, "t1", temps[1].Name)
	if temps[1].Expr != b.Call("sin", b.Symbol("t0")) {
		t.Fatalf("t1 should hold sin(t0), got %s", temps[1].Expr)
	}

	env := map[string]float64{"a": 0.3, "b": 1.7}
	orig, err := Eval(root, env)
	require.NoError(t, err)
	assert.InDelta(t, orig, evalEliminated(t, temps, rewritten[0], env), 1e-12)
}

func TestEliminateDeterministic(t *testing.T) {
	build := func() ([]TempAssignment, []*Node) {
		b := NewBuilder()
		q := b.Mul(b.Symbol("x"), b.Symbol("x"))
		root := b.Add(b.Call("sin", q), b.Call("cos", q), q)
		return Eliminate(b, []*Node{root})
	}
	t1, r1 := build()
	t2, r2 := build()
	require.Equal(t, len(t1), len(t2))
	for i := range t1 {
		assert.Equal(t, t1[i].Name, t2[i].Name)
		assert.Equal(t, t1[i].Expr.Key(), t2[i].Expr.Key())
	}
	assert.Equal(t, r1[0].Key(), r2[0].Key())
}

func TestEliminateTempPrefixAvoidsCollision(t *testing.T) {
	b := NewBuilder()
	sum := b.Add(b.Symbol("t0"), b.Symbol("y"))
	root := b.Mul(sum, sum, b.Literal(3))

	temps, _ := Eliminate(b, []*Node{root})
	require.Len(t, temps, 1)
	assert.Equal(t, "t_0", temps[0].Name, "prefix must dodge a free symbol named t0")
}
