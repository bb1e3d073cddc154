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
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symforge/symforge/expr"
)

func polyRoutine(t *testing.T) *Routine {
	t.Helper()
	b := expr.NewBuilder()
	x := b.Symbol("x")
	r, err := NewRoutine("poly", []Result{{Expr: b.Add(b.Mul(x, x), b.Literal(1))}})
	require.NoError(t, err)
	return r
}

func scaleRoutine(t *testing.T) *Routine {
	t.Helper()
	b := expr.NewBuilder()
	e := b.Mul(b.Symbol("c"), b.Symbol("x"))
	n := Shape{SymDim("n")}
	r, err := NewRoutine("scale", []Result{{Var: "y", Expr: e}},
		WithShape("x", TypeFloat, n),
		WithShape("y", TypeFloat, n))
	require.NoError(t, err)
	return r
}

func TestGenerateScalarC(t *testing.T) {
	src, err := Generate(polyRoutine(t), CTarget())
	require.NoError(t, err)
	goldie.New(t).Assert(t, "poly_c", []byte(src))
}

func TestGenerateVectorC(t *testing.T) {
	src, err := Generate(scaleRoutine(t), CTarget())
	require.NoError(t, err)
	goldie.New(t).Assert(t, "scale_c", []byte(src))
}

func TestGenerateVectorF95(t *testing.T) {
	src, err := Generate(scaleRoutine(t), Fortran95Target())
	require.NoError(t, err)
	goldie.New(t).Assert(t, "scale_f95", []byte(src))
}

func TestGenerateDeterministic(t *testing.T) {
	first, err := Generate(scaleRoutine(t), CTarget())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Generate(scaleRoutine(t), CTarget())
		require.NoError(t, err)
		assert.Equal(t, first, again, "generation must be byte-for-byte deterministic")
	}
}

func TestGenerateTempsInlineC(t *testing.T) {
	b := expr.NewBuilder()
	sum := b.Add(b.Symbol("x"), b.Symbol("y"))
	root := b.Mul(sum, b.Call("sin", sum))
	temps, rewritten := expr.Eliminate(b, []*expr.Node{root})

	r, err := NewRoutine("f", []Result{{Expr: rewritten[0]}}, WithTemps(temps))
	require.NoError(t, err)
	src, err := Generate(r, CTarget())
	require.NoError(t, err)
	assert.Contains(t, src, "double t0 = x + y;")
	assert.Contains(t, src, "return sin(t0) * t0;")
}

func TestGenerateTempsHoistedF95(t *testing.T) {
	b := expr.NewBuilder()
	sum := b.Add(b.Symbol("x"), b.Symbol("y"))
	root := b.Mul(sum, b.Call("sin", sum))
	temps, rewritten := expr.Eliminate(b, []*expr.Node{root})

	r, err := NewRoutine("f", []Result{{Expr: rewritten[0]}}, WithTemps(temps))
	require.NoError(t, err)
	src, err := Generate(r, Fortran95Target())
	require.NoError(t, err)

	// Declarations sit ahead of the executable part.
	assert.Contains(t, src, "real(kind=8) :: t0")
	assert.Contains(t, src, "t0 = x + y")
	assert.Contains(t, src, "f = sin(t0) * t0")
	assert.Less(t, strings.Index(src, "real(kind=8) :: t0"), strings.Index(src, "t0 = x + y"))
}

func TestGenerateMatrixFlatIndex(t *testing.T) {
	b := expr.NewBuilder()
	e := b.Mul(b.Symbol("a"), b.Symbol("m"))
	rc := Shape{SymDim("rows"), SymDim("cols")}
	r, err := NewRoutine("smul", []Result{{Var: "z", Expr: e}},
		WithShape("m", TypeFloat, rc),
		WithShape("z", TypeFloat, rc))
	require.NoError(t, err)

	src, err := Generate(r, CTarget())
	require.NoError(t, err)
	assert.Contains(t, src, "for (long long i0 = 0; i0 < rows; i0++) {")
	assert.Contains(t, src, "for (long long i1 = 0; i1 < cols; i1++) {")
	assert.Contains(t, src, "z[(i0) * cols + i1] = a * m[(i0) * cols + i1];")
}

func TestGenerateScalarOutC(t *testing.T) {
	b := expr.NewBuilder()
	e := b.Add(b.Symbol("x"), b.Symbol("y"))
	r, err := NewRoutine("addTo", []Result{{Var: "y", Expr: e}})
	require.NoError(t, err)

	arg, ok := r.Arg("y")
	require.True(t, ok)
	assert.Equal(t, DirInOut, arg.Direction)

	src, err := Generate(r, CTarget())
	require.NoError(t, err)
	assert.Contains(t, src, "void addTo(double x, double *y) {")
	assert.Contains(t, src, "*y = x + (*y);")
	assert.Contains(t, src, "addTo(scalars[0], &out[0]);")
}

func TestGenerateShapeMismatch(t *testing.T) {
	b := expr.NewBuilder()
	e := b.Mul(b.Symbol("c"), b.Symbol("x"))
	r, err := NewRoutine("bad", []Result{{Var: "y", Expr: e}},
		WithShape("x", TypeFloat, Shape{FixedDim(3)}),
		WithShape("y", TypeFloat, Shape{FixedDim(4)}))
	require.NoError(t, err)

	src, err := Generate(r, CTarget())
	require.Error(t, err)
	assert.Empty(t, src, "no text may be emitted after a shape error")
	var serr *ShapeMismatchError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "bad", serr.Routine)
}

func TestGenerateArrayReturnRejected(t *testing.T) {
	b := expr.NewBuilder()
	r, err := NewRoutine("bad", []Result{{Expr: b.Symbol("x")}},
		WithShape("x", TypeFloat, Shape{SymDim("n")}))
	require.NoError(t, err)

	_, err = Generate(r, CTarget())
	var serr *ShapeMismatchError
	require.ErrorAs(t, err, &serr)
}

func TestGenerateUnmappedFunctionSurfaces(t *testing.T) {
	b := expr.NewBuilder()
	r, err := NewRoutine("g", []Result{{Expr: b.Call("erfc", b.Symbol("x"))}})
	require.NoError(t, err)

	_, err = Generate(r, CTarget())
	var uerr *UnmappedFunctionError
	require.ErrorAs(t, err, &uerr)
}

func TestNativeSignature(t *testing.T) {
	b := expr.NewBuilder()
	e := b.Mul(b.Symbol("c"), b.Symbol("x"))
	r, err := NewRoutine("scale", []Result{{Var: "y", Expr: e}},
		WithShape("x", TypeFloat, Shape{SymDim("n")}),
		WithShape("y", TypeFloat, Shape{SymDim("n")}))
	require.NoError(t, err)

	sig := NativeSignature(r)
	assert.Equal(t, []string{"c"}, sig.ScalarIn)
	assert.Equal(t, []string{"x", "y"}, sig.Arrays)
	assert.Equal(t, []string{"n"}, sig.Extents)
	assert.Empty(t, sig.ScalarOut)
	assert.False(t, sig.HasReturn)

	ret := NativeSignature(polyRoutine(t))
	assert.True(t, ret.HasReturn)
	assert.Equal(t, []string{"x"}, ret.ScalarIn)
}

func TestTargetIdentityDistinguishesOverrides(t *testing.T) {
	base := CTarget()
	over := CTarget().Clone()
	over.Functions["erfc"] = "erfc"
	assert.NotEqual(t, base.Identity(), over.Identity())
	assert.NotEqual(t, CTarget().Identity(), Fortran95Target().Identity())
	assert.Equal(t, CTarget().Identity(), CTarget().Identity())
}
