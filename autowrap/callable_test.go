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

package autowrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symforge/symforge/codegen"
	"github.com/symforge/symforge/expr"
)

// vectorCallable builds an unbound callable for y = c*x over rank-1
// arrays; the validation paths under test all reject before the native
// call would happen.
func vectorCallable(t *testing.T) *Callable {
	t.Helper()
	b := expr.NewBuilder()
	e := b.Mul(b.Symbol("c"), b.Symbol("x"))
	n := codegen.Shape{codegen.SymDim("n")}
	r, err := codegen.NewRoutine("scale", []codegen.Result{{Var: "y", Expr: e}},
		codegen.WithShape("x", codegen.TypeFloat, n),
		codegen.WithShape("y", codegen.TypeFloat, n))
	require.NoError(t, err)
	return &Callable{routine: r, sig: codegen.NativeSignature(r)}
}

func TestCallRejectsLengthMismatch(t *testing.T) {
	c := vectorCallable(t)
	_, err := c.Call(
		map[string]float64{"c": 2, "n": 3},
		map[string][]float64{"x": make([]float64, 3), "y": make([]float64, 4)})
	require.Error(t, err)
	var serr *codegen.ShapeMismatchError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "y", serr.Var)
}

func TestCallRejectsMissingArray(t *testing.T) {
	c := vectorCallable(t)
	_, err := c.Call(
		map[string]float64{"c": 2, "n": 3},
		map[string][]float64{"x": make([]float64, 3)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing array "y"`)
}

func TestCallInfersExtentFromArrays(t *testing.T) {
	c := vectorCallable(t)
	// No "n" given: both arrays agree on length 5, so inference
	// succeeds and validation passes, then fails on the missing
	// scalar, which proves resolution got that far.
	_, err := c.Call(
		map[string]float64{},
		map[string][]float64{"x": make([]float64, 5), "y": make([]float64, 5)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing scalar "c"`)

	// Disagreeing lengths surface as a shape mismatch.
	_, err = c.Call(
		map[string]float64{"c": 2},
		map[string][]float64{"x": make([]float64, 5), "y": make([]float64, 6)})
	var serr *codegen.ShapeMismatchError
	require.ErrorAs(t, err, &serr)
}

func TestCallRejectsUnresolvableExtent(t *testing.T) {
	b := expr.NewBuilder()
	e := b.Symbol("x")
	// Two symbolic axes in one shape cannot be split from a flat
	// length alone.
	r, err := codegen.NewRoutine("flat", []codegen.Result{{Var: "y", Expr: e}},
		codegen.WithShape("x", codegen.TypeFloat, codegen.Shape{codegen.SymDim("r"), codegen.SymDim("s")}),
		codegen.WithShape("y", codegen.TypeFloat, codegen.Shape{codegen.SymDim("r"), codegen.SymDim("s")}))
	require.NoError(t, err)
	c := &Callable{routine: r, sig: codegen.NativeSignature(r)}

	_, err = c.Call(nil, map[string][]float64{
		"x": make([]float64, 6), "y": make([]float64, 6)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot resolve extent")

	// Passing one extent explicitly makes the other inferable: the call
	// then gets past resolution and trips over the absent output array.
	_, err = c.Call(map[string]float64{"r": 2},
		map[string][]float64{"x": make([]float64, 6)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing array "y"`)
}
