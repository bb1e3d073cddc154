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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symforge/symforge/codegen"
)

func TestParseShape(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		shape   codegen.Shape
		wantErr bool
	}{
		{in: "x=n", name: "x", shape: codegen.Shape{codegen.SymDim("n")}},
		{in: "m=3,3", name: "m", shape: codegen.Shape{codegen.FixedDim(3), codegen.FixedDim(3)}},
		{in: "a=rows, cols", name: "a", shape: codegen.Shape{codegen.SymDim("rows"), codegen.SymDim("cols")}},
		{in: "v=4,k", name: "v", shape: codegen.Shape{codegen.FixedDim(4), codegen.SymDim("k")}},
		{in: "x", wantErr: true},
		{in: "=n", wantErr: true},
		{in: "x=0", wantErr: true},
		{in: "x=-2", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			name, shape, err := parseShape(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.name, name)
			assert.Equal(t, tc.shape, shape)
		})
	}
}

func TestResolveTargetBuiltins(t *testing.T) {
	c, err := resolveTarget("c99", "")
	require.NoError(t, err)
	assert.True(t, c.NativeEntry)

	f, err := resolveTarget("f95", "")
	require.NoError(t, err)
	assert.False(t, f.NativeEntry)

	_, err = resolveTarget("rust", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown target "rust"`)
	assert.Contains(t, err.Error(), "c99")
}

func TestResolveTargetOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	cfg := `
functions:
  erfc: erfc
  abs: my_abs
includes:
  - "#include <mylib.h>"
toolchain:
  command: clang
  args: ["-shared", "-O3", "-o", "{out}", "{src}"]
`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	target, err := resolveTarget("c99", path)
	require.NoError(t, err)

	// New entries extend the map, existing ones are replaced.
	assert.Equal(t, "erfc", target.Functions["erfc"])
	assert.Equal(t, "my_abs", target.Functions["abs"])
	assert.Equal(t, "sin", target.Functions["sin"])

	assert.Contains(t, target.Includes, "#include <mylib.h>")
	assert.Contains(t, target.Includes, "#include <math.h>")

	assert.Equal(t, "clang", target.Toolchain.Command)
	assert.Equal(t, []string{"-shared", "-O3", "-o", "{out}", "{src}"}, target.Toolchain.Args)

	// The base target is untouched.
	base := codegen.CTarget()
	assert.Equal(t, "cc", base.Toolchain.Command)
	_, hasErfc := base.Functions["erfc"]
	assert.False(t, hasErfc)

	// Overrides change the cache identity.
	assert.NotEqual(t, base.Identity(), target.Identity())
}

func TestResolveTargetBadConfig(t *testing.T) {
	_, err := resolveTarget("c99", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("functions: [not, a, map]"), 0o644))
	_, err = resolveTarget("c99", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
