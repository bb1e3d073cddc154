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
	"fmt"
	"runtime"
	"sort"
	"unsafe"

	"github.com/symforge/symforge/codegen"
)

// Callable is a bound native routine. It validates concrete argument
// shapes against the routine's declared shapes on every call, then
// marshals values into the uniform entry convention.
type Callable struct {
	routine  *codegen.Routine
	sig      codegen.Signature
	addr     uintptr
	artifact *Artifact
}

// Routine returns the routine this callable was generated from.
func (c *Callable) Routine() *codegen.Routine { return c.routine }

// CallResult carries the outgoing values of one invocation. Out and
// in-out arrays are additionally written in place in the caller's
// slices.
type CallResult struct {
	// Return is the routine's return value, when it has one.
	Return float64

	// Outputs holds the final values of scalar out and in-out
	// arguments.
	Outputs map[string]float64
}

// Call invokes the native routine. scalars maps scalar argument names
// (and, optionally, symbolic extent names) to values; arrays maps array
// argument names to backing slices. Symbolic extents not given
// explicitly are inferred from array lengths; every array length must
// then match its declared shape exactly.
func (c *Callable) Call(scalars map[string]float64, arrays map[string][]float64) (*CallResult, error) {
	r := c.routine

	env, err := c.resolveExtents(scalars, arrays)
	if err != nil {
		return nil, err
	}

	for _, a := range r.Args {
		if a.Shape.IsScalar() {
			continue
		}
		arr, ok := arrays[a.Name]
		if !ok {
			return nil, fmt.Errorf("autowrap: call %s: missing array %q", r.Name, a.Name)
		}
		want := int64(1)
		for _, d := range a.Shape {
			want *= extentValue(d, env)
		}
		if int64(len(arr)) != want {
			return nil, &codegen.ShapeMismatchError{
				Routine: r.Name, Var: a.Name,
				Reason: fmt.Sprintf("have %d elements, declared shape %s needs %d", len(arr), a.Shape, want),
			}
		}
	}

	sbuf := make([]float64, len(c.sig.ScalarIn)+1)
	for i, name := range c.sig.ScalarIn {
		v, ok := scalars[name]
		if !ok {
			return nil, fmt.Errorf("autowrap: call %s: missing scalar %q", r.Name, name)
		}
		sbuf[i] = v
	}

	abuf := make([]unsafe.Pointer, len(c.sig.Arrays)+1)
	for i, name := range c.sig.Arrays {
		if arr := arrays[name]; len(arr) > 0 {
			abuf[i] = unsafe.Pointer(&arr[0])
		}
	}

	ebuf := make([]int64, len(c.sig.Extents)+1)
	for i, name := range c.sig.Extents {
		ebuf[i] = env[name]
	}

	obuf := make([]float64, len(c.sig.ScalarOut)+1)
	for i, name := range c.sig.ScalarOut {
		if arg, _ := r.Arg(name); arg.Direction == codegen.DirInOut {
			v, ok := scalars[name]
			if !ok {
				return nil, fmt.Errorf("autowrap: call %s: missing in-out scalar %q", r.Name, name)
			}
			obuf[i] = v
		}
	}

	callEntry(c.addr,
		uintptr(unsafe.Pointer(&sbuf[0])),
		uintptr(unsafe.Pointer(&abuf[0])),
		uintptr(unsafe.Pointer(&ebuf[0])),
		uintptr(unsafe.Pointer(&obuf[0])))
	// The uintptr conversions above end the buffers' liveness as far as
	// the GC is concerned; keep every one of them pinned until the
	// native routine has returned.
	runtime.KeepAlive(sbuf)
	runtime.KeepAlive(arrays)
	runtime.KeepAlive(abuf)
	runtime.KeepAlive(ebuf)
	runtime.KeepAlive(obuf)

	res := &CallResult{Outputs: make(map[string]float64, len(c.sig.ScalarOut))}
	for i, name := range c.sig.ScalarOut {
		res.Outputs[name] = obuf[i]
	}
	if c.sig.HasReturn {
		res.Return = obuf[len(c.sig.ScalarOut)]
	}
	return res, nil
}

func extentValue(d codegen.Dim, env map[string]int64) int64 {
	if d.IsFixed() {
		return int64(d.Extent)
	}
	return env[d.Sym]
}

// resolveExtents binds every symbolic extent: explicitly from the
// scalars map (including integer arguments that double as extents), or
// inferred from array lengths when a shape has exactly one unresolved
// axis.
func (c *Callable) resolveExtents(scalars map[string]float64, arrays map[string][]float64) (map[string]int64, error) {
	r := c.routine
	env := make(map[string]int64)
	pending := make(map[string]bool)
	for _, a := range r.Args {
		for _, d := range a.Shape {
			if d.IsFixed() {
				continue
			}
			if v, ok := scalars[d.Sym]; ok {
				env[d.Sym] = int64(v)
			} else {
				pending[d.Sym] = true
			}
		}
	}

	for progress := true; progress && len(pending) > 0; {
		progress = false
		for _, a := range r.Args {
			arr, ok := arrays[a.Name]
			if !ok {
				continue
			}
			known := int64(1)
			var open string
			ambiguous := false
			for _, d := range a.Shape {
				if d.IsFixed() || !pending[d.Sym] {
					known *= extentValue(d, env)
					continue
				}
				if open != "" && open != d.Sym {
					ambiguous = true
				}
				open = d.Sym
			}
			if open == "" || ambiguous || known <= 0 {
				continue
			}
			if int64(len(arr))%known != 0 {
				return nil, &codegen.ShapeMismatchError{
					Routine: r.Name, Var: a.Name,
					Reason: fmt.Sprintf("length %d is not divisible by fixed extents (%d)", len(arr), known),
				}
			}
			env[open] = int64(len(arr)) / known
			delete(pending, open)
			progress = true
		}
	}
	if len(pending) > 0 {
		unresolved := make([]string, 0, len(pending))
		for sym := range pending {
			unresolved = append(unresolved, sym)
		}
		sort.Strings(unresolved)
		return nil, fmt.Errorf("autowrap: call %s: cannot resolve extent %q; pass it explicitly", r.Name, unresolved[0])
	}
	return env, nil
}
