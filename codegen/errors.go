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

import "fmt"

// UnmappedFunctionError reports a function call with no entry in the
// target's function table. Callers can recover by adding an override
// entry and regenerating.
type UnmappedFunctionError struct {
	// Function is the symbolic function name.
	Function string

	// Target is the target name the mapping was missing from.
	Target string
}

func (e *UnmappedFunctionError) Error() string {
	return fmt.Sprintf("codegen: target %s has no mapping for function %q", e.Target, e.Function)
}

// ShapeMismatchError reports incompatible array shapes, either between
// the operands of a result expression or between a result and its
// output argument. Raised during generation, before any text is
// emitted, and again by the wrapper at call time when concrete array
// lengths disagree with the declared shapes.
type ShapeMismatchError struct {
	// Routine is the routine being generated or called.
	Routine string

	// Var is the argument or output variable involved, when known.
	Var string

	// Reason describes the mismatch, including both extents.
	Reason string
}

func (e *ShapeMismatchError) Error() string {
	if e.Var != "" {
		return fmt.Sprintf("codegen: routine %s: shape mismatch for %s: %s", e.Routine, e.Var, e.Reason)
	}
	return fmt.Sprintf("codegen: routine %s: shape mismatch: %s", e.Routine, e.Reason)
}
