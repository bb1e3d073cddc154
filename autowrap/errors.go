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

import "fmt"

// CompileError reports a failed toolchain invocation. Log carries the
// compiler's combined stdout and stderr so callers can surface
// diagnostics next to the generated source.
type CompileError struct {
	// Fingerprint identifies the build that failed.
	Fingerprint string

	// Command is the toolchain command line.
	Command string

	// Timeout is true when the build deadline killed the compiler.
	Timeout bool

	// Log is the compiler's combined output.
	Log string

	// Err is the underlying process error.
	Err error
}

func (e *CompileError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("autowrap: build %s timed out: %s", e.Fingerprint[:12], e.Command)
	}
	return fmt.Sprintf("autowrap: build %s failed: %s: %v", e.Fingerprint[:12], e.Command, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// LoadError reports that a built artifact could not be loaded or is
// missing the expected entry point.
type LoadError struct {
	// Path is the artifact file.
	Path string

	// Symbol is the entry symbol that was looked up, if the failure
	// happened after loading.
	Symbol string

	// Reason describes the failure.
	Reason string
}

func (e *LoadError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("autowrap: load %s: symbol %s: %s", e.Path, e.Symbol, e.Reason)
	}
	return fmt.Sprintf("autowrap: load %s: %s", e.Path, e.Reason)
}
