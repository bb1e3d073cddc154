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
	"os"
	"sync"

	"github.com/symforge/symforge/codegen"
)

// Artifact is one built shared object, addressed by its fingerprint.
type Artifact struct {
	Fingerprint string
	Path        string
	SourcePath  string

	// BuildLog is the toolchain's combined output from the build that
	// produced this artifact.
	BuildLog string

	mu     sync.Mutex
	lib    uintptr
	opened bool
}

// Bind loads the artifact (once) and resolves the routine's native
// entry point. Targets that emit no entry shim cannot be bound and
// return a LoadError.
func (a *Artifact) Bind(r *codegen.Routine, t *codegen.TargetConfig) (*Callable, error) {
	symbol := r.Name + codegen.EntrySuffix
	if !t.NativeEntry {
		return nil, &LoadError{
			Path:   a.Path,
			Symbol: symbol,
			Reason: fmt.Sprintf("target %s emits no native entry point", t.Name),
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.opened {
		lib, err := dlopenLib(a.Path)
		if err != nil {
			return nil, &LoadError{Path: a.Path, Reason: err.Error()}
		}
		a.lib = lib
		a.opened = true
	}

	addr, err := dlsymLib(a.lib, symbol)
	if err != nil {
		return nil, &LoadError{Path: a.Path, Symbol: symbol, Reason: err.Error()}
	}
	debugf("bound %s at %#x", symbol, addr)
	return &Callable{
		routine:  r,
		sig:      codegen.NativeSignature(r),
		addr:     addr,
		artifact: a,
	}, nil
}

// Close unloads the shared object. Callables bound from this artifact
// must not be used afterwards.
func (a *Artifact) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.opened {
		return nil
	}
	a.opened = false
	return dlcloseLib(a.lib)
}

// remove closes the artifact and deletes its files; used on cache
// eviction.
func (a *Artifact) remove() {
	a.Close()
	os.Remove(a.Path)
	os.Remove(a.SourcePath)
}
