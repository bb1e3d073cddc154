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

//go:build darwin || freebsd || linux

package autowrap

import "github.com/ebitengine/purego"

func dlopenLib(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
}

func dlsymLib(lib uintptr, name string) (uintptr, error) {
	return purego.Dlsym(lib, name)
}

func dlcloseLib(lib uintptr) error {
	return purego.Dlclose(lib)
}

// callEntry invokes the uniform entry shim. All four parameters are
// pointers, so SyscallN's integer-register convention applies on every
// supported platform.
func callEntry(addr uintptr, scalars, arrays, extents, out uintptr) {
	purego.SyscallN(addr, scalars, arrays, extents, out)
}
