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

//go:build !darwin && !freebsd && !linux

package autowrap

import "errors"

var errNoDynload = errors.New("in-process binding is not supported on this platform")

func dlopenLib(string) (uintptr, error)     { return 0, errNoDynload }
func dlsymLib(uintptr, string) (uintptr, error) { return 0, errNoDynload }
func dlcloseLib(uintptr) error              { return nil }

func callEntry(uintptr, uintptr, uintptr, uintptr, uintptr) {}
