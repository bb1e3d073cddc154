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

	cc "modernc.org/cc/v4"
)

// VerifySource parses generated C source with a real C front end,
// catching printer regressions as positioned parse errors instead of
// opaque compiler diagnostics. name labels the source in error
// messages.
func VerifySource(source, name string) error {
	cfg, err := cc.NewConfig(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return fmt.Errorf("autowrap: verify: %w", err)
	}
	sources := []cc.Source{
		{Name: "<predefined>", Value: cfg.Predefined},
		{Name: "<builtin>", Value: cc.Builtin},
		{Name: name, Value: source},
	}
	if _, err := cc.Parse(cfg, sources); err != nil {
		return fmt.Errorf("autowrap: verify %s: %w", name, err)
	}
	return nil
}
