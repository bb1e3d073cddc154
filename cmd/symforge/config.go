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
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/symforge/symforge/codegen"
)

// overrideFile is the YAML shape accepted by --config. Everything is
// optional; present fields replace or extend the base target.
type overrideFile struct {
	// Functions adds or replaces function-name mappings.
	Functions map[string]string `yaml:"functions"`

	// Includes appends prologue lines.
	Includes []string `yaml:"includes"`

	Toolchain struct {
		Command string   `yaml:"command"`
		Args    []string `yaml:"args"`
	} `yaml:"toolchain"`
}

func builtinTargets() []*codegen.TargetConfig {
	return []*codegen.TargetConfig{codegen.CTarget(), codegen.Fortran95Target()}
}

func resolveTarget(name, configPath string) (*codegen.TargetConfig, error) {
	var base *codegen.TargetConfig
	for _, t := range builtinTargets() {
		if t.Name == name {
			base = t
			break
		}
	}
	if base == nil {
		names := make([]string, 0, 2)
		for _, t := range builtinTargets() {
			names = append(names, t.Name)
		}
		return nil, fmt.Errorf("unknown target %q, have: %s", name, strings.Join(names, ", "))
	}
	if configPath == "" {
		return base, nil
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var ov overrideFile
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", configPath, err)
	}

	t := base.Clone()
	for k, v := range ov.Functions {
		t.Functions[k] = v
	}
	t.Includes = append(append([]string(nil), t.Includes...), ov.Includes...)
	if ov.Toolchain.Command != "" {
		t.Toolchain.Command = ov.Toolchain.Command
	}
	if len(ov.Toolchain.Args) > 0 {
		t.Toolchain.Args = append([]string(nil), ov.Toolchain.Args...)
	}
	return t, nil
}
