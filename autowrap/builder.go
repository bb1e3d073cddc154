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

// Package autowrap drives an external toolchain over generated source
// and loads the resulting shared objects for in-process calls. Builds
// are content-addressed: identical source and target configuration hit
// a bounded artifact cache instead of the compiler.
package autowrap

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/symforge/symforge/codegen"
)

const (
	// DefaultTimeout bounds one toolchain invocation.
	DefaultTimeout = 2 * time.Minute

	// DefaultMaxArtifacts bounds the artifact cache.
	DefaultMaxArtifacts = 64
)

// Runner executes one toolchain command and returns its combined
// output. Replaceable for tests and for callers that sandbox their
// compilers.
type Runner func(ctx context.Context, name string, args []string) ([]byte, error)

func runCommand(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	setProcGroup(cmd)
	cmd.WaitDelay = 5 * time.Second
	return cmd.CombinedOutput()
}

// Builder compiles generated source into loadable artifacts.
type Builder struct {
	dir          string
	ownsDir      bool
	timeout      time.Duration
	maxArtifacts int
	verify       bool
	run          Runner

	cache *artifactCache
	group singleflight.Group
}

// Option configures a Builder.
type Option func(*Builder)

// WithCacheDir places sources and artifacts in dir instead of a fresh
// temporary directory. The directory is not removed on Close.
func WithCacheDir(dir string) Option {
	return func(b *Builder) { b.dir = dir; b.ownsDir = false }
}

// WithTimeout bounds each toolchain invocation.
func WithTimeout(d time.Duration) Option {
	return func(b *Builder) { b.timeout = d }
}

// WithMaxArtifacts bounds the artifact cache; least recently used
// artifacts are closed and deleted when the bound is exceeded.
func WithMaxArtifacts(n int) Option {
	return func(b *Builder) { b.maxArtifacts = n }
}

// WithVerify parses C sources before invoking the toolchain, turning
// printer regressions into errors with positions instead of compiler
// diagnostics.
func WithVerify() Option {
	return func(b *Builder) { b.verify = true }
}

// WithRunner replaces the toolchain process runner.
func WithRunner(r Runner) Option {
	return func(b *Builder) { b.run = r }
}

// NewBuilder returns a ready Builder. Without WithCacheDir it owns a
// fresh temporary directory that Close removes.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{
		timeout:      DefaultTimeout,
		maxArtifacts: DefaultMaxArtifacts,
		run:          runCommand,
		ownsDir:      true,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.dir == "" {
		dir, err := os.MkdirTemp("", "symforge-*")
		if err != nil {
			return nil, fmt.Errorf("autowrap: create cache dir: %w", err)
		}
		b.dir = dir
	} else if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return nil, fmt.Errorf("autowrap: create cache dir: %w", err)
	}
	b.cache = newArtifactCache(b.maxArtifacts)
	return b, nil
}

// Dir returns the source and artifact directory.
func (b *Builder) Dir() string { return b.dir }

// Cached reports the number of live artifacts.
func (b *Builder) Cached() int { return b.cache.len() }

// Evict closes and deletes one cached artifact, forcing the next Build
// of the same source to invoke the toolchain again. It reports whether
// the fingerprint was cached.
func (b *Builder) Evict(fingerprint string) bool {
	return b.cache.drop(fingerprint)
}

// Close evicts all artifacts and, for builder-owned directories,
// removes the scratch tree.
func (b *Builder) Close() error {
	b.cache.close()
	if b.ownsDir {
		return os.RemoveAll(b.dir)
	}
	return nil
}

// Fingerprint content-addresses a build: the hash covers the source
// text and every target table that affects the toolchain or the
// emitted code.
func Fingerprint(source string, t *codegen.TargetConfig) string {
	h := sha256.New()
	io.WriteString(h, t.Identity())
	h.Write([]byte{0})
	io.WriteString(h, source)
	return hex.EncodeToString(h.Sum(nil))
}

// Build compiles source for the target, reusing a cached artifact when
// one exists. Concurrent builds of the same fingerprint share a single
// toolchain invocation.
func (b *Builder) Build(ctx context.Context, source string, t *codegen.TargetConfig) (*Artifact, error) {
	fp := Fingerprint(source, t)
	if a, ok := b.cache.get(fp); ok {
		debugf("cache hit %s", fp[:12])
		return a, nil
	}

	v, err, shared := b.group.Do(fp, func() (any, error) {
		if a, ok := b.cache.get(fp); ok {
			return a, nil
		}
		a, err := b.compile(ctx, fp, source, t)
		if err != nil {
			return nil, err
		}
		b.cache.put(fp, a)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		debugf("coalesced build %s", fp[:12])
	}
	return v.(*Artifact), nil
}

func (b *Builder) compile(ctx context.Context, fp, source string, t *codegen.TargetConfig) (*Artifact, error) {
	if b.verify && t.Toolchain.SourceExt == ".c" {
		if err := VerifySource(source, fp[:12]+t.Toolchain.SourceExt); err != nil {
			return nil, err
		}
	}

	srcPath := filepath.Join(b.dir, fp+t.Toolchain.SourceExt)
	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("autowrap: write source: %w", err)
	}

	// Build into a unique name and rename, so a crashed build never
	// leaves a half-written artifact under the cache key.
	tmpOut := filepath.Join(b.dir, fp[:16]+"-"+uuid.NewString()[:8]+t.Toolchain.ArtifactExt)
	args := make([]string, len(t.Toolchain.Args))
	for i, a := range t.Toolchain.Args {
		args[i] = strings.NewReplacer("{src}", srcPath, "{out}", tmpOut).Replace(a)
	}

	tctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	debugf("building %s: %s %s", fp[:12], t.Toolchain.Command, strings.Join(args, " "))
	out, err := b.run(tctx, t.Toolchain.Command, args)
	if err != nil && transientSpawn(err) {
		debugf("transient spawn failure for %s, retrying once: %v", fp[:12], err)
		out, err = b.run(tctx, t.Toolchain.Command, args)
	}
	if err != nil {
		os.Remove(tmpOut)
		return nil, &CompileError{
			Fingerprint: fp,
			Command:     t.Toolchain.Command + " " + strings.Join(args, " "),
			Timeout:     errors.Is(tctx.Err(), context.DeadlineExceeded),
			Log:         string(out),
			Err:         err,
		}
	}

	outPath := filepath.Join(b.dir, fp+t.Toolchain.ArtifactExt)
	if err := os.Rename(tmpOut, outPath); err != nil {
		return nil, fmt.Errorf("autowrap: install artifact: %w", err)
	}
	return &Artifact{
		Fingerprint: fp,
		Path:        outPath,
		SourcePath:  srcPath,
		BuildLog:    string(out),
	}, nil
}
