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
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symforge/symforge/codegen"
)

// stubToolchain fabricates an artifact file instead of running a
// compiler. The -o argument carries the output path for the C target's
// argument template.
func stubToolchain(calls *atomic.Int64) Runner {
	return func(_ context.Context, _ string, args []string) ([]byte, error) {
		calls.Add(1)
		out := outArg(args)
		if err := os.WriteFile(out, []byte("fake artifact"), 0o755); err != nil {
			return nil, err
		}
		return []byte("stub ok"), nil
	}
}

func outArg(args []string) string {
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func newTestBuilder(t *testing.T, opts ...Option) *Builder {
	t.Helper()
	b, err := NewBuilder(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestFingerprint(t *testing.T) {
	ct := codegen.CTarget()
	fp := Fingerprint("int main;", ct)
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint("int main;", ct), "fingerprint must be stable")
	assert.NotEqual(t, fp, Fingerprint("int other;", ct), "source must affect the fingerprint")
	assert.NotEqual(t, fp, Fingerprint("int main;", codegen.Fortran95Target()),
		"target must affect the fingerprint")

	over := ct.Clone()
	over.Functions["erfc"] = "erfc"
	assert.NotEqual(t, fp, Fingerprint("int main;", over),
		"function-table overrides must affect the fingerprint")
}

func TestBuildCachesByFingerprint(t *testing.T) {
	var calls atomic.Int64
	b := newTestBuilder(t, WithRunner(stubToolchain(&calls)))
	ct := codegen.CTarget()

	a1, err := b.Build(context.Background(), "src one", ct)
	require.NoError(t, err)
	a2, err := b.Build(context.Background(), "src one", ct)
	require.NoError(t, err)

	assert.Same(t, a1, a2, "identical source should hit the cache")
	assert.Equal(t, int64(1), calls.Load(), "toolchain must run once")
	assert.Equal(t, 1, b.Cached())
	assert.Equal(t, "stub ok", a1.BuildLog)

	_, err = b.Build(context.Background(), "src two", ct)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, 2, b.Cached())
}

func TestBuildCoalescesConcurrent(t *testing.T) {
	var calls atomic.Int64
	slow := func(ctx context.Context, name string, args []string) ([]byte, error) {
		time.Sleep(20 * time.Millisecond)
		return stubToolchain(&calls)(ctx, name, args)
	}
	b := newTestBuilder(t, WithRunner(slow))
	ct := codegen.CTarget()

	var wg sync.WaitGroup
	arts := make([]*Artifact, 8)
	for i := range arts {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := b.Build(context.Background(), "shared source", ct)
			assert.NoError(t, err)
			arts[i] = a
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent builds of one fingerprint must share one invocation")
	for _, a := range arts[1:] {
		assert.Same(t, arts[0], a)
	}
}

func TestBuildEvictsLRU(t *testing.T) {
	var calls atomic.Int64
	b := newTestBuilder(t, WithRunner(stubToolchain(&calls)), WithMaxArtifacts(1))
	ct := codegen.CTarget()

	a1, err := b.Build(context.Background(), "first", ct)
	require.NoError(t, err)
	_, err = b.Build(context.Background(), "second", ct)
	require.NoError(t, err)

	assert.Equal(t, 1, b.Cached())
	_, statErr := os.Stat(a1.Path)
	assert.True(t, os.IsNotExist(statErr), "evicted artifact file should be deleted")

	// Rebuilding the evicted source invokes the toolchain again.
	_, err = b.Build(context.Background(), "first", ct)
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestEvict(t *testing.T) {
	var calls atomic.Int64
	b := newTestBuilder(t, WithRunner(stubToolchain(&calls)))
	ct := codegen.CTarget()

	a, err := b.Build(context.Background(), "src", ct)
	require.NoError(t, err)
	require.True(t, b.Evict(a.Fingerprint))
	assert.False(t, b.Evict(a.Fingerprint), "double eviction reports a miss")
	assert.Equal(t, 0, b.Cached())

	_, err = b.Build(context.Background(), "src", ct)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load(), "evicted sources rebuild")
}

func TestBuildFailureReturnsCompileError(t *testing.T) {
	failing := func(_ context.Context, _ string, _ []string) ([]byte, error) {
		return []byte("poly.c:3: error: expected ';'"), errors.New("exit status 1")
	}
	b := newTestBuilder(t, WithRunner(failing))

	_, err := b.Build(context.Background(), "broken", codegen.CTarget())
	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.False(t, cerr.Timeout)
	assert.Contains(t, cerr.Log, "expected ';'")
	assert.Contains(t, cerr.Command, "cc")
	assert.Equal(t, 0, b.Cached(), "failed builds must not be cached")
}

func TestBuildTimeout(t *testing.T) {
	hang := func(ctx context.Context, _ string, _ []string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	b := newTestBuilder(t, WithRunner(hang), WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := b.Build(context.Background(), "slow", codegen.CTarget())
	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.Timeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCloseRemovesOwnedDir(t *testing.T) {
	var calls atomic.Int64
	b, err := NewBuilder(WithRunner(stubToolchain(&calls)))
	require.NoError(t, err)
	dir := b.Dir()

	_, err = b.Build(context.Background(), "src", codegen.CTarget())
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBindWithoutNativeEntry(t *testing.T) {
	a := &Artifact{Path: "/tmp/none.so"}
	r := &codegen.Routine{Name: "f"}
	_, err := a.Bind(r, codegen.Fortran95Target())
	require.Error(t, err)
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Contains(t, lerr.Reason, "entry point")
}

func TestVerifySource(t *testing.T) {
	good := "#include <math.h>\n" +
		"double f(double x) {\n    return sin(x) / (1.0 + x * x);\n}\n"
	require.NoError(t, VerifySource(good, "good.c"))

	bad := "double f(double x { return 1.0; }\n"
	err := VerifySource(bad, "bad.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.c")
}
