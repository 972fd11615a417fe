// Exercises module resolution against spec.md §8 scenario 5 (import cycle)
// plus the missing-module/missing-export/duplicate-declaration diagnostics
// spec.md §4.3 names.
package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vex-lang/vex/internal/diag"
	"github.com/vex-lang/vex/internal/parser"
)

type fileSrc struct {
	path string
	src  string
}

func resolve(t *testing.T, files []fileSrc) *diag.Bus {
	t.Helper()
	bus := diag.NewBus(diag.PhaseModule, nil)
	r := NewResolver(bus)
	for _, f := range files {
		pbus := diag.NewBus(diag.PhaseParse, nil)
		tree := parser.Parse(1, f.src, pbus)
		require.Equal(t, 0, pbus.Len(), "unexpected parse diagnostics for %q: %+v", f.path, pbus.All())
		r.AddModule(f.path, 1, tree)
	}
	r.Resolve()
	return bus
}

func codes(bus *diag.Bus) []diag.Code {
	var out []diag.Code
	for _, d := range bus.All() {
		out = append(out, d.Code)
	}
	return out
}

func TestResolveImportCycle(t *testing.T) {
	// Scenario 5 from spec.md §8: a imports b, b imports a.
	bus := resolve(t, []fileSrc{
		{"a", `import { b } from "b"; export fn fa(): i32 { return 1; }`},
		{"b", `import { fa } from "a"; export fn b(): i32 { return 2; }`},
	})
	assert.Contains(t, codes(bus), diag.EModuleCycle)
}

func TestResolveMissingModule(t *testing.T) {
	bus := resolve(t, []fileSrc{
		{"a", `import { x } from "nonexistent";`},
	})
	assert.Contains(t, codes(bus), diag.EModuleNotFound)
}

func TestResolveMissingExport(t *testing.T) {
	bus := resolve(t, []fileSrc{
		{"a", `export fn fa(): i32 { return 1; }`},
		{"b", `import { notExported } from "a";`},
	})
	assert.Contains(t, codes(bus), diag.EModuleMissingExport)
}

func TestResolveValidImportHasNoDiagnostics(t *testing.T) {
	bus := resolve(t, []fileSrc{
		{"a", `export fn fa(): i32 { return 1; }`},
		{"b", `import { fa } from "a"; fn fb(): i32 { return fa(); }`},
	})
	assert.Empty(t, bus.All())
}

func TestResolveDuplicateDeclaration(t *testing.T) {
	bus := resolve(t, []fileSrc{
		{"a", `fn dup(): i32 { return 1; } fn dup(): i32 { return 2; }`},
	})
	assert.Contains(t, codes(bus), diag.EModuleDuplicate)
}
