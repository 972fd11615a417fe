// Exercises the type checker against the mismatch/arity/unresolved-name and
// non-exhaustive-match scenarios spec.md §3/§8 require, grounded on
// sunholo-data-ailang's typechecker_test.go table-driven style.
package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vex-lang/vex/internal/diag"
	"github.com/vex-lang/vex/internal/parser"
)

func checkSource(t *testing.T, src string) *diag.Bus {
	t.Helper()
	pbus := diag.NewBus(diag.PhaseParse, nil)
	prog := parser.Parse(1, src, pbus)
	require.Equal(t, 0, pbus.Len(), "unexpected parse diagnostics for %q: %+v", src, pbus.All())

	bus := diag.NewBus(diag.PhaseTypes, nil)
	NewChecker(bus).Check(prog)
	return bus
}

func codes(bus *diag.Bus) []diag.Code {
	var out []diag.Code
	for _, d := range bus.All() {
		out = append(out, d.Code)
	}
	return out
}

func TestCheckValidProgramHasNoDiagnostics(t *testing.T) {
	bus := checkSource(t, `fn main(): i32 { let x = 40; return x + 2; }`)
	assert.Empty(t, bus.All())
}

func TestCheckReturnTypeMismatch(t *testing.T) {
	bus := checkSource(t, `fn main(): i32 { return true; }`)
	assert.Contains(t, codes(bus), diag.ETypeMismatch)
}

func TestCheckUnresolvedName(t *testing.T) {
	bus := checkSource(t, `fn main(): i32 { return undeclared; }`)
	assert.Contains(t, codes(bus), diag.ETypeUnresolvedName)
}

func TestCheckCallArity(t *testing.T) {
	bus := checkSource(t, `
fn add(a: i32, b: i32): i32 { return a + b; }
fn main(): i32 { return add(1); }
`)
	assert.Contains(t, codes(bus), diag.ETypeArity)
}

func TestCheckConstIndexOutOfBounds(t *testing.T) {
	// Scenario 6 from spec.md §8: a literal index against a declared array
	// length is caught at compile time, not deferred to a runtime guard.
	bus := checkSource(t, `fn main(): i32 { let a = [1, 2, 3]; return a[10]; }`)
	assert.Contains(t, codes(bus), diag.EConstIndexOOB)
}

func TestCheckIsDeterministic(t *testing.T) {
	src := `fn main(): i32 { return undeclared + also_undeclared; }`
	bus1 := checkSource(t, src)
	bus2 := checkSource(t, src)
	require.Equal(t, len(bus1.All()), len(bus2.All()))
	for i := range bus1.All() {
		assert.Equal(t, bus1.All()[i].Code, bus2.All()[i].Code)
	}
}
