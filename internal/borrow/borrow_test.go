// Exercises the four borrow-checker phases against spec.md §8's soundness
// samples: use-after-move, immutable-binding assignment, aliasing &T! with
// &T, and returning a reference to a local. Grounded on the teacher's
// table-driven test style, adapted to the borrow-checker's phase shape.
package borrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vex-lang/vex/internal/diag"
	"github.com/vex-lang/vex/internal/parser"
	"github.com/vex-lang/vex/internal/types"
)

func borrowCheck(t *testing.T, src string) *diag.Bus {
	t.Helper()
	pbus := diag.NewBus(diag.PhaseParse, nil)
	prog := parser.Parse(1, src, pbus)
	require.Equal(t, 0, pbus.Len(), "unexpected parse diagnostics: %+v", pbus.All())

	tbus := diag.NewBus(diag.PhaseTypes, nil)
	tc := types.NewChecker(tbus)
	tc.Check(prog)

	bus := diag.NewBus(diag.PhaseBorrow, nil)
	NewChecker(bus, tc.Defs(), tc.StructFields()).Check(prog)
	return bus
}

func borrowCodes(bus *diag.Bus) []diag.Code {
	var out []diag.Code
	for _, d := range bus.All() {
		out = append(out, d.Code)
	}
	return out
}

func TestBorrowValidMutationCompiles(t *testing.T) {
	// Scenario 3 from spec.md §8.
	bus := borrowCheck(t, `fn main(): i32 { let! v = 0; v = v + 1; return v; }`)
	assert.Empty(t, bus.All())
}

func TestBorrowImmutableAssignmentRejected(t *testing.T) {
	bus := borrowCheck(t, `fn main(): i32 { let v = 0; v = v + 1; return v; }`)
	assert.Contains(t, borrowCodes(bus), diag.EImmutableAssign)
}

func TestBorrowUseAfterMoveOfStruct(t *testing.T) {
	bus := borrowCheck(t, `
struct Box { v: i32 }
fn consume(b: Box): i32 { return b.v; }
fn main(): i32 {
    let b = Box { v: 1 };
    let c = b;
    return consume(b);
}
`)
	assert.Contains(t, borrowCodes(bus), diag.EUseAfterMove)
}

func TestBorrowReinitializationResurrectsBinding(t *testing.T) {
	bus := borrowCheck(t, `
struct Box { v: i32 }
fn consume(b: Box): i32 { return b.v; }
fn main(): i32 {
    let! b = Box { v: 1 };
    let c = b;
    b = Box { v: 2 };
    return consume(b);
}
`)
	assert.NotContains(t, borrowCodes(bus), diag.EUseAfterMove)
}

func TestBorrowReturningReferenceToLocalRejected(t *testing.T) {
	// Scenario 4 from spec.md §8.
	bus := borrowCheck(t, `fn bad(): &i32 { let x = 0; return &x; }`)
	assert.Contains(t, borrowCodes(bus), diag.EReturnLocalRef)
}

func TestBorrowExclusiveMutBorrowConflictsWithSharedBorrow(t *testing.T) {
	bus := borrowCheck(t, `
fn main(): i32 {
    let! x = 0;
    let a = &x;
    let b = &x!;
    return *a + *b;
}
`)
	assert.Contains(t, borrowCodes(bus), diag.EBorrowConflict)
}

func TestBorrowManySharedLoansCoexist(t *testing.T) {
	bus := borrowCheck(t, `
fn main(): i32 {
    let x = 0;
    let a = &x;
    let b = &x;
    return *a + *b;
}
`)
	assert.NotContains(t, borrowCodes(bus), diag.EBorrowConflict)
}

func TestBorrowOfMovedPlaceRejected(t *testing.T) {
	bus := borrowCheck(t, `
struct Box { v: i32 }
fn consume(b: Box): i32 { return b.v; }
fn main(): i32 {
    let b = Box { v: 1 };
    let c = b;
    let r = &b;
    return consume(c);
}
`)
	assert.Contains(t, borrowCodes(bus), diag.EBorrowOfMoved)
}
