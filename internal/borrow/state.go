// Package borrow implements Vex's four-phase borrow checker (spec.md
// §4.5): Immutability, Move, Borrow, Lifetime, run sequentially over the
// typed AST. Every phase reports through the shared diag.Bus and keeps
// running after reporting a diagnostic, so a single compilation surfaces
// as many borrow errors as possible rather than stopping at the first one
// (spec.md §4.5's "later phases still run" requirement).
//
// The teacher has no borrow checker — vslc's two primitive types (int,
// float) have no ownership story — so this package has no direct teacher
// analogue. It is grounded on the teacher's scope-stack traversal idiom
// (src/ir/validate.go's util.Stack-of-symtab walk, generalized here by
// ast.Scope) applied to the ownership/aliasing state machine spec.md §3
// defines per binding.
package borrow

import "github.com/vex-lang/vex/internal/ast"

// State is the per-binding borrow state from spec.md §3's Data Model.
type State int

const (
	Owned State = iota
	MovedFrom
	BorrowedImmut
	BorrowedMut
	Partially
)

func (s State) String() string {
	switch s {
	case Owned:
		return "owned"
	case MovedFrom:
		return "moved"
	case BorrowedImmut:
		return "borrowed (shared)"
	case BorrowedMut:
		return "borrowed (exclusive)"
	case Partially:
		return "partially moved"
	default:
		return "unknown"
	}
}

// binding tracks one local's ownership/aliasing state across a function
// body. fields is lazily populated to track Partially-moved structs field
// by field, per spec.md §4.5.2.
type binding struct {
	name    string
	defID   ast.DefID
	typ     *ast.Type
	mutable bool
	decl    *ast.Node // the let/param node, for "declared here" notes

	state   State
	movedAt *ast.Node // statement/expr that performed the move, for E4201's note

	immut []loan
	mut   *loan

	fields map[string]*binding // partial-move tracking, keyed by field name
}

// loan is one outstanding reference, per spec.md §3's Lifetime graph: an
// origin point and the kind of access it grants.
type loan struct {
	origin  *ast.Node
	mutable bool
}

func newBinding(name string, defID ast.DefID, typ *ast.Type, mutable bool, decl *ast.Node) *binding {
	return &binding{name: name, defID: defID, typ: typ, mutable: mutable, decl: decl}
}

// field returns (creating if necessary) the partial-state tracker for a
// struct field of b.
func (b *binding) field(name string) *binding {
	if b.fields == nil {
		b.fields = make(map[string]*binding)
	}
	f, ok := b.fields[name]
	if !ok {
		f = newBinding(b.name+"."+name, 0, nil, b.mutable, b.decl)
		b.fields[name] = f
	}
	return f
}

// anyFieldMoved reports whether at least one field of b has been moved,
// which forces b as a whole into the Partially state.
func (b *binding) anyFieldMoved() bool {
	for _, f := range b.fields {
		if f.state == MovedFrom || f.state == Partially {
			return true
		}
	}
	return false
}

// allFieldsOwned reports whether every tracked field has been
// reinitialised, letting a Partially binding resurrect to Owned.
func (b *binding) allFieldsOwned() bool {
	for _, f := range b.fields {
		if f.state != Owned {
			return false
		}
	}
	return true
}
