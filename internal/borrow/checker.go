package borrow

import (
	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/diag"
	"github.com/vex-lang/vex/internal/types"
)

// Checker runs the four borrow-checking phases over every function body in
// a Program, in the fixed order spec.md §4.5 specifies. It is constructed
// once per compilation run and shares defs/structFields with the type
// environment so copy-classification (spec.md §4.5.2) agrees with the
// types the checker already resolved.
type Checker struct {
	bus          *diag.Bus
	defs         map[string]*ast.Type
	structFields map[string]map[string]*ast.Type
	copyTypes    map[string]bool // struct names with `impl Copy for T`
}

// NewChecker builds a borrow Checker. defs and structFields are the same
// tables internal/types.Checker populates while registering struct/enum
// declarations; passing them in (rather than re-deriving them) keeps the
// two passes from disagreeing about what a named type's shape is.
func NewChecker(bus *diag.Bus, defs map[string]*ast.Type, structFields map[string]map[string]*ast.Type) *Checker {
	return &Checker{
		bus:          bus,
		defs:         defs,
		structFields: structFields,
		copyTypes:    make(map[string]bool),
	}
}

// Check runs all four phases over prog. Each phase is a separate pass so
// that, per spec.md §4.5, a program that fails Phase 1 (say) still gets
// Phase 2-4 diagnostics in the same run.
func (c *Checker) Check(prog *ast.Node) {
	c.collectCopyImpls(prog)

	for _, fn := range functionsOf(prog) {
		newImmutabilityPass(c).run(fn)
	}
	for _, fn := range functionsOf(prog) {
		newMovePass(c).run(fn)
	}
	for _, fn := range functionsOf(prog) {
		newBorrowPass(c).run(fn)
	}
	for _, fn := range functionsOf(prog) {
		newLifetimePass(c).run(fn)
	}
}

// collectCopyImpls finds every `impl Copy for T` so isCopy can treat T as
// Copy even though it is a struct/enum (spec.md §4.5.2: "user types may be
// marked Copy by implementing a zero-op Copy trait").
func (c *Checker) collectCopyImpls(prog *ast.Node) {
	for _, item := range flattenExports(prog.Children) {
		if item.Typ != ast.ImplDecl {
			continue
		}
		trait := item.Child(0)
		forType := item.Child(1)
		if trait == nil || forType == nil {
			continue
		}
		if name, _ := trait.Data.(string); name == "Copy" {
			if tname, ok := forType.Data.(string); ok {
				c.copyTypes[tname] = true
			}
		}
	}
}

func flattenExports(items []*ast.Node) []*ast.Node {
	var out []*ast.Node
	for _, it := range items {
		if it.Typ == ast.ExportDecl && len(it.Children) == 1 {
			out = append(out, it.Children[0])
			continue
		}
		out = append(out, it)
	}
	return out
}

// functionsOf returns every function body in the program, including impl
// methods, as (fn node) pairs the four passes walk independently.
func functionsOf(prog *ast.Node) []*ast.Node {
	var out []*ast.Node
	for _, item := range flattenExports(prog.Children) {
		switch item.Typ {
		case ast.FunctionDecl:
			if item.Child(2) != nil {
				out = append(out, item)
			}
		case ast.ImplDecl:
			for _, m := range item.Children[2:] {
				if m != nil && m.Typ == ast.FunctionDecl && m.Child(2) != nil {
					out = append(out, m)
				}
			}
		}
	}
	return out
}

// isCopy classifies t the way spec.md §4.5.2 requires: primitives, &T,
// function pointers, Copy-arrays and Copy-tuples are Copy; everything else
// is Move unless it names a struct/enum with a registered `impl Copy`.
func (c *Checker) isCopy(t *ast.Type) bool {
	if t == nil {
		return true
	}
	if t.Kind == ast.TNamed && c.copyTypes[t.Name] {
		return true
	}
	if t.Kind == ast.TPointer {
		return true
	}
	return t.IsCopy()
}

// resolveType converts a parsed type annotation node into a resolved
// ast.Type using the shared defs table, mirroring types.FromNode.
func (c *Checker) resolveType(n *ast.Node) *ast.Type {
	return types.FromNode(n, c.defs)
}
