package types

import (
	"fmt"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/diag"
)

// TraitDef is a registered `trait Name { fn ...; }` declaration: the set of
// method signatures implementors must provide.
type TraitDef struct {
	Name    string
	Methods map[string]*ast.Node // method name -> FunctionDecl signature
}

// ImplDef is one `impl [Trait for] Type { ... }` block.
type ImplDef struct {
	Trait   string // empty for an inherent impl
	ForType *ast.Type
	Methods map[string]*ast.Node // method name -> FunctionDecl with body
}

// Registry holds every trait and impl seen while checking a module, and
// resolves method calls against them — the operator-overload desugaring
// and method-dispatch machinery spec.md §4.4 assigns to the type
// environment.
type Registry struct {
	traits map[string]*TraitDef
	impls  []*ImplDef
}

func NewRegistry() *Registry {
	return &Registry{traits: make(map[string]*TraitDef)}
}

func (r *Registry) AddTrait(decl *ast.Node, defs map[string]*ast.Type) {
	name, _ := decl.Data.(string)
	td := &TraitDef{Name: name, Methods: make(map[string]*ast.Node)}
	for _, m := range decl.Children {
		mname, _ := m.Data.(string)
		td.Methods[mname] = m
	}
	r.traits[name] = td
}

func (r *Registry) AddImpl(decl *ast.Node, defs map[string]*ast.Type) {
	var traitName string
	if t := decl.Child(0); t != nil {
		traitName, _ = t.Data.(string)
	}
	forType := FromNode(decl.Child(1), defs)
	id := &ImplDef{Trait: traitName, ForType: forType, Methods: make(map[string]*ast.Node)}
	for _, m := range decl.Children[2:] {
		mname, _ := m.Data.(string)
		id.Methods[mname] = m
	}
	r.impls = append(r.impls, id)
}

// Resolve finds the FunctionDecl implementing method for receiver type
// recv. Multiple impls of *different* traits providing the same method
// name for the same receiver type, with no further disambiguation
// available, report E3101 (spec.md §4.4's ambiguous-overload case) and
// Resolve returns the first match so checking can continue.
func (r *Registry) Resolve(recv *ast.Type, method string, bus *diag.Bus, call *ast.Node) (*ast.Node, bool) {
	var matches []*ImplDef
	for _, impl := range r.impls {
		if impl.ForType.Equal(recv) {
			if _, ok := impl.Methods[method]; ok {
				matches = append(matches, impl)
			}
		}
	}
	if len(matches) == 0 {
		return nil, false
	}
	if len(matches) > 1 {
		distinct := map[string]bool{}
		for _, m := range matches {
			distinct[m.Trait] = true
		}
		if len(distinct) > 1 {
			bus.Report(diag.New(diag.EAmbiguousOverload, diag.SeverityError, diag.PhaseTypes, call.Span,
				fmt.Sprintf("call to %q on %s is ambiguous between %d trait implementations", method, recv, len(distinct))))
		}
	}
	return matches[0].Methods[method], true
}

// operatorTraitMethod maps a binary operator token name to the trait
// method Vex desugars it into (spec.md §4.4: `a + b` => `a.add(b)`, etc.),
// following Rust's std::ops naming convention, which the rest of the
// retrieval pack's languages (and Vex's own `.method()` call syntax) share.
var operatorTraitMethod = map[string]string{
	"+": "add", "-": "sub", "*": "mul", "/": "div", "%": "rem",
	"==": "eq", "!=": "ne", "<": "lt", ">": "gt", "<=": "le", ">=": "ge",
}
