// Package types implements Vex's type environment: expression/statement
// type inference, trait method resolution, numeric-literal defaulting and
// match-exhaustiveness checking (via internal/match). Binary operators are
// checked directly on their operand types; they are not desugared into
// trait method calls (operatorTraitMethod is not consulted), and no
// monomorphisation plan is produced.
//
// Grounded on sunholo-data-ailang's internal/types package (env.go's
// parent-linked TypeEnv, unification.go's Substitution-threading Unify),
// adapted from AILANG's row-polymorphic effect system to Vex's simpler
// struct/enum/trait type model (spec.md §3's Type sum type, already
// represented as ast.Type).
package types

import "github.com/vex-lang/vex/internal/ast"

// Env is a parent-linked scope of name -> Type bindings, mirroring
// AILANG's TypeEnv (internal/types/env.go) but binding concrete ast.Type
// values rather than let-polymorphic Schemes — spec.md's generics are
// resolved by monomorphisation (§4.4) rather than by a Hindley-Milner
// generalize/instantiate step.
type Env struct {
	bindings map[string]*ast.Type
	parent   *Env
}

func NewEnv(parent *Env) *Env {
	return &Env{bindings: make(map[string]*ast.Type), parent: parent}
}

func (e *Env) Bind(name string, t *ast.Type) { e.bindings[name] = t }

func (e *Env) Lookup(name string) (*ast.Type, bool) {
	for env := e; env != nil; env = env.parent {
		if t, ok := env.bindings[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Child opens a nested scope, the way ast.Scope.Push does for the AST's
// own binding stack; Env mirrors that structure one layer up, at the type
// level.
func (e *Env) Child() *Env { return NewEnv(e) }
