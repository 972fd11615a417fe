package borrow

import (
	"fmt"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/diag"
)

// immutabilityPass implements spec.md §4.5.1: every assignment, compound
// assignment, and `&place!` of a binding must trace back to a `let!`
// binding. Fields inherit mutability from their root binding — there is
// no per-field mutability — so the pass only ever needs to look up the
// root identifier's declared mutability.
type immutabilityPass struct {
	c      *Checker
	scopes []map[string]bool // name -> declared-mutable, innermost last
}

func newImmutabilityPass(c *Checker) *immutabilityPass {
	return &immutabilityPass{c: c, scopes: []map[string]bool{{}}}
}

func (p *immutabilityPass) push() { p.scopes = append(p.scopes, map[string]bool{}) }
func (p *immutabilityPass) pop()  { p.scopes = p.scopes[:len(p.scopes)-1] }

func (p *immutabilityPass) declare(name string, mutable bool) {
	p.scopes[len(p.scopes)-1][name] = mutable
}

func (p *immutabilityPass) lookup(name string) (bool, bool) {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if m, ok := p.scopes[i][name]; ok {
			return m, true
		}
	}
	return false, false
}

func (p *immutabilityPass) run(fn *ast.Node) {
	for _, param := range fn.Child(0).Children {
		name, _ := param.Data.(string)
		p.declare(name, param.Mutable)
	}
	p.block(fn.Child(2))
}

func (p *immutabilityPass) block(n *ast.Node) {
	if n == nil {
		return
	}
	p.push()
	defer p.pop()
	for _, s := range n.Children {
		p.stmt(s)
	}
}

func (p *immutabilityPass) stmt(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Typ {
	case ast.LetStmt:
		p.expr(n.Child(2))
		p.declarePattern(n.Child(0), n.Mutable)
	case ast.AssignStmt:
		p.checkAssignTarget(n.Child(0))
		p.expr(n.Child(1))
	case ast.IfStmt:
		p.expr(n.Child(0))
		p.block(n.Child(1))
		if els := n.Child(2); els != nil {
			if els.Typ == ast.BlockStmt {
				p.block(els)
			} else {
				p.stmt(els)
			}
		}
	case ast.WhileStmt:
		p.expr(n.Child(0))
		p.block(n.Child(1))
	case ast.ForStmt:
		p.expr(n.Child(1))
		p.push()
		p.declarePattern(n.Child(0), false)
		for _, s := range n.Child(2).Children {
			p.stmt(s)
		}
		p.pop()
	case ast.LoopStmt:
		p.block(n.Child(0))
	case ast.ReturnStmt:
		p.expr(n.Child(0))
	case ast.DeferStmt, ast.ExprStmt:
		p.expr(n.Child(0))
	case ast.BlockStmt:
		p.block(n)
	case ast.MatchStmt:
		p.matchStmt(n)
	}
}

func (p *immutabilityPass) matchStmt(n *ast.Node) {
	p.expr(n.Child(0))
	arms := n.Child(1)
	if arms == nil {
		return
	}
	for _, arm := range arms.Children {
		p.push()
		p.declarePattern(arm.Child(0), false)
		if g := arm.Child(1); g != nil {
			p.expr(g)
		}
		p.expr(arm.Child(2))
		p.pop()
	}
}

// declarePattern binds every name a pattern introduces with mutable,
// matching `let!`'s all-or-nothing mutability (spec.md has no per-binding
// mutability within a single pattern).
func (p *immutabilityPass) declarePattern(pat *ast.Node, mutable bool) {
	if pat == nil {
		return
	}
	switch pat.Typ {
	case ast.BindingPattern:
		name, _ := pat.Data.(string)
		p.declare(name, mutable)
	case ast.TuplePattern, ast.OrPattern:
		for _, sub := range pat.Children {
			p.declarePattern(sub, mutable)
		}
	case ast.StructPattern, ast.EnumVariantPattern:
		for _, sub := range pat.Children {
			if sub.Typ == ast.FieldList {
				p.declarePattern(sub.Child(0), mutable)
			} else {
				p.declarePattern(sub, mutable)
			}
		}
	}
}

// checkAssignTarget reports E4101 when lhs's root binding was declared
// with plain `let` (immutable).
func (p *immutabilityPass) checkAssignTarget(lhs *ast.Node) {
	p.checkMutablePlace(lhs, "assignment target")
	p.expr(lhs)
}

func (p *immutabilityPass) checkMutablePlace(n *ast.Node, context string) {
	root, ok := rootIdent(n)
	if !ok {
		return
	}
	mutable, known := p.lookup(root)
	if !known || mutable {
		return
	}
	p.c.bus.Report(diag.New(diag.EImmutableAssign, diag.SeverityError, diag.PhaseBorrow, n.Span,
		fmt.Sprintf("cannot use %s as %s: %q is not declared with `let!`", placeString(n), context, root)).
		WithRemedy(fmt.Sprintf("declare `let! %s = ...` if %s needs to be mutable", root, root)))
}

func (p *immutabilityPass) expr(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Typ {
	case ast.ReferenceExpr:
		if n.Mutable {
			p.checkMutablePlace(n.Child(0), "a `&expr!` borrow")
		}
		p.expr(n.Child(0))
	case ast.ClosureExpr:
		p.push()
		for _, param := range n.Child(0).Children {
			name, _ := param.Data.(string)
			p.declare(name, false)
		}
		p.block(n.Child(2))
		p.pop()
	case ast.BlockStmt:
		p.block(n)
	case ast.IfStmt:
		p.stmt(n)
	case ast.MatchStmt:
		p.matchStmt(n)
	default:
		for _, c := range n.Children {
			p.expr(c)
		}
	}
}
