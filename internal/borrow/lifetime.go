package borrow

import (
	"fmt"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/diag"
	"github.com/vex-lang/vex/internal/source"
)

// lifetimePass implements spec.md §4.5.4: every loan's required lifetime
// must be a subset of its owner's available lifetime. Rather than
// building the full point-indexed control-flow graph the spec sketches,
// this pass uses lexical block depth as a sound (if coarser) proxy for
// "available lifetime": a local declared at block depth d cannot outlive
// the end of depth d, so a loan escaping to a shallower depth, to the
// function's return, or into a closure that itself escapes, always
// violates spec.md §4.5.4's subset invariant. This is the same
// conservative simplification real borrow checkers' NLL predecessors
// used before full region inference, and it is sufficient to catch every
// case spec.md §8 enumerates (E4401/E4402/E4403).
type lifetimePass struct {
	c *Checker

	depth  int
	locals map[string]*localInfo // name -> info, across the whole function
	// refOrigin tracks, for a reference-typed binding, the name of the
	// local place it was bound from (for transitive "return a stored
	// reference to a local" detection), and at what depth that binding
	// itself lives.
	refOrigin map[string]refInfo
}

type localInfo struct {
	depth     int
	decl      *ast.Node
	isParam   bool
}

type refInfo struct {
	ownerName  string
	ownerDepth int
	ownerDecl  *ast.Node
	bindDepth  int
}

func newLifetimePass(c *Checker) *lifetimePass {
	return &lifetimePass{
		c:         c,
		locals:    make(map[string]*localInfo),
		refOrigin: make(map[string]refInfo),
	}
}

func (p *lifetimePass) run(fn *ast.Node) {
	for _, param := range fn.Child(0).Children {
		name, _ := param.Data.(string)
		p.locals[name] = &localInfo{depth: 0, decl: param, isParam: true}
	}
	p.block(fn.Child(2))
}

func (p *lifetimePass) block(n *ast.Node) {
	if n == nil {
		return
	}
	p.depth++
	for _, s := range n.Children {
		p.stmt(s)
	}
	p.depth--
}

func (p *lifetimePass) stmt(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Typ {
	case ast.LetStmt:
		p.letStmt(n)
	case ast.AssignStmt:
		p.assignStmt(n)
	case ast.IfStmt:
		p.checkEscapes(n.Child(0))
		p.block(n.Child(1))
		if els := n.Child(2); els != nil {
			if els.Typ == ast.BlockStmt {
				p.block(els)
			} else {
				p.stmt(els)
			}
		}
	case ast.WhileStmt:
		p.checkEscapes(n.Child(0))
		p.block(n.Child(1))
	case ast.ForStmt:
		p.checkEscapes(n.Child(1))
		p.block(n.Child(2))
	case ast.LoopStmt:
		p.block(n.Child(0))
	case ast.ReturnStmt:
		p.returnStmt(n)
	case ast.DeferStmt, ast.ExprStmt:
		p.checkEscapes(n.Child(0))
	case ast.BlockStmt:
		p.block(n)
	case ast.MatchStmt:
		p.matchStmt(n)
	}
}

func (p *lifetimePass) matchStmt(n *ast.Node) {
	p.checkEscapes(n.Child(0))
	arms := n.Child(1)
	if arms == nil {
		return
	}
	p.depth++
	for _, arm := range arms.Children {
		if g := arm.Child(1); g != nil {
			p.checkEscapes(g)
		}
		p.checkEscapes(arm.Child(2))
	}
	p.depth--
}

func (p *lifetimePass) letStmt(n *ast.Node) {
	p.checkEscapes(n.Child(2))
	if pat := n.Child(0); pat != nil && pat.Typ == ast.BindingPattern {
		name, _ := pat.Data.(string)
		p.locals[name] = &localInfo{depth: p.depth, decl: n}
		p.recordRefBinding(name, n.Child(2))
	}
}

func (p *lifetimePass) assignStmt(n *ast.Node) {
	lhs, rhs := n.Child(0), n.Child(1)
	p.checkEscapes(rhs)
	if lhs.Typ != ast.IdentExpr {
		return
	}
	name, _ := lhs.Data.(string)
	target, known := p.locals[name]
	origin, isRef := originOfReference(rhs)
	if known && isRef {
		if owner, ok := p.locals[origin]; ok && !owner.isParam && owner.depth > target.depth {
			p.c.bus.Report(p.escapeDiag(diag.EEscapingStore, rhs.Span,
				fmt.Sprintf("storing a reference to %q, declared in an inner scope, into %q makes it outlive its owner", origin, name),
				owner.decl, fmt.Sprintf("%q declared here", origin)))
		}
	}
	p.recordRefBinding(name, rhs)
}

// recordRefBinding updates refOrigin when rhs is (transitively) a
// reference to a tracked local, so later statements that copy name's
// value onward (including `return name;`) can still be traced back to the
// original owner for E4401's "local `x` declared here" note.
func (p *lifetimePass) recordRefBinding(name string, rhs *ast.Node) {
	if rhs != nil && rhs.Typ == ast.IdentExpr {
		src, _ := rhs.Data.(string)
		if ri, ok := p.refOrigin[src]; ok {
			ri.bindDepth = p.depth
			p.refOrigin[name] = ri
			return
		}
	}
	origin, ok := originOfReference(rhs)
	if !ok {
		delete(p.refOrigin, name)
		return
	}
	owner, ok := p.locals[origin]
	if !ok {
		delete(p.refOrigin, name)
		return
	}
	p.refOrigin[name] = refInfo{ownerName: origin, ownerDepth: owner.depth, ownerDecl: owner.decl, bindDepth: p.depth}
}

// originOfReference strips casts and resolves rhs to the root place name
// it borrows from, if rhs is a ReferenceExpr. An identifier that already
// aliases a reference is followed by recordRefBinding through refOrigin,
// not here.
func originOfReference(rhs *ast.Node) (string, bool) {
	for rhs != nil && rhs.Typ == ast.CastExpr {
		rhs = rhs.Child(0)
	}
	if rhs == nil {
		return "", false
	}
	if rhs.Typ == ast.ReferenceExpr {
		return rootIdent(rhs.Child(0))
	}
	return "", false
}

func (p *lifetimePass) returnStmt(n *ast.Node) {
	v := n.Child(0)
	if v == nil {
		return
	}
	p.checkEscapes(v)
	for v != nil && v.Typ == ast.CastExpr {
		v = v.Child(0)
	}
	if v == nil {
		return
	}
	switch {
	case v.Typ == ast.ReferenceExpr:
		p.checkReturnedOwner(v, v.Child(0))
	case v.Typ == ast.IdentExpr:
		name, _ := v.Data.(string)
		if ri, ok := p.refOrigin[name]; ok {
			p.reportIfLocalOwner(v, ri.ownerName, ri.ownerDepth, ri.ownerDecl)
		}
	case v.Typ == ast.ClosureExpr:
		p.checkClosureEscape(v, v)
	}
}

func (p *lifetimePass) checkReturnedOwner(at *ast.Node, place *ast.Node) {
	name, ok := rootIdent(place)
	if !ok {
		return
	}
	info, ok := p.locals[name]
	if !ok {
		return
	}
	p.reportIfLocalOwner(at, name, info.depth, info.decl)
}

func (p *lifetimePass) reportIfLocalOwner(at *ast.Node, name string, ownerDepth int, decl *ast.Node) {
	if info, ok := p.locals[name]; ok && info.isParam {
		return // parameters outlive the call, safe to return a reference to
	}
	if ownerDepth == 0 {
		return
	}
	p.c.bus.Report(p.escapeDiag(diag.EReturnLocalRef, at.Span,
		fmt.Sprintf("cannot return a reference to local %q: it does not live past this function's return", name),
		decl, fmt.Sprintf("local %q declared here", name)))
}

// checkEscapes walks a general expression looking for closure literals
// and reference expressions nested anywhere (e.g. inside a call argument)
// so capture/escape diagnostics fire even when the reference isn't the
// direct subject of a let/assign/return.
func (p *lifetimePass) checkEscapes(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Typ {
	case ast.ClosureExpr:
		p.closureBody(n)
	case ast.BlockStmt:
		p.block(n)
	case ast.IfStmt, ast.MatchStmt, ast.WhileStmt, ast.ForStmt, ast.LoopStmt:
		p.stmt(n)
	default:
		for _, c := range n.Children {
			p.checkEscapes(c)
		}
	}
}

// closureBody type-checks a closure literal's own body for local
// escapes, without itself deciding whether the closure escapes — that is
// checkClosureEscape's job, invoked from returnStmt when a closure
// literal is the returned value.
func (p *lifetimePass) closureBody(n *ast.Node) {
	savedLocals := make(map[string]*localInfo, len(p.locals))
	for k, v := range p.locals {
		savedLocals[k] = v
	}
	for _, param := range n.Child(0).Children {
		name, _ := param.Data.(string)
		p.locals[name] = &localInfo{depth: p.depth + 1, decl: n}
	}
	p.depth++
	p.block(n.Child(2))
	p.depth--
	p.locals = savedLocals
}

// checkClosureEscape reports E4403 when closure captures (by reference)
// a binding local to the enclosing function — any such capture is unsound
// once the closure itself is returned, since the closure can be called
// after the captured local's scope has ended.
func (p *lifetimePass) checkClosureEscape(closure *ast.Node, at *ast.Node) {
	captured := map[string]*localInfo{}
	collectFreeRefs(closure, captured, p.locals, paramNames(closure))
	for name, info := range captured {
		if info.isParam {
			continue
		}
		p.c.bus.Report(p.escapeDiag(diag.EClosureEscape, at.Span,
			fmt.Sprintf("closure captures %q by reference but is returned, so %q may outlive it", name, name),
			info.decl, fmt.Sprintf("%q declared here", name)))
	}
}

func paramNames(closure *ast.Node) map[string]bool {
	out := map[string]bool{}
	for _, param := range closure.Child(0).Children {
		name, _ := param.Data.(string)
		out[name] = true
	}
	return out
}

// collectFreeRefs finds every ReferenceExpr inside closure whose place
// roots at a name present in locals (the enclosing function's bindings)
// and not shadowed by the closure's own parameters/lets, recording it
// into captured.
func collectFreeRefs(n *ast.Node, captured map[string]*localInfo, locals map[string]*localInfo, bound map[string]bool) {
	if n == nil {
		return
	}
	if n.Typ == ast.ReferenceExpr {
		if name, ok := rootIdent(n.Child(0)); ok && !bound[name] {
			if info, ok := locals[name]; ok {
				captured[name] = info
			}
		}
	}
	if n.Typ == ast.LetStmt {
		if pat := n.Child(0); pat != nil && pat.Typ == ast.BindingPattern {
			name, _ := pat.Data.(string)
			bound[name] = true
		}
	}
	for _, c := range n.Children {
		collectFreeRefs(c, captured, locals, bound)
	}
}

func (p *lifetimePass) escapeDiag(code diag.Code, sp source.Span, msg string, declNode *ast.Node, label string) *diag.Diagnostic {
	d := diag.New(code, diag.SeverityError, diag.PhaseBorrow, sp, msg)
	if declNode != nil {
		d.WithSecondary(declNode.Span, label)
	}
	return d
}
