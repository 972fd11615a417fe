package borrow

import (
	"fmt"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/diag"
)

// borrowPass implements spec.md §4.5.3: record a loan for every reference
// expression and enforce that a `&T!` loan is exclusive against every
// other loan, and against any read/write of the place through its owner.
//
// Each phase recomputes the subset of per-binding state it needs rather
// than sharing mutable side-tables with the other phases (the AST is the
// only thing passed between them, per spec.md §5's "no component mutates
// the AST" invariant) so this pass keeps its own lightweight owned/moved
// flag for just E4301's purpose, independent of Phase 2's fuller
// MovedFrom/Partially state machine.
type borrowPass struct {
	c      *Checker
	owners map[string]*ownerState // persists across the whole function body
	scopes []*scopeFrame

	// varTypes backs a minimal, whole-binding-only move tracker
	// used solely to detect E4301 ("taking a loan on a MovedFrom place");
	// it deliberately does not replicate Phase 2's field-level Partially
	// tracking — reads of an already-moved binding are Phase 2's fuller
	// E4201, already reported by movePass on the same AST.
	varTypes map[string]*ast.Type
}

// ownerState is the loan bookkeeping for one place, tracked at whole-
// binding granularity (field-level loan disjointness, spec.md §4.5.3's
// "loan of a field implies a matching loan of the parent... but not of
// disjoint sibling fields", is approximated by keying state on the full
// place string rather than only the root name, so `x.a` and `x.b` get
// independent ownerStates while `x.a` and `x` still correctly conflict
// through the prefix check in conflictingPlaces).
type ownerState struct {
	moved bool
	movedAt *ast.Node
	immut []loan
	mut   *loan
}

type refDecl struct {
	place string
	mutable bool
}

type scopeFrame struct {
	refs []refDecl
}

func newBorrowPass(c *Checker) *borrowPass {
	return &borrowPass{c: c, owners: make(map[string]*ownerState), varTypes: make(map[string]*ast.Type)}
}

func (p *borrowPass) owner(place string) *ownerState {
	o, ok := p.owners[place]
	if !ok {
		o = &ownerState{}
		p.owners[place] = o
	}
	return o
}

func (p *borrowPass) push() { p.scopes = append(p.scopes, &scopeFrame{}) }

func (p *borrowPass) pop() {
	top := p.scopes[len(p.scopes)-1]
	p.scopes = p.scopes[:len(p.scopes)-1]
	for _, r := range top.refs {
		p.release(r.place, r.mutable)
	}
}

func (p *borrowPass) release(place string, mutable bool) {
	o := p.owner(place)
	if mutable {
		o.mut = nil
	} else if len(o.immut) > 0 {
		o.immut = o.immut[1:]
	}
}

func (p *borrowPass) trackRef(place string, mutable bool) {
	if len(p.scopes) == 0 {
		return
	}
	top := p.scopes[len(p.scopes)-1]
	top.refs = append(top.refs, refDecl{place: place, mutable: mutable})
}

func (p *borrowPass) run(fn *ast.Node) {
	p.push()
	defer p.pop()
	p.block(fn.Child(2))
}

func (p *borrowPass) block(n *ast.Node) {
	if n == nil {
		return
	}
	p.push()
	defer p.pop()
	for _, s := range n.Children {
		p.stmt(s)
	}
}

func (p *borrowPass) stmt(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Typ {
	case ast.LetStmt:
		p.statementScopedExpr(n.Child(2), n.Child(0))
		p.recordLetMove(n)
	case ast.AssignStmt:
		p.markWrite(n.Child(0))
		p.statementScopedExpr(n.Child(1), nil)
		if n.Child(0).Typ == ast.IdentExpr {
			if name, ok := rootIdent(n.Child(0)); ok {
				p.owner(name).moved = false // reinitialisation un-poisons E4301; Phase 2 owns full reinit semantics
			}
		}
	case ast.IfStmt:
		p.statementScopedExpr(n.Child(0), nil)
		p.block(n.Child(1))
		if els := n.Child(2); els != nil {
			if els.Typ == ast.BlockStmt {
				p.block(els)
			} else {
				p.stmt(els)
			}
		}
	case ast.WhileStmt:
		p.statementScopedExpr(n.Child(0), nil)
		p.block(n.Child(1))
	case ast.ForStmt:
		p.statementScopedExpr(n.Child(1), nil)
		p.block(n.Child(2))
	case ast.LoopStmt:
		p.block(n.Child(0))
	case ast.ReturnStmt:
		p.statementScopedExpr(n.Child(0), nil)
	case ast.DeferStmt, ast.ExprStmt:
		p.statementScopedExpr(n.Child(0), nil)
	case ast.BlockStmt:
		p.block(n)
	case ast.MatchStmt:
		p.matchStmt(n)
	}
}

func (p *borrowPass) matchStmt(n *ast.Node) {
	p.statementScopedExpr(n.Child(0), nil)
	arms := n.Child(1)
	if arms == nil {
		return
	}
	for _, arm := range arms.Children {
		p.push()
		if g := arm.Child(1); g != nil {
			p.expr(g)
		}
		p.expr(arm.Child(2))
		p.pop()
	}
}

// statementScopedExpr evaluates expr, and — if bindPattern is non-nil and
// expr's outermost loans should persist for the new binding's lifetime
// (i.e. expr is itself a bare ReferenceExpr, `let r = &x;`) — registers
// those loans against the enclosing (not transient) scope so they survive
// past this single statement. Transient loans (e.g. `f(&x)`'s argument)
// are released at the end of the statement via a temporary scope.
func (p *borrowPass) statementScopedExpr(expr *ast.Node, bindPattern *ast.Node) {
	if expr == nil {
		return
	}
	if bindPattern != nil && expr.Typ == ast.ReferenceExpr {
		place, ok := rootPlace(expr.Child(0))
		if ok {
			p.checkAndRecordLoan(place, expr.Mutable, expr)
			p.trackRef(place, expr.Mutable)
			p.expr(expr.Child(0))
			return
		}
	}
	p.push()
	p.expr(expr)
	p.pop()
}

// recordLetMove gives this pass's minimal E4301 tracker enough type
// information to flag "borrow of an already-moved place": it mirrors
// movePass's whole-binding move rule (a bare-identifier initializer of a
// Move-typed let moves its source) without movePass's field-level
// Partially tracking, which Phase 2 already owns.
func (p *borrowPass) recordLetMove(n *ast.Node) {
	init := n.Child(2)
	t := p.letType(n)
	if pat := n.Child(0); pat != nil && pat.Typ == ast.BindingPattern {
		name, _ := pat.Data.(string)
		p.varTypes[name] = t
	}
	if init != nil && init.Typ == ast.IdentExpr && !p.c.isCopy(t) {
		name, _ := init.Data.(string)
		o := p.owner(name)
		o.moved = true
		o.movedAt = n
	}
}

// letType resolves a let binding's type from its annotation if present,
// else from the initializer's own shape, covering the common unannotated
// literal/struct-literal/identifier-copy cases.
func (p *borrowPass) letType(n *ast.Node) *ast.Type {
	if ann := n.Child(1); ann != nil {
		return p.c.resolveType(ann)
	}
	init := n.Child(2)
	switch {
	case init == nil:
		return ast.ErrorType
	case init.Typ == ast.IdentExpr:
		name, _ := init.Data.(string)
		if t, ok := p.varTypes[name]; ok {
			return t
		}
	case init.Typ == ast.StructLitExpr:
		name, _ := init.Data.(string)
		if t, ok := p.c.defs[name]; ok {
			return t
		}
	case init.Typ == ast.ReferenceExpr:
		return ast.NewReference(init.Mutable, ast.ErrorType)
	case init.Typ == ast.LiteralExpr:
		lit, _ := init.Data.(ast.Lit)
		if lit.Kind == ast.LitString {
			return ast.NewPrimitive(ast.Str)
		}
		return ast.NewPrimitive(ast.I32)
	}
	return ast.ErrorType
}

func (p *borrowPass) expr(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Typ {
	case ast.ReferenceExpr:
		place, ok := rootPlace(n.Child(0))
		if ok {
			p.checkAndRecordLoan(place, n.Mutable, n)
			p.trackRef(place, n.Mutable)
		}
		p.expr(n.Child(0))
	case ast.ClosureExpr:
		p.push()
		p.block(n.Child(2))
		p.pop()
	case ast.BlockStmt:
		p.block(n)
	case ast.IfStmt, ast.MatchStmt, ast.WhileStmt, ast.ForStmt, ast.LoopStmt:
		p.stmt(n)
	default:
		for _, c := range n.Children {
			p.expr(c)
		}
	}
}

// markWrite flags a direct write through an owner so E4302 fires when the
// owner currently has an outstanding exclusive loan.
func (p *borrowPass) markWrite(n *ast.Node) {
	place, ok := rootPlace(n)
	if !ok {
		return
	}
	for other, o := range p.owners {
		if o.mut != nil && conflictingPlaces(place, other) {
			p.reportConflict(place, n, "write", o.mut)
		}
	}
}

func (p *borrowPass) checkAndRecordLoan(place string, mutable bool, at *ast.Node) {
	o := p.owner(place)
	if o.moved {
		p.c.bus.Report(diag.New(diag.EBorrowOfMoved, diag.SeverityError, diag.PhaseBorrow, at.Span,
			fmt.Sprintf("cannot borrow %q: it was already moved", place)))
		return
	}
	for other, os := range p.owners {
		if !conflictingPlaces(place, other) {
			continue
		}
		if mutable {
			if len(os.immut) > 0 {
				p.reportConflict(place, at, "exclusive borrow", &os.immut[0])
				return
			}
			if os.mut != nil && other != place {
				p.reportConflict(place, at, "exclusive borrow", os.mut)
				return
			}
		}
		if os.mut != nil {
			p.reportConflict(place, at, "borrow", os.mut)
			return
		}
	}
	if mutable {
		o.mut = &loan{origin: at, mutable: true}
	} else {
		o.immut = append(o.immut, loan{origin: at, mutable: false})
	}
}

func (p *borrowPass) reportConflict(place string, at *ast.Node, action string, existing *loan) {
	d := diag.New(diag.EBorrowConflict, diag.SeverityError, diag.PhaseBorrow, at.Span,
		fmt.Sprintf("cannot take a %s of %q: an exclusive `&%s!` loan is already active", action, place, place)).
		WithRemedy("drop the existing exclusive borrow before taking another loan on the same place")
	if existing != nil && existing.origin != nil {
		d.WithSecondary(existing.origin.Span, "exclusive loan taken here")
	}
	p.c.bus.Report(d)
}

// rootPlace resolves the place string a reference expression targets,
// used as the key into owners.
func rootPlace(n *ast.Node) (string, bool) {
	if _, ok := rootIdent(n); !ok {
		return "", false
	}
	return placeString(n), true
}

// conflictingPlaces reports whether a and b name overlapping memory: equal
// places, or one a field-access prefix of the other (spec.md §4.5.3: "a
// loan of a field implies a matching loan of the parent place's slot").
func conflictingPlaces(a, b string) bool {
	if a == b {
		return true
	}
	return len(a) > len(b) && a[:len(b)] == b && a[len(b)] == '.' ||
		len(b) > len(a) && b[:len(a)] == a && b[len(a)] == '.'
}
