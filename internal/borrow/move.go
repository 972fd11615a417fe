package borrow

import (
	"fmt"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/diag"
	"github.com/vex-lang/vex/internal/lexer"
)

// movePass implements spec.md §4.5.2: classify every binding's type as
// Copy or Move, transition Move-typed places to MovedFrom on every
// by-value use, and reject subsequent reads (E4201). Borrowing
// (`&place`/`&place!`) is deliberately NOT treated as a move-triggering
// read here — taking a loan on an already-moved place is E4301, the
// Phase 3 (Borrow) diagnostic, so this pass skips straight through
// ReferenceExpr subtrees without consuming them.
type movePass struct {
	c      *Checker
	scopes []map[string]*binding
}

func newMovePass(c *Checker) *movePass {
	return &movePass{c: c, scopes: []map[string]*binding{{}}}
}

func (p *movePass) push() { p.scopes = append(p.scopes, map[string]*binding{}) }
func (p *movePass) pop()  { p.scopes = p.scopes[:len(p.scopes)-1] }

func (p *movePass) declare(name string, typ *ast.Type, decl *ast.Node) *binding {
	b := newBinding(name, 0, typ, false, decl)
	p.scopes[len(p.scopes)-1][name] = b
	return b
}

func (p *movePass) lookup(name string) (*binding, bool) {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if b, ok := p.scopes[i][name]; ok {
			return b, true
		}
	}
	return nil, false
}

func (p *movePass) run(fn *ast.Node) {
	for _, param := range fn.Child(0).Children {
		name, _ := param.Data.(string)
		var t *ast.Type
		if pt := param.Child(0); pt != nil {
			t = p.c.resolveType(pt)
		}
		p.declare(name, t, param)
	}
	p.block(fn.Child(2))
}

func (p *movePass) block(n *ast.Node) {
	if n == nil {
		return
	}
	p.push()
	defer p.pop()
	for _, s := range n.Children {
		p.stmt(s)
	}
}

func (p *movePass) stmt(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Typ {
	case ast.LetStmt:
		p.expr(n.Child(2), true)
		t := p.c.resolveType(n.Child(1))
		if n.Child(1) == nil {
			t = p.inferType(n.Child(2))
		}
		p.declarePattern(n.Child(0), t, n)
	case ast.AssignStmt:
		p.assign(n)
	case ast.IfStmt:
		p.expr(n.Child(0), false)
		p.block(n.Child(1))
		if els := n.Child(2); els != nil {
			if els.Typ == ast.BlockStmt {
				p.block(els)
			} else {
				p.stmt(els)
			}
		}
	case ast.WhileStmt:
		p.expr(n.Child(0), false)
		p.block(n.Child(1))
	case ast.ForStmt:
		p.expr(n.Child(1), false)
		p.push()
		p.declarePattern(n.Child(0), ast.ErrorType, n)
		for _, s := range n.Child(2).Children {
			p.stmt(s)
		}
		p.pop()
	case ast.LoopStmt:
		p.block(n.Child(0))
	case ast.ReturnStmt:
		p.expr(n.Child(0), true)
	case ast.DeferStmt:
		p.expr(n.Child(0), false)
	case ast.ExprStmt:
		p.expr(n.Child(0), false)
	case ast.BlockStmt:
		p.block(n)
	case ast.MatchStmt:
		p.matchStmt(n)
	}
}

func (p *movePass) matchStmt(n *ast.Node) {
	p.expr(n.Child(0), false)
	arms := n.Child(1)
	if arms == nil {
		return
	}
	for _, arm := range arms.Children {
		p.push()
		p.declarePattern(arm.Child(0), ast.ErrorType, arm)
		if g := arm.Child(1); g != nil {
			p.expr(g, false)
		}
		p.expr(arm.Child(2), false)
		p.pop()
	}
}

func (p *movePass) declarePattern(pat *ast.Node, t *ast.Type, decl *ast.Node) {
	if pat == nil {
		return
	}
	switch pat.Typ {
	case ast.BindingPattern:
		name, _ := pat.Data.(string)
		p.declare(name, t, decl)
	case ast.TuplePattern, ast.OrPattern:
		for i, sub := range pat.Children {
			elemT := ast.ErrorType
			if t != nil && t.Kind == ast.TTuple && i < len(t.Tuple) {
				elemT = t.Tuple[i]
			}
			p.declarePattern(sub, elemT, decl)
		}
	case ast.StructPattern, ast.EnumVariantPattern:
		for _, sub := range pat.Children {
			if sub.Typ == ast.FieldList {
				p.declarePattern(sub.Child(0), ast.ErrorType, decl)
			} else {
				p.declarePattern(sub, ast.ErrorType, decl)
			}
		}
	}
}

func (p *movePass) assign(n *ast.Node) {
	lhs, rhs := n.Child(0), n.Child(1)
	plain := isPlainAssign(n)
	if !plain {
		// Compound assignment (`+=` etc.) reads the old value first.
		p.expr(lhs, false)
	}
	p.expr(rhs, true)
	if lhs.Typ == ast.IdentExpr {
		name, _ := lhs.Data.(string)
		if b, ok := p.lookup(name); ok && plain {
			b.state = Owned
			b.fields = nil
		}
	} else {
		p.expr(lhs, false)
		if plain {
			p.reinitField(lhs)
		}
	}
}

// isPlainAssign reports whether n is a bare `=` (full reinitialisation)
// rather than a compound `+=`/`-=`/etc, which reads the old value and so
// does not resurrect a moved binding.
func isPlainAssign(n *ast.Node) bool {
	kind, ok := n.Data.(lexer.Kind)
	return ok && kind == lexer.Eq
}

func (p *movePass) reinitField(lhs *ast.Node) {
	if lhs.Typ != ast.FieldAccessExpr {
		return
	}
	root, ok := rootIdent(lhs)
	if !ok {
		return
	}
	b, ok := p.lookup(root)
	if !ok {
		return
	}
	path := fieldPath(lhs)
	if len(path) == 0 {
		return
	}
	cur := b
	for _, seg := range path {
		cur = cur.field(seg)
	}
	cur.state = Owned
	if b.allFieldsOwned() {
		b.state = Owned
	} else if b.anyFieldMoved() {
		b.state = Partially
	}
}

// expr walks n, reporting E4201 on every read of a moved place, and
// transitions Move-typed places to MovedFrom when consuming is true (n's
// value is being taken by another owner: a let initializer, a call
// argument, an assignment RHS, a return value, or an aggregate literal
// field).
func (p *movePass) expr(n *ast.Node, consuming bool) {
	if n == nil {
		return
	}
	switch n.Typ {
	case ast.IdentExpr:
		name, _ := n.Data.(string)
		p.checkRead(name, n)
		if consuming {
			p.moveWhole(name, n)
		}
	case ast.FieldAccessExpr:
		p.checkReadField(n)
		if consuming {
			p.moveField(n)
		}
	case ast.IndexExpr:
		p.expr(n.Child(0), false)
		p.expr(n.Child(1), true)
	case ast.DerefExpr:
		p.expr(n.Child(0), false)
	case ast.ReferenceExpr:
		// Borrowing never moves; a stale borrow of a moved place is E4301
		// (Phase 3), not this phase's concern.
		p.exprNoMove(n.Child(0))
	case ast.CallExpr:
		p.expr(n.Child(0), false)
		if args := n.Child(1); args != nil {
			for _, a := range args.Children {
				p.expr(a, true)
			}
		}
	case ast.MethodCallExpr:
		p.expr(n.Child(0), false) // auto-borrowed receiver: read, not moved
		if args := n.Child(1); args != nil {
			for _, a := range args.Children {
				p.expr(a, true)
			}
		}
	case ast.StructLitExpr:
		for _, f := range n.Children {
			p.expr(f.Child(0), true)
		}
	case ast.TupleLitExpr, ast.ArrayLitExpr:
		for _, e := range n.Children {
			p.expr(e, true)
		}
	case ast.ClosureExpr:
		p.closure(n)
	case ast.CastExpr:
		p.expr(n.Child(0), true)
	case ast.BlockStmt:
		p.block(n)
	case ast.IfStmt, ast.MatchStmt, ast.WhileStmt, ast.ForStmt, ast.LoopStmt:
		p.stmt(n)
	default:
		for _, c := range n.Children {
			p.expr(c, false)
		}
	}
}

// exprNoMove walks a borrowed subtree: it still recurses into nested
// non-place expressions (e.g. `&compute(x)`'s argument x), but the
// reference's immediate place target is never itself read-checked or
// moved by this phase.
func (p *movePass) exprNoMove(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Typ {
	case ast.IdentExpr, ast.FieldAccessExpr, ast.IndexExpr, ast.DerefExpr:
		// place expression directly under &: no move-phase action.
		if n.Typ == ast.IndexExpr {
			p.expr(n.Child(1), true)
		}
	default:
		p.expr(n, false)
	}
}

func (p *movePass) closure(n *ast.Node) {
	p.push()
	for _, param := range n.Child(0).Children {
		name, _ := param.Data.(string)
		var t *ast.Type
		if pt := param.Child(0); pt != nil {
			t = p.c.resolveType(pt)
		}
		p.declare(name, t, param)
	}
	p.block(n.Child(2))
	p.pop()
}

func (p *movePass) checkRead(name string, at *ast.Node) {
	b, ok := p.lookup(name)
	if !ok {
		return
	}
	switch b.state {
	case MovedFrom:
		p.reportUseAfterMove(name, at, b)
	case Partially:
		p.reportUseAfterMove(name, at, b)
	}
}

func (p *movePass) reportUseAfterMove(name string, at *ast.Node, b *binding) {
	d := diag.New(diag.EUseAfterMove, diag.SeverityError, diag.PhaseBorrow, at.Span,
		fmt.Sprintf("use of moved value %q", name)).
		WithRemedy(fmt.Sprintf("clone %q before this use, or restructure so it is not used again after being moved", name))
	if b.movedAt != nil {
		d.WithSecondary(b.movedAt.Span, fmt.Sprintf("%q moved here", name))
	}
	p.c.bus.Report(d)
}

func (p *movePass) checkReadField(n *ast.Node) {
	root, ok := rootIdent(n)
	if !ok {
		return
	}
	b, ok := p.lookup(root)
	if !ok {
		return
	}
	if b.state == MovedFrom {
		p.reportUseAfterMove(root, n, b)
		return
	}
	path := fieldPath(n)
	cur := b
	for _, seg := range path {
		if cur.fields == nil {
			return
		}
		f, ok := cur.fields[seg]
		if !ok {
			return
		}
		if f.state == MovedFrom || f.state == Partially {
			p.reportUseAfterMove(root+"."+seg, n, f)
			return
		}
		cur = f
	}
}

// moveWhole transitions name to MovedFrom if its type is Move-classified.
func (p *movePass) moveWhole(name string, at *ast.Node) {
	b, ok := p.lookup(name)
	if !ok || p.c.isCopy(b.typ) {
		return
	}
	b.state = MovedFrom
	b.movedAt = at
	b.fields = nil
}

// moveField performs a partial move of a struct field, putting the parent
// binding into Partially state per spec.md §4.5.2.
func (p *movePass) moveField(n *ast.Node) {
	root, ok := rootIdent(n)
	if !ok {
		return
	}
	b, ok := p.lookup(root)
	if !ok {
		return
	}
	path := fieldPath(n)
	if len(path) == 0 {
		return
	}
	fieldType := p.fieldTypeOf(b.typ, path)
	if p.c.isCopy(fieldType) {
		return
	}
	cur := b
	for _, seg := range path {
		cur = cur.field(seg)
	}
	cur.state = MovedFrom
	cur.movedAt = n
	b.state = Partially
}

// fieldTypeOf resolves a single-level field's declared type via the
// shared struct-field table; nested paths beyond one level, or fields of
// an unresolved type, default to Move (ast.ErrorType is never Copy),
// which is the conservative choice spec.md §9 favors when information is
// missing.
func (p *movePass) fieldTypeOf(owner *ast.Type, path []string) *ast.Type {
	if owner == nil || owner.Kind != ast.TNamed || len(path) == 0 {
		return ast.ErrorType
	}
	fields, ok := p.c.structFields[owner.Name]
	if !ok {
		return ast.ErrorType
	}
	t, ok := fields[path[0]]
	if !ok {
		return ast.ErrorType
	}
	return t
}

// inferType computes a best-effort type for an expression with no
// explicit `let` annotation, used only to decide Copy-vs-Move — it need
// not be as precise as internal/types.Checker.infer, since an incorrect
// guess only affects whether a later use is flagged, not codegen.
func (p *movePass) inferType(n *ast.Node) *ast.Type {
	if n == nil {
		return ast.ErrorType
	}
	switch n.Typ {
	case ast.LiteralExpr:
		lit, _ := n.Data.(ast.Lit)
		switch lit.Kind {
		case ast.LitInt:
			return ast.NewPrimitive(ast.I32)
		case ast.LitFloat:
			return ast.NewPrimitive(ast.F64)
		case ast.LitString:
			return ast.NewPrimitive(ast.Str)
		case ast.LitChar:
			return ast.NewPrimitive(ast.Char)
		case ast.LitBool:
			return ast.NewPrimitive(ast.Bool)
		}
	case ast.IdentExpr:
		name, _ := n.Data.(string)
		if b, ok := p.lookup(name); ok {
			return b.typ
		}
	case ast.ReferenceExpr:
		return ast.NewReference(n.Mutable, p.inferType(n.Child(0)))
	case ast.StructLitExpr:
		name, _ := n.Data.(string)
		if t, ok := p.c.defs[name]; ok {
			return t
		}
	case ast.TupleLitExpr:
		elems := make([]*ast.Type, len(n.Children))
		for i, e := range n.Children {
			elems[i] = p.inferType(e)
		}
		return ast.NewTuple(elems)
	case ast.ArrayLitExpr:
		if len(n.Children) == 0 {
			return ast.NewArray(ast.ErrorType, 0)
		}
		return ast.NewArray(p.inferType(n.Children[0]), len(n.Children))
	case ast.FieldAccessExpr:
		root, ok := rootIdent(n)
		if ok {
			if b, ok := p.lookup(root); ok {
				return p.fieldTypeOf(b.typ, fieldPath(n))
			}
		}
	}
	return ast.ErrorType
}
