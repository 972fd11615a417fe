// Checker implements the type-checking pass proper: four sub-passes over
// a Program node (register type declarations, register traits/impls,
// register function signatures, check function bodies), following the
// same "declare everything first, then check bodies" shape AILANG's
// typechecker.go uses for its top-level Decl list, simplified from full
// Hindley-Milner inference (spec.md's generics are resolved later, by
// monomorphisation, so the checker compares concrete ast.Type values
// rather than threading a Substitution).
package types

import (
	"fmt"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/diag"
	"github.com/vex-lang/vex/internal/match"
	"github.com/vex-lang/vex/internal/source"
)

// Open Question (spec.md §9): untyped integer literals default to i32 and
// untyped float literals default to f64 when no other constraint pins
// them, matching the teacher's own literal lowering default
// (ir/llvm/transform.go treats bare integer constants as i32) rather than
// inventing a bigger-is-safer default.
var (
	defaultIntType   = ast.NewPrimitive(ast.I32)
	defaultFloatType = ast.NewPrimitive(ast.F64)
)

type Checker struct {
	bus          *diag.Bus
	defs         map[string]*ast.Type            // struct/enum name -> named type skeleton
	structFields map[string]map[string]*ast.Type // struct name -> field name -> type
	reg          *Registry
	fns          map[string]*funcSig
}

type funcSig struct {
	params []*ast.Type
	ret    *ast.Type
}

func NewChecker(bus *diag.Bus) *Checker {
	return &Checker{
		bus:          bus,
		defs:         make(map[string]*ast.Type),
		structFields: make(map[string]map[string]*ast.Type),
		reg:          NewRegistry(),
		fns:          make(map[string]*funcSig),
	}
}

// Check runs all four sub-passes over prog (an ast.Program node).
func (c *Checker) Check(prog *ast.Node) {
	c.registerTypes(prog)
	c.registerTraitsAndImpls(prog)
	c.registerFunctionSigs(prog)
	c.checkBodies(prog)
}

func (c *Checker) registerTypes(prog *ast.Node) {
	for _, item := range flattenExports(prog.Children) {
		switch item.Typ {
		case ast.StructDecl, ast.EnumDecl:
			name, _ := item.Data.(string)
			c.defs[name] = ast.NewNamed(item.DefID, name, nil)
		}
	}
	for _, item := range flattenExports(prog.Children) {
		if item.Typ != ast.StructDecl {
			continue
		}
		name, _ := item.Data.(string)
		fields := make(map[string]*ast.Type)
		for _, f := range item.Children[1:] { // [0] is the generics list
			fname, _ := f.Data.(string)
			fields[fname] = FromNode(f.Child(0), c.defs)
		}
		c.structFields[name] = fields
	}
}

func (c *Checker) registerTraitsAndImpls(prog *ast.Node) {
	for _, item := range flattenExports(prog.Children) {
		switch item.Typ {
		case ast.TraitDecl:
			c.reg.AddTrait(item, c.defs)
		case ast.ImplDecl:
			c.reg.AddImpl(item, c.defs)
		}
	}
}

func (c *Checker) registerFunctionSigs(prog *ast.Node) {
	for _, item := range flattenExports(prog.Children) {
		if item.Typ != ast.FunctionDecl {
			continue
		}
		c.fns[funcName(item)] = c.sigOf(item)
	}
}

func (c *Checker) sigOf(fn *ast.Node) *funcSig {
	paramList := fn.Child(0)
	params := make([]*ast.Type, len(paramList.Children))
	for i, p := range paramList.Children {
		params[i] = FromNode(p.Child(0), c.defs)
	}
	return &funcSig{params: params, ret: FromNode(fn.Child(1), c.defs)}
}

func funcName(fn *ast.Node) string {
	name, _ := fn.Data.(string)
	return name
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

// Defs exposes the struct/enum name -> named type skeleton table this
// checker built, so internal/borrow can resolve the same type annotations
// without re-registering every declaration.
func (c *Checker) Defs() map[string]*ast.Type { return c.defs }

// StructFields exposes the struct name -> field name -> type table this
// checker built, so internal/borrow's partial-move tracking agrees with
// the types the checker already resolved.
func (c *Checker) StructFields() map[string]map[string]*ast.Type { return c.structFields }

func (c *Checker) checkBodies(prog *ast.Node) {
	for _, item := range flattenExports(prog.Children) {
		if item.Typ != ast.FunctionDecl {
			continue
		}
		body := item.Child(2)
		if body == nil { // trait signature, no body
			continue
		}
		sig := c.fns[funcName(item)]
		env := NewEnv(nil)
		for i, p := range item.Child(0).Children {
			name, _ := p.Data.(string)
			env.Bind(name, sig.params[i])
		}
		c.checkBlock(env, body, sig.ret)
	}
}

func (c *Checker) checkBlock(env *Env, block *ast.Node, retType *ast.Type) *ast.Type {
	inner := env.Child()
	var last *ast.Type = ast.NewPrimitive(ast.Void)
	for _, s := range block.Children {
		last = c.checkStmt(inner, s, retType)
	}
	return last
}

func (c *Checker) checkStmt(env *Env, n *ast.Node, retType *ast.Type) *ast.Type {
	switch n.Typ {
	case ast.LetStmt:
		val := c.infer(env, n.Child(2))
		declared := val
		if t := n.Child(1); t != nil {
			declared = FromNode(t, c.defs)
			c.expect(declared, val, n.Span, "let binding initializer")
		}
		c.bindPattern(env, n.Child(0), declared)
		return ast.NewPrimitive(ast.Void)
	case ast.AssignStmt:
		lhs := c.infer(env, n.Child(0))
		rhs := c.infer(env, n.Child(1))
		c.expect(lhs, rhs, n.Span, "assignment")
		return ast.NewPrimitive(ast.Void)
	case ast.IfStmt:
		c.infer(env, n.Child(0))
		c.checkStmt(env.Child(), n.Child(1), retType)
		if els := n.Child(2); els != nil {
			c.checkStmt(env.Child(), els, retType)
		}
		return ast.NewPrimitive(ast.Void)
	case ast.WhileStmt:
		c.infer(env, n.Child(0))
		c.checkStmt(env.Child(), n.Child(1), retType)
		return ast.NewPrimitive(ast.Void)
	case ast.ForStmt:
		iterEnv := env.Child()
		c.infer(iterEnv, n.Child(1))
		c.bindPattern(iterEnv, n.Child(0), ast.ErrorType)
		c.checkStmt(iterEnv, n.Child(2), retType)
		return ast.NewPrimitive(ast.Void)
	case ast.LoopStmt:
		c.checkStmt(env.Child(), n.Child(0), retType)
		return ast.NewPrimitive(ast.Void)
	case ast.ReturnStmt:
		if v := n.Child(0); v != nil {
			t := c.infer(env, v)
			c.expect(retType, t, n.Span, "return value")
		} else {
			c.expect(retType, ast.NewPrimitive(ast.Void), n.Span, "return value")
		}
		return ast.NewPrimitive(ast.Void)
	case ast.BreakStmt, ast.ContinueStmt:
		return ast.NewPrimitive(ast.Void)
	case ast.DeferStmt:
		c.infer(env, n.Child(0))
		return ast.NewPrimitive(ast.Void)
	case ast.ExprStmt:
		return c.infer(env, n.Child(0))
	case ast.BlockStmt:
		return c.checkBlock(env, n, retType)
	case ast.MatchStmt:
		return c.checkMatch(env, n, retType)
	default:
		return c.infer(env, n)
	}
}

func (c *Checker) bindPattern(env *Env, pat *ast.Node, t *ast.Type) {
	switch pat.Typ {
	case ast.BindingPattern:
		name, _ := pat.Data.(string)
		env.Bind(name, t)
	case ast.TuplePattern:
		for i, sub := range pat.Children {
			elemT := ast.ErrorType
			if t != nil && t.Kind == ast.TTuple && i < len(t.Tuple) {
				elemT = t.Tuple[i]
			}
			c.bindPattern(env, sub, elemT)
		}
	case ast.StructPattern, ast.EnumVariantPattern:
		for _, sub := range pat.Children {
			if sub.Typ == ast.FieldList {
				c.bindPattern(env, sub.Child(0), ast.ErrorType)
			} else {
				c.bindPattern(env, sub, ast.ErrorType)
			}
		}
	case ast.WildcardPattern, ast.LiteralPattern, ast.RangePattern, ast.OrPattern:
		// no bindings introduced
	}
}

func (c *Checker) checkMatch(env *Env, n *ast.Node, retType *ast.Type) *ast.Type {
	subject := c.infer(env, n.Child(0))
	arms := n.Child(1)
	var result *ast.Type = ast.NewPrimitive(ast.Void)
	for i, arm := range arms.Children {
		armEnv := env.Child()
		c.bindPattern(armEnv, arm.Child(0), subject)
		if g := arm.Child(1); g != nil {
			c.infer(armEnv, g)
		}
		t := c.infer(armEnv, arm.Child(2))
		if i == 0 {
			result = t
		}
	}
	tree := match.NewCompiler(arms.Children).Compile()
	if !match.Exhaustive(tree) {
		c.bus.Report(diag.New(diag.ENonExhaustiveMatch, diag.SeverityError, diag.PhaseTypes, n.Span,
			"match is not exhaustive: add a wildcard arm or cover the remaining cases"))
	}
	return result
}

// infer computes n's type, reporting E3001/E3002/E3003/E3004 as needed. It
// never returns <nil>: unresolvable expressions type as ast.ErrorType so
// callers can keep walking without nil-checking every result.
func (c *Checker) infer(env *Env, n *ast.Node) *ast.Type {
	if n == nil {
		return ast.ErrorType
	}
	switch n.Typ {
	case ast.LiteralExpr:
		lit, _ := n.Data.(ast.Lit)
		switch lit.Kind {
		case ast.LitInt:
			return defaultIntType
		case ast.LitFloat:
			return defaultFloatType
		case ast.LitString:
			return ast.NewPrimitive(ast.Str)
		case ast.LitChar:
			return ast.NewPrimitive(ast.Char)
		case ast.LitBool:
			return ast.NewPrimitive(ast.Bool)
		default:
			return ast.ErrorType
		}
	case ast.IdentExpr:
		name, _ := n.Data.(string)
		if t, ok := env.Lookup(name); ok {
			return t
		}
		if sig, ok := c.fns[name]; ok {
			return ast.NewFunction(sig.params, sig.ret)
		}
		c.bus.Report(diag.New(diag.ETypeUnresolvedName, diag.SeverityError, diag.PhaseTypes, n.Span,
			fmt.Sprintf("unresolved name %q", name)))
		return ast.ErrorType
	case ast.BinaryExpr:
		lt := c.infer(env, n.Child(0))
		rt := c.infer(env, n.Child(1))
		c.expect(lt, rt, n.Span, "binary operand")
		if lt.Kind == ast.TPrimitive && (lt.Prim == ast.Bool) {
			return ast.NewPrimitive(ast.Bool)
		}
		return lt
	case ast.UnaryExpr:
		return c.infer(env, n.Child(0))
	case ast.CallExpr:
		calleeT := c.infer(env, n.Child(0))
		args := n.Child(1).Children
		if calleeT.Kind == ast.TFunction {
			if len(calleeT.Params) != len(args) {
				c.bus.Report(diag.New(diag.ETypeArity, diag.SeverityError, diag.PhaseTypes, n.Span,
					fmt.Sprintf("expected %d argument(s), got %d", len(calleeT.Params), len(args))))
			}
			for i, a := range args {
				at := c.infer(env, a)
				if i < len(calleeT.Params) {
					c.expect(calleeT.Params[i], at, a.Span, "call argument")
				}
			}
			return calleeT.Ret
		}
		for _, a := range args {
			c.infer(env, a)
		}
		return ast.ErrorType
	case ast.MethodCallExpr:
		recv := c.infer(env, n.Child(0))
		method, _ := n.Data.(string)
		for _, a := range n.Child(1).Children {
			c.infer(env, a)
		}
		if fn, ok := c.reg.Resolve(recv, method, c.bus, n); ok {
			return c.sigOf(fn).ret
		}
		return ast.ErrorType
	case ast.FieldAccessExpr:
		recv := c.infer(env, n.Child(0))
		field, _ := n.Data.(string)
		ft, ok := c.fieldType(recv, field)
		if !ok {
			c.bus.Report(diag.New(diag.ETypeNoSuchField, diag.SeverityError, diag.PhaseTypes, n.Span,
				fmt.Sprintf("%s has no field %q", recv, field)))
			return ast.ErrorType
		}
		return ft
	case ast.IndexExpr:
		base := c.infer(env, n.Child(0))
		idx := c.infer(env, n.Child(1))
		_ = idx
		if base.Kind == ast.TArray && base.ArrayLen >= 0 {
			if lit, ok := n.Child(1).Data.(ast.Lit); ok && n.Child(1).Typ == ast.LiteralExpr && lit.Kind == ast.LitInt {
				if lit.IVal < 0 || int(lit.IVal) >= base.ArrayLen {
					c.bus.Report(diag.New(diag.EConstIndexOOB, diag.SeverityError, diag.PhaseTypes, n.Span,
						fmt.Sprintf("index %d out of bounds for array of length %d", lit.IVal, base.ArrayLen)))
				}
			}
		}
		if base.Kind == ast.TArray || base.Kind == ast.TSlice {
			return base.Elem
		}
		return ast.ErrorType
	case ast.StructLitExpr:
		name, _ := n.Data.(string)
		t, ok := c.defs[name]
		if !ok {
			c.bus.Report(diag.New(diag.ETypeUnresolvedName, diag.SeverityError, diag.PhaseTypes, n.Span,
				fmt.Sprintf("unresolved type %q", name)))
			return ast.ErrorType
		}
		for _, f := range n.Children {
			c.infer(env, f.Child(0))
		}
		return t
	case ast.TupleLitExpr:
		elems := make([]*ast.Type, len(n.Children))
		for i, e := range n.Children {
			elems[i] = c.infer(env, e)
		}
		return ast.NewTuple(elems)
	case ast.ArrayLitExpr:
		var elem *ast.Type = ast.ErrorType
		for i, e := range n.Children {
			t := c.infer(env, e)
			if i == 0 {
				elem = t
			}
		}
		return ast.NewArray(elem, len(n.Children))
	case ast.ClosureExpr:
		params := n.Child(0)
		ptypes := make([]*ast.Type, len(params.Children))
		inner := env.Child()
		for i, p := range params.Children {
			pt := ast.ErrorType
			if t := p.Child(0); t != nil {
				pt = FromNode(t, c.defs)
			}
			ptypes[i] = pt
			name, _ := p.Data.(string)
			inner.Bind(name, pt)
		}
		ret := c.checkBlock(inner, n.Child(2), retOrInfer(n.Child(1), c.defs))
		return ast.NewFunction(ptypes, ret)
	case ast.CastExpr:
		c.infer(env, n.Child(0))
		return FromNode(n.Child(1), c.defs)
	case ast.ReferenceExpr:
		inner := c.infer(env, n.Child(0))
		return ast.NewReference(n.Mutable, inner)
	case ast.DerefExpr:
		inner := c.infer(env, n.Child(0))
		if inner.Kind == ast.TReference || inner.Kind == ast.TPointer {
			return inner.Elem
		}
		return ast.ErrorType
	case ast.RangeExpr:
		c.infer(env, n.Child(0))
		c.infer(env, n.Child(1))
		return ast.NewSlice(defaultIntType)
	case ast.AwaitExpr, ast.GoroutineExpr:
		return c.infer(env, n.Child(0))
	case ast.IfStmt:
		return c.checkStmt(env, n, ast.NewPrimitive(ast.Void))
	case ast.MatchStmt:
		return c.checkMatch(env, n, ast.NewPrimitive(ast.Void))
	case ast.BlockStmt:
		return c.checkBlock(env, n, ast.NewPrimitive(ast.Void))
	default:
		return ast.ErrorType
	}
}

func retOrInfer(retNode *ast.Node, defs map[string]*ast.Type) *ast.Type {
	if retNode == nil {
		return ast.NewPrimitive(ast.Void)
	}
	return FromNode(retNode, defs)
}

func (c *Checker) fieldType(recv *ast.Type, field string) (*ast.Type, bool) {
	t := recv
	for t != nil && (t.Kind == ast.TReference || t.Kind == ast.TPointer) {
		t = t.Elem
	}
	if t == nil || t.Kind != ast.TNamed {
		return nil, false
	}
	def, ok := c.defs[t.Name]
	_ = def
	if !ok {
		return nil, false
	}
	fieldType, ok := c.structFields[t.Name][field]
	return fieldType, ok
}

// expect reports E3001 when want and got are non-poison and structurally
// unequal; either side being ast.ErrorType suppresses the diagnostic so one
// earlier error does not cascade into a wall of follow-on mismatches.
func (c *Checker) expect(want, got *ast.Type, sp source.Span, ctx string) {
	if want == nil || got == nil || want.Kind == ast.TError || got.Kind == ast.TError {
		return
	}
	if !want.Equal(got) {
		c.bus.Report(diag.New(diag.ETypeMismatch, diag.SeverityError, diag.PhaseTypes, sp,
			fmt.Sprintf("%s: expected %s, got %s", ctx, want, got)))
	}
}
