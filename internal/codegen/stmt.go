package codegen

import (
	llvm "tinygo.org/x/go-llvm"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/lexer"
)

// genBlock lowers every statement in n in order, returning true if the
// block already ended in a terminator instruction (return/break/continue)
// so callers know not to fall through and add their own.
func (g *Generator) genBlock(fc *fnCtx, n *ast.Node) bool {
	if n == nil {
		return false
	}
	fc.push()
	fc.defers = append(fc.defers, nil)
	defer func() {
		fc.defers = fc.defers[:len(fc.defers)-1]
		fc.pop()
	}()

	for _, s := range n.Children {
		if g.genStmt(fc, s) {
			return true
		}
	}
	g.flushBlockDefers(fc)
	return false
}

// flushBlockDefers runs (and discards) the innermost block's deferred calls
// in LIFO order on a normal fallthrough exit. A return/break/continue
// flushes through flushDefers before emitting its own terminator instead.
func (g *Generator) flushBlockDefers(fc *fnCtx) {
	top := fc.defers[len(fc.defers)-1]
	for i := len(top) - 1; i >= 0; i-- {
		g.genExprStmt(fc, top[i])
	}
}

// flushDefers runs every deferred call across every enclosing block, in
// LIFO order, the way a `return` must unwind every still-open defer no
// matter how many blocks it is nested inside.
func (g *Generator) flushDefers(fc *fnCtx) {
	for b := len(fc.defers) - 1; b >= 0; b-- {
		for i := len(fc.defers[b]) - 1; i >= 0; i-- {
			g.genExprStmt(fc, fc.defers[b][i])
		}
	}
}

func (g *Generator) genExprStmt(fc *fnCtx, n *ast.Node) {
	g.genExpr(fc, n)
}

// genStmt lowers one statement, returning true if it terminated the current
// basic block (return, break, continue, or an if/match where every arm
// terminates).
func (g *Generator) genStmt(fc *fnCtx, n *ast.Node) bool {
	if n == nil {
		return false
	}
	switch n.Typ {
	case ast.LetStmt:
		g.genLet(fc, n)
	case ast.AssignStmt:
		g.genAssign(fc, n)
	case ast.ExprStmt:
		g.genExpr(fc, n.Child(0))
	case ast.IfStmt:
		return g.genIf(fc, n)
	case ast.WhileStmt:
		g.genWhile(fc, n)
	case ast.ForStmt:
		g.genFor(fc, n)
	case ast.LoopStmt:
		g.genLoop(fc, n)
	case ast.MatchStmt:
		return g.genMatch(fc, n)
	case ast.ReturnStmt:
		g.genReturn(fc, n)
		return true
	case ast.BreakStmt:
		g.flushDefers(fc)
		g.builder.CreateBr(fc.loopEnd[len(fc.loopEnd)-1])
		return true
	case ast.ContinueStmt:
		g.flushDefers(fc)
		g.builder.CreateBr(fc.loopTop[len(fc.loopTop)-1])
		return true
	case ast.DeferStmt:
		fc.defers[len(fc.defers)-1] = append(fc.defers[len(fc.defers)-1], n.Child(0))
	case ast.BlockStmt:
		return g.genBlock(fc, n)
	}
	return false
}

// genLet allocates one stack slot per name bound by n's pattern and stores
// the initializer (or each destructured component) into it, generalizing
// the teacher's single-identifier `let` to Vex's tuple/struct/enum
// patterns.
func (g *Generator) genLet(fc *fnCtx, n *ast.Node) {
	val := g.genExpr(fc, n.Child(2))
	g.bindPattern(fc, n.Child(0), val)
}

func (g *Generator) bindPattern(fc *fnCtx, pat *ast.Node, val llvm.Value) {
	if pat == nil {
		return
	}
	switch pat.Typ {
	case ast.BindingPattern:
		name, _ := pat.Data.(string)
		alloc := g.builder.CreateAlloca(val.Type(), name)
		g.builder.CreateStore(val, alloc)
		fc.declare(name, alloc, val.Type())
	case ast.WildcardPattern:
		// value computed for its side effects only; nothing to bind.
	case ast.TuplePattern:
		for i, sub := range pat.Children {
			elem := g.builder.CreateExtractValue(val, i, "")
			g.bindPattern(fc, sub, elem)
		}
	default:
		// Struct/enum destructuring patterns in a `let` bind through the same
		// field-index machinery match arms use; see bindStructLike in match.go.
		g.bindStructLike(fc, pat, val)
	}
}

// genAssign lowers an assignment to a place expression, handling both plain
// `=` and compound operators (`+=` etc.) by reading the place's current
// value first, the same split movePass.assign makes for move tracking.
func (g *Generator) genAssign(fc *fnCtx, n *ast.Node) {
	lhs, rhs := n.Child(0), n.Child(1)
	kind, _ := n.Data.(lexer.Kind)

	ptr := g.genPlaceAddr(fc, lhs)
	rv := g.genExpr(fc, rhs)

	if kind == lexer.Eq {
		g.builder.CreateStore(rv, ptr)
		return
	}
	cur := g.builder.CreateLoad(ptr, "")
	combined := g.genCompoundOp(kind, cur, rv)
	g.builder.CreateStore(combined, ptr)
}

func (g *Generator) genCompoundOp(kind lexer.Kind, a, b llvm.Value) llvm.Value {
	isFloat := a.Type().TypeKind() == llvm.FloatTypeKind || a.Type().TypeKind() == llvm.DoubleTypeKind
	switch kind {
	case lexer.PlusEq:
		if isFloat {
			return g.builder.CreateFAdd(a, b, "")
		}
		return g.builder.CreateAdd(a, b, "")
	case lexer.MinusEq:
		if isFloat {
			return g.builder.CreateFSub(a, b, "")
		}
		return g.builder.CreateSub(a, b, "")
	case lexer.StarEq:
		if isFloat {
			return g.builder.CreateFMul(a, b, "")
		}
		return g.builder.CreateMul(a, b, "")
	case lexer.SlashEq:
		if isFloat {
			return g.builder.CreateFDiv(a, b, "")
		}
		return g.builder.CreateSDiv(a, b, "")
	default:
		return b
	}
}

// genIf lowers a two-arm conditional. Returns true only when both arms are
// present and both terminate, matching the same definite-return logic
// internal/types' exhaustiveness pass already proved at check time.
func (g *Generator) genIf(fc *fnCtx, n *ast.Node) bool {
	cond := g.genExpr(fc, n.Child(0))
	thenBB := llvm.AddBasicBlock(fc.fn, "")
	elseBB := llvm.AddBasicBlock(fc.fn, "")
	mergeBB := llvm.AddBasicBlock(fc.fn, "")

	hasElse := n.Child(2) != nil
	elseTarget := elseBB
	if !hasElse {
		elseTarget = mergeBB
	}
	g.builder.CreateCondBr(cond, thenBB, elseTarget)

	g.builder.SetInsertPointAtEnd(thenBB)
	thenTerm := g.genStmt(fc, n.Child(1))
	if !thenTerm {
		g.builder.CreateBr(mergeBB)
	}

	elseTerm := !hasElse
	if hasElse {
		g.builder.SetInsertPointAtEnd(elseBB)
		elseTerm = g.genStmt(fc, n.Child(2))
		if !elseTerm {
			g.builder.CreateBr(mergeBB)
		}
	}

	g.builder.SetInsertPointAtEnd(mergeBB)
	return thenTerm && elseTerm && hasElse
}

func (g *Generator) genWhile(fc *fnCtx, n *ast.Node) {
	condBB := llvm.AddBasicBlock(fc.fn, "")
	bodyBB := llvm.AddBasicBlock(fc.fn, "")
	endBB := llvm.AddBasicBlock(fc.fn, "")

	g.builder.CreateBr(condBB)
	g.builder.SetInsertPointAtEnd(condBB)
	cond := g.genExpr(fc, n.Child(0))
	g.builder.CreateCondBr(cond, bodyBB, endBB)

	fc.loopTop = append(fc.loopTop, condBB)
	fc.loopEnd = append(fc.loopEnd, endBB)
	g.builder.SetInsertPointAtEnd(bodyBB)
	if !g.genBlock(fc, n.Child(1)) {
		g.builder.CreateBr(condBB)
	}
	fc.loopTop = fc.loopTop[:len(fc.loopTop)-1]
	fc.loopEnd = fc.loopEnd[:len(fc.loopEnd)-1]

	g.builder.SetInsertPointAtEnd(endBB)
}

func (g *Generator) genLoop(fc *fnCtx, n *ast.Node) {
	bodyBB := llvm.AddBasicBlock(fc.fn, "")
	endBB := llvm.AddBasicBlock(fc.fn, "")

	g.builder.CreateBr(bodyBB)
	fc.loopTop = append(fc.loopTop, bodyBB)
	fc.loopEnd = append(fc.loopEnd, endBB)
	g.builder.SetInsertPointAtEnd(bodyBB)
	if !g.genBlock(fc, n.Child(0)) {
		g.builder.CreateBr(bodyBB)
	}
	fc.loopTop = fc.loopTop[:len(fc.loopTop)-1]
	fc.loopEnd = fc.loopEnd[:len(fc.loopEnd)-1]

	g.builder.SetInsertPointAtEnd(endBB)
}

// genFor lowers `for pat in iter { body }` over a slice or array by
// indexing 0..len, a simplification this core makes instead of surfacing
// an Iterator trait to codegen: the type checker has already proven iter
// is indexable, so codegen never needs to dispatch on an iterator
// protocol.
func (g *Generator) genFor(fc *fnCtx, n *ast.Node) {
	iterVal := g.genExpr(fc, n.Child(1))
	length := g.sliceOrArrayLen(iterVal, n.Child(1))

	idxAlloc := g.builder.CreateAlloca(g.intWidth, "")
	g.builder.CreateStore(llvm.ConstInt(g.intWidth, 0, false), idxAlloc)

	condBB := llvm.AddBasicBlock(fc.fn, "")
	bodyBB := llvm.AddBasicBlock(fc.fn, "")
	stepBB := llvm.AddBasicBlock(fc.fn, "")
	endBB := llvm.AddBasicBlock(fc.fn, "")

	g.builder.CreateBr(condBB)
	g.builder.SetInsertPointAtEnd(condBB)
	idx := g.builder.CreateLoad(idxAlloc, "")
	cond := g.builder.CreateICmp(llvm.IntSLT, idx, length, "")
	g.builder.CreateCondBr(cond, bodyBB, endBB)

	fc.loopTop = append(fc.loopTop, stepBB)
	fc.loopEnd = append(fc.loopEnd, endBB)
	g.builder.SetInsertPointAtEnd(bodyBB)
	elem := g.indexInto(iterVal, idx)
	fc.push()
	g.bindPattern(fc, n.Child(0), elem)
	terminated := false
	for _, s := range n.Child(2).Children {
		if g.genStmt(fc, s) {
			terminated = true
			break
		}
	}
	fc.pop()
	if !terminated {
		g.builder.CreateBr(stepBB)
	}
	fc.loopTop = fc.loopTop[:len(fc.loopTop)-1]
	fc.loopEnd = fc.loopEnd[:len(fc.loopEnd)-1]

	g.builder.SetInsertPointAtEnd(stepBB)
	next := g.builder.CreateAdd(g.builder.CreateLoad(idxAlloc, ""), llvm.ConstInt(g.intWidth, 1, false), "")
	g.builder.CreateStore(next, idxAlloc)
	g.builder.CreateBr(condBB)

	g.builder.SetInsertPointAtEnd(endBB)
}

func (g *Generator) genReturn(fc *fnCtx, n *ast.Node) {
	var val llvm.Value
	hasVal := n.Child(0) != nil
	if hasVal {
		val = g.genExpr(fc, n.Child(0))
	}
	g.flushDefers(fc)
	if hasVal {
		g.builder.CreateRet(val)
	} else {
		g.builder.CreateRetVoid()
	}
}
