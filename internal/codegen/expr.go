package codegen

import (
	"fmt"

	llvm "tinygo.org/x/go-llvm"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/lexer"
)

// genExpr lowers an expression node to its LLVM value, generalizing the
// teacher's genExpression/genRelation pair (src/ir/llvm/transform.go) from
// VSL's two arithmetic+comparison operator sets to Vex's full expression
// grammar: calls, method calls, field/index access, casts, references,
// struct/tuple/array literals, closures and await/go.
func (g *Generator) genExpr(fc *fnCtx, n *ast.Node) llvm.Value {
	if n == nil {
		return llvm.Value{}
	}
	switch n.Typ {
	case ast.LiteralExpr:
		return g.genLiteral(n)
	case ast.IdentExpr:
		return g.genIdentLoad(fc, n)
	case ast.BinaryExpr:
		return g.genBinary(fc, n)
	case ast.UnaryExpr:
		return g.genUnary(fc, n)
	case ast.CallExpr:
		return g.genCall(fc, n)
	case ast.MethodCallExpr:
		return g.genMethodCall(fc, n)
	case ast.FieldAccessExpr:
		ptr := g.genPlaceAddr(fc, n)
		return g.builder.CreateLoad(ptr, "")
	case ast.IndexExpr:
		base := g.genExpr(fc, n.Child(0))
		idx := g.genExpr(fc, n.Child(1))
		length := g.sliceOrArrayLen(base, n.Child(0))
		g.panicBounds(idx, length, fc.fn)
		return g.builder.CreateLoad(g.indexAddr(base, idx), "")
	case ast.ReferenceExpr:
		return g.genPlaceAddr(fc, n.Child(0))
	case ast.DerefExpr:
		ptr := g.genExpr(fc, n.Child(0))
		g.panicNullPtr(ptr, fc.fn)
		return g.builder.CreateLoad(ptr, "")
	case ast.CastExpr:
		return g.genCast(fc, n)
	case ast.StructLitExpr:
		return g.genStructLit(fc, n)
	case ast.TupleLitExpr:
		return g.genTupleLit(fc, n)
	case ast.ArrayLitExpr:
		return g.genArrayLit(fc, n)
	case ast.ClosureExpr:
		return g.genClosure(fc, n)
	case ast.AwaitExpr:
		inner := g.genExpr(fc, n.Child(0))
		return g.builder.CreateCall(g.fns["vex_await"], []llvm.Value{inner}, "")
	case ast.GoroutineExpr:
		return g.genGoroutine(fc, n)
	case ast.BlockStmt:
		return g.genBlockExpr(fc, n)
	case ast.IfStmt:
		return g.genIfExpr(fc, n)
	case ast.MatchStmt:
		return g.genMatchExpr(fc, n)
	default:
		return llvm.Value{}
	}
}

func (g *Generator) genLiteral(n *ast.Node) llvm.Value {
	lit, _ := n.Data.(ast.Lit)
	switch lit.Kind {
	case ast.LitInt:
		return llvm.ConstInt(g.intWidth, uint64(lit.IVal), true)
	case ast.LitFloat:
		return llvm.ConstFloat(g.ctx.DoubleType(), lit.FVal)
	case ast.LitBool:
		return llvm.ConstInt(g.ctx.Int1Type(), uint64(lit.IVal), false)
	case ast.LitChar:
		return llvm.ConstInt(g.ctx.Int32Type(), uint64(lit.IVal), false)
	case ast.LitString:
		ptr := g.builder.CreateGlobalStringPtr(lit.Text, "")
		strT := g.lowerPrimitive(ast.Str)
		strVal := llvm.ConstNull(strT)
		strVal = g.builder.CreateInsertValue(strVal, ptr, 0, "")
		strVal = g.builder.CreateInsertValue(strVal, llvm.ConstInt(g.intWidth, uint64(len(lit.Text)), false), 1, "")
		return strVal
	default:
		return llvm.ConstNull(g.intWidth)
	}
}

func (g *Generator) genIdentLoad(fc *fnCtx, n *ast.Node) llvm.Value {
	name, _ := n.Data.(string)
	if alloc, _, ok := fc.lookup(name); ok {
		return g.builder.CreateLoad(alloc, "")
	}
	if gv, ok := g.globals.get(name); ok {
		return g.builder.CreateLoad(gv, "")
	}
	if fn, ok := g.fns[name]; ok {
		return fn
	}
	return llvm.Value{}
}

// genPlaceAddr returns the address of a place expression (identifier,
// field, index, or deref) without loading it, the shared helper genAssign,
// `&place`, and the FieldAccessExpr load path all build on.
func (g *Generator) genPlaceAddr(fc *fnCtx, n *ast.Node) llvm.Value {
	switch n.Typ {
	case ast.IdentExpr:
		name, _ := n.Data.(string)
		if alloc, _, ok := fc.lookup(name); ok {
			return alloc
		}
		if gv, ok := g.globals.get(name); ok {
			return gv
		}
		return llvm.Value{}
	case ast.FieldAccessExpr:
		base := g.genPlaceAddr(fc, n.Child(0))
		field, _ := n.Data.(string)
		idx := g.fieldIndex(n.Child(0), field)
		return g.builder.CreateGEP(base, []llvm.Value{
			llvm.ConstInt(g.ctx.Int32Type(), 0, false),
			llvm.ConstInt(g.ctx.Int32Type(), uint64(idx), false),
		}, "")
	case ast.IndexExpr:
		basePtr := g.genPlaceAddr(fc, n.Child(0))
		base := g.builder.CreateLoad(basePtr, "")
		idx := g.genExpr(fc, n.Child(1))
		length := g.sliceOrArrayLen(base, n.Child(0))
		g.panicBounds(idx, length, fc.fn)
		return g.indexAddr(base, idx)
	case ast.DerefExpr:
		ptr := g.genExpr(fc, n.Child(0))
		g.panicNullPtr(ptr, fc.fn)
		return ptr
	default:
		// Not a place: materialize the value into a fresh stack slot so &expr
		// on a temporary still has an address to hand out.
		v := g.genExpr(fc, n)
		alloc := g.builder.CreateAlloca(v.Type(), "")
		g.builder.CreateStore(v, alloc)
		return alloc
	}
}

// fieldIndex resolves field's position within base's struct layout. base is
// the struct-typed sub-expression the field is accessed on; its registered
// name comes from the lowered struct layout tables, not from re-deriving a
// type via the checker.
func (g *Generator) fieldIndex(base *ast.Node, field string) int {
	name := g.structNameOf(base)
	if layout, ok := g.structs[name]; ok {
		for i, f := range layout.fields {
			if f == field {
				return i
			}
		}
	}
	return 0
}

// structNameOf best-effort resolves the declared struct-type name of a
// sub-expression, using the same defs table internal/types built, so field
// GEP indices agree with registerStructBody's layout order.
func (g *Generator) structNameOf(n *ast.Node) string {
	if n == nil {
		return ""
	}
	if n.Typ == ast.StructLitExpr {
		name, _ := n.Data.(string)
		return name
	}
	return g.exprTypeName
}

func (g *Generator) genBinary(fc *fnCtx, n *ast.Node) llvm.Value {
	kind, _ := n.Data.(lexer.Kind)
	a := g.genExpr(fc, n.Child(0))
	b := g.genExpr(fc, n.Child(1))
	isFloat := a.Type().TypeKind() == llvm.DoubleTypeKind || a.Type().TypeKind() == llvm.FloatTypeKind

	switch kind {
	case lexer.Plus:
		if isFloat {
			return g.builder.CreateFAdd(a, b, "")
		}
		return g.builder.CreateAdd(a, b, "")
	case lexer.Minus:
		if isFloat {
			return g.builder.CreateFSub(a, b, "")
		}
		return g.builder.CreateSub(a, b, "")
	case lexer.Star:
		if isFloat {
			return g.builder.CreateFMul(a, b, "")
		}
		return g.builder.CreateMul(a, b, "")
	case lexer.Slash:
		if isFloat {
			return g.builder.CreateFDiv(a, b, "")
		}
		return g.builder.CreateSDiv(a, b, "")
	case lexer.Percent:
		return g.builder.CreateSRem(a, b, "")
	case lexer.Amp:
		return g.builder.CreateAnd(a, b, "")
	case lexer.Pipe:
		return g.builder.CreateOr(a, b, "")
	case lexer.AmpAmp:
		return g.builder.CreateAnd(a, b, "")
	case lexer.PipePipe:
		return g.builder.CreateOr(a, b, "")
	case lexer.EqEq:
		if isFloat {
			return g.builder.CreateFCmp(llvm.FloatOEQ, a, b, "")
		}
		return g.builder.CreateICmp(llvm.IntEQ, a, b, "")
	case lexer.NotEq:
		if isFloat {
			return g.builder.CreateFCmp(llvm.FloatONE, a, b, "")
		}
		return g.builder.CreateICmp(llvm.IntNE, a, b, "")
	case lexer.Lt:
		if isFloat {
			return g.builder.CreateFCmp(llvm.FloatOLT, a, b, "")
		}
		return g.builder.CreateICmp(llvm.IntSLT, a, b, "")
	case lexer.Gt:
		if isFloat {
			return g.builder.CreateFCmp(llvm.FloatOGT, a, b, "")
		}
		return g.builder.CreateICmp(llvm.IntSGT, a, b, "")
	case lexer.LtEq:
		if isFloat {
			return g.builder.CreateFCmp(llvm.FloatOLE, a, b, "")
		}
		return g.builder.CreateICmp(llvm.IntSLE, a, b, "")
	case lexer.GtEq:
		if isFloat {
			return g.builder.CreateFCmp(llvm.FloatOGE, a, b, "")
		}
		return g.builder.CreateICmp(llvm.IntSGE, a, b, "")
	default:
		return a
	}
}

func (g *Generator) genUnary(fc *fnCtx, n *ast.Node) llvm.Value {
	kind, _ := n.Data.(lexer.Kind)
	v := g.genExpr(fc, n.Child(0))
	switch kind {
	case lexer.Minus:
		if v.Type().TypeKind() == llvm.DoubleTypeKind || v.Type().TypeKind() == llvm.FloatTypeKind {
			return g.builder.CreateFNeg(v, "")
		}
		return g.builder.CreateNeg(v, "")
	case lexer.Bang:
		return g.builder.CreateXor(v, llvm.ConstInt(v.Type(), 1, false), "")
	default:
		return v
	}
}

// genCall lowers a direct function call (not a method call), resolving the
// callee by name and, if none is found, treating it as a closure value
// call through its function-pointer field.
func (g *Generator) genCall(fc *fnCtx, n *ast.Node) llvm.Value {
	callee := n.Child(0)
	args := g.genArgs(fc, n.Child(1))

	if callee.Typ == ast.IdentExpr {
		name, _ := callee.Data.(string)
		if fn, ok := g.fns[name]; ok {
			return g.builder.CreateCall(fn, args, "")
		}
		if alloc, _, ok := fc.lookup(name); ok {
			closureVal := g.builder.CreateLoad(alloc, "")
			return g.callClosure(closureVal, args)
		}
	}
	// Fallback: callee evaluates to a closure value directly (e.g. a field
	// holding a function, or an immediately-invoked closure expression).
	closureVal := g.genExpr(fc, callee)
	return g.callClosure(closureVal, args)
}

func (g *Generator) callClosure(closureVal llvm.Value, args []llvm.Value) llvm.Value {
	envPtr := g.builder.CreateExtractValue(closureVal, 0, "")
	fnPtr := g.builder.CreateExtractValue(closureVal, 1, "")
	fullArgs := append([]llvm.Value{envPtr}, args...)
	return g.builder.CreateCall(fnPtr, fullArgs, "")
}

func (g *Generator) genArgs(fc *fnCtx, argList *ast.Node) []llvm.Value {
	if argList == nil {
		return nil
	}
	args := make([]llvm.Value, 0, len(argList.Children))
	for _, a := range argList.Children {
		args = append(args, g.genExpr(fc, a))
	}
	return args
}

// genMethodCall resolves `recv.method(args)` to the mangled
// `<StructName>$method` function, passing a pointer to the receiver as an
// implicit first argument the way genFuncHeader declared it.
func (g *Generator) genMethodCall(fc *fnCtx, n *ast.Node) llvm.Value {
	recvNode := n.Child(0)
	method, _ := n.Data.(string)
	recvPtr := g.genPlaceAddr(fc, recvNode)
	typeName := g.structNameOf(recvNode)
	fn, ok := g.fns[typeName+"$"+method]
	if !ok {
		return llvm.Value{}
	}
	args := append([]llvm.Value{recvPtr}, g.genArgs(fc, n.Child(1))...)
	return g.builder.CreateCall(fn, args, "")
}

func (g *Generator) genCast(fc *fnCtx, n *ast.Node) llvm.Value {
	v := g.genExpr(fc, n.Child(0))
	target := g.lowerTypeNode(n.Child(1), g.defs)
	srcIsFloat := v.Type().TypeKind() == llvm.DoubleTypeKind || v.Type().TypeKind() == llvm.FloatTypeKind
	dstIsFloat := target.TypeKind() == llvm.DoubleTypeKind || target.TypeKind() == llvm.FloatTypeKind

	switch {
	case srcIsFloat && dstIsFloat:
		return g.builder.CreateFPCast(v, target, "")
	case srcIsFloat && !dstIsFloat:
		return g.builder.CreateFPToSI(v, target, "")
	case !srcIsFloat && dstIsFloat:
		return g.builder.CreateSIToFP(v, target, "")
	default:
		if v.Type().IntTypeWidth() > target.IntTypeWidth() {
			return g.builder.CreateTrunc(v, target, "")
		}
		return g.builder.CreateSExt(v, target, "")
	}
}

func (g *Generator) genStructLit(fc *fnCtx, n *ast.Node) llvm.Value {
	name, _ := n.Data.(string)
	layout, ok := g.structs[name]
	if !ok {
		return llvm.Value{}
	}
	val := llvm.ConstNull(layout.llvmType)
	for _, f := range n.Children {
		fname, _ := f.Data.(string)
		fv := g.genExpr(fc, f.Child(0))
		idx := g.fieldIndex(n, fname)
		_ = fname
		val = g.builder.CreateInsertValue(val, fv, idx, "")
	}
	return val
}

func (g *Generator) genTupleLit(fc *fnCtx, n *ast.Node) llvm.Value {
	elemTypes := make([]llvm.Type, len(n.Children))
	elems := make([]llvm.Value, len(n.Children))
	for i, e := range n.Children {
		elems[i] = g.genExpr(fc, e)
		elemTypes[i] = elems[i].Type()
	}
	val := llvm.ConstNull(g.ctx.StructType(elemTypes, false))
	for i, e := range elems {
		val = g.builder.CreateInsertValue(val, e, i, "")
	}
	return val
}

func (g *Generator) genArrayLit(fc *fnCtx, n *ast.Node) llvm.Value {
	if len(n.Children) == 0 {
		return llvm.ConstNull(llvm.ArrayType(g.ctx.Int8Type(), 0))
	}
	first := g.genExpr(fc, n.Children[0])
	arrT := llvm.ArrayType(first.Type(), len(n.Children))
	val := llvm.ConstNull(arrT)
	val = g.builder.CreateInsertValue(val, first, 0, "")
	for i := 1; i < len(n.Children); i++ {
		ev := g.genExpr(fc, n.Children[i])
		val = g.builder.CreateInsertValue(val, ev, i, "")
	}
	return val
}

// genClosure lowers a closure literal into a {env_ptr, fn_ptr} value: the
// captured free variables are copied by value into an environment struct
// allocated with alloca in the enclosing function's frame (no runtime call
// is made), and the closure body is emitted as its own top-level function
// taking the env pointer as an implicit first parameter.
func (g *Generator) genClosure(fc *fnCtx, n *ast.Node) llvm.Value {
	name := g.freshClosureName()
	free := g.freeVarsOf(fc, n)

	envFields := make([]llvm.Type, len(free))
	for i, fv := range free {
		_, typ, _ := fc.lookup(fv)
		envFields[i] = typ
	}
	envT := g.ctx.StructType(envFields, false)
	envPtrT := llvm.PointerType(envT, 0)

	retType := g.lowerTypeNode(n.Child(1), g.defs)
	if n.Child(1) == nil {
		retType = g.ctx.VoidType()
	}
	paramTypes := []llvm.Type{envPtrT}
	paramNames := []string{"$env"}
	for _, p := range n.Child(0).Children {
		pname, _ := p.Data.(string)
		paramNames = append(paramNames, pname)
		paramTypes = append(paramTypes, g.lowerTypeNode(p.Child(0), g.defs))
	}
	ft := llvm.FunctionType(retType, paramTypes, false)
	fn := llvm.AddFunction(g.mod, name, ft)
	for i, p := range fn.Params() {
		p.SetName(paramNames[i])
	}
	g.fns[name] = fn

	savedBB := g.builder.GetInsertBlock()
	bb := llvm.AddBasicBlock(fn, "entry")
	g.builder.SetInsertPointAtEnd(bb)

	inner := newFnCtx(fn, retType)
	inner.push()
	envArg := fn.Params()[0]
	for i, fv := range free {
		gep := g.builder.CreateGEP(envArg, []llvm.Value{
			llvm.ConstInt(g.ctx.Int32Type(), 0, false),
			llvm.ConstInt(g.ctx.Int32Type(), uint64(i), false),
		}, "")
		inner.declare(fv, gep, envFields[i])
	}
	for i, p := range n.Child(0).Children {
		pname, _ := p.Data.(string)
		pv := fn.Params()[i+1]
		alloc := g.builder.CreateAlloca(pv.Type(), pname)
		g.builder.CreateStore(pv, alloc)
		inner.declare(pname, alloc, pv.Type())
	}
	if !g.genBlock(inner, n.Child(2)) {
		if retType == g.ctx.VoidType() {
			g.builder.CreateRetVoid()
		} else {
			g.builder.CreateUnreachable()
		}
	}

	g.builder.SetInsertPointAtEnd(savedBB)

	envAlloc := g.builder.CreateAlloca(envT, "")
	for i, fv := range free {
		addr, _, _ := fc.lookup(fv)
		v := g.builder.CreateLoad(addr, "")
		gep := g.builder.CreateGEP(envAlloc, []llvm.Value{
			llvm.ConstInt(g.ctx.Int32Type(), 0, false),
			llvm.ConstInt(g.ctx.Int32Type(), uint64(i), false),
		}, "")
		g.builder.CreateStore(v, gep)
	}

	closureT := g.ctx.StructType([]llvm.Type{llvm.PointerType(g.ctx.Int8Type(), 0), llvm.PointerType(ft, 0)}, false)
	closureVal := llvm.ConstNull(closureT)
	envAsI8 := g.builder.CreateBitCast(envAlloc, llvm.PointerType(g.ctx.Int8Type(), 0), "")
	closureVal = g.builder.CreateInsertValue(closureVal, envAsI8, 0, "")
	closureVal = g.builder.CreateInsertValue(closureVal, fn, 1, "")
	return closureVal
}

// genGoroutine lowers `go expr` to a runtime spawn call carrying the
// expression's thunk the same way a closure is carried: as a
// {env_ptr, fn_ptr} pair.
func (g *Generator) genGoroutine(fc *fnCtx, n *ast.Node) llvm.Value {
	inner := n.Child(0)
	closureVal := g.genExpr(fc, inner)
	if closureVal.IsNil() {
		return llvm.Value{}
	}
	envPtr := g.builder.CreateExtractValue(closureVal, 0, "")
	fnPtr := g.builder.CreateExtractValue(closureVal, 1, "")
	fnAsI8 := g.builder.CreateBitCast(fnPtr, llvm.PointerType(g.ctx.Int8Type(), 0), "")
	return g.builder.CreateCall(g.fns["vex_spawn"], []llvm.Value{fnAsI8, envPtr}, "")
}

func (g *Generator) genBlockExpr(fc *fnCtx, n *ast.Node) llvm.Value {
	g.genBlock(fc, n)
	return llvm.Value{}
}

// genIfExpr lowers an if used in expression position (both arms yield a
// value), distinct from genIf's statement form which returns only a
// termination flag.
func (g *Generator) genIfExpr(fc *fnCtx, n *ast.Node) llvm.Value {
	cond := g.genExpr(fc, n.Child(0))
	thenBB := llvm.AddBasicBlock(fc.fn, "")
	elseBB := llvm.AddBasicBlock(fc.fn, "")
	mergeBB := llvm.AddBasicBlock(fc.fn, "")
	g.builder.CreateCondBr(cond, thenBB, elseBB)

	g.builder.SetInsertPointAtEnd(thenBB)
	thenVal := g.genExpr(fc, n.Child(1))
	g.builder.CreateBr(mergeBB)
	thenEnd := g.builder.GetInsertBlock()

	g.builder.SetInsertPointAtEnd(elseBB)
	var elseVal llvm.Value
	if n.Child(2) != nil {
		elseVal = g.genExpr(fc, n.Child(2))
	}
	g.builder.CreateBr(mergeBB)
	elseEnd := g.builder.GetInsertBlock()

	g.builder.SetInsertPointAtEnd(mergeBB)
	if thenVal.IsNil() {
		return llvm.Value{}
	}
	phi := g.builder.CreatePHI(thenVal.Type(), "")
	phi.AddIncoming([]llvm.Value{thenVal, elseVal}, []llvm.BasicBlock{thenEnd, elseEnd})
	return phi
}

// sliceOrArrayLen computes a bounds-check upper bound for indexing: array
// lengths are known from the static type, slice lengths are read from the
// {ptr, len} runtime representation.
func (g *Generator) sliceOrArrayLen(val llvm.Value, src *ast.Node) llvm.Value {
	if val.Type().TypeKind() == llvm.ArrayTypeKind {
		return llvm.ConstInt(g.intWidth, uint64(val.Type().ArrayLength()), false)
	}
	return g.builder.CreateExtractValue(val, 1, "")
}

func (g *Generator) indexAddr(base llvm.Value, idx llvm.Value) llvm.Value {
	if base.Type().TypeKind() == llvm.ArrayTypeKind {
		alloc := g.builder.CreateAlloca(base.Type(), "")
		g.builder.CreateStore(base, alloc)
		return g.builder.CreateGEP(alloc, []llvm.Value{llvm.ConstInt(g.ctx.Int32Type(), 0, false), idx}, "")
	}
	ptr := g.builder.CreateExtractValue(base, 0, "")
	return g.builder.CreateGEP(ptr, []llvm.Value{idx}, "")
}

func (g *Generator) indexInto(base llvm.Value, idx llvm.Value) llvm.Value {
	return g.builder.CreateLoad(g.indexAddr(base, idx), "")
}

func (g *Generator) freshClosureName() string {
	g.closureCounter++
	return fmt.Sprintf("$closure%d", g.closureCounter)
}

// freeVarsOf finds every identifier referenced inside a closure body that
// resolves to an outer local rather than one of the closure's own
// parameters, the set genClosure must box into the environment struct.
func (g *Generator) freeVarsOf(fc *fnCtx, closure *ast.Node) []string {
	bound := map[string]bool{}
	for _, p := range closure.Child(0).Children {
		name, _ := p.Data.(string)
		bound[name] = true
	}
	seen := map[string]bool{}
	var free []string
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		if n.Typ == ast.IdentExpr {
			name, _ := n.Data.(string)
			if !bound[name] && !seen[name] {
				if _, _, ok := fc.lookup(name); ok {
					seen[name] = true
					free = append(free, name)
				}
			}
		}
		if n.Typ == ast.LetStmt {
			if pat := n.Child(0); pat != nil && pat.Typ == ast.BindingPattern {
				if name, ok := pat.Data.(string); ok {
					bound[name] = true
				}
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(closure.Child(2))
	return free
}
