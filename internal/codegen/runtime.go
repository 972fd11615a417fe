package codegen

import llvm "tinygo.org/x/go-llvm"

// declareRuntime declares the small set of C-ABI runtime entry points this
// core's emitted IR calls into for operations LLVM has no native
// instruction for: null/bounds/non-exhaustive-match safety guards, string
// equality (match's LiteralPattern string arms), and the cooperative
// goroutine/await primitives backing `go`/`await` expressions. Their
// definitions live in the external C runtime spec.md §1 calls out as an
// external collaborator; this package only ever emits `declare`s for them,
// mirroring how the teacher declares `printf`/`atoi`/`atof` as externals
// rather than defining them (src/ir/llvm/transform.go's genPrint/genRead).
func (g *Generator) declareRuntime() {
	voidT := g.ctx.VoidType()
	i8ptr := llvm.PointerType(g.ctx.Int8Type(), 0)

	g.declareFn("vex_panic_null_ptr", llvm.FunctionType(voidT, []llvm.Type{i8ptr}, false))
	g.declareFn("vex_panic_bounds", llvm.FunctionType(voidT, []llvm.Type{g.intWidth, g.intWidth}, false))
	g.declareFn("vex_panic", llvm.FunctionType(voidT, nil, false))
	g.declareFn("vex_utf8_eq", llvm.FunctionType(g.ctx.Int1Type(), []llvm.Type{i8ptr, g.intWidth, i8ptr, g.intWidth}, false))
	g.declareFn("vex_spawn", llvm.FunctionType(i8ptr, []llvm.Type{i8ptr, i8ptr}, false))
	g.declareFn("vex_await", llvm.FunctionType(i8ptr, []llvm.Type{i8ptr}, false))
}

func (g *Generator) declareFn(name string, ft llvm.Type) llvm.Value {
	fn := llvm.AddFunction(g.mod, name, ft)
	g.fns[name] = fn
	return fn
}

// panicNullPtr emits a guard around a pointer dereference: if ptr is the
// null pointer, call the runtime panic hook before continuing. Codegen
// always has a valid insertion point when this is called, so the guard
// reads as a straight-line conditional branch rather than a fresh function.
func (g *Generator) panicNullPtr(ptr llvm.Value, fn llvm.Value) {
	nullBB := llvm.AddBasicBlock(fn, "")
	okBB := llvm.AddBasicBlock(fn, "")
	isNull := g.builder.CreateIsNull(ptr, "")
	g.builder.CreateCondBr(isNull, nullBB, okBB)

	g.builder.SetInsertPointAtEnd(nullBB)
	bc := g.builder.CreateBitCast(ptr, llvm.PointerType(g.ctx.Int8Type(), 0), "")
	g.builder.CreateCall(g.fns["vex_panic_null_ptr"], []llvm.Value{bc}, "")
	g.builder.CreateUnreachable()

	g.builder.SetInsertPointAtEnd(okBB)
}

// panicBounds emits a guard around an index expression: if idx is outside
// [0, length), call the runtime panic hook.
func (g *Generator) panicBounds(idx, length llvm.Value, fn llvm.Value) {
	failBB := llvm.AddBasicBlock(fn, "")
	okBB := llvm.AddBasicBlock(fn, "")
	inRange := g.builder.CreateAnd(
		g.builder.CreateICmp(llvm.IntSGE, idx, llvm.ConstInt(g.intWidth, 0, false), ""),
		g.builder.CreateICmp(llvm.IntSLT, idx, length, ""),
		"")
	g.builder.CreateCondBr(inRange, okBB, failBB)

	g.builder.SetInsertPointAtEnd(failBB)
	g.builder.CreateCall(g.fns["vex_panic_bounds"], []llvm.Value{idx, length}, "")
	g.builder.CreateUnreachable()

	g.builder.SetInsertPointAtEnd(okBB)
}
