package codegen

import (
	"fmt"

	llvm "tinygo.org/x/go-llvm"

	"github.com/vex-lang/vex/internal/ast"
)

// scope is one lexical block's name -> alloca table, mirroring movePass's
// scopes slice but keyed to llvm.Value stack slots instead of binding
// metadata.
type scope struct {
	vars map[string]llvm.Value
	typs map[string]llvm.Type
	ast  map[string]*ast.Type // declared source type, when statically known (params and annotated lets)
}

// fnCtx carries the mutable state one function body's codegen needs beyond
// the Generator's module-wide tables: its scope stack, the loop-exit/continue
// targets active blocks/continues branch to, and the deferred-call stack a
// return flushes in LIFO order before actually returning.
type fnCtx struct {
	fn      llvm.Value
	scopes  []*scope
	loopEnd []llvm.BasicBlock
	loopTop []llvm.BasicBlock
	defers  [][]*ast.Node // one slice per enclosing block, LIFO within and across blocks
	retType llvm.Type
}

func newFnCtx(fn llvm.Value, retType llvm.Type) *fnCtx {
	return &fnCtx{fn: fn, retType: retType}
}

func (f *fnCtx) push() { f.scopes = append(f.scopes, &scope{vars: map[string]llvm.Value{}, typs: map[string]llvm.Type{}}) }
func (f *fnCtx) pop()  { f.scopes = f.scopes[:len(f.scopes)-1] }

func (f *fnCtx) declare(name string, val llvm.Value, typ llvm.Type) {
	s := f.scopes[len(f.scopes)-1]
	s.vars[name] = val
	s.typs[name] = typ
}

func (f *fnCtx) lookup(name string) (llvm.Value, llvm.Type, bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if v, ok := f.scopes[i].vars[name]; ok {
			return v, f.scopes[i].typs[name], true
		}
	}
	return llvm.Value{}, llvm.Type{}, false
}

// genFuncHeader declares fn's (or, if recv is non-empty, an impl method's)
// LLVM function signature and records it in g.fns under its mangled name,
// mirroring the teacher's genFuncHeader (src/ir/llvm/transform.go): one pass
// over every declaration before any body is generated, so mutual recursion
// and forward references resolve regardless of declaration order.
func (g *Generator) genFuncHeader(fn *ast.Node, recv string) (llvm.Value, error) {
	name := mangledName(fn, recv, nil)
	if existing, ok := g.fns[name]; ok {
		return existing, nil
	}

	retNode := fn.Child(1)
	retType := g.lowerTypeNode(retNode, g.defs)
	if retNode == nil {
		retType = g.ctx.VoidType()
	}

	var paramTypes []llvm.Type
	var paramNames []string
	if recv != "" {
		paramTypes = append(paramTypes, llvm.PointerType(g.structOrEnumType(recv), 0))
		paramNames = append(paramNames, "self")
	}
	for _, param := range fn.Child(0).Children {
		pname, _ := param.Data.(string)
		paramNames = append(paramNames, pname)
		paramTypes = append(paramTypes, g.lowerTypeNode(param.Child(0), g.defs))
	}

	ft := llvm.FunctionType(retType, paramTypes, false)
	f := llvm.AddFunction(g.mod, name, ft)
	for i, p := range f.Params() {
		p.SetName(paramNames[i])
	}
	g.fns[name] = f
	return f, nil
}

func (g *Generator) structOrEnumType(name string) llvm.Type {
	if l, ok := g.structs[name]; ok {
		return l.llvmType
	}
	if l, ok := g.enums[name]; ok {
		return l.llvmType
	}
	return g.ctx.VoidType()
}

// genFuncBody lowers fn's statement block into fn's already-declared LLVM
// function, allocating one stack slot per parameter and local the way the
// teacher's genFuncBody does (src/ir/llvm/transform.go): every binding,
// even an immutable one, gets an alloca so `&x` always has an address to
// take, and codegen never needs an SSA-vs-stack distinction.
func (g *Generator) genFuncBody(fn *ast.Node) error {
	recv := ""
	name := mangledName(fn, recv, nil)
	f, ok := g.fns[name]
	if !ok {
		return fmt.Errorf("codegen: function %q has no declared header", name)
	}

	bb := llvm.AddBasicBlock(f, "entry")
	g.builder.SetInsertPointAtEnd(bb)

	retNode := fn.Child(1)
	retType := g.lowerTypeNode(retNode, g.defs)
	if retNode == nil {
		retType = g.ctx.VoidType()
	}
	fc := newFnCtx(f, retType)
	fc.push()
	defer fc.pop()

	params := f.Params()
	paramDecls := fn.Child(0).Children
	offset := len(params) - len(paramDecls) // 1 if this is a method (leading self)
	if offset == 1 {
		alloc := g.builder.CreateAlloca(params[0].Type(), "self")
		g.builder.CreateStore(params[0], alloc)
		fc.declare("self", alloc, params[0].Type())
	}
	for i, param := range paramDecls {
		pname, _ := param.Data.(string)
		pv := params[i+offset]
		alloc := g.builder.CreateAlloca(pv.Type(), pname)
		g.builder.CreateStore(pv, alloc)
		fc.declare(pname, alloc, pv.Type())
	}

	body := fn.Child(2)
	terminated := g.genBlock(fc, body)
	if !terminated {
		g.flushDefers(fc)
		if retType == g.ctx.VoidType() {
			g.builder.CreateRetVoid()
		} else {
			// A checked program always returns on every path (spec.md §4.4's
			// exhaustiveness requirement); reaching here means an already-
			// reported diagnostic upstream, so emit an unreachable trap rather
			// than inventing a zero value.
			g.builder.CreateUnreachable()
		}
	}
	return nil
}

// genConstGlobal lowers a top-level `const` declaration to an LLVM global
// with an initializer, the module-scope analogue of a local let.
func (g *Generator) genConstGlobal(n *ast.Node) {
	name, _ := n.Data.(string)
	typ := g.lowerTypeNode(n.Child(0), g.defs)
	init := g.constExpr(n.Child(1), typ)
	gv := llvm.AddGlobal(g.mod, typ, name)
	gv.SetInitializer(init)
	gv.SetGlobalConstant(true)
	g.globals.set(name, gv)
}

// constExpr evaluates a literal-only expression into an LLVM constant,
// sufficient for the const initializers this core allows (spec.md §4.3
// restricts const initializers to literals and literal arithmetic).
func (g *Generator) constExpr(n *ast.Node, typ llvm.Type) llvm.Value {
	if n == nil {
		return llvm.ConstNull(typ)
	}
	switch n.Typ {
	case ast.LiteralExpr:
		lit, _ := n.Data.(ast.Lit)
		switch lit.Kind {
		case ast.LitInt:
			return llvm.ConstInt(typ, uint64(lit.IVal), true)
		case ast.LitFloat:
			return llvm.ConstFloat(typ, lit.FVal)
		case ast.LitBool:
			return llvm.ConstInt(typ, uint64(lit.IVal), false)
		case ast.LitChar:
			return llvm.ConstInt(typ, uint64(lit.IVal), false)
		case ast.LitString:
			return g.builder.CreateGlobalStringPtr(lit.Text, "")
		}
	case ast.UnaryExpr:
		v := g.constExpr(n.Child(0), typ)
		return llvm.ConstNeg(v)
	}
	return llvm.ConstNull(typ)
}
