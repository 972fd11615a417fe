package codegen

import (
	llvm "tinygo.org/x/go-llvm"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/types"
)

// registerTypes lowers every struct/enum declaration into an LLVM type
// before any function body is generated, so a field of type Foo resolves
// correctly regardless of declaration order (the same forward-reference
// concern genFuncHeader's two-pass split addresses for functions).
func (g *Generator) registerTypes(defs map[string]*ast.Type, structFields map[string]map[string]*ast.Type, prog *ast.Node) {
	for _, item := range flattenExports(prog.Children) {
		if item.Typ == ast.StructDecl {
			name, _ := item.Data.(string)
			g.structs[name] = &structLayout{llvmType: g.ctx.StructCreateNamed(name)}
		}
	}
	for _, item := range flattenExports(prog.Children) {
		if item.Typ == ast.EnumDecl {
			name, _ := item.Data.(string)
			g.registerEnum(name, item, defs)
		}
	}
	for _, item := range flattenExports(prog.Children) {
		if item.Typ == ast.StructDecl {
			name, _ := item.Data.(string)
			g.registerStructBody(name, item, defs)
		}
	}
}

func (g *Generator) registerStructBody(name string, decl *ast.Node, defs map[string]*ast.Type) {
	layout := g.structs[name]
	var elems []llvm.Type
	for _, child := range decl.Children[1:] { // [0] is the generics list
		if child.Typ != ast.FieldList {
			continue
		}
		fname, _ := child.Data.(string)
		layout.fields = append(layout.fields, fname)
		elems = append(elems, g.lowerTypeNode(child.Child(0), defs))
	}
	layout.llvmType.StructSetBody(elems, false)
}

// registerEnum lowers an enum to a tagged union: { i32 tag, [N x i8] payload },
// the payload sized to the largest variant's packed field list, since LLVM
// IR has no native sum type and the teacher has no enum analogue to ground
// this on directly.
func (g *Generator) registerEnum(name string, decl *ast.Node, defs map[string]*ast.Type) {
	layout := &enumLayout{}
	maxSize := 0
	for _, variant := range decl.Children[1:] {
		if variant.Typ != ast.EnumVariantPattern {
			continue
		}
		vname, _ := variant.Data.(string)
		layout.variants = append(layout.variants, vname)
		var payloadTypes []*ast.Type
		size := 0
		for _, p := range variant.Children {
			t := types.FromNode(p, defs)
			payloadTypes = append(payloadTypes, t)
			size += approxSize(t)
		}
		layout.payload = append(layout.payload, payloadTypes)
		if size > maxSize {
			maxSize = size
		}
	}
	tag := g.ctx.Int32Type()
	st := g.ctx.StructCreateNamed(name)
	if maxSize > 0 {
		st.StructSetBody([]llvm.Type{tag, llvm.ArrayType(g.ctx.Int8Type(), maxSize)}, false)
	} else {
		st.StructSetBody([]llvm.Type{tag}, false)
	}
	layout.llvmType = st
	g.enums[name] = layout
}

// approxSize gives a conservative byte-size estimate used only to size an
// enum's payload buffer; it does not need to match a real target's ABI
// layout exactly since codegen always accesses payload fields through typed
// bitcasts of the same Generator, never across a module boundary.
func approxSize(t *ast.Type) int {
	switch t.Kind {
	case ast.TPrimitive:
		switch t.Prim {
		case ast.I8, ast.U8, ast.Bool:
			return 1
		case ast.I16, ast.U16:
			return 2
		case ast.I32, ast.U32, ast.F32, ast.Char, ast.F16:
			return 4 // char lowers to i32 and f16 is widened to float
		case ast.I64, ast.U64, ast.F64:
			return 8
		case ast.I128, ast.U128:
			return 16
		case ast.Str:
			return 16 // {ptr, len}
		default:
			return 0
		}
	case ast.TReference, ast.TPointer, ast.TFunction:
		return 8
	case ast.TArray:
		return approxSize(t.Elem) * max(t.ArrayLen, 0)
	case ast.TSlice:
		return 16
	case ast.TTuple:
		s := 0
		for _, e := range t.Tuple {
			s += approxSize(e)
		}
		return s
	default:
		return 8
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// lowerTypeNode resolves a parsed type-annotation node via types.FromNode and
// lowers the resulting ast.Type.
func (g *Generator) lowerTypeNode(n *ast.Node, defs map[string]*ast.Type) llvm.Type {
	return g.lowerType(types.FromNode(n, defs))
}

// lowerType maps a resolved ast.Type onto its LLVM representation, mirroring
// the teacher's module-level `i`/`f` type selection (src/ir/llvm/transform.go)
// generalized from VSL's two scalar kinds to the full Type sum type: slices
// lower to {ptr, len} structs, references/pointers to LLVM pointers, tuples
// to anonymous structs, and named types to the struct/enum already
// registered by registerTypes.
func (g *Generator) lowerType(t *ast.Type) llvm.Type {
	if t == nil {
		return g.ctx.VoidType()
	}
	switch t.Kind {
	case ast.TPrimitive:
		return g.lowerPrimitive(t.Prim)
	case ast.TReference, ast.TPointer:
		return llvm.PointerType(g.lowerType(t.Elem), 0)
	case ast.TArray:
		return llvm.ArrayType(g.lowerType(t.Elem), max(t.ArrayLen, 0))
	case ast.TSlice:
		return g.ctx.StructType([]llvm.Type{llvm.PointerType(g.lowerType(t.Elem), 0), g.intWidth}, false)
	case ast.TTuple:
		elems := make([]llvm.Type, len(t.Tuple))
		for i, e := range t.Tuple {
			elems[i] = g.lowerType(e)
		}
		return g.ctx.StructType(elems, false)
	case ast.TFunction:
		params := make([]llvm.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = g.lowerType(p)
		}
		return llvm.PointerType(llvm.FunctionType(g.lowerType(t.Ret), params, false), 0)
	case ast.TNamed:
		if l, ok := g.structs[t.Name]; ok {
			return l.llvmType
		}
		if l, ok := g.enums[t.Name]; ok {
			return l.llvmType
		}
		return g.ctx.VoidType()
	case ast.TGeneric:
		// No monomorphisation pass substitutes concrete types, so a type
		// parameter reaching codegen is lowered to a byte pointer.
		return llvm.PointerType(g.ctx.Int8Type(), 0)
	default:
		return g.ctx.VoidType()
	}
}

func (g *Generator) lowerPrimitive(p ast.Primitive) llvm.Type {
	switch p {
	case ast.I8, ast.U8:
		return g.ctx.Int8Type()
	case ast.I16, ast.U16:
		return g.ctx.Int16Type()
	case ast.I32, ast.U32:
		return g.ctx.Int32Type()
	case ast.I64, ast.U64:
		return g.ctx.Int64Type()
	case ast.I128, ast.U128:
		return g.ctx.IntType(128)
	case ast.F16:
		// LLVM's half type is rarely useful without target-specific legalization
		// this core never performs; f16 values are widened to f32 instead.
		return g.ctx.FloatType()
	case ast.F32:
		return g.ctx.FloatType()
	case ast.F64:
		return g.ctx.DoubleType()
	case ast.Bool:
		return g.ctx.Int1Type()
	case ast.Char:
		return g.ctx.Int32Type() // Unicode scalar value
	case ast.Str:
		// {ptr, len}, the same shape as a []u8 slice.
		return g.ctx.StructType([]llvm.Type{llvm.PointerType(g.ctx.Int8Type(), 0), g.intWidth}, false)
	case ast.Void:
		return g.ctx.VoidType()
	default:
		return g.ctx.VoidType()
	}
}
