package types

import (
	"strconv"

	"github.com/vex-lang/vex/internal/ast"
)

var primitivesByName = map[string]ast.Primitive{
	"i8": ast.I8, "i16": ast.I16, "i32": ast.I32, "i64": ast.I64, "i128": ast.I128,
	"u8": ast.U8, "u16": ast.U16, "u32": ast.U32, "u64": ast.U64, "u128": ast.U128,
	"f16": ast.F16, "f32": ast.F32, "f64": ast.F64,
	"bool": ast.Bool, "char": ast.Char, "str": ast.Str, "void": ast.Void,
}

// FromNode converts a parsed type node (ast.PrimitiveType, NamedType, ...)
// into the resolved ast.Type the checker and codegen operate on. Named
// types resolve against defs (populated from every struct/enum/trait
// declaration seen so far); an unresolved name yields ast.ErrorType rather
// than panicking, since the caller has already reported E3002.
func FromNode(n *ast.Node, defs map[string]*ast.Type) *ast.Type {
	if n == nil {
		return ast.NewPrimitive(ast.Void)
	}
	switch n.Typ {
	case ast.PrimitiveType:
		name, _ := n.Data.(string)
		if p, ok := primitivesByName[name]; ok {
			return ast.NewPrimitive(p)
		}
		return ast.ErrorType
	case ast.NamedType:
		name, _ := n.Data.(string)
		if t, ok := defs[name]; ok {
			if len(n.Children) == 0 {
				return t
			}
			args := make([]*ast.Type, len(n.Children))
			for i, c := range n.Children {
				args[i] = FromNode(c, defs)
			}
			return ast.NewNamed(t.Def, name, args)
		}
		return ast.ErrorType
	case ast.ReferenceType:
		return ast.NewReference(n.Mutable, FromNode(n.Child(0), defs))
	case ast.PointerType:
		return ast.NewPointer(n.Mutable, FromNode(n.Child(0), defs))
	case ast.ArrayType:
		length := -1
		if s, ok := n.Data.(string); ok {
			if v, err := strconv.Atoi(s); err == nil {
				length = v
			}
		}
		return ast.NewArray(FromNode(n.Child(0), defs), length)
	case ast.SliceType:
		return ast.NewSlice(FromNode(n.Child(0), defs))
	case ast.TupleType:
		elems := make([]*ast.Type, len(n.Children))
		for i, c := range n.Children {
			elems[i] = FromNode(c, defs)
		}
		return ast.NewTuple(elems)
	case ast.FunctionType:
		if len(n.Children) == 0 {
			return ast.NewFunction(nil, ast.NewPrimitive(ast.Void))
		}
		params := make([]*ast.Type, len(n.Children)-1)
		for i := range params {
			params[i] = FromNode(n.Children[i], defs)
		}
		ret := FromNode(n.Children[len(n.Children)-1], defs)
		return ast.NewFunction(params, ret)
	case ast.GenericType:
		gd, _ := n.Data.(ast.GenericData)
		return ast.NewGeneric(gd.Name, gd.Bounds)
	default:
		return ast.ErrorType
	}
}
