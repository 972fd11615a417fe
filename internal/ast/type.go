package ast

import "strings"

// Primitive enumerates the primitive scalar kinds from spec.md §3.
type Primitive int

const (
	I8 Primitive = iota
	I16
	I32
	I64
	I128
	U8
	U16
	U32
	U64
	U128
	F16
	F32
	F64
	Bool
	Char
	Str
	Void
)

var primitiveNames = [...]string{
	"i8", "i16", "i32", "i64", "i128",
	"u8", "u16", "u32", "u64", "u128",
	"f16", "f32", "f64", "bool", "char", "str", "void",
}

func (p Primitive) String() string {
	if int(p) < 0 || int(p) >= len(primitiveNames) {
		return "<invalid primitive>"
	}
	return primitiveNames[p]
}

// TypeKind tags the sum-type cases of Type in spec.md §3.
type TypeKind int

const (
	TPrimitive TypeKind = iota
	TReference
	TPointer
	TArray
	TSlice
	TTuple
	TFunction
	TNamed
	TGeneric
	TError // poison type suppressing cascading diagnostics
)

// Type is the sum type from spec.md §3's Data Model. Rather than one Go
// interface implementation per case (which would force every pass to type
// switch on a dozen concrete structs) it is one struct tagged by Kind,
// generalizing the same "tagged node" idea the teacher applies to its
// syntax tree (src/ir/nodetype.go) to the type system.
type Type struct {
	Kind Kind0

	Prim Primitive // valid when Kind == TPrimitive

	Mutable bool  // valid for TReference, TPointer
	Elem    *Type // valid for TReference, TPointer, TArray, TSlice

	ArrayLen int // valid for TArray; -1 if unknown/const-generic

	Tuple []*Type // valid for TTuple

	Params []*Type // valid for TFunction
	Ret    *Type   // valid for TFunction

	Def      DefID   // valid for TNamed
	Name     string  // valid for TNamed, TGeneric (display name)
	Args     []*Type // valid for TNamed (generic instantiation arguments)
	Bounds   []string // valid for TGeneric: trait names bounding the parameter
}

// Kind0 avoids a name collision with the exported TypeKind constants above
// while keeping the struct field named Kind for readability at call sites.
type Kind0 = TypeKind

// Copy-classification, used by the borrow checker's Move-semantics phase
// (spec.md §4.5.2).
func (t *Type) IsCopy() bool {
	if t == nil {
		return true
	}
	switch t.Kind {
	case TPrimitive, TReference, TFunction:
		return true
	case TPointer:
		return true
	case TArray:
		return t.Elem.IsCopy()
	case TTuple:
		for _, e := range t.Tuple {
			if !e.IsCopy() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a Type for diagnostics and the AST pretty-printer.
func (t *Type) String() string {
	if t == nil {
		return "<nil type>"
	}
	switch t.Kind {
	case TPrimitive:
		return t.Prim.String()
	case TReference:
		if t.Mutable {
			return "&" + t.Elem.String() + "!"
		}
		return "&" + t.Elem.String()
	case TPointer:
		if t.Mutable {
			return "*" + t.Elem.String() + "!"
		}
		return "*" + t.Elem.String()
	case TArray:
		if t.ArrayLen >= 0 {
			return "[" + t.Elem.String() + "; " + itoa(t.ArrayLen) + "]"
		}
		return "[" + t.Elem.String() + "]"
	case TSlice:
		return "[]" + t.Elem.String()
	case TTuple:
		parts := make([]string, len(t.Tuple))
		for i, e := range t.Tuple {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case TFunction:
		parts := make([]string, len(t.Params))
		for i, e := range t.Params {
			parts[i] = e.String()
		}
		return "fn(" + strings.Join(parts, ", ") + "): " + t.Ret.String()
	case TNamed:
		if len(t.Args) == 0 {
			return t.Name
		}
		parts := make([]string, len(t.Args))
		for i, e := range t.Args {
			parts[i] = e.String()
		}
		return t.Name + "<" + strings.Join(parts, ", ") + ">"
	case TGeneric:
		return t.Name
	case TError:
		return "<error>"
	default:
		return "<unknown type>"
	}
}

// Equal performs structural equality, used by trait-impl lookup and
// monomorphisation-plan deduplication.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TPrimitive:
		return t.Prim == o.Prim
	case TReference, TPointer:
		return t.Mutable == o.Mutable && t.Elem.Equal(o.Elem)
	case TArray:
		return t.ArrayLen == o.ArrayLen && t.Elem.Equal(o.Elem)
	case TSlice:
		return t.Elem.Equal(o.Elem)
	case TTuple:
		if len(t.Tuple) != len(o.Tuple) {
			return false
		}
		for i := range t.Tuple {
			if !t.Tuple[i].Equal(o.Tuple[i]) {
				return false
			}
		}
		return true
	case TFunction:
		if len(t.Params) != len(o.Params) || !t.Ret.Equal(o.Ret) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(o.Params[i]) {
				return false
			}
		}
		return true
	case TNamed:
		if t.Def != o.Def || len(t.Args) != len(o.Args) {
			return false
		}
		for i := range t.Args {
			if !t.Args[i].Equal(o.Args[i]) {
				return false
			}
		}
		return true
	case TGeneric:
		return t.Name == o.Name
	case TError:
		return true
	}
	return false
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits [20]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	s := string(digits[i:])
	if neg {
		return "-" + s
	}
	return s
}

// Primitive type constructors, used throughout the type environment.
func NewPrimitive(p Primitive) *Type { return &Type{Kind: TPrimitive, Prim: p} }
func NewReference(mutable bool, elem *Type) *Type {
	return &Type{Kind: TReference, Mutable: mutable, Elem: elem}
}
func NewPointer(mutable bool, elem *Type) *Type {
	return &Type{Kind: TPointer, Mutable: mutable, Elem: elem}
}
func NewArray(elem *Type, length int) *Type {
	return &Type{Kind: TArray, Elem: elem, ArrayLen: length}
}
func NewSlice(elem *Type) *Type { return &Type{Kind: TSlice, Elem: elem} }
func NewTuple(elems []*Type) *Type {
	return &Type{Kind: TTuple, Tuple: elems}
}
func NewFunction(params []*Type, ret *Type) *Type {
	return &Type{Kind: TFunction, Params: params, Ret: ret}
}
func NewNamed(def DefID, name string, args []*Type) *Type {
	return &Type{Kind: TNamed, Def: def, Name: name, Args: args}
}
func NewGeneric(name string, bounds []string) *Type {
	return &Type{Kind: TGeneric, Name: name, Bounds: bounds}
}

// ErrorType is the shared poison value: every Error-typed expression
// already produced a diagnostic, per spec.md §3's invariant.
var ErrorType = &Type{Kind: TError}
