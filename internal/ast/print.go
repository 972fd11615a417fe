package ast

import (
	"fmt"
	"strings"

	"github.com/vex-lang/vex/internal/lexer"
)

// Print renders n back to Vex source text. It exists to exercise the
// parse -> print -> parse round-trip property from spec.md §8: printing a
// freshly parsed tree and re-parsing the result must yield a tree equal to
// the original up to spans (which necessarily shift) and doc-comment
// whitespace. Print is deliberately not a formatter: it emits one
// canonical layout, not the user's original spacing.
func Print(n *Node) string {
	var b strings.Builder
	p := &printer{b: &b}
	p.item(n)
	return b.String()
}

type printer struct {
	b     *strings.Builder
	depth int
}

func (p *printer) indent() string { return strings.Repeat("    ", p.depth) }

func (p *printer) writeDoc(n *Node) {
	if n.Doc != "" {
		p.b.WriteString(p.indent())
		p.b.WriteString("/// ")
		p.b.WriteString(n.Doc)
		p.b.WriteByte('\n')
	}
	for _, a := range n.Attrs {
		p.b.WriteString(p.indent())
		p.printAttr(a)
		p.b.WriteByte('\n')
	}
}

func (p *printer) printAttr(a *Node) {
	p.b.WriteByte('@')
	p.b.WriteString(fmt.Sprint(a.Data))
	if len(a.Children) > 0 {
		p.b.WriteByte('(')
		p.exprList(a.Children)
		p.b.WriteByte(')')
	}
}

// item dispatches top-level declarations; n may also be nil (empty body).
func (p *printer) item(n *Node) {
	if n == nil {
		return
	}
	switch n.Typ {
	case Program:
		for i, c := range n.Children {
			if i > 0 {
				p.b.WriteByte('\n')
			}
			p.b.WriteString(p.indent())
			p.item(c)
			p.b.WriteByte('\n')
		}
	case ImportDecl:
		p.writeDoc(n)
		p.b.WriteString("import ")
		p.nameList(n.Children)
		fmt.Fprintf(p.b, " from %q;", n.Data)
	case ExportDecl:
		p.writeDoc(n)
		p.b.WriteString("export ")
		if path, ok := n.Data.(string); ok && path != "" {
			p.nameList(n.Children)
			fmt.Fprintf(p.b, " from %q;", path)
		} else if len(n.Children) == 1 && isItem(n.Children[0].Typ) {
			p.item(n.Children[0])
		} else {
			p.nameList(n.Children)
			p.b.WriteByte(';')
		}
	case FunctionDecl:
		p.writeDoc(n)
		p.printFunctionDecl(n)
	case StructDecl:
		p.writeDoc(n)
		fmt.Fprintf(p.b, "struct %s", n.Data)
		p.genericList(n.Child(0))
		p.b.WriteString(" {\n")
		p.depth++
		for _, f := range n.Children[1:] {
			fmt.Fprintf(p.b, "%s%s: %s,\n", p.indent(), f.Data, p.typeStr(f.Child(0)))
		}
		p.depth--
		p.b.WriteString(p.indent() + "}")
	case EnumDecl:
		p.writeDoc(n)
		fmt.Fprintf(p.b, "enum %s", n.Data)
		p.genericList(n.Child(0))
		p.b.WriteString(" {\n")
		p.depth++
		for _, v := range n.Children[1:] {
			p.b.WriteString(p.indent())
			p.b.WriteString(fmt.Sprint(v.Data))
			if len(v.Children) > 0 {
				p.b.WriteByte('(')
				for i, t := range v.Children {
					if i > 0 {
						p.b.WriteString(", ")
					}
					p.b.WriteString(p.typeStr(t))
				}
				p.b.WriteByte(')')
			}
			p.b.WriteString(",\n")
		}
		p.depth--
		p.b.WriteString(p.indent() + "}")
	case TraitDecl:
		p.writeDoc(n)
		fmt.Fprintf(p.b, "trait %s {\n", n.Data)
		p.depth++
		for _, m := range n.Children {
			p.b.WriteString(p.indent())
			p.printFunctionDecl(m)
			p.b.WriteByte('\n')
		}
		p.depth--
		p.b.WriteString(p.indent() + "}")
	case ImplDecl:
		p.writeDoc(n)
		p.b.WriteString("impl ")
		if traitType := n.Child(0); traitType != nil {
			p.b.WriteString(p.typeStr(traitType))
			p.b.WriteString(" for ")
		}
		p.b.WriteString(p.typeStr(n.Child(1)))
		p.b.WriteString(" {\n")
		p.depth++
		for _, m := range n.Children[2:] {
			p.b.WriteString(p.indent())
			p.printFunctionDecl(m)
			p.b.WriteByte('\n')
		}
		p.depth--
		p.b.WriteString(p.indent() + "}")
	case ConstDecl:
		p.writeDoc(n)
		fmt.Fprintf(p.b, "const %s", n.Data)
		if t := n.Child(0); t != nil {
			p.b.WriteString(": " + p.typeStr(t))
		}
		p.b.WriteString(" = ")
		p.expr(n.Child(1))
		p.b.WriteByte(';')
	default:
		p.stmt(n)
	}
}

func isItem(t NodeType) bool {
	switch t {
	case FunctionDecl, StructDecl, EnumDecl, TraitDecl, ImplDecl, ConstDecl:
		return true
	}
	return false
}

func (p *printer) nameList(names []*Node) {
	p.b.WriteByte('{')
	for i, nm := range names {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.b.WriteString(fmt.Sprint(nm.Data))
	}
	p.b.WriteByte('}')
}

func (p *printer) genericList(g *Node) {
	if g == nil || len(g.Children) == 0 {
		return
	}
	p.b.WriteByte('<')
	for i, gp := range g.Children {
		if i > 0 {
			p.b.WriteString(", ")
		}
		gd, _ := gp.Data.(GenericData)
		p.b.WriteString(gd.Name)
		if len(gd.Bounds) > 0 {
			p.b.WriteString(": " + strings.Join(gd.Bounds, " + "))
		}
	}
	p.b.WriteByte('>')
}

func (p *printer) printFunctionDecl(n *Node) {
	fmt.Fprintf(p.b, "fn %s(", n.Data)
	params := n.Child(0)
	for i, prm := range params.Children {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.b.WriteString(fmt.Sprint(prm.Data))
		if prm.Mutable {
			p.b.WriteByte('!')
		}
		p.b.WriteString(": " + p.typeStr(prm.Child(0)))
	}
	p.b.WriteByte(')')
	if ret := n.Child(1); ret != nil {
		p.b.WriteString(": " + p.typeStr(ret))
	}
	if body := n.Child(2); body != nil {
		p.b.WriteByte(' ')
		p.stmt(body)
	} else {
		p.b.WriteByte(';')
	}
}

func (p *printer) typeStr(t *Node) string {
	if t == nil {
		return "void"
	}
	switch t.Typ {
	case PrimitiveType:
		return fmt.Sprint(t.Data)
	case NamedType:
		s := fmt.Sprint(t.Data)
		if len(t.Children) > 0 {
			parts := make([]string, len(t.Children))
			for i, c := range t.Children {
				parts[i] = p.typeStr(c)
			}
			s += "<" + strings.Join(parts, ", ") + ">"
		}
		return s
	case ReferenceType:
		s := "&" + p.typeStr(t.Child(0))
		if t.Mutable {
			s += "!"
		}
		return s
	case PointerType:
		return "*" + p.typeStr(t.Child(0))
	case ArrayType:
		return "[" + p.typeStr(t.Child(0)) + "; " + fmt.Sprint(t.Data) + "]"
	case SliceType:
		return "[]" + p.typeStr(t.Child(0))
	case TupleType:
		parts := make([]string, len(t.Children))
		for i, c := range t.Children {
			parts[i] = p.typeStr(c)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case FunctionType:
		n := len(t.Children) - 1
		parts := make([]string, n)
		for i := 0; i < n; i++ {
			parts[i] = p.typeStr(t.Children[i])
		}
		return "(" + strings.Join(parts, ", ") + "): " + p.typeStr(t.Children[n])
	default:
		return "<invalid type>"
	}
}

func (p *printer) stmt(n *Node) {
	if n == nil {
		return
	}
	switch n.Typ {
	case BlockStmt:
		p.b.WriteString("{\n")
		p.depth++
		for _, s := range n.Children {
			p.b.WriteString(p.indent())
			p.stmt(s)
			p.b.WriteByte('\n')
		}
		p.depth--
		p.b.WriteString(p.indent() + "}")
	case LetStmt:
		p.b.WriteString("let")
		if n.Mutable {
			p.b.WriteByte('!')
		}
		p.b.WriteByte(' ')
		p.pattern(n.Child(0))
		if t := n.Child(1); t != nil {
			p.b.WriteString(": " + p.typeStr(t))
		}
		p.b.WriteString(" = ")
		p.expr(n.Child(2))
		p.b.WriteByte(';')
	case AssignStmt:
		p.expr(n.Child(0))
		p.b.WriteString(" " + opStr(n.Data) + " ")
		p.expr(n.Child(1))
		p.b.WriteByte(';')
	case IfStmt:
		p.b.WriteString("if ")
		p.expr(n.Child(0))
		p.b.WriteByte(' ')
		p.stmt(n.Child(1))
		if els := n.Child(2); els != nil {
			p.b.WriteString(" else ")
			if els.Typ == IfStmt {
				p.stmt(els)
			} else {
				p.stmt(els)
			}
		}
	case WhileStmt:
		p.b.WriteString("while ")
		p.expr(n.Child(0))
		p.b.WriteByte(' ')
		p.stmt(n.Child(1))
	case ForStmt:
		p.b.WriteString("for ")
		p.pattern(n.Child(0))
		p.b.WriteString(" in ")
		p.expr(n.Child(1))
		p.b.WriteByte(' ')
		p.stmt(n.Child(2))
	case LoopStmt:
		p.b.WriteString("loop ")
		p.stmt(n.Child(0))
	case ReturnStmt:
		p.b.WriteString("return")
		if v := n.Child(0); v != nil {
			p.b.WriteByte(' ')
			p.expr(v)
		}
		p.b.WriteByte(';')
	case BreakStmt:
		p.b.WriteString("break;")
	case ContinueStmt:
		p.b.WriteString("continue;")
	case DeferStmt:
		p.b.WriteString("defer ")
		p.expr(n.Child(0))
		p.b.WriteByte(';')
	case ExprStmt:
		p.expr(n.Child(0))
		p.b.WriteByte(';')
	case MatchStmt:
		p.matchExpr(n)
	default:
		p.expr(n)
	}
}

func (p *printer) matchExpr(n *Node) {
	p.b.WriteString("match ")
	p.expr(n.Child(0))
	p.b.WriteString(" {\n")
	p.depth++
	arms := n.Child(1)
	for _, a := range arms.Children {
		p.b.WriteString(p.indent())
		p.pattern(a.Child(0))
		if g := a.Child(1); g != nil {
			p.b.WriteString(" if ")
			p.expr(g)
		}
		p.b.WriteString(" => ")
		p.expr(a.Child(2))
		p.b.WriteString(",\n")
	}
	p.depth--
	p.b.WriteString(p.indent() + "}")
}

func (p *printer) expr(n *Node) {
	if n == nil {
		return
	}
	switch n.Typ {
	case LiteralExpr:
		lit, _ := n.Data.(Lit)
		p.b.WriteString(lit.String())
	case IdentExpr:
		p.b.WriteString(fmt.Sprint(n.Data))
	case BinaryExpr:
		p.expr(n.Child(0))
		p.b.WriteString(" " + opStr(n.Data) + " ")
		p.expr(n.Child(1))
	case UnaryExpr:
		if n.Data == lexer.Question {
			p.expr(n.Child(0))
			p.b.WriteByte('?')
			return
		}
		p.b.WriteString(opStr(n.Data))
		p.expr(n.Child(0))
	case CallExpr:
		p.expr(n.Child(0))
		p.b.WriteByte('(')
		p.exprList(n.Child(1).Children)
		p.b.WriteByte(')')
	case MethodCallExpr:
		p.expr(n.Child(0))
		fmt.Fprintf(p.b, ".%s(", n.Data)
		p.exprList(n.Child(1).Children)
		p.b.WriteByte(')')
	case FieldAccessExpr:
		p.expr(n.Child(0))
		fmt.Fprintf(p.b, ".%s", n.Data)
	case IndexExpr:
		p.expr(n.Child(0))
		p.b.WriteByte('[')
		p.expr(n.Child(1))
		p.b.WriteByte(']')
	case StructLitExpr:
		fmt.Fprintf(p.b, "%s { ", n.Data)
		for i, f := range n.Children {
			if i > 0 {
				p.b.WriteString(", ")
			}
			fmt.Fprintf(p.b, "%s: ", f.Data)
			p.expr(f.Child(0))
		}
		p.b.WriteString(" }")
	case TupleLitExpr:
		p.b.WriteByte('(')
		p.exprList(n.Children)
		if len(n.Children) == 1 {
			p.b.WriteByte(',')
		}
		p.b.WriteByte(')')
	case ArrayLitExpr:
		p.b.WriteByte('[')
		p.exprList(n.Children)
		p.b.WriteByte(']')
	case ClosureExpr:
		params := n.Child(0)
		p.b.WriteByte('|')
		for i, prm := range params.Children {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(fmt.Sprint(prm.Data))
			if t := prm.Child(0); t != nil {
				p.b.WriteString(": " + p.typeStr(t))
			}
		}
		p.b.WriteByte('|')
		if ret := n.Child(1); ret != nil {
			p.b.WriteString(": " + p.typeStr(ret))
		}
		p.b.WriteByte(' ')
		p.stmt(n.Child(2))
	case CastExpr:
		p.expr(n.Child(0))
		p.b.WriteString(" as " + p.typeStr(n.Child(1)))
	case ReferenceExpr:
		p.b.WriteByte('&')
		p.expr(n.Child(0))
		if n.Mutable {
			p.b.WriteByte('!')
		}
	case DerefExpr:
		p.b.WriteByte('*')
		p.expr(n.Child(0))
	case RangeExpr:
		p.expr(n.Child(0))
		p.b.WriteString("..")
		p.expr(n.Child(1))
	case AwaitExpr:
		p.b.WriteString("await ")
		p.expr(n.Child(0))
	case GoroutineExpr:
		p.b.WriteString("go ")
		p.expr(n.Child(0))
	case IfStmt:
		p.stmt(n)
	case MatchStmt:
		p.matchExpr(n)
	case BlockStmt:
		p.stmt(n)
	default:
		p.b.WriteString(n.String())
	}
}

func (p *printer) exprList(es []*Node) {
	for i, e := range es {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.expr(e)
	}
}

func (p *printer) pattern(n *Node) {
	if n == nil {
		return
	}
	switch n.Typ {
	case WildcardPattern:
		p.b.WriteByte('_')
	case BindingPattern:
		p.b.WriteString(fmt.Sprint(n.Data))
	case LiteralPattern:
		lit, _ := n.Data.(Lit)
		p.b.WriteString(lit.String())
	case TuplePattern:
		p.b.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.pattern(c)
		}
		p.b.WriteByte(')')
	case StructPattern:
		fmt.Fprintf(p.b, "%s { ", n.Data)
		for i, f := range n.Children {
			if i > 0 {
				p.b.WriteString(", ")
			}
			fmt.Fprintf(p.b, "%s: ", f.Data)
			p.pattern(f.Child(0))
		}
		p.b.WriteString(" }")
	case EnumVariantPattern:
		fmt.Fprintf(p.b, "%s(", n.Data)
		for i, c := range n.Children {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.pattern(c)
		}
		p.b.WriteByte(')')
	case OrPattern:
		for i, c := range n.Children {
			if i > 0 {
				p.b.WriteString(" | ")
			}
			p.pattern(c)
		}
	case RangePattern:
		p.pattern(n.Child(0))
		p.b.WriteString("..")
		p.pattern(n.Child(1))
	default:
		p.b.WriteString(n.String())
	}
}

func opStr(data interface{}) string {
	if k, ok := data.(lexer.Kind); ok {
		return k.String()
	}
	return fmt.Sprint(data)
}
