package parser

import (
	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/lexer"
)

var primitiveTypeNames = map[string]bool{
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true,
	"f16": true, "f32": true, "f64": true,
	"bool": true, "char": true, "str": true, "void": true,
}

// parseType parses the Type grammar from spec.md §3: primitives, named
// types (with optional generic arguments), references, pointers, arrays,
// slices, tuples and function types.
func (p *Parser) parseType() *ast.Node {
	switch p.cur().Kind {
	case lexer.Amp:
		start := p.advance().Span
		mutable := false
		if p.at(lexer.Bang) {
			p.advance()
			mutable = true
		}
		inner := p.parseType()
		n := node(ast.ReferenceType, span2(start, inner.Span), nil, inner)
		n.Mutable = mutable
		return n
	case lexer.Star:
		start := p.advance().Span
		inner := p.parseType()
		return node(ast.PointerType, span2(start, inner.Span), nil, inner)
	case lexer.LBracket:
		return p.parseArrayOrSliceType()
	case lexer.LParen:
		return p.parseTupleOrFnType()
	case lexer.Ident:
		return p.parseNamedOrPrimitiveType()
	default:
		t := p.cur()
		p.reportf(diagUnexpectedToken, t.Span, "expected a type, got %q", t.Lexeme)
		return node(ast.PrimitiveType, t.Span, "void")
	}
}

func (p *Parser) parseArrayOrSliceType() *ast.Node {
	start := p.advance().Span // '['
	elem := p.parseType()
	if p.at(lexer.Semicolon) {
		p.advance()
		lenTok := p.expect(lexer.IntLiteral)
		end := p.expect(lexer.RBracket)
		return node(ast.ArrayType, span2(start, end.Span), lenTok.Lexeme, elem)
	}
	end := p.expect(lexer.RBracket)
	return node(ast.SliceType, span2(start, end.Span), nil, elem)
}

// parseTupleOrFnType disambiguates `(T1, T2)` (tuple type) from
// `(T1, T2): Ret` (function type), which share the same parenthesised
// prefix.
func (p *Parser) parseTupleOrFnType() *ast.Node {
	start := p.advance().Span // '('
	var elems []*ast.Node
	for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
		elems = append(elems, p.parseType())
		if p.at(lexer.Comma) {
			p.advance()
		} else {
			break
		}
	}
	end := p.expect(lexer.RParen)
	if p.at(lexer.Colon) {
		p.advance()
		ret := p.parseType()
		return node(ast.FunctionType, span2(start, ret.Span), nil, append(elems, ret)...)
	}
	return node(ast.TupleType, span2(start, end.Span), nil, elems...)
}

func (p *Parser) parseNamedOrPrimitiveType() *ast.Node {
	name := p.advance()
	if primitiveTypeNames[name.Lexeme] {
		return node(ast.PrimitiveType, name.Span, name.Lexeme)
	}
	end := name.Span
	var args []*ast.Node
	if p.at(lexer.Lt) {
		p.advance()
		for !p.at(lexer.Gt) && !p.at(lexer.EOF) {
			args = append(args, p.parseType())
			if p.at(lexer.Comma) {
				p.advance()
			}
		}
		end = p.expect(lexer.Gt).Span
	}
	return node(ast.NamedType, span2(name.Span, end), name.Lexeme, args...)
}
