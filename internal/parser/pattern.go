package parser

import (
	"strconv"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/diag"
	"github.com/vex-lang/vex/internal/lexer"
)

const diagUnexpectedToken = diag.EParseUnexpectedToken

// parsePattern parses the pattern grammar from spec.md §3 (Pattern):
// wildcard, binding, literal, tuple, struct, enum-variant, or-pattern and
// range-pattern, with `|` binding loosest so `A | B | C` reads as one flat
// OrPattern rather than a right-leaning chain.
func (p *Parser) parsePattern() *ast.Node {
	first := p.parsePatternPrimary()
	if !p.at(lexer.Pipe) {
		return first
	}
	alts := []*ast.Node{first}
	for p.at(lexer.Pipe) {
		p.advance()
		alts = append(alts, p.parsePatternPrimary())
	}
	return node(ast.OrPattern, span2(alts[0].Span, alts[len(alts)-1].Span), nil, alts...)
}

func (p *Parser) parsePatternPrimary() *ast.Node {
	t := p.cur()
	switch t.Kind {
	case lexer.Ident:
		if t.Lexeme == "_" {
			p.advance()
			return node(ast.WildcardPattern, t.Span, nil)
		}
		return p.parseNamedPattern()
	case lexer.IntLiteral, lexer.FloatLiteral, lexer.StringLiteral, lexer.CharLiteral, lexer.KwTrue, lexer.KwFalse, lexer.Minus:
		return p.parseLiteralOrRangePattern()
	case lexer.LParen:
		return p.parseTuplePattern()
	default:
		p.reportf(diagUnexpectedToken, t.Span, "unexpected token %q in pattern", t.Lexeme)
		p.advance()
		return node(ast.WildcardPattern, t.Span, nil)
	}
}

// parseNamedPattern disambiguates a bare binding (`x`), a struct pattern
// (`Point { x, y }`), and an enum-variant pattern (`Some(x)`).
func (p *Parser) parseNamedPattern() *ast.Node {
	name := p.advance()
	switch p.cur().Kind {
	case lexer.LBrace:
		p.advance()
		var fields []*ast.Node
		for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
			fname := p.expect(lexer.Ident)
			var sub *ast.Node
			if p.at(lexer.Colon) {
				p.advance()
				sub = p.parsePattern()
			} else {
				sub = node(ast.BindingPattern, fname.Span, fname.Lexeme)
			}
			fields = append(fields, node(ast.FieldList, span2(fname.Span, sub.Span), fname.Lexeme, sub))
			if p.at(lexer.Comma) {
				p.advance()
			}
		}
		end := p.expect(lexer.RBrace)
		return node(ast.StructPattern, span2(name.Span, end.Span), name.Lexeme, fields...)
	case lexer.LParen:
		p.advance()
		var elems []*ast.Node
		for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
			elems = append(elems, p.parsePattern())
			if p.at(lexer.Comma) {
				p.advance()
			}
		}
		end := p.expect(lexer.RParen)
		return node(ast.EnumVariantPattern, span2(name.Span, end.Span), name.Lexeme, elems...)
	default:
		return node(ast.BindingPattern, name.Span, name.Lexeme)
	}
}

func (p *Parser) parseLiteralOrRangePattern() *ast.Node {
	lit := p.parsePatternLiteral()
	if p.at(lexer.DotDot) {
		p.advance()
		hi := p.parsePatternLiteral()
		return node(ast.RangePattern, span2(lit.Span, hi.Span), nil, lit, hi)
	}
	return lit
}

func (p *Parser) parsePatternLiteral() *ast.Node {
	neg := false
	start := p.cur().Span
	if p.at(lexer.Minus) {
		p.advance()
		neg = true
	}
	t := p.advance()
	var lit ast.Lit
	switch t.Kind {
	case lexer.IntLiteral:
		v, _ := strconv.ParseInt(trimIntSuffix(t.Lexeme), 10, 64)
		if neg {
			v = -v
		}
		lit = ast.Lit{Kind: ast.LitInt, IVal: v, Text: t.Lexeme}
	case lexer.FloatLiteral:
		v, _ := strconv.ParseFloat(trimFloatSuffix(t.Lexeme), 64)
		if neg {
			v = -v
		}
		lit = ast.Lit{Kind: ast.LitFloat, FVal: v, Text: t.Lexeme}
	case lexer.StringLiteral:
		lit = ast.Lit{Kind: ast.LitString, Text: unquote(t.Lexeme)}
	case lexer.CharLiteral:
		lit = ast.Lit{Kind: ast.LitChar, Text: t.Lexeme}
	case lexer.KwTrue:
		lit = ast.Lit{Kind: ast.LitBool, IVal: 1}
	case lexer.KwFalse:
		lit = ast.Lit{Kind: ast.LitBool, IVal: 0}
	default:
		p.reportf(diagUnexpectedToken, t.Span, "expected a literal pattern, got %q", t.Lexeme)
		lit = ast.Lit{Kind: ast.LitError}
	}
	return node(ast.LiteralPattern, span2(start, t.Span), lit)
}

func (p *Parser) parseTuplePattern() *ast.Node {
	start := p.advance().Span // '('
	var elems []*ast.Node
	for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
		elems = append(elems, p.parsePattern())
		if p.at(lexer.Comma) {
			p.advance()
		} else {
			break
		}
	}
	end := p.expect(lexer.RParen)
	return node(ast.TuplePattern, span2(start, end.Span), nil, elems...)
}
