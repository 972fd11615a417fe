package parser

import (
	"strconv"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/diag"
	"github.com/vex-lang/vex/internal/lexer"
)

// precedence table for the climber, binding tightest at the bottom. Vex
// desugars `a op b` to trait-method calls later in the type environment
// (spec.md §4.4); the parser only needs relative precedence.
var binPrec = map[lexer.Kind]int{
	lexer.PipePipe: 1,
	lexer.AmpAmp:   2,
	lexer.EqEq:     3, lexer.NotEq: 3,
	lexer.Lt: 4, lexer.Gt: 4, lexer.LtEq: 4, lexer.GtEq: 4,
	lexer.DotDot: 5,
	lexer.Pipe:   6,
	lexer.Amp:    7,
	lexer.Plus:   8, lexer.Minus: 8,
	lexer.Star: 9, lexer.Slash: 9, lexer.Percent: 9,
}

func (p *Parser) parseExpr() *ast.Node {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(minPrec int) *ast.Node {
	left := p.parseCast()
	for {
		kind := p.cur().Kind
		prec, ok := binPrec[kind]
		if !ok || prec < minPrec {
			return left
		}
		op := p.advance()
		right := p.parseBinary(prec + 1)
		if kind == lexer.DotDot {
			left = node(ast.RangeExpr, span2(left.Span, right.Span), nil, left, right)
			continue
		}
		left = node(ast.BinaryExpr, span2(left.Span, right.Span), op.Kind, left, right)
	}
}

// parseCast handles the `expr as Type` postfix form, which binds tighter
// than binary operators but looser than unary/postfix.
func (p *Parser) parseCast() *ast.Node {
	e := p.parseUnary()
	for p.at(lexer.KwAs) {
		p.advance()
		t := p.parseType()
		e = node(ast.CastExpr, span2(e.Span, t.Span), nil, e, t)
	}
	return e
}

func (p *Parser) parseUnary() *ast.Node {
	switch p.cur().Kind {
	case lexer.Minus, lexer.Bang:
		op := p.advance()
		e := p.parseUnary()
		return node(ast.UnaryExpr, span2(op.Span, e.Span), op.Kind, e)
	case lexer.Star:
		op := p.advance()
		e := p.parseUnary()
		return node(ast.DerefExpr, span2(op.Span, e.Span), nil, e)
	case lexer.Amp:
		op := p.advance()
		mutable := false
		e := p.parseUnary()
		if p.at(lexer.Bang) {
			p.advance()
			mutable = true
		}
		n := node(ast.ReferenceExpr, span2(op.Span, e.Span), nil, e)
		n.Mutable = mutable
		return n
	case lexer.KwAwait:
		op := p.advance()
		e := p.parseUnary()
		return node(ast.AwaitExpr, span2(op.Span, e.Span), nil, e)
	case lexer.KwGo:
		op := p.advance()
		e := p.parsePrimary()
		return node(ast.GoroutineExpr, span2(op.Span, e.Span), nil, e)
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() *ast.Node {
	e := p.parsePrimary()
	for {
		switch p.cur().Kind {
		case lexer.Dot:
			p.advance()
			name := p.expect(lexer.Ident)
			if p.at(lexer.LParen) {
				p.advance()
				args := p.parseArgList()
				end := p.expect(lexer.RParen)
				e = node(ast.MethodCallExpr, span2(e.Span, end.Span), name.Lexeme, e, args)
			} else {
				e = node(ast.FieldAccessExpr, span2(e.Span, name.Span), name.Lexeme, e)
			}
		case lexer.LBracket:
			p.advance()
			idx := p.parseExpr()
			end := p.expect(lexer.RBracket)
			e = node(ast.IndexExpr, span2(e.Span, end.Span), nil, e, idx)
		case lexer.LParen:
			p.advance()
			args := p.parseArgList()
			end := p.expect(lexer.RParen)
			e = node(ast.CallExpr, span2(e.Span, end.Span), nil, e, args)
		case lexer.Question:
			q := p.advance()
			e = node(ast.UnaryExpr, span2(e.Span, q.Span), lexer.Question, e)
		default:
			return e
		}
	}
}

func (p *Parser) parseArgList() *ast.Node {
	start := p.cur().Span
	var args []*ast.Node
	for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
		args = append(args, p.parseExpr())
		if p.at(lexer.Comma) {
			p.advance()
		} else {
			break
		}
	}
	return node(ast.ArgList, start, nil, args...)
}

func (p *Parser) parsePrimary() *ast.Node {
	p.skipTrivia()
	t := p.cur()
	switch t.Kind {
	case lexer.IntLiteral:
		p.advance()
		v, _ := strconv.ParseInt(trimIntSuffix(t.Lexeme), 10, 64)
		return node(ast.LiteralExpr, t.Span, ast.Lit{Kind: ast.LitInt, IVal: v, Text: t.Lexeme})
	case lexer.FloatLiteral:
		p.advance()
		v, _ := strconv.ParseFloat(trimFloatSuffix(t.Lexeme), 64)
		return node(ast.LiteralExpr, t.Span, ast.Lit{Kind: ast.LitFloat, FVal: v, Text: t.Lexeme})
	case lexer.StringLiteral:
		p.advance()
		return node(ast.LiteralExpr, t.Span, ast.Lit{Kind: ast.LitString, Text: unquote(t.Lexeme)})
	case lexer.CharLiteral:
		p.advance()
		return node(ast.LiteralExpr, t.Span, ast.Lit{Kind: ast.LitChar, Text: t.Lexeme})
	case lexer.KwTrue:
		p.advance()
		return node(ast.LiteralExpr, t.Span, ast.Lit{Kind: ast.LitBool, IVal: 1})
	case lexer.KwFalse:
		p.advance()
		return node(ast.LiteralExpr, t.Span, ast.Lit{Kind: ast.LitBool, IVal: 0})
	case lexer.Ident:
		return p.parseIdentOrPath()
	case lexer.LParen:
		return p.parseParenOrTuple()
	case lexer.LBracket:
		return p.parseArrayLit()
	case lexer.Pipe, lexer.PipePipe:
		return p.parseClosure()
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwMatch:
		return p.parseMatchExpr()
	case lexer.LBrace:
		return p.parseBlock()
	default:
		p.reportf(diag.EParseUnexpectedToken, t.Span, "unexpected token %q in expression", t.Lexeme)
		p.advance()
		return node(ast.LiteralExpr, t.Span, ast.Lit{Kind: ast.LitError})
	}
}

// parseMatchExpr parses `match subject { pattern [if guard] => arm, ... }`.
// It is shared by statement position (parseMatchStmt, stmt.go) and
// expression position (parsePrimary above) since Vex's match has one
// grammar used both ways, mirroring how IfStmt is reused for both.
func (p *Parser) parseMatchExpr() *ast.Node {
	start := p.advance().Span // 'match'
	subject := p.parseCondExpr()
	p.expect(lexer.LBrace)
	armsStart := p.cur().Span
	var arms []*ast.Node
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		p.skipTrivia()
		if p.at(lexer.RBrace) {
			break
		}
		pat := p.parsePattern()
		var guard *ast.Node
		if p.at(lexer.KwIf) {
			p.advance()
			guard = p.parseExpr()
		}
		p.expect(lexer.Arrow)
		body := p.parseExpr()
		armEnd := body.Span
		if p.at(lexer.Comma) {
			armEnd = p.advance().Span
		}
		arms = append(arms, node(ast.MatchArm, span2(pat.Span, armEnd), nil, pat, guard, body))
	}
	armsEnd := armsStart
	if len(arms) > 0 {
		armsEnd = arms[len(arms)-1].Span
	}
	armList := node(ast.MatchArmList, span2(armsStart, armsEnd), nil, arms...)
	end := p.expect(lexer.RBrace)
	return node(ast.MatchStmt, span2(start, end.Span), nil, subject, armList)
}

func (p *Parser) parseIdentOrPath() *ast.Node {
	first := p.advance()
	if p.at(lexer.Dot) && p.peekAt(1).Kind == lexer.Ident && isPathSegment(first.Lexeme) {
		// No separate path node is built: capitalised leading segments,
		// like plain lowercase receivers, fall through to field/method
		// postfix parsing in parsePostfix.
	}
	if p.at(lexer.LBrace) && p.structLitAllowed() {
		return p.parseStructLit(first)
	}
	return node(ast.IdentExpr, first.Span, first.Lexeme)
}

// structLitAllowed guards `Ident { ... }` so that `if cond { }` isn't
// misparsed as a struct literal named `cond`. The flag stays set for the
// whole condition expression, including inside parentheses.
func (p *Parser) structLitAllowed() bool {
	return !p.noStructLit
}

func (p *Parser) parseStructLit(name lexer.Token) *ast.Node {
	p.advance() // '{'
	var fields []*ast.Node
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		fname := p.expect(lexer.Ident)
		p.expect(lexer.Colon)
		val := p.parseExpr()
		fields = append(fields, node(ast.FieldList, span2(fname.Span, val.Span), fname.Lexeme, val))
		if p.at(lexer.Comma) {
			p.advance()
		}
	}
	end := p.expect(lexer.RBrace)
	return node(ast.StructLitExpr, span2(name.Span, end.Span), name.Lexeme, fields...)
}

func (p *Parser) parseParenOrTuple() *ast.Node {
	start := p.advance().Span // '('
	if p.at(lexer.RParen) {
		end := p.advance()
		return node(ast.TupleLitExpr, span2(start, end.Span), nil)
	}
	first := p.parseExpr()
	if p.at(lexer.Comma) {
		elems := []*ast.Node{first}
		for p.at(lexer.Comma) {
			p.advance()
			if p.at(lexer.RParen) {
				break
			}
			elems = append(elems, p.parseExpr())
		}
		end := p.expect(lexer.RParen)
		return node(ast.TupleLitExpr, span2(start, end.Span), nil, elems...)
	}
	end := p.expect(lexer.RParen)
	first.Span = span2(start, end.Span)
	return first
}

func (p *Parser) parseArrayLit() *ast.Node {
	start := p.advance().Span // '['
	var elems []*ast.Node
	for !p.at(lexer.RBracket) && !p.at(lexer.EOF) {
		elems = append(elems, p.parseExpr())
		if p.at(lexer.Comma) {
			p.advance()
		} else {
			break
		}
	}
	end := p.expect(lexer.RBracket)
	return node(ast.ArrayLitExpr, span2(start, end.Span), nil, elems...)
}

func (p *Parser) parseClosure() *ast.Node {
	start := p.cur().Span
	var params []*ast.Node
	if p.at(lexer.PipePipe) {
		p.advance() // no params, '||'
	} else {
		p.expect(lexer.Pipe)
		for !p.at(lexer.Pipe) && !p.at(lexer.EOF) {
			pname := p.expect(lexer.Ident)
			var ptyp *ast.Node
			if p.at(lexer.Colon) {
				p.advance()
				ptyp = p.parseType()
			}
			params = append(params, node(ast.ParamList, pname.Span, pname.Lexeme, ptyp))
			if p.at(lexer.Comma) {
				p.advance()
			}
		}
		p.expect(lexer.Pipe)
	}
	var ret *ast.Node
	if p.at(lexer.Colon) {
		p.advance()
		ret = p.parseType()
	}
	body := p.parseBlock()
	children := append([]*ast.Node{node(ast.ParamList, start, nil, params...), ret}, body)
	return node(ast.ClosureExpr, span2(start, body.Span), nil, children...)
}

// isPathSegment reports whether s looks like a module/namespace segment
// rather than a local variable (Vex convention: capitalised leading
// identifier), used only to bias ambiguous-looking parses; it never
// changes what the grammar accepts.
func isPathSegment(s string) bool {
	return len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z'
}

func trimIntSuffix(s string) string {
	for i, c := range s {
		if c == 'i' || c == 'u' {
			return s[:i]
		}
	}
	return s
}

func trimFloatSuffix(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == 'f' {
			return s[:i]
		}
	}
	return s
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
