// Package parser implements Vex's recursive-descent parser: one token of
// lookahead plus a precedence climber for expressions (expr.go).
//
// The teacher (hhramberg-go-vslc) parses with a generated goyacc/LALR
// grammar (src/frontend/parser-typed.y); spec.md §4.2 requires recursive
// descent instead, so this package is a hand-written replacement. What is
// kept from the teacher is the orchestration shape of src/frontend/tree.go
// (Parse(src) drives a lexer and builds an ast.Node tree, fails open by
// resynchronising and collecting diagnostics rather than aborting on the
// first error) and the ast.Node tree shape itself (src/ir/nodetype.go).
package parser

import (
	"fmt"

	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/diag"
	"github.com/vex-lang/vex/internal/lexer"
	"github.com/vex-lang/vex/internal/source"
)

// Parser holds the token cursor and the diagnostics bus for one file.
type Parser struct {
	file       source.FileID
	toks       []lexer.Token
	pos        int
	bus        *diag.Bus
	pendingDoc string

	// noStructLit suppresses `Ident { ... }` parsing as a struct literal
	// while parsing a condition expression (if/while/for/match), so the
	// opening brace is read as the start of the body instead.
	noStructLit bool
}

// Parse tokenizes and parses one source file into a Program node. Parsing
// never fails outright: on a syntax error it reports a diagnostic and
// resynchronises at the next statement terminator, exactly as spec.md
// §4.2 requires, so the caller always receives a best-effort tree.
func Parse(file source.FileID, text string, bus *diag.Bus) *ast.Node {
	p := &Parser{file: file, toks: lexer.Lex(file, text), bus: bus}
	return p.parseProgram()
}

// --- cursor helpers ---------------------------------------------------

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) lexer.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[i]
}

func (p *Parser) at(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// skipTrivia advances over Error tokens (reporting them) and
// DocComment tokens (stashing the most recent one for the next item), the
// way the lexer's total-error-recovery contract expects its consumer to
// behave.
func (p *Parser) skipTrivia() {
	for {
		switch p.cur().Kind {
		case lexer.Error:
			t := p.advance()
			p.report(diag.ELexInvalidByte, t.Span, t.Lexeme)
		case lexer.DocComment:
			t := p.advance()
			p.pendingDoc = t.Lexeme
		default:
			return
		}
	}
}

func (p *Parser) takeDoc() string {
	d := p.pendingDoc
	p.pendingDoc = ""
	return d
}

// expect consumes a token of kind k, or reports E1011 and returns a
// synthetic token of kind k without advancing; resynchronisation is left
// to the caller (see synchronize).
func (p *Parser) expect(k lexer.Kind) lexer.Token {
	p.skipTrivia()
	if p.cur().Kind != k {
		p.reportf(diag.EParseExpected, p.cur().Span, "expected %s, got %q", k, p.cur().Lexeme)
		return lexer.Token{Kind: k, Span: p.cur().Span}
	}
	return p.advance()
}

func (p *Parser) report(code diag.Code, sp source.Span, msg string) {
	p.bus.Report(diag.New(code, diag.SeverityError, diag.PhaseParse, sp, msg))
}

func (p *Parser) reportf(code diag.Code, sp source.Span, format string, args ...interface{}) {
	p.report(code, sp, fmt.Sprintf(format, args...))
}

// synchronize skips tokens until the next statement terminator (`;`, `}`,
// or a top-level keyword), matching spec.md §4.2's resynchronisation rule.
func (p *Parser) synchronize() {
	for {
		switch p.cur().Kind {
		case lexer.EOF, lexer.Semicolon, lexer.RBrace:
			if p.cur().Kind == lexer.Semicolon {
				p.advance()
			}
			return
		case lexer.KwFn, lexer.KwStruct, lexer.KwEnum, lexer.KwTrait,
			lexer.KwImpl, lexer.KwImport, lexer.KwExport, lexer.KwConst:
			return
		default:
			p.advance()
		}
	}
}

// rejectDeprecated reports the named deprecated-syntax diagnostics from
// spec.md §4.2 when the current token is one of the rejected legacy forms.
// Returns true if a deprecated form was consumed (and an error reported).
func (p *Parser) rejectDeprecated() bool {
	t := p.cur()
	switch t.Kind {
	case lexer.KwMutLegacy:
		p.advance()
		p.reportf(diag.EParseDeprecatedMut, t.Span, "`mut x` is no longer supported; use `let!` to declare a mutable binding")
		return true
	case lexer.ColonColon:
		p.advance()
		p.reportf(diag.EParseDeprecatedColonColn, t.Span, "`X::Y` is no longer supported for member access; use `.`")
		return true
	case lexer.ArrowLegacy:
		p.advance()
		p.reportf(diag.EParseDeprecatedArrow, t.Span, "`->` is no longer supported as a return-type arrow; use `:`")
		return true
	case lexer.WalrusLegacy:
		p.advance()
		p.reportf(diag.EParseDeprecatedWalrus, t.Span, "`:=` is no longer supported; use `let`")
		return true
	case lexer.KwInterfaceLegacy:
		p.advance()
		p.reportf(diag.EParseDeprecatedInterface, t.Span, "`interface` is no longer supported; use `trait`")
		return true
	}
	return false
}

// parseCondExpr parses an expression in a position immediately followed by
// a `{` block (if/while/for/match heads), where `Ident {` must be read as
// the block's opening brace rather than a struct literal.
func (p *Parser) parseCondExpr() *ast.Node {
	prev := p.noStructLit
	p.noStructLit = true
	e := p.parseExpr()
	p.noStructLit = prev
	return e
}

func node(typ ast.NodeType, sp source.Span, data interface{}, children ...*ast.Node) *ast.Node {
	return ast.NewNode(typ, sp, data, children...)
}

func span2(a, b source.Span) source.Span { return source.Join(a, b) }

// --- program & items ---------------------------------------------------

func (p *Parser) parseProgram() *ast.Node {
	start := p.cur().Span
	var items []*ast.Node
	for {
		p.skipTrivia()
		if p.at(lexer.EOF) {
			break
		}
		if it := p.parseItem(); it != nil {
			items = append(items, it)
		} else {
			p.synchronize()
		}
	}
	end := start
	if len(items) > 0 {
		end = items[len(items)-1].Span
	}
	return node(ast.Program, span2(start, end), nil, items...)
}

func (p *Parser) parseAttributes() []*ast.Node {
	var attrs []*ast.Node
	for p.at(lexer.At) {
		start := p.advance().Span
		name := p.expect(lexer.Ident)
		var args []*ast.Node
		if p.at(lexer.LParen) {
			p.advance()
			for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
				args = append(args, p.parseExpr())
				if p.at(lexer.Comma) {
					p.advance()
				}
			}
			p.expect(lexer.RParen)
		}
		attrs = append(attrs, node(ast.Attribute, span2(start, name.Span), name.Lexeme, args...))
	}
	return attrs
}

func (p *Parser) parseItem() *ast.Node {
	p.skipTrivia()
	doc := p.takeDoc()
	attrs := p.parseAttributes()
	p.skipTrivia()

	if p.rejectDeprecated() {
		return nil
	}

	var it *ast.Node
	switch p.cur().Kind {
	case lexer.KwFn:
		it = p.parseFunction()
	case lexer.KwStruct:
		it = p.parseStruct()
	case lexer.KwEnum:
		it = p.parseEnum()
	case lexer.KwTrait:
		it = p.parseTrait()
	case lexer.KwImpl:
		it = p.parseImpl()
	case lexer.KwConst:
		it = p.parseConst()
	case lexer.KwImport:
		it = p.parseImport()
	case lexer.KwExport:
		it = p.parseExport()
	default:
		t := p.cur()
		p.reportf(diag.EParseUnexpectedToken, t.Span, "unexpected token %q at top level", t.Lexeme)
		return nil
	}
	if it != nil {
		it.Doc = doc
		it.Attrs = attrs
	}
	return it
}

func (p *Parser) parseFunction() *ast.Node {
	start := p.advance().Span // 'fn'
	name := p.expect(lexer.Ident)
	p.expect(lexer.LParen)
	params := p.parseParamList()
	p.expect(lexer.RParen)

	var ret *ast.Node
	if p.at(lexer.Colon) {
		p.advance()
		ret = p.parseType()
	} else {
		ret = node(ast.PrimitiveType, name.Span, "void")
	}
	body := p.parseBlock()
	return node(ast.FunctionDecl, span2(start, body.Span), name.Lexeme, params, ret, body)
}

func (p *Parser) parseParamList() *ast.Node {
	start := p.cur().Span
	var params []*ast.Node
	for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
		mutable := false
		pname := p.expect(lexer.Ident)
		if p.at(lexer.Bang) {
			p.advance()
			mutable = true
		}
		p.expect(lexer.Colon)
		typ := p.parseType()
		n := node(ast.ParamList, span2(pname.Span, typ.Span), pname.Lexeme, typ)
		n.Mutable = mutable
		params = append(params, n)
		if p.at(lexer.Comma) {
			p.advance()
		} else {
			break
		}
	}
	return node(ast.ParamList, start, nil, params...)
}

func (p *Parser) parseStruct() *ast.Node {
	start := p.advance().Span
	name := p.expect(lexer.Ident)
	generics := p.tryParseGenerics()
	p.expect(lexer.LBrace)
	var fields []*ast.Node
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		p.skipTrivia()
		fname := p.expect(lexer.Ident)
		p.expect(lexer.Colon)
		ftyp := p.parseType()
		fields = append(fields, node(ast.FieldList, span2(fname.Span, ftyp.Span), fname.Lexeme, ftyp))
		if p.at(lexer.Comma) {
			p.advance()
		}
	}
	end := p.expect(lexer.RBrace)
	return node(ast.StructDecl, span2(start, end.Span), name.Lexeme, append([]*ast.Node{generics}, fields...)...)
}

func (p *Parser) parseEnum() *ast.Node {
	start := p.advance().Span
	name := p.expect(lexer.Ident)
	generics := p.tryParseGenerics()
	p.expect(lexer.LBrace)
	var variants []*ast.Node
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		p.skipTrivia()
		vname := p.expect(lexer.Ident)
		var payload []*ast.Node
		vend := vname.Span
		if p.at(lexer.LParen) {
			p.advance()
			for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
				t := p.parseType()
				payload = append(payload, t)
				if p.at(lexer.Comma) {
					p.advance()
				}
			}
			vend = p.expect(lexer.RParen).Span
		}
		variants = append(variants, node(ast.EnumVariantPattern, span2(vname.Span, vend), vname.Lexeme, payload...))
		if p.at(lexer.Comma) {
			p.advance()
		}
	}
	end := p.expect(lexer.RBrace)
	return node(ast.EnumDecl, span2(start, end.Span), name.Lexeme, append([]*ast.Node{generics}, variants...)...)
}

func (p *Parser) parseTrait() *ast.Node {
	start := p.advance().Span
	name := p.expect(lexer.Ident)
	p.expect(lexer.LBrace)
	var methods []*ast.Node
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		p.skipTrivia()
		if p.at(lexer.KwFn) {
			methods = append(methods, p.parseFunctionSignatureOrDecl())
		} else {
			p.synchronize()
		}
	}
	end := p.expect(lexer.RBrace)
	return node(ast.TraitDecl, span2(start, end.Span), name.Lexeme, methods...)
}

// parseFunctionSignatureOrDecl parses `fn name(params): Ret;` (trait
// signature, no body) or a full function declaration with a body.
func (p *Parser) parseFunctionSignatureOrDecl() *ast.Node {
	start := p.advance().Span
	name := p.expect(lexer.Ident)
	p.expect(lexer.LParen)
	params := p.parseParamList()
	p.expect(lexer.RParen)
	var ret *ast.Node
	if p.at(lexer.Colon) {
		p.advance()
		ret = p.parseType()
	} else {
		ret = node(ast.PrimitiveType, name.Span, "void")
	}
	if p.at(lexer.Semicolon) {
		end := p.advance()
		return node(ast.FunctionDecl, span2(start, end.Span), name.Lexeme, params, ret)
	}
	body := p.parseBlock()
	return node(ast.FunctionDecl, span2(start, body.Span), name.Lexeme, params, ret, body)
}

func (p *Parser) parseImpl() *ast.Node {
	start := p.advance().Span
	first := p.parseType()
	var traitType, forType *ast.Node
	if p.at(lexer.KwFor) {
		p.advance()
		traitType = first
		forType = p.parseType()
	} else {
		forType = first
	}
	p.expect(lexer.LBrace)
	var methods []*ast.Node
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		p.skipTrivia()
		if p.at(lexer.KwFn) {
			methods = append(methods, p.parseFunction())
		} else {
			p.synchronize()
		}
	}
	end := p.expect(lexer.RBrace)
	children := []*ast.Node{traitType, forType}
	children = append(children, methods...)
	return node(ast.ImplDecl, span2(start, end.Span), nil, children...)
}

func (p *Parser) parseConst() *ast.Node {
	start := p.advance().Span
	name := p.expect(lexer.Ident)
	var typ *ast.Node
	if p.at(lexer.Colon) {
		p.advance()
		typ = p.parseType()
	}
	p.expect(lexer.Eq)
	val := p.parseExpr()
	end := p.expect(lexer.Semicolon)
	return node(ast.ConstDecl, span2(start, end.Span), name.Lexeme, typ, val)
}

func (p *Parser) parseImportList() []*ast.Node {
	var names []*ast.Node
	p.expect(lexer.LBrace)
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		t := p.expect(lexer.Ident)
		names = append(names, node(ast.IdentExpr, t.Span, t.Lexeme))
		if p.at(lexer.Comma) {
			p.advance()
		}
	}
	p.expect(lexer.RBrace)
	return names
}

func (p *Parser) parseImport() *ast.Node {
	start := p.advance().Span
	names := p.parseImportList()
	p.expect(lexer.KwFrom)
	path := p.expect(lexer.StringLiteral)
	end := p.expect(lexer.Semicolon)
	return node(ast.ImportDecl, span2(start, end.Span), path.Lexeme, names...)
}

func (p *Parser) parseExport() *ast.Node {
	start := p.advance().Span
	if p.at(lexer.LBrace) {
		names := p.parseImportList()
		if p.at(lexer.KwFrom) {
			p.advance()
			path := p.expect(lexer.StringLiteral)
			end := p.expect(lexer.Semicolon)
			return node(ast.ExportDecl, span2(start, end.Span), path.Lexeme, names...)
		}
		end := p.expect(lexer.Semicolon)
		return node(ast.ExportDecl, span2(start, end.Span), nil, names...)
	}
	// `export fn ...` / `export struct ...` re-uses the item grammar.
	it := p.parseItem()
	if it == nil {
		return nil
	}
	return node(ast.ExportDecl, span2(start, it.Span), nil, it)
}

func (p *Parser) tryParseGenerics() *ast.Node {
	if !p.at(lexer.Lt) {
		return node(ast.GenericList, p.cur().Span, nil)
	}
	start := p.advance().Span
	var params []*ast.Node
	for !p.at(lexer.Gt) && !p.at(lexer.EOF) {
		name := p.expect(lexer.Ident)
		var bounds []string
		if p.at(lexer.Colon) {
			p.advance()
			bounds = append(bounds, p.expect(lexer.Ident).Lexeme)
			for p.at(lexer.Plus) {
				p.advance()
				bounds = append(bounds, p.expect(lexer.Ident).Lexeme)
			}
		}
		params = append(params, node(ast.GenericType, name.Span, ast.GenericData{Name: name.Lexeme, Bounds: bounds}))
		if p.at(lexer.Comma) {
			p.advance()
		}
	}
	end := p.expect(lexer.Gt)
	return node(ast.GenericList, span2(start, end.Span), nil, params...)
}
