package parser

import (
	"github.com/vex-lang/vex/internal/ast"
	"github.com/vex-lang/vex/internal/lexer"
)

func (p *Parser) parseBlock() *ast.Node {
	start := p.expect(lexer.LBrace).Span
	var stmts []*ast.Node
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		p.skipTrivia()
		if p.at(lexer.RBrace) {
			break
		}
		if s := p.parseStatement(); s != nil {
			stmts = append(stmts, s)
		} else {
			p.synchronize()
		}
	}
	end := p.expect(lexer.RBrace)
	return node(ast.BlockStmt, span2(start, end.Span), nil, stmts...)
}

func (p *Parser) parseStatement() *ast.Node {
	p.skipTrivia()
	if p.rejectDeprecated() {
		return nil
	}
	switch p.cur().Kind {
	case lexer.KwLet:
		return p.parseLet()
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwWhile:
		return p.parseWhile()
	case lexer.KwFor:
		return p.parseFor()
	case lexer.KwLoop:
		return p.parseLoop()
	case lexer.KwMatch:
		return p.parseMatchStmt()
	case lexer.KwReturn:
		return p.parseReturn()
	case lexer.KwBreak:
		t := p.advance()
		end := p.expect(lexer.Semicolon)
		return node(ast.BreakStmt, span2(t.Span, end.Span), nil)
	case lexer.KwContinue:
		t := p.advance()
		end := p.expect(lexer.Semicolon)
		return node(ast.ContinueStmt, span2(t.Span, end.Span), nil)
	case lexer.KwDefer:
		t := p.advance()
		e := p.parseExpr()
		end := p.expect(lexer.Semicolon)
		return node(ast.DeferStmt, span2(t.Span, end.Span), nil, e)
	case lexer.LBrace:
		return p.parseBlock()
	default:
		return p.parseExprOrAssignStatement()
	}
}

func (p *Parser) parseLet() *ast.Node {
	start := p.advance().Span // 'let'
	mutable := false
	if p.at(lexer.Bang) {
		p.advance()
		mutable = true
	}
	pat := p.parsePattern()
	var typ *ast.Node
	if p.at(lexer.Colon) {
		p.advance()
		typ = p.parseType()
	}
	p.expect(lexer.Eq)
	val := p.parseExpr()
	end := p.expect(lexer.Semicolon)
	n := node(ast.LetStmt, span2(start, end.Span), nil, pat, typ, val)
	n.Mutable = mutable
	return n
}

func (p *Parser) parseExprOrAssignStatement() *ast.Node {
	start := p.cur().Span
	lhs := p.parseExpr()
	switch p.cur().Kind {
	case lexer.Eq, lexer.PlusEq, lexer.MinusEq, lexer.StarEq, lexer.SlashEq:
		op := p.advance()
		rhs := p.parseExpr()
		end := p.expect(lexer.Semicolon)
		return node(ast.AssignStmt, span2(start, end.Span), op.Kind, lhs, rhs)
	default:
		end := p.expect(lexer.Semicolon)
		return node(ast.ExprStmt, span2(start, end.Span), nil, lhs)
	}
}

func (p *Parser) parseIf() *ast.Node {
	start := p.advance().Span // 'if'
	cond := p.parseCondExpr()
	then := p.parseBlock()
	if p.at(lexer.KwElse) {
		p.advance()
		var elseBranch *ast.Node
		if p.at(lexer.KwIf) {
			elseBranch = p.parseIf()
		} else {
			elseBranch = p.parseBlock()
		}
		return node(ast.IfStmt, span2(start, elseBranch.Span), nil, cond, then, elseBranch)
	}
	return node(ast.IfStmt, span2(start, then.Span), nil, cond, then)
}

func (p *Parser) parseWhile() *ast.Node {
	start := p.advance().Span
	cond := p.parseCondExpr()
	body := p.parseBlock()
	return node(ast.WhileStmt, span2(start, body.Span), nil, cond, body)
}

func (p *Parser) parseFor() *ast.Node {
	start := p.advance().Span
	pat := p.parsePattern()
	p.expect(lexer.KwIn)
	iter := p.parseCondExpr()
	body := p.parseBlock()
	return node(ast.ForStmt, span2(start, body.Span), nil, pat, iter, body)
}

func (p *Parser) parseLoop() *ast.Node {
	start := p.advance().Span
	body := p.parseBlock()
	return node(ast.LoopStmt, span2(start, body.Span), nil, body)
}

func (p *Parser) parseReturn() *ast.Node {
	start := p.advance().Span
	if p.at(lexer.Semicolon) {
		end := p.advance()
		return node(ast.ReturnStmt, span2(start, end.Span), nil)
	}
	val := p.parseExpr()
	end := p.expect(lexer.Semicolon)
	return node(ast.ReturnStmt, span2(start, end.Span), nil, val)
}

func (p *Parser) parseMatchStmt() *ast.Node {
	m := p.parseMatchExpr()
	return node(ast.ExprStmt, m.Span, nil, m)
}
