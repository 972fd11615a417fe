package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/vex-lang/vex/internal/source"
)

// stateFunc is the lexer's current scanning state, exactly the teacher's
// stateFunc type (src/frontend/lexer.go) generalized from VSL's token set
// to Vex's.
type stateFunc func(*Lexer) stateFunc

const eof = 0

// Lexer scans one source.File into a total Token stream: every byte of
// input produces either a well-formed token or an Error token, and the
// stream always terminates with an EOF token (spec.md §4.1's "lexing is
// single-pass and total").
type Lexer struct {
	file  source.FileID
	input string
	start int
	pos   int
	width int

	tokens []Token
}

// New constructs a Lexer over the given file id and text.
func New(file source.FileID, text string) *Lexer {
	return &Lexer{file: file, input: text}
}

// Lex runs the state machine to completion and returns every token,
// including a final EOF. Unlike the teacher's channel-driven l.run (which
// stops at the first lexical error), scanning never aborts: invalid bytes
// become Error tokens and the state machine resumes at the next rune, so a
// parser downstream can still produce partial diagnostics.
func Lex(file source.FileID, text string) []Token {
	l := New(file, text)
	for state := lexAny; state != nil; {
		state = state(l)
	}
	l.emit(EOF)
	return l.tokens
}

func (l *Lexer) span() source.Span {
	return source.Span{File: l.file, Start: l.start, Len: l.pos - l.start}
}

func (l *Lexer) emit(k Kind) {
	l.tokens = append(l.tokens, Token{Kind: k, Lexeme: l.input[l.start:l.pos], Span: l.span()})
	l.start = l.pos
}

func (l *Lexer) emitError(msg string) {
	l.tokens = append(l.tokens, Token{Kind: Error, Lexeme: msg, Span: l.span()})
	l.start = l.pos
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

func (l *Lexer) backup() {
	if l.pos > l.start {
		l.pos -= l.width
	}
}

func (l *Lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *Lexer) peekAt(offset int) rune {
	pos := l.pos
	for i := 0; i < offset; i++ {
		if pos >= len(l.input) {
			return eof
		}
		_, w := utf8.DecodeRuneInString(l.input[pos:])
		pos += w
	}
	if pos >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[pos:])
	return r
}

func (l *Lexer) ignore() { l.start = l.pos }

func (l *Lexer) accept(valid string) bool {
	if strings.ContainsRune(valid, l.next()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptRun(valid string) {
	for strings.ContainsRune(valid, l.next()) {
	}
	l.backup()
}

const (
	digits      = "0123456789"
	hexDigits   = "0123456789abcdefABCDEF"
	alphaStart  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_"
	alphaNumCh  = alphaStart + digits
	intSuffixes = "i8 i16 i32 i64 i128 u8 u16 u32 u64 u128"
)

// lexAny is the root state: skip whitespace/comments, then dispatch.
func lexAny(l *Lexer) stateFunc {
	r := l.next()
	switch {
	case r == eof:
		return nil
	case r == ' ' || r == '\t' || r == '\r' || r == '\n':
		l.ignore()
		return lexAny
	case r == '/' && l.peek() == '/':
		return lexLineComment
	case r == '/' && l.peek() == '*':
		return lexBlockComment
	case r == '"':
		return lexString
	case r == '\'':
		return lexChar
	case r >= '0' && r <= '9':
		l.backup()
		return lexNumber
	case strings.ContainsRune(alphaStart, r):
		l.backup()
		return lexIdentOrKeyword
	default:
		l.backup()
		return lexOperator
	}
}

func lexLineComment(l *Lexer) stateFunc {
	// l.pos sits just past the first '/'. A third '/' makes it a doc
	// comment, preserved as a token attached to the following item per
	// spec.md §4.1; plain `//` comments are skipped entirely.
	l.next() // consume second '/'
	doc := false
	if l.peek() == '/' {
		l.next()
		doc = true
	}
	for {
		r := l.next()
		if r == '\n' || r == eof {
			l.backup()
			break
		}
	}
	if doc {
		l.emit(DocComment)
	} else {
		l.ignore()
	}
	return lexAny
}

func lexBlockComment(l *Lexer) stateFunc {
	l.next() // consume '*'
	depth := 1
	for depth > 0 {
		r := l.next()
		if r == eof {
			l.emitError("unclosed block comment")
			return lexAny
		}
		if r == '/' && l.peek() == '*' {
			l.next()
			depth++
		} else if r == '*' && l.peek() == '/' {
			l.next()
			depth--
		}
	}
	l.ignore()
	return lexAny
}

func lexString(l *Lexer) stateFunc {
	for {
		r := l.next()
		if r == eof || r == '\n' {
			l.emitError("unclosed string literal")
			return lexAny
		}
		if r == '\\' {
			if !lexEscape(l) {
				l.emitError("invalid escape sequence in string literal")
				return lexAny
			}
			continue
		}
		if r == '"' {
			l.emit(StringLiteral)
			return lexAny
		}
	}
}

func lexChar(l *Lexer) stateFunc {
	r := l.next()
	if r == eof {
		l.emitError("unclosed char literal")
		return lexAny
	}
	if r == '\\' {
		if !lexEscape(l) {
			l.emitError("invalid escape sequence in char literal")
			return lexAny
		}
	}
	if l.next() != '\'' {
		l.emitError("unclosed char literal")
		return lexAny
	}
	l.emit(CharLiteral)
	return lexAny
}

// lexEscape consumes one escape sequence following a backslash already
// consumed by the caller, handling \n \t \r \\ \' \" \0 and \u{XXXX}.
func lexEscape(l *Lexer) bool {
	r := l.next()
	switch r {
	case 'n', 't', 'r', '\\', '\'', '"', '0':
		return true
	case 'u':
		if l.next() != '{' {
			return false
		}
		n := 0
		for strings.ContainsRune(hexDigits, l.peek()) {
			l.next()
			n++
		}
		if n == 0 || l.next() != '}' {
			return false
		}
		return true
	default:
		return false
	}
}

func lexNumber(l *Lexer) stateFunc {
	l.acceptRun(digits)
	isFloat := false
	if l.peek() == '.' && strings.ContainsRune(digits, l.peekAt(1)) {
		isFloat = true
		l.next()
		l.acceptRun(digits)
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		save := l.pos
		l.next()
		l.accept("+-")
		if strings.ContainsRune(digits, l.peek()) {
			isFloat = true
			l.acceptRun(digits)
		} else {
			l.pos = save
		}
	}
	// Optional numeric-literal suffix (spec.md §4.1).
	if strings.ContainsRune(alphaStart, l.peek()) {
		save := l.pos
		l.acceptRun(alphaNumCh)
		suffix := l.input[save:l.pos]
		if !validSuffix(suffix, isFloat) {
			l.pos = save // treat as a separate following identifier token
		}
	}
	if isFloat {
		l.emit(FloatLiteral)
	} else {
		l.emit(IntLiteral)
	}
	return lexAny
}

func validSuffix(s string, isFloat bool) bool {
	intSuf := map[string]bool{
		"i8": true, "i16": true, "i32": true, "i64": true, "i128": true,
		"u8": true, "u16": true, "u32": true, "u64": true, "u128": true,
	}
	floatSuf := map[string]bool{"f16": true, "f32": true, "f64": true}
	if isFloat {
		return floatSuf[s]
	}
	return intSuf[s] || floatSuf[s]
}

func lexIdentOrKeyword(l *Lexer) stateFunc {
	l.acceptRun(alphaNumCh)
	word := l.input[l.start:l.pos]
	if kind, ok := keywords[word]; ok {
		l.emit(kind)
		return lexAny
	}
	l.emit(Ident)
	return lexAny
}

// two-rune operator table, longest match first.
var twoRune = map[string]Kind{
	"==": EqEq, "!=": NotEq, "<=": LtEq, ">=": GtEq, "&&": AmpAmp,
	"||": PipePipe, "+=": PlusEq, "-=": MinusEq, "*=": StarEq,
	"/=": SlashEq, "=>": Arrow, "..": DotDot, "::": ColonColon,
	"->": ArrowLegacy, ":=": WalrusLegacy,
}

var oneRune = map[rune]Kind{
	'(': LParen, ')': RParen, '{': LBrace, '}': RBrace, '[': LBracket,
	']': RBracket, ',': Comma, ';': Semicolon, ':': Colon, '.': Dot,
	'?': Question, '@': At, '!': Bang, '&': Amp, '*': Star, '|': Pipe,
	'+': Plus, '-': Minus, '/': Slash, '%': Percent, '=': Eq, '<': Lt,
	'>': Gt,
}

func lexOperator(l *Lexer) stateFunc {
	r := l.next()
	if r2 := l.peek(); r2 != eof {
		two := string(r) + string(r2)
		if kind, ok := twoRune[two]; ok {
			l.next()
			l.emit(kind)
			return lexAny
		}
	}
	if kind, ok := oneRune[r]; ok {
		l.emit(kind)
		return lexAny
	}
	l.emitError("invalid byte")
	return lexAny
}
