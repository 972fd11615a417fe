// Package lexer turns a byte stream into a stream of Tokens. It is a direct
// generalization of the teacher's Rob-Pike-style scanner
// (src/frontend/lexer.go, src/frontend/lexerStates.go): a stateFunc-driven
// lexer struct with next/backup/peek/accept/acceptRun primitives. Unlike
// the teacher, Lex collects every token into a slice and returns it; no
// channel or goroutine is involved. Two further differences, both required by spec.md
// §4.1: tokens stay alive on an invalid byte (an Error token is emitted and
// scanning continues, rather than lex.run aborting), and positions are
// tracked as byte spans rather than (line, column) pairs so the pretty
// printer can recover exact source slices.
package lexer

import "github.com/vex-lang/vex/internal/source"

// Kind differentiates token classes.
type Kind int

const (
	EOF Kind = iota
	Error

	Ident
	IntLiteral
	FloatLiteral
	StringLiteral
	CharLiteral
	DocComment

	// Keywords.
	KwFn
	KwStruct
	KwEnum
	KwTrait
	KwImpl
	KwLet
	KwConst
	KwIf
	KwElse
	KwMatch
	KwFor
	KwIn
	KwWhile
	KwLoop
	KwReturn
	KwBreak
	KwContinue
	KwImport
	KwExport
	KwFrom
	KwAs
	KwDefer
	KwAsync
	KwAwait
	KwGo
	KwTrue
	KwFalse

	// Punctuation & operators.
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semicolon
	Colon
	Dot
	DotDot
	Question
	Arrow // '=>' used by match arms, distinct from the rejected '->'
	At    // '@' attribute prefix
	Bang  // '!' mutability suffix
	Amp   // '&'
	Star  // '*'
	Pipe
	PipePipe
	AmpAmp
	Plus
	Minus
	Slash
	Percent
	Eq // '=' assignment
	EqEq
	NotEq
	Lt
	Gt
	LtEq
	GtEq
	PlusEq
	MinusEq
	StarEq
	SlashEq

	// Explicitly-rejected legacy forms (spec.md §4.2), still lexed so the
	// parser can name the exact replacement in its diagnostic.
	KwMutLegacy
	ColonColon
	ArrowLegacy
	WalrusLegacy
	KwInterfaceLegacy
)

var names = map[Kind]string{
	EOF: "EOF", Error: "ERROR", Ident: "IDENT", IntLiteral: "INT",
	FloatLiteral: "FLOAT", StringLiteral: "STRING", CharLiteral: "CHAR",
	DocComment: "DOC_COMMENT",
	KwFn: "fn", KwStruct: "struct", KwEnum: "enum", KwTrait: "trait",
	KwImpl: "impl", KwLet: "let", KwConst: "const", KwIf: "if",
	KwElse: "else", KwMatch: "match", KwFor: "for", KwWhile: "while",
	KwLoop: "loop", KwReturn: "return", KwBreak: "break",
	KwContinue: "continue", KwImport: "import", KwExport: "export",
	KwIn: "in",
	KwFrom: "from", KwAs: "as", KwDefer: "defer", KwAsync: "async",
	KwAwait: "await", KwGo: "go", KwTrue: "true", KwFalse: "false",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[",
	RBracket: "]", Comma: ",", Semicolon: ";", Colon: ":", Dot: ".",
	DotDot: "..", Question: "?", Arrow: "=>", At: "@", Bang: "!", Amp: "&",
	Star: "*", Pipe: "|", PipePipe: "||", AmpAmp: "&&", Plus: "+",
	Minus: "-", Slash: "/", Percent: "%", Eq: "=", EqEq: "==", NotEq: "!=",
	Lt: "<", Gt: ">", LtEq: "<=", GtEq: ">=", PlusEq: "+=",
	MinusEq: "-=", StarEq: "*=", SlashEq: "/=",
	KwMutLegacy: "mut", ColonColon: "::", ArrowLegacy: "->",
	WalrusLegacy: ":=", KwInterfaceLegacy: "interface",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "UNKNOWN"
}

var keywords = map[string]Kind{
	"fn": KwFn, "struct": KwStruct, "enum": KwEnum, "trait": KwTrait,
	"impl": KwImpl, "let": KwLet, "const": KwConst, "if": KwIf,
	"else": KwElse, "match": KwMatch, "for": KwFor, "while": KwWhile,
	"loop": KwLoop, "in": KwIn, "return": KwReturn, "break": KwBreak,
	"continue": KwContinue, "import": KwImport, "export": KwExport,
	"from": KwFrom, "as": KwAs, "defer": KwDefer, "async": KwAsync,
	"await": KwAwait, "go": KwGo, "true": KwTrue, "false": KwFalse,
	"mut": KwMutLegacy, "interface": KwInterfaceLegacy,
}

// Token is the lexeme plus its span, mirroring the teacher's item type
// (src/frontend/lexer.go) but carrying a byte source.Span instead of a
// (line, pos-on-line) pair.
type Token struct {
	Kind    Kind
	Lexeme  string
	Span    source.Span
	Mutable bool // never set by Lex: a '!' marker (let!/&x!) is always emitted as its own Bang token
}
