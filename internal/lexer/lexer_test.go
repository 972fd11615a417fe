// Tests the lexer by verifying that a sample Vex snippet is tokenized into
// the expected (kind, lexeme) sequence, in the spirit of the teacher's
// TestLexer (src/frontend/lexer_test.go): a hand-captured slice of expected
// tokens compared in order against the scanner's output.
package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexBasicFunction(t *testing.T) {
	src := `fn main(): i32 { let x = 40; return x + 2; }`
	toks := Lex(1, src)

	require.Equal(t, []Kind{
		KwFn, Ident, LParen, RParen, Colon, Ident, LBrace,
		KwLet, Ident, Eq, IntLiteral, Semicolon,
		KwReturn, Ident, Plus, IntLiteral, Semicolon,
		RBrace, EOF,
	}, kinds(toks))
}

func TestLexMutabilityMarker(t *testing.T) {
	toks := Lex(1, `let! v = 0; v = v + 1;`)
	require.Equal(t, []Kind{
		KwLet, Bang, Ident, Eq, IntLiteral, Semicolon,
		Ident, Eq, Ident, Plus, IntLiteral, Semicolon, EOF,
	}, kinds(toks))
}

func TestLexReferenceForms(t *testing.T) {
	toks := Lex(1, `&x &x!`)
	require.Equal(t, []Kind{Amp, Ident, Amp, Ident, Bang, EOF}, kinds(toks))
}

func TestLexNumericSuffixes(t *testing.T) {
	toks := Lex(1, `1i64 2.5f32 3u8`)
	require.Len(t, toks, 4) // three literals + EOF
	require.Equal(t, IntLiteral, toks[0].Kind)
	require.Equal(t, "1i64", toks[0].Lexeme)
	require.Equal(t, FloatLiteral, toks[1].Kind)
	require.Equal(t, "2.5f32", toks[1].Lexeme)
	require.Equal(t, IntLiteral, toks[2].Kind)
	require.Equal(t, "3u8", toks[2].Lexeme)
}

func TestLexDocCommentPreserved(t *testing.T) {
	toks := Lex(1, "/// doc\nfn f() {}")
	require.Equal(t, DocComment, toks[0].Kind)
	require.Equal(t, KwFn, toks[1].Kind)
}

func TestLexPlainCommentsSkipped(t *testing.T) {
	toks := Lex(1, "// hi\nfn /* nested /* block */ comment */ f() {}")
	require.Equal(t, []Kind{KwFn, Ident, LParen, RParen, LBrace, RBrace, EOF}, kinds(toks))
}

func TestLexUnclosedStringIsErrorAndContinues(t *testing.T) {
	toks := Lex(1, "\"oops\nfn f() {}")
	require.Equal(t, Error, toks[0].Kind)
	// Scanning resumes after the error: the following function still lexes.
	require.Contains(t, kinds(toks), KwFn)
}

func TestLexDeprecatedFormsStillLex(t *testing.T) {
	// The lexer itself accepts these; rejection with a named replacement is
	// the parser's job (spec.md §4.2), so the lexer must not choke on them.
	toks := Lex(1, `mut x := 1; a::b x -> y interface I {}`)
	require.Equal(t, []Kind{
		KwMutLegacy, Ident, WalrusLegacy, IntLiteral, Semicolon,
		Ident, ColonColon, Ident, Ident, ArrowLegacy, Ident,
		KwInterfaceLegacy, Ident, LBrace, RBrace, EOF,
	}, kinds(toks))
}

func TestLexSpansAreByteAccurate(t *testing.T) {
	toks := Lex(1, "let x")
	require.Equal(t, 0, toks[0].Span.Start)
	require.Equal(t, 3, toks[0].Span.Len)
	require.Equal(t, 4, toks[1].Span.Start)
	require.Equal(t, 1, toks[1].Span.Len)
}
