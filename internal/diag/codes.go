// Package diag implements the compiler's diagnostics bus: every phase
// (lexer, parser, module resolver, type environment, borrow checker,
// codegen) reports Diagnostic values here instead of returning bare errors,
// so the driver can collect as many diagnostics as possible in one run.
//
// The error-code taxonomy and the JSON wire shape are modeled on
// sunholo-data-ailang's internal/errors package (Report/ReportError with a
// schema string and deterministic, sorted-key JSON); the collection
// mechanism is a generalization of the teacher's util.perror channel-backed
// error listener (src/util/perror.go) from bare errors to structured
// Diagnostic values.
package diag

// Code is a stable E#### error code as defined in spec.md §7.
type Code string

// Lex/Parse diagnostics.
const (
	ELexInvalidByte    Code = "E1001"
	ELexUnclosedString Code = "E1002"
	ELexUnclosedChar   Code = "E1003"
	ELexBadEscape      Code = "E1004"
	ELexBadNumber      Code = "E1005"

	EParseUnexpectedToken Code = "E1010"
	EParseExpected        Code = "E1011"

	// Deprecated-syntax rejections named explicitly in spec.md §4.2.
	EParseDeprecatedMut       Code = "E1100"
	EParseDeprecatedColonColn Code = "E1101"
	EParseDeprecatedArrow     Code = "E1102"
	EParseDeprecatedWalrus    Code = "E1103"
	EParseDeprecatedInterface Code = "E1104"
)

// Module-resolution diagnostics.
const (
	EModuleNotFound      Code = "E2000"
	EModuleCycle         Code = "E2001"
	EModuleMissingExport Code = "E2002"
	EModuleDuplicate     Code = "E2003"
)

// Type-checking diagnostics.
const (
	ETypeMismatch       Code = "E3001"
	ETypeUnresolvedName Code = "E3002"
	ETypeArity          Code = "E3003"
	ETypeNoSuchField    Code = "E3004"
	EAmbiguousOverload  Code = "E3101"
	ENonExhaustiveMatch Code = "E3201"
	EConstIndexOOB      Code = "E3301"
)

// Borrow-checker diagnostics.
const (
	EImmutableAssign Code = "E4101"
	EUseAfterMove    Code = "E4201"
	EBorrowOfMoved   Code = "E4301"
	EBorrowConflict  Code = "E4302"
	EReturnLocalRef  Code = "E4401"
	EEscapingStore   Code = "E4402"
	EClosureEscape   Code = "E4403"
)

// Codegen diagnostics.
const (
	EUnsupportedFeature Code = "E5001"
	EVerifierFailure    Code = "E9001"
)

// Internal-compiler-error diagnostics.
const (
	EInternal Code = "E9000"
)

// Severity classifies a Diagnostic the way the wire format in spec.md §6
// requires.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Phase names a pipeline stage, used for both Diagnostic.Phase and logrus
// structured fields.
type Phase string

const (
	PhaseLex      Phase = "lex"
	PhaseParse    Phase = "parse"
	PhaseModule   Phase = "module"
	PhaseTypes    Phase = "typecheck"
	PhaseBorrow   Phase = "borrow"
	PhaseCodegen  Phase = "codegen"
	PhaseInternal Phase = "internal"
)
