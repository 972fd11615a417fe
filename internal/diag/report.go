package diag

import (
	"encoding/json"
	"fmt"

	"github.com/vex-lang/vex/internal/source"
)

// schemaVersion is stamped onto every Diagnostic's JSON encoding so
// consumers (CLI --json, LSP) can evolve the wire format safely.
const schemaVersion = "vex.diagnostic/v1"

// Position is the on-the-wire (file,line,column,length) span named in
// spec.md §6, derived from a source.Span plus the source.Map that produced
// it.
type Position struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Length int    `json:"length"`
}

// Secondary is a labeled auxiliary span, e.g. a "defined here" note.
type Secondary struct {
	Position
	Label string `json:"label"`
}

// Diagnostic is the canonical structured error/warning/note type produced by
// every phase of the core. It is the Go analogue of AILANG's errors.Report:
// a stable code, a phase tag, a human message, a primary span, optional
// secondary spans, and an optional one-line remedy.
//
// Diagnostics are constructed phase-locally with only a raw byte source.Span
// (phases don't all have a source.Map in hand — the borrow checker, for
// instance, only ever sees the typed AST). Primary/Secondaries are resolved
// to human (file,line,column,length) Positions once, by the Bus, at the
// point a source.Map becomes available — see Bus.Report.
type Diagnostic struct {
	Schema      string      `json:"schema"`
	Code        Code        `json:"code"`
	Severity    Severity    `json:"severity"`
	Phase       Phase       `json:"phase"`
	Message     string      `json:"message"`
	Primary     Position    `json:"primary"`
	Secondaries []Secondary `json:"secondaries,omitempty"`
	Remedy      string      `json:"remedy,omitempty"`

	rawPrimary     source.Span   `json:"-"`
	rawSecondaries []rawSecondary `json:"-"`
	resolved       bool
}

type rawSecondary struct {
	span  source.Span
	label string
}

// Error implements the error interface so a Diagnostic can be returned or
// wrapped directly from APIs that still want a Go error.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s (%s:%d:%d)", d.Code, d.Message, d.Primary.File, d.Primary.Line, d.Primary.Column)
}

// ToJSON renders the diagnostic deterministically, matching the CLI --json
// surface named in spec.md §6.
func (d *Diagnostic) ToJSON(indent bool) (string, error) {
	var b []byte
	var err error
	if indent {
		b, err = json.MarshalIndent(d, "", "  ")
	} else {
		b, err = json.Marshal(d)
	}
	return string(b), err
}

// New builds a Diagnostic carrying only a raw byte span; Position
// resolution happens later, when the Bus that collects it is given a
// source.Map (see Bus.Report and Bus.SetSourceMap).
func New(code Code, sev Severity, phase Phase, primary source.Span, message string) *Diagnostic {
	return &Diagnostic{
		Schema:     schemaVersion,
		Code:       code,
		Severity:   sev,
		Phase:      phase,
		Message:    message,
		rawPrimary: primary,
	}
}

// WithSecondary appends a labeled secondary span (e.g. "local `x` declared
// here") and returns the diagnostic for chaining.
func (d *Diagnostic) WithSecondary(sp source.Span, label string) *Diagnostic {
	d.rawSecondaries = append(d.rawSecondaries, rawSecondary{span: sp, label: label})
	return d
}

// WithRemedy attaches the one-line remedy string required by spec.md §4.5.5.
func (d *Diagnostic) WithRemedy(remedy string) *Diagnostic {
	d.Remedy = remedy
	return d
}

// resolve fills Primary/Secondaries from sm. It is a no-op once already
// resolved; Bus.SetSourceMap clears the resolved flag first, and then
// Primary and Secondaries are rebuilt from scratch against the new map.
func (d *Diagnostic) resolve(sm *source.Map) {
	if d.resolved {
		return
	}
	d.Primary = toPosition(sm, d.rawPrimary)
	d.Secondaries = nil
	for _, s := range d.rawSecondaries {
		d.Secondaries = append(d.Secondaries, Secondary{Position: toPosition(sm, s.span), Label: s.label})
	}
	d.resolved = true
}

func toPosition(sm *source.Map, sp source.Span) Position {
	if sm == nil {
		return Position{File: "<unknown>", Length: sp.Len}
	}
	f, ok := sm.Get(sp.File)
	if !ok {
		return Position{File: "<unknown>", Length: sp.Len}
	}
	line, col := f.LineCol(sp.Start)
	return Position{File: f.Path, Line: line, Column: col, Length: sp.Len}
}
