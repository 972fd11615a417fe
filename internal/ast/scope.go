package ast

import "github.com/vex-lang/vex/internal/source"

// Binding is one entry of a Scope frame: spec.md §3 defines a frame's
// bindings as name → (def_id, type, mutability, initial-span). It
// generalizes the teacher's ir.Symbol (src/ir/symtab.go, which only ever
// carried a datatype enum and a parameter count for VSL's two primitive
// types) to Vex's full Type sum type plus mutability and provenance.
type Binding struct {
	Name    string
	DefID   DefID
	Type    *Type
	Mutable bool
	Span    source.Span
}

// Frame is one lexical scope level: a set of bindings plus, per spec.md
// §3, an ordered list of pending `defer` expressions belonging to this
// scope, flushed in LIFO order on every exit path.
type Frame struct {
	Bindings     map[string]*Binding
	PendingDefer []*Node
}

func newFrame() *Frame {
	return &Frame{Bindings: make(map[string]*Binding)}
}

// Scope is the stack-of-frames structure from spec.md §3. It generalizes
// the teacher's util.Stack-of-symbol-table pattern (src/ir/validate.go
// pushes &Global and &(f.Entry.Locals) on a util.Stack for identifier
// lookup) into a dedicated type tailored to lexical binding resolution,
// since Vex scopes additionally need ordered defer lists and mutability.
type Scope struct {
	frames []*Frame
}

// NewScope returns a scope containing a single, empty top-level frame.
func NewScope() *Scope {
	return &Scope{frames: []*Frame{newFrame()}}
}

// Push opens a new lexical frame, e.g. on block entry.
func (s *Scope) Push() {
	s.frames = append(s.frames, newFrame())
}

// Pop closes the innermost frame. Callers must have already flushed or
// transferred PendingDefer before popping.
func (s *Scope) Pop() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f
}

// Current returns the innermost frame.
func (s *Scope) Current() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Declare binds name in the innermost frame, shadowing any outer binding of
// the same name, matching block-scoped `let` semantics.
func (s *Scope) Declare(b *Binding) {
	s.Current().Bindings[b.Name] = b
}

// Lookup searches frames innermost-first, as a stack-of-scopes lookup does.
func (s *Scope) Lookup(name string) (*Binding, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if b, ok := s.frames[i].Bindings[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// Depth returns the number of open frames, used by the lifetime analysis to
// compare the nesting depth of a loan's origin against its owner's.
func (s *Scope) Depth() int { return len(s.frames) }

// Defer appends a deferred expression to the innermost frame's pending
// list, in program order — LIFO execution happens at flush time by
// iterating this slice in reverse.
func (f *Frame) Defer(expr *Node) {
	f.PendingDefer = append(f.PendingDefer, expr)
}

// FlushOrder returns this frame's pending defers in the LIFO order spec.md
// §4.6 requires them to execute in.
func (f *Frame) FlushOrder() []*Node {
	out := make([]*Node, len(f.PendingDefer))
	for i, d := range f.PendingDefer {
		out[len(f.PendingDefer)-1-i] = d
	}
	return out
}
