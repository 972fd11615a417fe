// Package source holds the in-memory source map the driver hands to the
// core: a stable mapping from file id to path and text. No component in the
// core reads from disk; all source input arrives through a Map.
package source

import "strings"

// FileID stably identifies a source file within one compilation run.
type FileID int

// File is one entry of a Map: a path (used only for diagnostics and import
// resolution) paired with its full text.
type File struct {
	ID   FileID
	Path string
	Text string

	lineStarts []int // byte offset of the first byte of each line, lazily built
}

// Map is the file_id -> (path, text) mapping named in spec.md §6.
type Map struct {
	files []*File
	byID  map[FileID]*File
}

// NewMap returns an empty source map.
func NewMap() *Map {
	return &Map{byID: make(map[FileID]*File)}
}

// Add registers a new file and returns its stable FileID.
func (m *Map) Add(path, text string) FileID {
	id := FileID(len(m.files) + 1)
	f := &File{ID: id, Path: path, Text: text}
	m.files = append(m.files, f)
	m.byID[id] = f
	return id
}

// Get returns the file registered under id, if any.
func (m *Map) Get(id FileID) (*File, bool) {
	f, ok := m.byID[id]
	return f, ok
}

// Files returns every registered file in insertion order.
func (m *Map) Files() []*File {
	return m.files
}

// Span is (file_id, byte_start, byte_len) — the glossary's definition,
// identifying a source range for diagnostics and AST provenance.
type Span struct {
	File  FileID
	Start int
	Len   int
}

// End returns the exclusive end byte offset of the span.
func (s Span) End() int { return s.Start + s.Len }

// Join returns the smallest span covering both a and b. Both must belong to
// the same file; Join panics otherwise, since cross-file spans are nonsense.
func Join(a, b Span) Span {
	if a.File != b.File {
		panic("source: Join across different files")
	}
	start := a.Start
	if b.Start < start {
		start = b.Start
	}
	end := a.End()
	if b.End() > end {
		end = b.End()
	}
	return Span{File: a.File, Start: start, Len: end - start}
}

// ensureLineStarts lazily indexes the byte offsets of line starts in f.Text.
func (f *File) ensureLineStarts() {
	if f.lineStarts != nil {
		return
	}
	starts := []int{0}
	for i, b := range []byte(f.Text) {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	f.lineStarts = starts
}

// LineCol derives the 1-indexed (line, column) for a byte offset. Columns
// count UTF-8 runes, not bytes, so they remain stable across escaping.
func (f *File) LineCol(offset int) (line, col int) {
	f.ensureLineStarts()
	lo, hi := 0, len(f.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	line = lo + 1
	lineStart := f.lineStarts[lo]
	if offset > len(f.Text) {
		offset = len(f.Text)
	}
	col = len([]rune(f.Text[lineStart:offset])) + 1
	return line, col
}

// Position renders a span as "path:line:col" for human-readable diagnostics.
func (m *Map) Position(sp Span) string {
	f, ok := m.Get(sp.File)
	if !ok {
		return "<unknown>"
	}
	line, col := f.LineCol(sp.Start)
	return f.Path + ":" + itoa(line) + ":" + itoa(col)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b strings.Builder
	var digits [20]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		b.WriteByte('-')
	}
	b.Write(digits[i:])
	return b.String()
}
