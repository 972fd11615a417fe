package diag

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vex-lang/vex/internal/source"
)

// defaultBufferSize mirrors the teacher's util.perror fallback capacity
// (src/util/perror.go) for the pre-allocated diagnostic buffer.
const defaultBufferSize = 16

// Bus collects Diagnostics emitted by every phase of a single compilation
// run. It generalizes the teacher's util.perror: that type buffered bare
// errors reported by parallel assembly-generation workers behind a
// goroutine listening on a channel; Bus buffers structured Diagnostics and
// is safe to share across the parallel per-compilation-unit workers
// described in spec.md §5, using a mutex instead of a dedicated listener
// goroutine since Diagnostics (unlike the teacher's fire-and-forget errors)
// are also read back mid-run by callers deciding whether to keep compiling.
type Bus struct {
	mu    sync.Mutex
	items []*Diagnostic
	log   *log.Entry
	sm    *source.Map
}

// NewBus returns an empty diagnostics bus scoped to one compilation run.
// sm may be nil when no source.Map exists yet (e.g. very early smoke
// tests); diagnostics reported before a map is attached resolve their
// spans to "<unknown>" until SetSourceMap is called.
func NewBus(phase Phase, sm *source.Map) *Bus {
	return &Bus{
		items: make([]*Diagnostic, 0, defaultBufferSize),
		log:   log.WithField("phase", string(phase)),
		sm:    sm,
	}
}

// SetSourceMap attaches (or replaces) the map used to resolve spans,
// re-resolving every diagnostic already buffered.
func (b *Bus) SetSourceMap(sm *source.Map) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sm = sm
	for _, d := range b.items {
		d.resolved = false
		d.resolve(sm)
	}
}

// Report appends a diagnostic. <nil> is ignored, matching perror.Append's
// treatment of <nil> errors.
func (b *Bus) Report(d *Diagnostic) {
	if d == nil {
		return
	}
	b.mu.Lock()
	d.resolve(b.sm)
	b.items = append(b.items, d)
	b.mu.Unlock()
	b.log.WithFields(log.Fields{
		"code":     d.Code,
		"severity": d.Severity,
	}).Debug(d.Message)
}

// Merge appends every diagnostic from other into b, preserving relative
// order; used to fold a worker's private Bus back into the run-level one.
func (b *Bus) Merge(other *Bus) {
	other.mu.Lock()
	items := append([]*Diagnostic(nil), other.items...)
	other.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, items...)
}

// Len returns the number of buffered diagnostics.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// HasErrors reports whether at least one severity=error diagnostic was
// reported — the failure criterion from spec.md §7.
func (b *Bus) HasErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// All returns every buffered diagnostic, ordered deterministically by
// (file, line, column, code) so repeated runs over the same input produce
// identical output — the determinism property required by spec.md §8.
func (b *Bus) All() []*Diagnostic {
	b.mu.Lock()
	out := append([]*Diagnostic(nil), b.items...)
	b.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, c := out[i], out[j]
		if a.Primary.File != c.Primary.File {
			return a.Primary.File < c.Primary.File
		}
		if a.Primary.Line != c.Primary.Line {
			return a.Primary.Line < c.Primary.Line
		}
		if a.Primary.Column != c.Primary.Column {
			return a.Primary.Column < c.Primary.Column
		}
		return a.Code < c.Code
	})
	return out
}
