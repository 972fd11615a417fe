package module

// pathStack tracks the chain of module paths currently being resolved, the
// way the teacher's util.Stack (src/util/stack.go) tracks a bottom-to-top
// chain of pushed elements. It is specialised to strings and drops the
// teacher's mutex: module resolution walks the import graph on a single
// goroutine, one DFS at a time, unlike the teacher's Stack which is shared
// across parallel assembly-generation workers.
type pathStack struct {
	elems []string
}

func (s *pathStack) push(path string) { s.elems = append(s.elems, path) }

func (s *pathStack) pop() {
	if len(s.elems) > 0 {
		s.elems = s.elems[:len(s.elems)-1]
	}
}

// contains reports whether path is already on the stack, i.e. whether
// pushing it again would close an import cycle.
func (s *pathStack) contains(path string) bool {
	for _, e := range s.elems {
		if e == path {
			return true
		}
	}
	return false
}

// cycleFrom returns a copy of the stack from path's first occurrence to
// the top, followed by path once more to close the loop, for building a
// readable E2001 message.
func (s *pathStack) cycleFrom(path string) []string {
	for i, e := range s.elems {
		if e == path {
			return append(append([]string(nil), s.elems[i:]...), path)
		}
	}
	return nil
}
