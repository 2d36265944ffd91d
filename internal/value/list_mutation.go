package value

// ListMutation is the copy-on-write mutation guard for List. It wraps a
// shared *List; on the first mutating call it materializes a private
// scratch copy, and Finish returns either the original handle (no writes
// happened) or a new handle wrapping the scratch buffer — never mutating
// the original.
type ListMutation struct {
	original *List
	scratch  []Value
	dirty    bool
}

func NewListMutation(l *List) *ListMutation {
	return &ListMutation{original: l}
}

// ensureScratch materializes the private copy on first write, per the
// protocol's "first mutating call" rule.
func (g *ListMutation) ensureScratch() {
	if !g.dirty {
		src := g.original.ToSlice()
		g.scratch = make([]Value, len(src))
		copy(g.scratch, src)
		g.dirty = true
	}
}

func (g *ListMutation) Push(v Value) {
	g.ensureScratch()
	g.scratch = append(g.scratch, v)
}

func (g *ListMutation) Insert(i int, v Value) {
	g.ensureScratch()
	if i < 0 || i > len(g.scratch) {
		return
	}
	g.scratch = append(g.scratch, Nil())
	copy(g.scratch[i+1:], g.scratch[i:])
	g.scratch[i] = v
}

func (g *ListMutation) Remove(i int) {
	g.ensureScratch()
	if i < 0 || i >= len(g.scratch) {
		return
	}
	g.scratch = append(g.scratch[:i], g.scratch[i+1:]...)
}

func (g *ListMutation) Replace(i int, v Value) {
	g.ensureScratch()
	if i < 0 || i >= len(g.scratch) {
		return
	}
	g.scratch[i] = v
}

// Retain keeps only elements for which keep returns true.
func (g *ListMutation) Retain(keep func(Value) bool) {
	g.ensureScratch()
	out := g.scratch[:0]
	for _, v := range g.scratch {
		if keep(v) {
			out = append(out, v)
		}
	}
	g.scratch = out
}

// Finish implements the COW aliasing invariant: if no write occurred, it
// returns the original handle unchanged (same pointer); if at least one
// write occurred, it returns a new handle that does not alias the
// original, and the original is left untouched.
func (g *ListMutation) Finish() *List {
	if !g.dirty {
		return g.original
	}
	return NewList(g.scratch)
}
