package value

import (
	"strings"
	"sync"
	"unsafe"

	"github.com/nyxlang/nyx/internal/config"
)

// List is a shared-owned, immutable vector of Value. Grounded on
// internal/evaluator/object_collections.go's List in the teacher,
// simplified to a single backing slice since Nyx commits to
// mutation-guard-based copy-on-write rather than the teacher's hybrid
// cons/vector representation.
type List struct {
	elems []Value

	// membership is the lazily-built hash set backing `x in list`
	// ("Membership cache"). It lives directly on the List
	// rather than in a side table keyed by identity: since List is
	// immutable, a once-built set stays valid for the list's whole
	// lifetime and needs no invalidation, and it is reclaimed by the GC
	// together with the list itself rather than leaking in a global map.
	membershipOnce sync.Once
	membership     map[uint32][]Value
}

func NewList(elems []Value) *List {
	return &List{elems: elems}
}

func EmptyList() *List { return &List{} }

func (l *List) TypeName() string { return "List" }

func (l *List) Inspect() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range l.elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.Inspect())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (l *List) Hash() uint32 {
	h := uint32(1)
	for _, e := range l.elems {
		h = 31*h + e.Hash()
	}
	return h
}

func (l *List) IdentityKey() uintptr { return uintptr(unsafe.Pointer(l)) }

func (l *List) Len() int { return len(l.elems) }

// Get returns Nil, not an error, for negative/out-of-range indices.
func (l *List) Get(i int) Value {
	if i < 0 || i >= len(l.elems) {
		return Nil()
	}
	return l.elems[i]
}

// ToSlice returns the backing elements. Callers must not mutate the
// returned slice in place — go through a ListMutation guard instead.
func (l *List) ToSlice() []Value { return l.elems }

func (l *List) Slice(start, end int) *List {
	if start < 0 {
		start = 0
	}
	if end > len(l.elems) {
		end = len(l.elems)
	}
	if start >= end {
		return EmptyList()
	}
	out := make([]Value, end-start)
	copy(out, l.elems[start:end])
	return NewList(out)
}

// Concat returns a new list with other's elements appended.
func (l *List) Concat(other *List) *List {
	out := make([]Value, 0, len(l.elems)+len(other.elems))
	out = append(out, l.elems...)
	out = append(out, other.elems...)
	return NewList(out)
}

// Append returns a new list with one element appended.
func (l *List) Append(v Value) *List {
	out := make([]Value, len(l.elems)+1)
	copy(out, l.elems)
	out[len(l.elems)] = v
	return NewList(out)
}

// Diff implements `List - List` set difference, switching
// to a hash-set lookup once the right operand exceeds
// config.SetDifferenceHashThreshold homogeneous elements.
func (l *List) Diff(other *List) *List {
	out := make([]Value, 0, len(l.elems))
	if other.Len() > config.SetDifferenceHashThreshold && homogeneous(other.elems) {
		set := make(map[uint32][]Value, other.Len())
		for _, v := range other.elems {
			h := v.Hash()
			set[h] = append(set[h], v)
		}
		for _, v := range l.elems {
			if !containsHashed(set, v) {
				out = append(out, v)
			}
		}
		return NewList(out)
	}
	for _, v := range l.elems {
		found := false
		for _, o := range other.elems {
			if v.Equals(o) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, v)
		}
	}
	return NewList(out)
}

func containsHashed(set map[uint32][]Value, v Value) bool {
	for _, cand := range set[v.Hash()] {
		if cand.Equals(v) {
			return true
		}
	}
	return false
}

func homogeneous(vs []Value) bool {
	if len(vs) == 0 {
		return true
	}
	kind := vs[0].Kind
	for _, v := range vs[1:] {
		if v.Kind != kind {
			return false
		}
	}
	return kind == KInt || kind == KBool || (kind == KObj && isStrList(vs))
}

func isStrList(vs []Value) bool {
	for _, v := range vs {
		if _, ok := v.Obj.(*Str); !ok {
			return false
		}
	}
	return true
}
