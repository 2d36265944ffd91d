package value

import "testing"

func TestMapMutationNoWriteAliasesOriginal(t *testing.T) {
	m := EmptyMap()
	g := NewMapMutation(m)
	got := g.Finish()
	if got != m {
		t.Fatal("Finish() with no writes must return the original handle")
	}
}

// TestMapMutationCOWAliasing is the `let n = m; n.b = 2` scenario: a second
// alias of the same Map, mutated through a guard, must not be observed
// through the first alias.
func TestMapMutationCOWAliasing(t *testing.T) {
	m := EmptyMap()
	mg := NewMapMutation(m)
	mg.Put("a", Int(1))
	m = mg.Finish()

	n := m
	ng := NewMapMutation(n)
	ng.Put("b", Int(2))
	n = ng.Finish()

	if m.Len() != 1 {
		t.Fatalf("m.Len() = %d, want 1 (m must be unaffected by n's mutation)", m.Len())
	}
	if n.Len() != 2 {
		t.Fatalf("n.Len() = %d, want 2", n.Len())
	}
	if _, ok := m.Get("b"); ok {
		t.Fatal("m must not see the key added through n's mutation guard")
	}
}
