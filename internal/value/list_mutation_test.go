package value

import "testing"

func TestListMutationNoWriteAliasesOriginal(t *testing.T) {
	l := ints(1, 2, 3)
	g := NewListMutation(l)
	got := g.Finish()
	if got != l {
		t.Fatal("Finish() with no writes must return the original handle")
	}
}

func TestListMutationWriteProducesNewHandleLeavesOriginalUnchanged(t *testing.T) {
	l := ints(1, 2, 3)
	g := NewListMutation(l)
	g.Push(Int(4))
	got := g.Finish()

	if got == l {
		t.Fatal("Finish() after a write must not alias the original")
	}
	assertIntList(t, l, []int64{1, 2, 3})
	assertIntList(t, got, []int64{1, 2, 3, 4})
}

func TestListMutationReplaceAndRemove(t *testing.T) {
	l := ints(1, 2, 3)
	g := NewListMutation(l)
	g.Replace(1, Int(20))
	g.Remove(0)
	got := g.Finish()
	assertIntList(t, got, []int64{20, 3})
	assertIntList(t, l, []int64{1, 2, 3})
}
