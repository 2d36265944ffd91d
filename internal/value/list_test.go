package value

import (
	"testing"

	"github.com/nyxlang/nyx/internal/config"
)

func ints(vs ...int64) *List {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = Int(v)
	}
	return NewList(out)
}

func TestListGetBoundary(t *testing.T) {
	l := ints(10, 20, 30)
	if !l.Get(-1).IsNil() {
		t.Error("Get(-1) should be Nil")
	}
	if !l.Get(l.Len()).IsNil() {
		t.Error("Get(len) should be Nil")
	}
	if !l.Get(l.Len() + 1).IsNil() {
		t.Error("Get(len+1) should be Nil")
	}
	if got := l.Get(1); got.AsInt() != 20 {
		t.Errorf("Get(1) = %v, want 20", got.Inspect())
	}
}

func TestListDiffBelowThreshold(t *testing.T) {
	l := ints(1, 2, 3, 4)
	r := ints(2, 4)
	got := l.Diff(r)
	want := []int64{1, 3}
	assertIntList(t, got, want)
}

// TestListDiffAboveThreshold exercises the hash-set path: the right
// operand must be both homogeneous and larger than
// config.SetDifferenceHashThreshold.
func TestListDiffAboveThreshold(t *testing.T) {
	n := config.SetDifferenceHashThreshold + 1
	rVals := make([]int64, n)
	for i := range rVals {
		rVals[i] = int64(i)
	}
	l := ints(0, 1, int64(n), int64(n)+1)
	r := ints(rVals...)
	got := l.Diff(r)
	assertIntList(t, got, []int64{int64(n), int64(n) + 1})
}

func TestListDiffHeterogeneousRightOperandSkipsHashPath(t *testing.T) {
	n := config.SetDifferenceHashThreshold + 5
	rVals := make([]Value, n)
	for i := range rVals {
		rVals[i] = Int(int64(i))
	}
	rVals[0] = StrVal("not an int") // breaks homogeneity
	r := NewList(rVals)
	l := ints(1, 2)
	got := l.Diff(r)
	assertIntList(t, got, []int64{})
}

func assertIntList(t *testing.T, l *List, want []int64) {
	t.Helper()
	if l.Len() != len(want) {
		t.Fatalf("got %v, want %v", l.Inspect(), want)
	}
	for i, w := range want {
		if l.Get(i).AsInt() != w {
			t.Fatalf("got %v, want %v", l.Inspect(), want)
		}
	}
}

func TestListConcatAndAppend(t *testing.T) {
	a := ints(1, 2)
	b := ints(3)
	c := a.Concat(b)
	assertIntList(t, c, []int64{1, 2, 3})
	if a.Len() != 2 {
		t.Fatal("Concat mutated its receiver")
	}

	d := a.Append(Int(9))
	assertIntList(t, d, []int64{1, 2, 9})
	if a.Len() != 2 {
		t.Fatal("Append mutated its receiver")
	}
}
