package environment

import (
	"testing"

	"github.com/nyxlang/nyx/internal/value"
	"github.com/nyxlang/nyx/internal/vmerr"
)

func TestScopeIsolation(t *testing.T) {
	c := New()
	c.Define("outer", value.Int(1), false)

	c.PushScope()
	c.Define("inner", value.Int(2), false)
	if _, ok := c.Get("inner"); !ok {
		t.Fatal("inner should be visible inside its own scope")
	}
	genInside := c.Generation()
	c.PopScope()

	if c.Generation() <= genInside {
		t.Fatalf("generation did not strictly increase across PopScope: before=%d after=%d", genInside, c.Generation())
	}
	if _, ok := c.Get("inner"); ok {
		t.Fatal("inner must not be visible after its scope is popped")
	}
	if _, ok := c.Get("outer"); !ok {
		t.Fatal("outer should still be visible")
	}
}

func TestGenerationBumpsOnEveryMutation(t *testing.T) {
	c := New()
	g0 := c.Generation()
	c.Define("x", value.Int(1), false)
	g1 := c.Generation()
	if g1 <= g0 {
		t.Fatal("Define did not bump the generation")
	}
	if err := c.Set("x", value.Int(2)); err != nil {
		t.Fatal(err)
	}
	g2 := c.Generation()
	if g2 <= g1 {
		t.Fatal("Set did not bump the generation")
	}
}

func TestConstAssignmentRejected(t *testing.T) {
	c := New()
	c.Define("K", value.Int(10), true)

	err := c.Set("K", value.Int(11))
	if err == nil {
		t.Fatal("expected ConstAssignment, got nil")
	}
	ve, ok := err.(*vmerr.Error)
	if !ok || ve.Kind != vmerr.ConstAssignment {
		t.Fatalf("got %v, want ConstAssignment", err)
	}
	v, _ := c.Get("K")
	if v.AsInt() != 10 {
		t.Fatalf("K = %d after rejected assignment, want unchanged 10", v.AsInt())
	}
}

func TestSetUnboundNameFails(t *testing.T) {
	c := New()
	err := c.Set("nope", value.Int(1))
	if err == nil {
		t.Fatal("expected NameUnbound, got nil")
	}
	ve, ok := err.(*vmerr.Error)
	if !ok || ve.Kind != vmerr.NameUnbound {
		t.Fatalf("got %v, want NameUnbound", err)
	}
}

func TestGenerationOfTracksLastWrite(t *testing.T) {
	c := New()
	c.Define("g", value.Int(1), false)
	gen1, ok := c.GenerationOf("g")
	if !ok {
		t.Fatal("GenerationOf should find a defined name")
	}
	c.Set("g", value.Int(2))
	gen2, ok := c.GenerationOf("g")
	if !ok || gen2 <= gen1 {
		t.Fatalf("GenerationOf did not advance on Set: before=%d after=%d", gen1, gen2)
	}
}
