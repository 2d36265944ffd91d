package value

import (
	"math"
	"testing"

	"github.com/nyxlang/nyx/internal/vmerr"
)

func TestDivIntZeroDivisorRaises(t *testing.T) {
	_, err := Div(Int(7), Int(0))
	if err == nil {
		t.Fatal("expected an error dividing Int by zero")
	}
	ve, ok := err.(*vmerr.Error)
	if !ok || ve.Kind != vmerr.DivisionByZero {
		t.Fatalf("got %v, want DivisionByZero", err)
	}
}

func TestDivFloatZeroDivisorProducesInf(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
	}{
		{"float/zero-float", Float(1), Float(0)},
		{"int/zero-float", Int(1), Float(0)},
		{"float/zero-int", Float(1), Int(0)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Div(c.a, c.b)
			if err != nil {
				t.Fatalf("Div(%v, %v) returned error %v, want IEEE-754 +Inf", c.a, c.b, err)
			}
			if !got.IsFloat() || !math.IsInf(got.AsFloat(), 1) {
				t.Fatalf("Div(%v, %v) = %v, want +Inf", c.a, c.b, got.Inspect())
			}
		})
	}
}

func TestModIntZeroDivisorRaises(t *testing.T) {
	_, err := Mod(Int(7), Int(0))
	if err == nil {
		t.Fatal("expected an error modulo-ing Int by zero")
	}
	ve, ok := err.(*vmerr.Error)
	if !ok || ve.Kind != vmerr.DivisionByZero {
		t.Fatalf("got %v, want DivisionByZero", err)
	}
}

func TestModFloatZeroDivisorDoesNotRaise(t *testing.T) {
	got, err := Mod(Float(1), Float(0))
	if err != nil {
		t.Fatalf("Mod(1.0, 0.0) returned error %v, want no error", err)
	}
	if !got.IsFloat() || !math.IsNaN(got.AsFloat()) {
		t.Fatalf("Mod(1.0, 0.0) = %v, want NaN", got.Inspect())
	}
}

func TestDivIntExactPromotesToInt(t *testing.T) {
	got, err := Div(Int(10), Int(2))
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsInt() || got.AsInt() != 5 {
		t.Fatalf("Div(10, 2) = %v, want Int(5)", got.Inspect())
	}
}

func TestDivIntInexactPromotesToFloat(t *testing.T) {
	got, err := Div(Int(1), Int(3))
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsFloat() {
		t.Fatalf("Div(1, 3) = %v, want a Float", got.Inspect())
	}
}

func TestAddStringAndNumberFormats(t *testing.T) {
	got, err := Add(StrVal("n="), Int(5))
	if err != nil {
		t.Fatal(err)
	}
	s, ok := got.Obj.(*Str)
	if !ok || s.S != "n=5" {
		t.Fatalf("got %v, want %q", got.Inspect(), "n=5")
	}
}

func TestCoalesceOnlyTriggersOnNil(t *testing.T) {
	called := false
	rhs := func() (Value, error) { called = true; return Int(1), nil }

	cases := []Value{Bool(false), Int(0), StrVal("")}
	for _, left := range cases {
		got, err := Coalesce(left, rhs)
		if err != nil {
			t.Fatal(err)
		}
		if called {
			t.Fatalf("Coalesce(%v, ...) evaluated the right-hand side", left.Inspect())
		}
		if !got.Equals(left) {
			t.Fatalf("Coalesce(%v, ...) = %v, want the left operand unchanged", left.Inspect(), got.Inspect())
		}
	}

	got, err := Coalesce(Nil(), rhs)
	if err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("Coalesce(Nil, ...) did not evaluate the right-hand side")
	}
	if !got.Equals(Int(1)) {
		t.Fatalf("Coalesce(Nil, ...) = %v, want Int(1)", got.Inspect())
	}
}
