package value

import (
	"fmt"
	"math"
	"strconv"

	"github.com/nyxlang/nyx/internal/vmerr"
)

// Add implements Int+Int->Int, Int+Float/Float+Int->Float promotion,
// Str+Str concatenation, Str+Num/Num+Str rendering, List+List
// concatenation, List+Value append-one, and Map+Map right-biased merge.
func Add(a, b Value) (Value, error) {
	switch {
	case a.IsInt() && b.IsInt():
		return Int(a.AsInt() + b.AsInt()), nil
	case a.IsNumeric() && b.IsNumeric():
		return Float(a.AsFloat64() + b.AsFloat64()), nil
	}
	if as, aok := asStr(a); aok {
		if bs, bok := asStr(b); bok {
			if as.S == "" {
				return FromObject(bs), nil
			}
			if bs.S == "" {
				return FromObject(as), nil
			}
			return StrVal(as.S + bs.S), nil
		}
		if b.IsNumeric() {
			return StrVal(as.S + formatNumber(b)), nil
		}
	}
	if bs, bok := asStr(b); bok && a.IsNumeric() {
		return StrVal(formatNumber(a) + bs.S), nil
	}
	if al, aok := a.Obj.(*List); aok && a.Kind == KObj {
		if bl, bok := b.Obj.(*List); bok {
			return FromObject(al.Concat(bl)), nil
		}
		return FromObject(al.Append(b)), nil
	}
	if am, aok := a.Obj.(*Map); aok && a.Kind == KObj {
		if bm, bok := b.Obj.(*Map); bok {
			return FromObject(am.Merge(bm)), nil
		}
	}
	return Value{}, vmerr.New(vmerr.InvalidOperation, "cannot add %s and %s", a.TypeName(), b.TypeName())
}

// Sub implements Int-Int, numeric promotion, and List-List set difference
// and Map-Str key removal.
func Sub(a, b Value) (Value, error) {
	switch {
	case a.IsInt() && b.IsInt():
		return Int(a.AsInt() - b.AsInt()), nil
	case a.IsNumeric() && b.IsNumeric():
		return Float(a.AsFloat64() - b.AsFloat64()), nil
	}
	if al, aok := a.Obj.(*List); aok && a.Kind == KObj {
		if bl, bok := b.Obj.(*List); bok {
			return FromObject(al.Diff(bl)), nil
		}
	}
	if am, aok := a.Obj.(*Map); aok && a.Kind == KObj {
		if bs, bok := asStr(b); bok {
			return FromObject(am.Without(bs.S)), nil
		}
	}
	return Value{}, vmerr.New(vmerr.InvalidOperation, "cannot subtract %s from %s", b.TypeName(), a.TypeName())
}

func Mul(a, b Value) (Value, error) {
	switch {
	case a.IsInt() && b.IsInt():
		return Int(a.AsInt() * b.AsInt()), nil
	case a.IsNumeric() && b.IsNumeric():
		return Float(a.AsFloat64() * b.AsFloat64()), nil
	}
	return Value{}, vmerr.New(vmerr.InvalidOperation, "cannot multiply %s and %s", a.TypeName(), b.TypeName())
}

// Div divides two numerics: Int/Int yields Int when the result is exact
// and Float otherwise, promoting a zero divisor to DivisionByZero;
// any pairing involving a Float divides with ordinary IEEE-754 float
// division and never raises on a zero divisor (0.0 and -0.0 divisors
// produce Inf/-Inf/NaN the way Go's float division already does).
func Div(a, b Value) (Value, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Value{}, vmerr.New(vmerr.InvalidOperation, "cannot divide %s by %s", a.TypeName(), b.TypeName())
	}
	if a.IsInt() && b.IsInt() {
		bi := b.AsInt()
		if bi == 0 {
			return Value{}, vmerr.New(vmerr.DivisionByZero, "integer division by zero")
		}
		ai := a.AsInt()
		if ai%bi == 0 {
			return Int(ai / bi), nil
		}
		return Float(float64(ai) / float64(bi)), nil
	}
	return Float(a.AsFloat64() / b.AsFloat64()), nil
}

// Mod follows the same Int-vs-Float split as Div: only the Int+Int path
// raises DivisionByZero on a zero divisor, since it is the only path
// with no IEEE-754 fallback to produce a well-defined result instead.
func Mod(a, b Value) (Value, error) {
	if a.IsInt() && b.IsInt() {
		bi := b.AsInt()
		if bi == 0 {
			return Value{}, vmerr.New(vmerr.DivisionByZero, "integer modulo by zero")
		}
		return Int(a.AsInt() % bi), nil
	}
	if a.IsNumeric() && b.IsNumeric() {
		return Float(math.Mod(a.AsFloat64(), b.AsFloat64())), nil
	}
	return Value{}, vmerr.New(vmerr.InvalidOperation, "cannot modulo %s by %s", a.TypeName(), b.TypeName())
}

// IntBinOp implements the bitwise family (supplemented feature): Int only.
func IntBinOp(name string, a, b Value, f func(x, y int64) int64) (Value, error) {
	if !a.IsInt() || !b.IsInt() {
		return Value{}, vmerr.New(vmerr.InvalidOperation, "%s requires two Int operands, got %s and %s", name, a.TypeName(), b.TypeName())
	}
	return Int(f(a.AsInt(), b.AsInt())), nil
}

func Neg(a Value) (Value, error) {
	switch {
	case a.IsInt():
		return Int(-a.AsInt()), nil
	case a.IsFloat():
		return Float(-a.AsFloat()), nil
	default:
		return Value{}, vmerr.New(vmerr.InvalidOperation, "cannot negate %s", a.TypeName())
	}
}

func BitNot(a Value) (Value, error) {
	if !a.IsInt() {
		return Value{}, vmerr.New(vmerr.InvalidOperation, "~ requires Int, got %s", a.TypeName())
	}
	return Int(^a.AsInt()), nil
}

// Less/LessEq/... implement the "Ordering".
func Less(a, b Value) (bool, error)    { return cmpBool(a, b, func(c int) bool { return c < 0 }) }
func LessEq(a, b Value) (bool, error)  { return cmpBool(a, b, func(c int) bool { return c <= 0 }) }
func Greater(a, b Value) (bool, error) { return cmpBool(a, b, func(c int) bool { return c > 0 }) }
func GreaterEq(a, b Value) (bool, error) {
	return cmpBool(a, b, func(c int) bool { return c >= 0 })
}

func cmpBool(a, b Value, pred func(int) bool) (bool, error) {
	c, ok := Compare(a, b)
	if !ok {
		return false, vmerr.New(vmerr.InvalidOperation, "cannot order %s and %s", a.TypeName(), b.TypeName())
	}
	return pred(c), nil
}

func asStr(v Value) (*Str, bool) {
	if v.Kind != KObj {
		return nil, false
	}
	s, ok := v.Obj.(*Str)
	return s, ok
}

// formatNumber renders a numeric Value the way string concatenation
// with a number does: Int in base 10, Float with its shortest
// round-tripping decimal representation.
func formatNumber(v Value) string {
	if v.IsInt() {
		return strconv.FormatInt(v.AsInt(), 10)
	}
	return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
}

// Coalesce implements ??: Nil ?? x evaluates and returns x, but false
// and 0 are not nil and pass through unchanged. Only Nil triggers the
// right-hand side.
func Coalesce(left Value, rightThunk func() (Value, error)) (Value, error) {
	if left.IsNil() {
		return rightThunk()
	}
	return left, nil
}

// ErrMixedOrdering is a convenience for call sites that want a
// pre-formatted message.
func ErrMixedOrdering(a, b Value) error {
	return vmerr.New(vmerr.InvalidOperation, fmt.Sprintf("mixed-type ordering of %s and %s is undefined", a.TypeName(), b.TypeName()))
}
