package value

import (
	"fmt"
	"math"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KNil Kind = iota
	KBool
	KInt
	KFloat
	KObj // Str/List/Map/Closure/Native/Object/opaque handles, all boxed
)

// Value is a stack-allocated tagged union, sized to avoid heap allocation
// for immediates. Grounded on internal/vm/value.go's {Type, Data, Obj}
// layout in the teacher.
type Value struct {
	Kind Kind
	Data uint64 // int64 bits / float64 bits / bool 0-1
	Obj  Object // heap-allocated payload when Kind == KObj
}

func Nil() Value { return Value{Kind: KNil} }

func Bool(b bool) Value {
	var d uint64
	if b {
		d = 1
	}
	return Value{Kind: KBool, Data: d}
}

func Int(i int64) Value         { return Value{Kind: KInt, Data: uint64(i)} }
func Float(f float64) Value     { return Value{Kind: KFloat, Data: math.Float64bits(f)} }
func FromObject(o Object) Value { return Value{Kind: KObj, Obj: o} }

func (v Value) AsInt() int64     { return int64(v.Data) }
func (v Value) AsFloat() float64 { return math.Float64frombits(v.Data) }
func (v Value) AsBool() bool     { return v.Data == 1 }

func (v Value) IsNil() bool  { return v.Kind == KNil }
func (v Value) IsBool() bool { return v.Kind == KBool }
func (v Value) IsInt() bool  { return v.Kind == KInt }
func (v Value) IsFloat() bool { return v.Kind == KFloat }
func (v Value) IsObj() bool  { return v.Kind == KObj }
func (v Value) IsNumeric() bool { return v.Kind == KInt || v.Kind == KFloat }

// AsFloat64 widens Int or Float to float64, for mixed arithmetic.
func (v Value) AsFloat64() float64 {
	if v.Kind == KInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// Truthy implements the "Truthiness": only Nil and Bool(false)
// are falsy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KNil:
		return false
	case KBool:
		return v.AsBool()
	default:
		return true
	}
}

// TypeName returns the stable type tag string ("Type name").
func (v Value) TypeName() string {
	switch v.Kind {
	case KNil:
		return "Nil"
	case KBool:
		return "Bool"
	case KInt:
		return "Int"
	case KFloat:
		return "Float"
	case KObj:
		if v.Obj != nil {
			return v.Obj.TypeName()
		}
		return "Nil"
	default:
		return "Unknown"
	}
}

// Inspect renders a debug string representation.
func (v Value) Inspect() string {
	switch v.Kind {
	case KNil:
		return "nil"
	case KBool:
		return fmt.Sprintf("%t", v.AsBool())
	case KInt:
		return fmt.Sprintf("%d", v.AsInt())
	case KFloat:
		return fmt.Sprintf("%g", v.AsFloat())
	case KObj:
		if v.Obj != nil {
			return v.Obj.Inspect()
		}
		return "<nil>"
	default:
		return "<?>"
	}
}

// Hash supports Value as a map/set key (used by the membership cache and
// by Map's internal HAMT).
func (v Value) Hash() uint32 {
	switch v.Kind {
	case KInt, KBool:
		return uint32(v.Data ^ (v.Data >> 32))
	case KFloat:
		return uint32(v.Data ^ (v.Data >> 32))
	case KNil:
		return 0
	case KObj:
		if v.Obj != nil {
			return v.Obj.Hash()
		}
		return 0
	default:
		return 0
	}
}

// Equals implements the "Equality": structural for immediates,
// element/key-wise for List/Map, identity for opaque handles (delegated to
// the Object's own equality via ObjectsEqual).
func (v Value) Equals(other Value) bool {
	if v.Kind != other.Kind {
		if v.Kind == KInt && other.Kind == KFloat {
			return float64(v.AsInt()) == other.AsFloat()
		}
		if v.Kind == KFloat && other.Kind == KInt {
			return v.AsFloat() == float64(other.AsInt())
		}
		return false
	}
	switch v.Kind {
	case KNil:
		return true
	case KBool, KInt:
		return v.Data == other.Data
	case KFloat:
		return v.Data == other.Data
	case KObj:
		return ObjectsEqual(v.Obj, other.Obj)
	default:
		return false
	}
}

// IdentityKeyer reports a stable identity for use as an inline-cache key:
// Access/Index caches key on it. Immediates carry
// no useful identity (they're compared by value); objects use their own
// IdentityKey when available, and objects without one get the key 0 from
// the interpreter's identityOf.
type IdentityKeyer interface {
	IdentityKey() uintptr
}
