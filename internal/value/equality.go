package value

// ObjectsEqual implements structural equality across heap object kinds,
// grounded on internal/evaluator/objects_equal.go's type-switch approach
// in the teacher (per-ObjectType dispatch rather than a method on each
// type, so new Object kinds can be compared without modifying them).
func ObjectsEqual(a, b Object) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case *Str:
		bv, ok := b.(*Str)
		return ok && av.S == bv.S
	case *List:
		bv, ok := b.(*List)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for i := 0; i < av.Len(); i++ {
			if !av.Get(i).Equals(bv.Get(i)) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		equal := true
		av.Range(func(k string, v Value) bool {
			other, found := bv.Get(k)
			if !found || !v.Equals(other) {
				equal = false
				return false
			}
			return true
		})
		return equal
	default:
 // Opaque handles, closures, natives, user objects: identity equality.
		return a == b
	}
}

// Compare implements the "Ordering": total within each numeric
// class, string lexicographic, mixed-type ordering undefined (returns ok
// == false so the caller raises InvalidOperation).
func Compare(a, b Value) (cmp int, ok bool) {
	switch {
	case a.IsNumeric() && b.IsNumeric():
		af, bf := a.AsFloat64(), b.AsFloat64()
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	case a.Kind == KObj && b.Kind == KObj:
		as, aok := a.Obj.(*Str)
		bs, bok := b.Obj.(*Str)
		if aok && bok {
			switch {
			case as.S < bs.S:
				return -1, true
			case as.S > bs.S:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}
