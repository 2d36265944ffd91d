package value

import "github.com/nyxlang/nyx/internal/config"

// Contains implements `x in list` with a membership cache. For
// lists of length >= config.MembershipCacheMinLen with homogeneous
// Int/Str/Bool elements, it builds (once, lazily) a hash set on the list
// itself and reuses it on every subsequent membership test against that
// list; shorter or heterogeneous lists fall back to a linear scan.
func Contains(l *List, x Value) bool {
	if l.Len() < config.MembershipCacheMinLen || !homogeneous(l.elems) {
		for _, v := range l.elems {
			if v.Equals(x) {
				return true
			}
		}
		return false
	}
	l.membershipOnce.Do(func() {
		set := make(map[uint32][]Value, l.Len())
		for _, v := range l.elems {
			set[v.Hash()] = append(set[v.Hash()], v)
		}
		l.membership = set
	})
	for _, cand := range l.membership[x.Hash()] {
		if cand.Equals(x) {
			return true
		}
	}
	return false
}
