package interp

import (
	"github.com/nyxlang/nyx/internal/code"
	"github.com/nyxlang/nyx/internal/value"
	"github.com/nyxlang/nyx/internal/vmerr"
)

// polyCache is a 4-way set-associative cache with LRU promotion on hit,
// shared by AccessIc, IndexIc, and CallIc. Every cache kind keys on a pair
// of uint64s (an identity plus a secondary discriminator — a field name's
// constant index, an integer index, or a callee identity) and stores an
// arbitrary payload; a miss falls through to the generic path and refills
// whichever slot is currently least recently used.
type polyCache struct {
	used    [4]bool
	k1, k2  [4]uint64
	payload [4]any
	order   [4]int8 // order[0] is the most recently used slot
}

func newPolyCache() *polyCache {
	return &polyCache{order: [4]int8{0, 1, 2, 3}}
}

func (c *polyCache) lookup(k1, k2 uint64) (any, bool) {
	for pos := 0; pos < 4; pos++ {
		idx := c.order[pos]
		if c.used[idx] && c.k1[idx] == k1 && c.k2[idx] == k2 {
			c.promote(pos)
			return c.payload[idx], true
		}
	}
	return nil, false
}

func (c *polyCache) promote(pos int) {
	idx := c.order[pos]
	copy(c.order[1:pos+1], c.order[0:pos])
	c.order[0] = idx
}

func (c *polyCache) fill(k1, k2 uint64, payload any) {
	evictPos := 3
	idx := c.order[evictPos]
	c.used[idx] = true
	c.k1[idx] = k1
	c.k2[idx] = k2
	c.payload[idx] = payload
	c.promote(evictPos)
}

// identityOf returns a stable identity for cache keying, falling back to 0
// (an always-miss key, never actually stored against) for values with no
// useful identity.
func identityOf(v value.Value) uint64 {
	if v.Kind != value.KObj || v.Obj == nil {
		return 0
	}
	if idk, ok := v.Obj.(value.IdentityKeyer); ok {
		return uint64(idk.IdentityKey())
	}
	return 0
}

func (vm *VM) accessCache(fr *frame, pc int) *polyCache {
	key := siteKey{fr.fn, pc}
	c := vm.access[key]
	if c == nil {
		c = newPolyCache()
		vm.access[key] = c
	}
	return c
}

func (vm *VM) indexCache(fr *frame, pc int) *polyCache {
	key := siteKey{fr.fn, pc}
	c := vm.index[key]
	if c == nil {
		c = newPolyCache()
		vm.index[key] = c
	}
	return c
}

func (vm *VM) callCache(fr *frame, pc int) *polyCache {
	key := siteKey{fr.fn, pc}
	c := vm.callSites[key]
	if c == nil {
		c = newPolyCache()
		vm.callSites[key] = c
	}
	return c
}

// globalSlot is GlobalIc's payload: a cached global value plus the
// VmContext generation it was read at. A binding write or a scope push/pop
// bumps the context generation (reads do not), so a stale slot is detected by comparing generations
// rather than re-walking the scope chain.
type globalSlot struct {
	value value.Value
	gen   uint64
}

func (vm *VM) globalCache(fr *frame, pc int) *globalSlot {
	key := siteKey{fr.fn, pc}
	s := vm.globals[key]
	if s == nil {
		s = &globalSlot{}
		vm.globals[key] = s
	}
	return s
}

// forRangeSlot is ForRangeIc's payload: the bound of a numeric for-loop,
// consulted by the loop header op (execForLoop), which refills it whenever
// the bound it reads differs from the cached one.
type forRangeSlot struct {
	valid     bool
	limit     int64
	inclusive bool
}

func (vm *VM) forRangeCache(fr *frame, pc int) *forRangeSlot {
	key := siteKey{fr.fn, pc}
	s := vm.forRanges[key]
	if s == nil {
		s = &forRangeSlot{}
		vm.forRanges[key] = s
	}
	return s
}

// namedPlan is a CallIc payload: how one named call site's arguments map
// onto one callee's named-parameter layout. Built once per (call site,
// callee) pair and cached, since the mapping depends only on the static
// argument names and the callee's layout, never on the argument values.
type namedPlan struct {
	// assign[i] is the index into the call instruction's Named slice
	// supplying NamedParamRegs[i]'s value, or -1 if not provided.
	assign []int32
	// needDefault lists named-parameter indices whose default thunk must
	// run because the caller didn't provide them.
	needDefault []int
	// needNil lists Optional<T> named-parameter indices with no provided
	// value and no default thunk: they resolve to Nil.
	needNil []int
}

// buildNamedPlan validates inst.Named against callee's layout and raises
// at plan-build time for duplicate, unknown, or missing-required keys,
// matching the call protocol's "all raise at plan build time" rule.
func buildNamedPlan(callerFn *code.Function, inst *code.Inst, callee *code.Function) (*namedPlan, error) {
	n := len(callee.NamedParamLayout)
	byName := make(map[string]int, n)
	for i, decl := range callee.NamedParamLayout {
		byName[decl.Name] = i
	}

	assign := make([]int32, n)
	for i := range assign {
		assign[i] = -1
	}
	provided := make(map[string]bool, len(inst.Named))
	for _, slot := range inst.Named {
		name := constString(callerFn, slot.NameConst)
		if provided[name] {
			return nil, vmerr.New(vmerr.DuplicateNamedArg, "duplicate named argument: %s", name)
		}
		provided[name] = true
		idx, ok := byName[name]
		if !ok {
			return nil, vmerr.New(vmerr.UnknownNamedArg, "unknown named argument: %s", name)
		}
		assign[idx] = slot.Reg
	}

	plan := &namedPlan{assign: assign}
	for i, decl := range callee.NamedParamLayout {
		if assign[i] != -1 {
			continue
		}
		switch {
		case decl.HasDefault:
			plan.needDefault = append(plan.needDefault, i)
		case decl.Optional:
			plan.needNil = append(plan.needNil, i)
		default:
			return nil, vmerr.New(vmerr.MissingRequiredArg, "missing required named argument: %s", decl.Name)
		}
	}
	return plan, nil
}

func constString(fn *code.Function, idx int32) string {
	if int(idx) < 0 || int(idx) >= len(fn.Consts) {
		return ""
	}
	v := fn.Consts[idx]
	if s, ok := v.Obj.(*value.Str); ok {
		return s.S
	}
	return v.Inspect()
}
