package value

import (
	"sort"
	"strings"
	"unsafe"
)

// Map is a shared-owned mapping from string to Value, backed by the
// persistentMap trie. Mutation goes only through MapMutation, matching
// List's discipline.
type Map struct {
	m *persistentMap
}

func EmptyMap() *Map { return &Map{m: emptyPersistentMap()} }

func newMapFrom(pm *persistentMap) *Map { return &Map{m: pm} }

func (mv *Map) TypeName() string { return "Map" }

func (mv *Map) Inspect() string {
	keys := mv.SortedKeys()
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		v, _ := mv.m.Get(k)
		sb.WriteByte('"')
		sb.WriteString(k)
		sb.WriteString("\": ")
		sb.WriteString(v.Inspect())
	}
	sb.WriteByte('}')
	return sb.String()
}

func (mv *Map) Hash() uint32 {
	var h uint32
	mv.Range(func(k string, v Value) bool {
		h ^= (keyHash(k) * 31) ^ v.Hash()
		return true
	})
	return h
}

func (mv *Map) IdentityKey() uintptr { return uintptr(unsafe.Pointer(mv)) }

func (mv *Map) Len() int { return mv.m.Len() }

// Get returns Nil, not an error, for a missing key.
func (mv *Map) Get(key string) (Value, bool) { return mv.m.Get(key) }

func (mv *Map) GetOrNil(key string) Value {
	v, ok := mv.m.Get(key)
	if !ok {
		return Nil()
	}
	return v
}

func (mv *Map) Range(f func(key string, v Value) bool) { mv.m.Range(f) }

func (mv *Map) SortedKeys() []string {
	keys := make([]string, 0, mv.Len())
	mv.Range(func(k string, _ Value) bool {
		keys = append(keys, k)
		return true
	})
	sort.Strings(keys)
	return keys
}

// Merge combines mv with other, with other's values winning on key
// collision.
func (mv *Map) Merge(other *Map) *Map {
	result := mv.m
	other.Range(func(k string, v Value) bool {
		result = result.Put(k, v)
		return true
	})
	return newMapFrom(result)
}

// Without implements `Map - Str` key removal.
func (mv *Map) Without(key string) *Map {
	result, _ := mv.m.Delete(key)
	return newMapFrom(result)
}
