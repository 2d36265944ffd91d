package value

import "testing"

func TestPersistentMapPutGetDelete(t *testing.T) {
	m := emptyPersistentMap()
	m2 := m.Put("a", Int(1))
	m3 := m2.Put("b", Int(2))

	if _, ok := m.Get("a"); ok {
		t.Fatal("Put must not mutate the receiver")
	}
	if v, ok := m2.Get("a"); !ok || v.AsInt() != 1 {
		t.Fatalf("m2.Get(a) = %v, %v", v.Inspect(), ok)
	}
	if _, ok := m2.Get("b"); ok {
		t.Fatal("m2 must not see a key only m3 has")
	}
	if v, ok := m3.Get("b"); !ok || v.AsInt() != 2 {
		t.Fatalf("m3.Get(b) = %v, %v", v.Inspect(), ok)
	}
	if m3.Len() != 2 {
		t.Fatalf("m3.Len() = %d, want 2", m3.Len())
	}

	m4, removed := m3.Delete("a")
	if !removed {
		t.Fatal("Delete(a) should report removed=true")
	}
	if _, ok := m4.Get("a"); ok {
		t.Fatal("m4 should no longer have key a")
	}
	if _, ok := m3.Get("a"); !ok {
		t.Fatal("Delete must not mutate the receiver: m3 should still have key a")
	}
}

func TestPersistentMapOverwriteDoesNotGrowCount(t *testing.T) {
	m := emptyPersistentMap().Put("k", Int(1))
	m2 := m.Put("k", Int(2))
	if m2.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m2.Len())
	}
	v, _ := m2.Get("k")
	if v.AsInt() != 2 {
		t.Fatalf("Get(k) = %v, want 2", v.Inspect())
	}
}

func TestPersistentMapManyKeysRoundTrip(t *testing.T) {
	m := emptyPersistentMap()
	const n = 500
	for i := 0; i < n; i++ {
		m = m.Put(keyOf(i), Int(int64(i)))
	}
	if m.Len() != n {
		t.Fatalf("Len() = %d, want %d", m.Len(), n)
	}
	for i := 0; i < n; i++ {
		v, ok := m.Get(keyOf(i))
		if !ok || v.AsInt() != int64(i) {
			t.Fatalf("Get(%s) = %v, %v, want %d", keyOf(i), v.Inspect(), ok, i)
		}
	}
	seen := make(map[string]bool, n)
	m.Range(func(k string, _ Value) bool {
		seen[k] = true
		return true
	})
	if len(seen) != n {
		t.Fatalf("Range visited %d keys, want %d", len(seen), n)
	}
}

func keyOf(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	if i < len(letters) {
		return string(letters[i])
	}
	return string(letters[i%len(letters)]) + keyOf(i/len(letters)-1)
}
