package cart

import "testing"

func TestEraseNotFound(t *testing.T) {
	m := New[int]()
	m.Insert([]byte("a"), 1)
	if m.Erase([]byte("b")) {
		t.Fatalf("Erase of an absent key reported true")
	}
	if m.Size() != 1 {
		t.Fatalf("Size = %d, want 1", m.Size())
	}
}

func TestEraseDeleteSkipLeaf(t *testing.T) {
	m := New[int]()
	m.Insert([]byte("only"), 1)
	if !m.Erase([]byte("only")) {
		t.Fatalf("Erase of an existing key reported false")
	}
	if m.Size() != 0 {
		t.Fatalf("Size = %d, want 0", m.Size())
	}
	if _, ok := m.Find([]byte("only")); ok {
		t.Fatalf("key found after erase")
	}
}

func TestEraseInPlaceLeaf(t *testing.T) {
	m := New[int]()
	m.Insert([]byte{'k', 1}, 1)
	m.Insert([]byte{'k', 2}, 2)
	m.Insert([]byte{'k', 3}, 3)

	if !m.Erase([]byte{'k', 2}) {
		t.Fatalf("Erase reported false")
	}
	if _, ok := m.Find([]byte{'k', 2}); ok {
		t.Fatalf("erased key still found")
	}
	for _, tc := range []struct {
		key  []byte
		want int
	}{{[]byte{'k', 1}, 1}, {[]byte{'k', 3}, 3}} {
		v, ok := m.Find(tc.key)
		if !ok || v.Value() != tc.want {
			t.Fatalf("Find(%v) = %v, %v; want %d, true", tc.key, v.Value(), ok, tc.want)
		}
	}
	if m.Size() != 2 {
		t.Fatalf("Size = %d, want 2", m.Size())
	}
}

func TestEraseDeleteEOSInterior(t *testing.T) {
	m := New[int]()
	m.Insert([]byte("tea"), 1)
	m.Insert([]byte("teardrop"), 2)

	if !m.Erase([]byte("tea")) {
		t.Fatalf("Erase reported false")
	}
	if _, ok := m.Find([]byte("tea")); ok {
		t.Fatalf("erased key still found")
	}
	v, ok := m.Find([]byte("teardrop"))
	if !ok || v.Value() != 2 {
		t.Fatalf("Find(teardrop) = %v, %v; want 2, true", v.Value(), ok)
	}
	if m.Size() != 1 {
		t.Fatalf("Size = %d, want 1", m.Size())
	}
}

func TestEraseCollapseAfterEOSRemoval(t *testing.T) {
	m := New[int]()
	// build an interior at "tea" with EOS=0 and exactly one child 'r'->"drop"
	m.Insert([]byte("teardrop"), 1)
	m.Insert([]byte("tea"), 0)

	if !m.Erase([]byte("tea")) {
		t.Fatalf("Erase reported false")
	}
	// "tea" no longer present, "teardrop" still is, and the tree should
	// still be internally consistent after the interior collapsed back
	// toward a path-compressed shape
	if _, ok := m.Find([]byte("tea")); ok {
		t.Fatalf("erased key still found")
	}
	v, ok := m.Find([]byte("teardrop"))
	if !ok || v.Value() != 1 {
		t.Fatalf("Find(teardrop) = %v, %v; want 1, true", v.Value(), ok)
	}
}

func TestEraseCollapseAfterChildRemoval(t *testing.T) {
	m := New[int]()
	m.Insert([]byte("tea"), 1)
	m.Insert([]byte("teardrop"), 2)
	m.Insert([]byte("teas"), 3)

	// remove one of the two children under the "tea" interior, leaving
	// exactly one child and an EOS - should collapse without disturbing
	// the survivors
	if !m.Erase([]byte("teas")) {
		t.Fatalf("Erase reported false")
	}
	if _, ok := m.Find([]byte("teas")); ok {
		t.Fatalf("erased key still found")
	}
	v, ok := m.Find([]byte("tea"))
	if !ok || v.Value() != 1 {
		t.Fatalf("Find(tea) = %v, %v; want 1, true", v.Value(), ok)
	}
	v, ok = m.Find([]byte("teardrop"))
	if !ok || v.Value() != 2 {
		t.Fatalf("Find(teardrop) = %v, %v; want 2, true", v.Value(), ok)
	}
}

func TestEraseShrinksMultiEntryLeafAcrossShapes(t *testing.T) {
	m := New[int]()
	const n = 200
	for i := 0; i < n; i++ {
		m.Insert([]byte{'k', byte(i)}, i)
	}
	for i := 0; i < n-1; i++ {
		if !m.Erase([]byte{'k', byte(i)}) {
			t.Fatalf("Erase %d reported false", i)
		}
	}
	if m.Size() != 1 {
		t.Fatalf("Size = %d, want 1", m.Size())
	}
	v, ok := m.Find([]byte{'k', byte(n - 1)})
	if !ok || v.Value() != n-1 {
		t.Fatalf("Find(last survivor) = %v, %v; want %d, true", v.Value(), ok, n-1)
	}
}

func TestEraseEmptiesWholeMap(t *testing.T) {
	m := New[int]()
	keys := [][]byte{[]byte("a"), []byte("ab"), []byte("abc"), []byte("b")}
	for i, k := range keys {
		m.Insert(k, i)
	}
	for _, k := range keys {
		if !m.Erase(k) {
			t.Fatalf("Erase(%q) reported false", k)
		}
	}
	if m.Size() != 0 {
		t.Fatalf("Size = %d, want 0", m.Size())
	}
	if !m.Empty() {
		t.Fatalf("Empty() = false after erasing every key")
	}
	for _, k := range keys {
		if _, ok := m.Find(k); ok {
			t.Fatalf("Find(%q) still true after erasing everything", k)
		}
	}
}

func TestEraseThreadedMode(t *testing.T) {
	m := New[int](WithThreaded[Key, int](true))
	const n = 300
	for i := 0; i < n; i++ {
		m.Insert([]byte{byte(i >> 8), byte(i)}, i)
	}
	for i := 0; i < n; i += 2 {
		if !m.Erase([]byte{byte(i >> 8), byte(i)}) {
			t.Fatalf("Erase %d reported false", i)
		}
	}
	if m.Size() != n/2 {
		t.Fatalf("Size = %d, want %d", m.Size(), n/2)
	}
	for i := 1; i < n; i += 2 {
		v, ok := m.Find([]byte{byte(i >> 8), byte(i)})
		if !ok || v.Value() != i {
			t.Fatalf("Find(%d) = %v, %v; want %d, true", i, v.Value(), ok, i)
		}
	}
}
