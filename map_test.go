package cart

import "testing"

func TestMapContainsAndEmpty(t *testing.T) {
	m := New[string]()
	if !m.Empty() {
		t.Fatalf("new map should be empty")
	}
	m.Insert([]byte("x"), "v")
	if m.Empty() {
		t.Fatalf("map with one entry reported empty")
	}
	if !m.Contains([]byte("x")) {
		t.Fatalf("Contains(x) = false, want true")
	}
	if m.Contains([]byte("y")) {
		t.Fatalf("Contains(y) = true, want false")
	}
}

func TestMapClearReleasesEverything(t *testing.T) {
	m := New[int]()
	for i := 0; i < 50; i++ {
		m.Insert([]byte{byte(i)}, i)
	}
	m.Clear()
	if m.Size() != 0 {
		t.Fatalf("Size after Clear = %d, want 0", m.Size())
	}
	if !m.Empty() {
		t.Fatalf("Empty() = false after Clear")
	}
	if _, ok := m.Find([]byte{5}); ok {
		t.Fatalf("Find after Clear returned true")
	}
	// map must still be usable after Clear
	m.Insert([]byte("again"), 1)
	if v, ok := m.Find([]byte("again")); !ok || v.Value() != 1 {
		t.Fatalf("insert after Clear failed")
	}
}

func TestMapBeginEndOnEmptyAndNonEmpty(t *testing.T) {
	m := New[int]()
	if m.Begin().Valid() {
		t.Fatalf("Begin() on empty map should be invalid")
	}
	if m.End().Valid() {
		t.Fatalf("End() should always be invalid")
	}
	m.Insert([]byte("only"), 7)
	it := m.Begin()
	if !it.Valid() || it.Value() != 7 {
		t.Fatalf("Begin() = %v valid=%v, want 7 valid=true", it.Value(), it.Valid())
	}
	if it.Next().Valid() {
		t.Fatalf("Next() should always land on End()")
	}
}

func TestMapSwapExchangesContents(t *testing.T) {
	a := New[int]()
	b := New[int]()
	a.Insert([]byte("a1"), 1)
	a.Insert([]byte("a2"), 2)
	b.Insert([]byte("b1"), 10)

	a.Swap(b)

	if a.Size() != 1 || b.Size() != 2 {
		t.Fatalf("sizes after Swap: a=%d b=%d, want 1,2", a.Size(), b.Size())
	}
	if _, ok := a.Find([]byte("b1")); !ok {
		t.Fatalf("a should now contain b1 after Swap")
	}
	if _, ok := b.Find([]byte("a1")); !ok {
		t.Fatalf("b should now contain a1 after Swap")
	}
	if _, ok := a.Find([]byte("a1")); ok {
		t.Fatalf("a should no longer contain a1 after Swap")
	}
}

func TestMapSwapSelfIsNoOp(t *testing.T) {
	m := New[int]()
	m.Insert([]byte("x"), 1)
	m.Swap(m)
	if m.Size() != 1 {
		t.Fatalf("Swap(self) changed size to %d, want 1", m.Size())
	}
}

func TestMapStatsTracksInsertsAndErases(t *testing.T) {
	m := New[int]()
	for i := 0; i < 10; i++ {
		m.Insert([]byte{byte(i)}, i)
	}
	for i := 0; i < 5; i++ {
		m.Erase([]byte{byte(i)})
	}
	stats := m.Stats()
	if stats.Inserts != 10 {
		t.Fatalf("Stats().Inserts = %d, want 10", stats.Inserts)
	}
	if stats.Erases != 5 {
		t.Fatalf("Stats().Erases = %d, want 5", stats.Erases)
	}
}

func TestMapDumpProducesNonEmptyOutput(t *testing.T) {
	m := New[int]()
	if got := m.String(); got != "(empty)\n" {
		t.Fatalf("String() on empty map = %q, want %q", got, "(empty)\n")
	}
	m.Insert([]byte("team"), 1)
	m.Insert([]byte("tears"), 2)
	got := m.String()
	if len(got) == 0 {
		t.Fatalf("String() on populated map returned empty string")
	}
}

func TestMapWithAllocatorModeDirect(t *testing.T) {
	m := New[int](WithAllocatorMode[Key, int](AllocatorDirect))
	for i := 0; i < 100; i++ {
		m.Insert([]byte{byte(i)}, i)
	}
	for i := 0; i < 100; i++ {
		if v, ok := m.Find([]byte{byte(i)}); !ok || v.Value() != i {
			t.Fatalf("Find(%d) = (%v, %v), want (%d, true)", i, v, ok, i)
		}
	}
	for i := 0; i < 100; i++ {
		if !m.Erase([]byte{byte(i)}) {
			t.Fatalf("Erase(%d) = false", i)
		}
	}
	if !m.Empty() {
		t.Fatalf("map not empty after erasing every key under AllocatorDirect")
	}
}

func TestMapValuesCollectsDistinctValues(t *testing.T) {
	m := New[int]()
	m.Insert([]byte("a"), 1)
	m.Insert([]byte("b"), 2)
	m.Insert([]byte("c"), 1) // duplicate value, distinct key
	set := Values[int](m)
	if set.Size() != 2 {
		t.Fatalf("Values() size = %d, want 2", set.Size())
	}
	if !set.Contains(1) || !set.Contains(2) {
		t.Fatalf("Values() missing expected members: %v", set)
	}
}

func TestMapValuesOnEmptyMap(t *testing.T) {
	m := New[int]()
	set := Values[int](m)
	if set.Size() != 0 {
		t.Fatalf("Values() on empty map size = %d, want 0", set.Size())
	}
}

func TestMapShapeHistogramTracksSkipLeaves(t *testing.T) {
	m := New[int]()
	hist := m.ShapeHistogram()
	if len(hist) != 0 {
		t.Fatalf("ShapeHistogram() on empty map = %v, want empty", hist)
	}
	m.Insert([]byte("solo"), 1)
	hist = m.ShapeHistogram()
	if hist["SKIP"] != 1 {
		t.Fatalf("ShapeHistogram() = %v, want one SKIP node for a single key", hist)
	}
}

func FuzzInsertErase(f *testing.F) {
	f.Add([]byte("a"), []byte("b"), []byte("c"))
	f.Fuzz(func(t *testing.T, k1, k2, k3 []byte) {
		m := New[int]()
		keys := [][]byte{k1, k2, k3}
		inMap := map[string]bool{}
		for i, k := range keys {
			_, inserted := m.Insert(k, i)
			inMap[string(k)] = inMap[string(k)] || inserted
		}
		for _, k := range keys {
			_, ok := m.Find(k)
			if ok != inMap[string(k)] {
				t.Fatalf("Find(%v) = %v, want %v", k, ok, inMap[string(k)])
			}
		}
		for _, k := range keys {
			removed := m.Erase(k)
			if removed != inMap[string(k)] {
				t.Fatalf("Erase(%v) = %v, want %v", k, removed, inMap[string(k)])
			}
			inMap[string(k)] = false
		}
		if !m.Empty() {
			t.Fatalf("map not empty after erasing every key")
		}
	})
}
