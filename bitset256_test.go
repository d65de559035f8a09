package cart

import "testing"

func TestBitset256GetSetClear(t *testing.T) {
	var b bitset256

	indices := []byte{0, 63, 64, 127, 128, 191, 192, 255}
	for _, i := range indices {
		if b.Test(i) {
			t.Fatalf("bit %d should be clear initially", i)
		}
	}

	for _, i := range indices {
		b.Set(i)
		if !b.Test(i) {
			t.Fatalf("bit %d should be set after Set()", i)
		}
	}

	for _, i := range []byte{1, 2, 60, 65, 129, 254} {
		if b.Test(i) {
			t.Fatalf("bit %d should remain clear", i)
		}
	}

	for _, i := range indices {
		b.Clear(i)
		if b.Test(i) {
			t.Fatalf("bit %d should be clear after Clear()", i)
		}
	}
}

func TestBitset256Count(t *testing.T) {
	var b bitset256

	if got := b.Count(); got != 0 {
		t.Fatalf("expected count 0 on new bitset, got %d", got)
	}

	b.Set(10)
	b.Set(20)
	b.Set(10) // duplicate, should not increase count
	if got := b.Count(); got != 2 {
		t.Fatalf("expected count 2, got %d", got)
	}

	b.Set(0)
	b.Set(255)
	if got := b.Count(); got != 4 {
		t.Fatalf("expected count 4, got %d", got)
	}

	b.Clear(20)
	if got := b.Count(); got != 3 {
		t.Fatalf("expected count 3 after clearing one bit, got %d", got)
	}
}

func TestBitset256RankAndFirstSet(t *testing.T) {
	var b bitset256
	b.Set(5)
	b.Set(64)
	b.Set(200)

	if rank := b.Rank0(5); rank != 0 {
		t.Fatalf("rank0(5) = %d, want 0", rank)
	}
	if rank := b.Rank0(64); rank != 1 {
		t.Fatalf("rank0(64) = %d, want 1", rank)
	}
	if rank := b.Rank0(200); rank != 2 {
		t.Fatalf("rank0(200) = %d, want 2", rank)
	}

	first, ok := b.FirstSet()
	if !ok || first != 5 {
		t.Fatalf("FirstSet() = (%d, %v), want (5, true)", first, ok)
	}

	var empty bitset256
	if _, ok := empty.FirstSet(); ok {
		t.Fatalf("FirstSet() on empty bitset should report false")
	}
}

func TestBitset256NthSetAndAll(t *testing.T) {
	var b bitset256
	want := []byte{3, 9, 130, 255}
	for _, w := range want {
		b.Set(w)
	}

	for n, w := range want {
		got, ok := b.NthSet(n)
		if !ok || got != w {
			t.Fatalf("NthSet(%d) = (%d, %v), want (%d, true)", n, got, ok, w)
		}
	}
	if _, ok := b.NthSet(len(want)); ok {
		t.Fatalf("NthSet(%d) should report false", len(want))
	}

	var collected []byte
	b.All(func(v byte) bool {
		collected = append(collected, v)
		return true
	})
	if len(collected) != len(want) {
		t.Fatalf("All visited %d bits, want %d", len(collected), len(want))
	}
	for i, w := range want {
		if collected[i] != w {
			t.Fatalf("All order mismatch at %d: got %d want %d", i, collected[i], w)
		}
	}
}

func TestBitset256MultipleOperations(t *testing.T) {
	var b bitset256

	for i := 0; i < 10; i++ {
		b.Set(42)
	}
	if !b.Test(42) {
		t.Fatalf("bit 42 should be set")
	}
	if got := b.Count(); got != 1 {
		t.Fatalf("expected count 1 after repeatedly setting same bit, got %d", got)
	}

	b.Clear(42)
	if b.Test(42) {
		t.Fatalf("bit 42 should be clear after Clear()")
	}
	if got := b.Count(); got != 0 {
		t.Fatalf("expected count 0 after clearing last bit, got %d", got)
	}
}
