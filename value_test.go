package cart

import (
	"sync"
	"testing"
)

func TestCellSetGetClear(t *testing.T) {
	var c cell[int]
	if _, ok := c.get(); ok {
		t.Fatalf("new cell should be empty")
	}
	c.set(42)
	v, ok := c.get()
	if !ok || v != 42 {
		t.Fatalf("get() = (%d, %v), want (42, true)", v, ok)
	}
	c.clear()
	if _, ok := c.get(); ok {
		t.Fatalf("cell should be empty after clear")
	}
}

func TestAtomicCellReadAfterWrite(t *testing.T) {
	var c atomicCell[string]
	c.write("hello")
	v, present, ok := c.tryRead()
	if !ok || !present || v != "hello" {
		t.Fatalf("tryRead() = (%q, %v, %v), want (hello, true, true)", v, present, ok)
	}
	c.clear()
	_, present, ok = c.tryRead()
	if !ok || present {
		t.Fatalf("tryRead() after clear should report present=false")
	}
}

func TestAtomicCellConcurrentReadersAndWriter(t *testing.T) {
	var c atomicCell[int]
	c.write(1)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				v, present, ok := c.tryRead()
				if ok && present && v != 1 && v != 2 {
					t.Errorf("unexpected value observed: %d", v)
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		c.write(1 + i%2)
	}
	close(stop)
	wg.Wait()
}

func TestAtomicCellInlinePathAvoidsBoxing(t *testing.T) {
	var c atomicCell[int32]
	c.write(-7)
	if c.boxed.Load() != nil {
		t.Fatalf("inlineable value should never touch boxed")
	}
	v, present, ok := c.tryRead()
	if !ok || !present || v != -7 {
		t.Fatalf("tryRead() = (%d, %v, %v), want (-7, true, true)", v, present, ok)
	}
	c.write(9)
	if v, _, _ := c.tryRead(); v != 9 {
		t.Fatalf("overwrite of inline value failed: got %d, want 9", v)
	}
	c.clear()
	if _, present, _ := c.tryRead(); present {
		t.Fatalf("inline cell should report present=false after clear")
	}
}

func TestPackUnpackInlineRoundTrip(t *testing.T) {
	if got := unpackInline[int8](packInline(int8(-1))); got != -1 {
		t.Fatalf("int8 round trip = %d, want -1", got)
	}
	if got := unpackInline[bool](packInline(true)); got != true {
		t.Fatalf("bool round trip = %v, want true", got)
	}
	if got := unpackInline[float64](packInline(3.5)); got != 3.5 {
		t.Fatalf("float64 round trip = %v, want 3.5", got)
	}
	if got := unpackInline[uint32](packInline(uint32(0xDEADBEEF))); got != 0xDEADBEEF {
		t.Fatalf("uint32 round trip = %#x, want 0xDEADBEEF", got)
	}
}

func TestInlineableClassification(t *testing.T) {
	if !inlineable[int]() {
		t.Fatalf("int should be inlineable")
	}
	if !inlineable[bool]() {
		t.Fatalf("bool should be inlineable")
	}
	if inlineable[string]() {
		t.Fatalf("string should not be inlineable")
	}
	if inlineable[[]byte]() {
		t.Fatalf("[]byte should not be inlineable")
	}
}
