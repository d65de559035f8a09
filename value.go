package cart

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// inlineable reports whether V is small and trivially copyable enough to be
// embedded directly in a value cell's word instead of heap-boxed. Anything
// larger than a pointer, or any type that itself contains a pointer, is
// heap-boxed so the cell never needs to reason about embedded-GC-pointer
// scanning.
func inlineable[V any]() bool {
	var v V
	return unsafe.Sizeof(v) <= unsafe.Sizeof(uintptr(0)) && !containsPointer[V]()
}

// containsPointer is a conservative approximation: only a short allow-list
// of scalar kinds is considered pointer-free. Anything else (strings,
// slices, maps, interfaces, structs with such fields) is heap-boxed.
func containsPointer[V any]() bool {
	var v any = *new(V)
	switch v.(type) {
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr,
		float32, float64:
		return false
	default:
		return true
	}
}

// packInline copies v's raw bytes into the low bytes of a uint64. Only
// meaningful when inlineable[V]() holds: any larger type would have its
// tail bytes silently dropped.
func packInline[V any](v V) uint64 {
	var u uint64
	sz := unsafe.Sizeof(v)
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), sz)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&u)), sz)
	copy(dst, src)
	return u
}

// unpackInline is packInline's inverse.
func unpackInline[V any](u uint64) V {
	var v V
	sz := unsafe.Sizeof(v)
	src := unsafe.Slice((*byte)(unsafe.Pointer(&u)), sz)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&v)), sz)
	copy(dst, src)
	return v
}

// cell is the single-threaded value cell: a raw word plus a presence flag,
// read and written directly with no synchronization.
type cell[V any] struct {
	inline V
	boxed  *V
	isSet  bool
}

func (c *cell[V]) set(v V) {
	c.inline = v
	c.isSet = true
}

func (c *cell[V]) get() (V, bool) {
	var zero V
	if !c.isSet {
		return zero, false
	}
	if c.boxed != nil {
		return *c.boxed, true
	}
	return c.inline, true
}

func (c *cell[V]) clear() {
	var zero V
	c.inline = zero
	c.boxed = nil
	c.isSet = false
}

// Threaded value cell protocol bits, held in the low bits of an
// atomic.Uint64 state word. The engine never needs to
// recover a pointer from this word directly (the payload lives in boxed),
// it only needs WRITE/READ as a conflict signal.
const (
	cellBitWrite uint64 = 1 << 0
	cellBitRead  uint64 = 1 << 1
)

// atomicCell is the threaded, lock-free value cell used by every entry
// once a map is built for concurrent access. state holds only the
// WRITE/READ protocol bits, by which concurrent readers detect a
// conflicting write; present is mutated
// only under WRITE and read only under READ, same as the payload itself.
//
// The payload lives in one of two places depending on inlineable[V]():
// a handful of small, pointer-free scalar kinds are packed directly into
// the inline word, avoiding a heap allocation and pointer chase per
// write; everything else still goes through boxed, as before.
type atomicCell[V any] struct {
	state   atomic.Uint64
	boxed   atomic.Pointer[V]
	inline  atomic.Uint64
	present atomic.Bool
}

// tryRead attempts a lock-free read. ok is false if a writer currently holds
// WRITE; the caller is expected to retry from the root, not spin here,
// because the ancestor chain may have been rebuilt.
func (c *atomicCell[V]) tryRead() (v V, present, ok bool) {
	for spins := 0; ; spins++ {
		s := c.state.Load()
		if s&cellBitWrite != 0 {
			var zero V
			return zero, false, false
		}
		if s&cellBitRead != 0 {
			runtime.Gosched()
			continue
		}
		if c.state.CompareAndSwap(s, s|cellBitRead) {
			if !c.present.Load() {
				c.state.And(^cellBitRead)
				var zero V
				return zero, false, true
			}
			var val V
			if inlineable[V]() {
				val = unpackInline[V](c.inline.Load())
			} else {
				val = *c.boxed.Load()
			}
			c.state.And(^cellBitRead)
			return val, true, true
		}
		if spins > 64 {
			runtime.Gosched()
		}
	}
}

// write installs a new value, excluding readers only for the instant it
// takes to install the payload.
func (c *atomicCell[V]) write(v V) {
	for {
		s := c.state.Load()
		if s&(cellBitWrite|cellBitRead) != 0 {
			runtime.Gosched()
			continue
		}
		if c.state.CompareAndSwap(s, s|cellBitWrite) {
			break
		}
	}
	// spin until any in-flight reader (which raced in just before our CAS
	// landed is impossible since WRITE now blocks new readers, but a
	// reader that observed the pre-WRITE state and is mid-copy must drain)
	for c.state.Load()&cellBitRead != 0 {
		runtime.Gosched()
	}
	if inlineable[V]() {
		c.inline.Store(packInline(v))
	} else {
		vv := v
		c.boxed.Store(&vv)
	}
	c.present.Store(true)
	c.state.And(^cellBitWrite)
}

func (c *atomicCell[V]) clear() {
	for {
		s := c.state.Load()
		if s&(cellBitWrite|cellBitRead) != 0 {
			runtime.Gosched()
			continue
		}
		if c.state.CompareAndSwap(s, s|cellBitWrite) {
			break
		}
	}
	for c.state.Load()&cellBitRead != 0 {
		runtime.Gosched()
	}
	c.present.Store(false)
	if !inlineable[V]() {
		c.boxed.Store(nil)
	}
	c.state.And(^cellBitWrite)
}
