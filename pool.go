package cart

import (
	"unsafe"

	"github.com/TomTonic/cart/internal/bytealloc"
)

// pool.go: per-shape node recycling, one allocator per concrete shape
// struct since they differ in size. The actual allocation strategy
// (pooled, direct, or caller-supplied) lives behind internal/bytealloc;
// shapePool only knows the byte size of its T and forwards to its
// Allocator.

// shapePool is a type-safe wrapper around a bytealloc.Allocator for one
// concrete node shape, tracking allocation counts for Stats via whatever
// the underlying allocator reports.
type shapePool[T any] struct {
	alloc bytealloc.Allocator
	size  uintptr
}

// newShapePool builds a shapePool backed by the default pooled allocator.
func newShapePool[T any]() *shapePool[T] {
	return newShapePoolWith[T](bytealloc.NewPoolAllocator[T]())
}

// newShapePoolWith builds a shapePool backed by an explicit allocator,
// used when a Map is constructed with WithAllocatorMode.
func newShapePoolWith[T any](alloc bytealloc.Allocator) *shapePool[T] {
	var zero T
	return &shapePool[T]{alloc: alloc, size: unsafe.Sizeof(zero)}
}

func (p *shapePool[T]) get() *T {
	if p == nil {
		return new(T)
	}
	raw := p.alloc.Alloc(p.size)
	if raw == nil {
		panic(ErrAllocation)
	}
	return (*T)(raw)
}

func (p *shapePool[T]) put(t *T) {
	if p == nil || t == nil {
		return
	}
	p.alloc.Free(unsafe.Pointer(t), p.size)
}

func (p *shapePool[T]) stats() (live, total int64) {
	if p == nil {
		return 0, 0
	}
	if s, ok := p.alloc.(interface{ Stats() (int64, int64) }); ok {
		return s.Stats()
	}
	return 0, 0
}

// nodePools bundles one shapePool per concrete shape struct. A Map holds
// one nodePools[V] and routes every allocation of a replacement/grown node
// through it instead of a bare "new".
type nodePools[V any] struct {
	skip   *shapePool[skipNode[V]]
	binary *shapePool[binaryNode[V]]
	list   *shapePool[listNode[V]]
	pop    *shapePool[popNode[V]]
	full   *shapePool[fullNode[V]]
}

func newNodePools[V any]() *nodePools[V] {
	return &nodePools[V]{
		skip:   newShapePool[skipNode[V]](),
		binary: newShapePool[binaryNode[V]](),
		list:   newShapePool[listNode[V]](),
		pop:    newShapePool[popNode[V]](),
		full:   newShapePool[fullNode[V]](),
	}
}

// newNodePoolsMode builds a nodePools using the allocation strategy named
// by mode, selected via WithAllocatorMode at Map construction.
func newNodePoolsMode[V any](mode AllocatorMode) *nodePools[V] {
	if mode == AllocatorDirect {
		return &nodePools[V]{
			skip:   newShapePoolWith[skipNode[V]](bytealloc.NewDirectAllocator[skipNode[V]]()),
			binary: newShapePoolWith[binaryNode[V]](bytealloc.NewDirectAllocator[binaryNode[V]]()),
			list:   newShapePoolWith[listNode[V]](bytealloc.NewDirectAllocator[listNode[V]]()),
			pop:    newShapePoolWith[popNode[V]](bytealloc.NewDirectAllocator[popNode[V]]()),
			full:   newShapePoolWith[fullNode[V]](bytealloc.NewDirectAllocator[fullNode[V]]()),
		}
	}
	return newNodePools[V]()
}

// allocGrown allocates, from pools, the next-larger shape for n and copies
// its contents over - the pool-routed counterpart to growFrom, used by the
// insert engine's shape-grow commit so repeatedly-split hot keys recycle
// node memory instead of pressuring the GC on every structural insert.
func allocGrown[V any](pools *nodePools[V], n *node[V]) *node[V] {
	next, ok := nextShape(n.shp)
	if !ok {
		invariantViolation("allocGrown called on a node with no larger shape")
	}
	var out *node[V]
	switch next {
	case shapeBinary:
		g := pools.binary.get()
		*g = binaryNode[V]{}
		g.shp, g.isLeaf = shapeBinary, n.isLeaf
		g.setSkip(n.skipBytes())
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	case shapeList:
		g := pools.list.get()
		*g = listNode[V]{}
		g.shp, g.isLeaf = shapeList, n.isLeaf
		g.setSkip(n.skipBytes())
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	case shapePop:
		g := pools.pop.get()
		*g = popNode[V]{}
		g.shp, g.isLeaf = shapePop, n.isLeaf
		g.setSkip(n.skipBytes())
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	case shapeFull:
		g := pools.full.get()
		*g = fullNode[V]{}
		g.shp, g.isLeaf = shapeFull, n.isLeaf
		g.setSkip(n.skipBytes())
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	default:
		invariantViolation("unreachable shape in allocGrown")
	}
	out.hasEOS = n.hasEOS
	if n.hasEOS {
		if v, present, _ := n.eos.tryRead(); present {
			out.eos.write(v)
		}
	}
	out.poisoned = true
	return out
}

// allocShrunk allocates, from pools, the next-smaller shape for n and
// copies its remaining entries over - the pool-routed counterpart to
// shrinkInto, used by the erase engine's shape-shrink cascade.
func allocShrunk[V any](pools *nodePools[V], n *node[V]) *node[V] {
	prev, ok := prevShape(n.shp)
	if !ok {
		invariantViolation("allocShrunk called on a node with no smaller shape")
	}
	src := asFanout[V](n)
	if prev == shapeSkip {
		bs := src.bytes()
		if len(bs) != 1 {
			invariantViolation("shrink to SKIP requires exactly one surviving entry")
		}
		e, _ := src.entryFor(bs[0])
		newSkip := append(append([]byte{}, n.skipBytes()...), bs[0])
		g := pools.skip.get()
		*g = skipNode[V]{}
		g.shp, g.isLeaf = shapeSkip, n.isLeaf
		g.setSkip(newSkip)
		if n.isLeaf {
			v, _, _ := e.value.tryRead()
			g.ent.value.write(v)
		} else {
			g.setSkip(n.skipBytes())
			g.edge = bs[0]
			g.ent.child.Store(e.child.Load())
		}
		out := g.asNode()
		out.hasEOS = n.hasEOS
		if n.hasEOS {
			if v, present, _ := n.eos.tryRead(); present {
				out.eos.write(v)
			}
		}
		out.poisoned = true
		return out
	}

	var out *node[V]
	switch prev {
	case shapeBinary:
		g := pools.binary.get()
		*g = binaryNode[V]{}
		g.shp, g.isLeaf = shapeBinary, n.isLeaf
		g.setSkip(n.skipBytes())
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	case shapeList:
		g := pools.list.get()
		*g = listNode[V]{}
		g.shp, g.isLeaf = shapeList, n.isLeaf
		g.setSkip(n.skipBytes())
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	case shapePop:
		g := pools.pop.get()
		*g = popNode[V]{}
		g.shp, g.isLeaf = shapePop, n.isLeaf
		g.setSkip(n.skipBytes())
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	default:
		invariantViolation("unreachable shape in allocShrunk")
	}
	out.hasEOS = n.hasEOS
	if n.hasEOS {
		if v, present, _ := n.eos.tryRead(); present {
			out.eos.write(v)
		}
	}
	out.poisoned = true
	return out
}

// release returns a retired node to its shape's pool. Only called once a
// node is known unreachable (after EBR reclaim in threaded mode, or
// immediately in single-threaded mode) - never on a poisoned node's
// borrowed children, which freeSubtree already refuses to walk into.
func release[V any](pools *nodePools[V], n *node[V]) {
	switch n.shp {
	case shapeSkip:
		pools.skip.put(n.asSkip())
	case shapeBinary:
		pools.binary.put(n.asBinary())
	case shapeList:
		pools.list.put(n.asList())
	case shapePop:
		pools.pop.put(n.asPop())
	case shapeFull:
		pools.full.put(n.asFull())
	}
}

// freeSubtree recursively returns n and, unless n is poisoned, its
// children, to pools. Poisoned nodes borrow their descendants from a still
// live victim and must not walk into them here, mirroring freeNode.
func freeSubtree[V any](pools *nodePools[V], n *node[V]) {
	if n == nil || n.poisoned {
		return
	}
	if !n.isLeaf {
		fo := asFanout[V](n)
		for _, b := range fo.bytes() {
			e, _ := fo.entryFor(b)
			freeSubtree(pools, e.child.Load())
		}
	}
	release(pools, n)
}
