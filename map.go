package cart

import (
	"sync"
	"sync/atomic"
	"unsafe"

	set3 "github.com/TomTonic/Set3"

	"github.com/TomTonic/cart/ebr"
)

// Map is a concurrent adaptive-radix trie keyed by byte strings. The zero
// value is not usable; construct with New. A Map built with
// WithThreaded(true) supports lock-free reads concurrent with writes;
// otherwise it is safe for single-goroutine use only (like a plain
// built-in map).
type Map[V any] struct {
	trait    KeyTrait[Key]
	threaded bool

	root atomicSlot[V]
	size atomic.Int64

	mu      sync.Mutex // serializes all writers; see DESIGN.md on striping
	dom     *ebr.Domain
	guards  sync.Pool // *ebr.Guard, only populated/used when threaded
	pools   *nodePools[V]
	metrics metricsCounters
}

// New constructs an empty Map over []byte / Key keys. Pass WithThreaded(true)
// to enable the lock-free-read engine.
func New[V any](opts ...Option[Key, V]) *Map[V] {
	o := &options[Key, V]{trait: ByteKeyTrait{}}
	for _, opt := range opts {
		opt(o)
	}
	m := &Map[V]{
		trait:    o.trait,
		threaded: o.threaded,
		pools:    newNodePoolsMode[V](o.allocatorMode),
	}
	if m.threaded {
		m.dom = ebr.NewDomain()
		m.guards.New = func() any { return m.dom.NewGuard() }
	}
	return m
}

// guard checks out an EBR guard for the duration of one operation in
// threaded mode; a no-op pair in single-threaded mode.
func (m *Map[V]) enterGuard() *ebr.Guard {
	if !m.threaded {
		return nil
	}
	g := m.guards.Get().(*ebr.Guard)
	g.Enter()
	return g
}

func (m *Map[V]) exitGuard(g *ebr.Guard) {
	if g == nil {
		return
	}
	g.Exit()
	m.guards.Put(g)
}

// retireOne schedules the single node n (not its children) for release
// once it is provably unreachable by any in-flight reader. In
// single-threaded mode there are no concurrent readers to wait for, so it
// is released immediately.
func (m *Map[V]) retireOne(n *node[V]) {
	if m.threaded {
		m.dom.Retire(func() { release(m.pools, n) })
		m.metrics.reclaims.Add(1)
		return
	}
	release(m.pools, n)
}

// retireSubtree schedules the whole subtree rooted at n (which n
// exclusively owns - no sharing with any still-live node) for release.
func (m *Map[V]) retireSubtree(n *node[V]) {
	if n == nil {
		return
	}
	if m.threaded {
		m.dom.Retire(func() { freeSubtree(m.pools, n) })
		m.metrics.reclaims.Add(1)
		return
	}
	freeSubtree(m.pools, n)
}

func (m *Map[V]) toBytes(key Key) []byte { return m.trait.ToBytes(key) }

// Contains reports whether key is present.
func (m *Map[V]) Contains(key []byte) bool {
	_, ok := m.Find(key)
	return ok
}

// Find returns a snapshot iterator for key, or !ok if key is absent.
func (m *Map[V]) Find(key []byte) (Iterator[V], bool) {
	g := m.enterGuard()
	defer m.exitGuard(g)

	for {
		res, path, _ := descend[V](&m.root, key)
		switch res {
		case navRestart:
			continue
		case navFoundLeaf:
			last := path.last()
			v, present, ok := readTerminalValue(last.n, path.leafByte)
			if !ok {
				continue // lost a race with a concurrent writer mid-cell-write; retry
			}
			if !present {
				return endIterator[V](), false
			}
			return Iterator[V]{key: append([]byte(nil), key...), value: v, ok: true}, true
		case navFoundEOS:
			last := path.last()
			v, present, ok := last.n.eos.tryRead()
			if !ok {
				continue
			}
			if !present {
				return endIterator[V](), false
			}
			return Iterator[V]{key: append([]byte(nil), key...), value: v, ok: true}, true
		default:
			return endIterator[V](), false
		}
	}
}

// readTerminalValue reads the value held by a leaf node matched by
// descend: for a SKIP leaf, its single embedded entry; for every other
// leaf shape, the entry selected by leafByte.
func readTerminalValue[V any](n *node[V], leafByte byte) (v V, present bool, ok bool) {
	if n.shp == shapeSkip {
		return n.asSkip().ent.value.tryRead()
	}
	fo := asFanout[V](n)
	e, found := fo.entryFor(leafByte)
	if !found {
		var zero V
		return zero, false, true
	}
	return e.value.tryRead()
}

// Values collects every value currently stored in m into a Set3, discarding
// duplicates and key association. V must be comparable, same constraint
// Set3 itself requires of its element type.
func Values[V comparable](m *Map[V]) *set3.Set3[V] {
	g := m.enterGuard()
	defer m.exitGuard(g)
	result := set3.Empty[V]()
	root := m.root.load()
	if root != nil {
		collectValues[V](root, result)
	}
	return result
}

func collectValues[V comparable](n *node[V], into *set3.Set3[V]) {
	if n.hasEOS {
		if v, present, _ := n.eos.tryRead(); present {
			into.Add(v)
		}
	}
	if n.isLeaf {
		if n.shp == shapeSkip {
			if v, present, _ := n.asSkip().ent.value.tryRead(); present {
				into.Add(v)
			}
			return
		}
		fo := asFanout[V](n)
		for _, b := range fo.bytes() {
			e, _ := fo.entryFor(b)
			if v, present, _ := e.value.tryRead(); present {
				into.Add(v)
			}
		}
		return
	}
	fo := asFanout[V](n)
	for _, b := range fo.bytes() {
		e, _ := fo.entryFor(b)
		if child := e.child.Load(); child != nil {
			collectValues[V](child, into)
		}
	}
}

// Stats returns a point-in-time snapshot of internal counters (insert and
// erase counts, probe retries, shape growths/shrinks, reclaims).
func (m *Map[V]) Stats() Stats { return m.metrics.snapshot() }

// Size returns the number of entries currently in the map.
func (m *Map[V]) Size() int { return int(m.size.Load()) }

// Empty reports whether the map has no entries.
func (m *Map[V]) Empty() bool { return m.Size() == 0 }

// Begin returns a snapshot iterator over some entry, or End() if the map
// is empty. Forward ordered scanning is out of scope; Begin exists for
// API parity with the rest of the map's method surface.
func (m *Map[V]) Begin() Iterator[V] {
	g := m.enterGuard()
	defer m.exitGuard(g)
	root := m.root.load()
	if root == nil {
		return endIterator[V]()
	}
	k, v, ok := firstEntry[V](root, nil)
	if !ok {
		return endIterator[V]()
	}
	return Iterator[V]{key: k, value: v, ok: true}
}

// End returns the end-of-sequence iterator.
func (m *Map[V]) End() Iterator[V] { return endIterator[V]() }

// firstEntry walks down the leftmost path from n (by ascending byte order)
// to find any single concrete (key, value) pair, used only by Begin.
func firstEntry[V any](n *node[V], prefix []byte) ([]byte, V, bool) {
	prefix = append(append([]byte(nil), prefix...), n.skipBytes()...)
	if n.isLeaf {
		if n.shp == shapeSkip {
			v, present, _ := n.asSkip().ent.value.tryRead()
			if present {
				return prefix, v, true
			}
			var zero V
			return nil, zero, false
		}
		fo := asFanout[V](n)
		for _, b := range fo.bytes() {
			e, _ := fo.entryFor(b)
			if v, present, _ := e.value.tryRead(); present {
				return append(append([]byte(nil), prefix...), b), v, true
			}
		}
		var zero V
		return nil, zero, false
	}
	if n.hasEOS {
		if v, present, _ := n.eos.tryRead(); present {
			return prefix, v, true
		}
	}
	fo := asFanout[V](n)
	for _, b := range fo.bytes() {
		e, _ := fo.entryFor(b)
		child := e.child.Load()
		if child == nil {
			continue
		}
		if k, v, ok := firstEntry[V](child, append(prefix, b)); ok {
			return k, v, true
		}
	}
	var zero V
	return nil, zero, false
}

// Clear empties the map, releasing every node.
func (m *Map[V]) Clear() {
	m.mu.Lock()
	old := m.root.load()
	m.root.store(nil)
	m.size.Store(0)
	m.mu.Unlock()
	m.retireSubtree(old)
}

// Swap exchanges the contents of m and other in O(1).
func (m *Map[V]) Swap(other *Map[V]) {
	if m == other {
		return
	}
	// lock in a fixed order (pointer address) to avoid deadlock against a
	// concurrent Swap(m) on the other map
	first, second := m, other
	if uintptr(unsafe.Pointer(m)) > uintptr(unsafe.Pointer(other)) {
		first, second = other, m
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	mRoot, oRoot := m.root.load(), other.root.load()
	m.root.store(oRoot)
	other.root.store(mRoot)

	mSize, oSize := m.size.Load(), other.size.Load()
	m.size.Store(oSize)
	other.size.Store(mSize)
}
