package cart

import "sync/atomic"

// nav.go: byte-by-byte descent against node skip prefixes, shared by
// lookup, iteration, and the probe phase of insert/erase.

// navResult classifies where a descent from root ended up relative to the
// search key.
type navResult int

const (
	navNotFound navResult = iota
	navFoundEOS           // key fully consumed exactly at an interior node's path
	navFoundLeaf          // key fully consumed at a leaf node's accumulated path
	navRestart            // a poisoned node was observed mid-descent; restart from root
)

// navStep records one node visited during descent, captured so insert and
// erase can revalidate the path under the writer lock.
type navStep[V any] struct {
	n       *node[V]
	version uint32
	edge    byte // the byte consumed out of the parent's fan-out to reach n; unused for root
}

// navPath is the full trail captured by a descent. leafByte is only
// meaningful when the descent ended in navFoundLeaf at a non-SKIP leaf
// shape: it is the one trailing key byte that selected the matched entry
// within that leaf's fan-out (SKIP leaves have no fan-out byte at all).
type navPath[V any] struct {
	root     *atomicSlot[V]
	steps    []navStep[V]
	leafByte byte
}

// last returns the most deeply visited node, or nil if the path is empty
// (only possible for an empty tree).
func (p *navPath[V]) last() *navStep[V] {
	if len(p.steps) == 0 {
		return nil
	}
	return &p.steps[len(p.steps)-1]
}

// parent returns the step immediately above the deepest step, or nil if
// the deepest step is the root.
func (p *navPath[V]) parent() *navStep[V] {
	if len(p.steps) < 2 {
		return nil
	}
	return &p.steps[len(p.steps)-2]
}

// atomicSlot is a single swappable root/child pointer. Child slots embedded
// in entry[V] use the identical atomic.Pointer directly; atomicSlot exists
// so the root of a Map[V] has the same load/store surface as a child edge.
type atomicSlot[V any] struct {
	ptr atomic.Pointer[node[V]]
}

func (s *atomicSlot[V]) load() *node[V]     { return s.ptr.Load() }
func (s *atomicSlot[V]) store(n *node[V])   { s.ptr.Store(n) }
func (s *atomicSlot[V]) compareAndSwap(old, new_ *node[V]) bool {
	return s.ptr.CompareAndSwap(old, new_)
}

// descend walks from root consuming bytes of key, matching skip prefixes
// and following fan-out edges. It returns the result classification and
// the full path of nodes visited (for probe/validate use by the insert and
// erase engines) along with the unconsumed key remainder at the point
// descent stopped (empty for navFoundEOS and navFoundLeaf).
func descend[V any](root *atomicSlot[V], key []byte) (navResult, *navPath[V], []byte) {
	path := &navPath[V]{root: root}
	cur := root.load()
	if cur == nil {
		return navNotFound, path, key
	}
	if cur.poisoned {
		return navRestart, path, key
	}
	path.steps = append(path.steps, navStep[V]{n: cur, version: cur.loadVersion()})

	for {
		skip := cur.skipBytes()
		m := LongestCommonPrefix(skip, key)
		if m < len(skip) {
			// mismatch inside the skip run: key diverges from this subtree
			return navNotFound, path, key
		}
		key = key[m:]

		if cur.isLeaf {
			// A SKIP leaf's single entry corresponds to the key equal to
			// this leaf's accumulated path with nothing left over. Every
			// other leaf shape instead holds one entry per trailing byte
			// in its fan-out, so it matches only when exactly one key byte
			// remains and that byte is present.
			if cur.shp == shapeSkip {
				if len(key) == 0 {
					return navFoundLeaf, path, nil
				}
				return navNotFound, path, key
			}
			if len(key) != 1 {
				return navNotFound, path, key
			}
			fo := asFanout[V](cur)
			if _, ok := fo.entryFor(key[0]); !ok {
				return navNotFound, path, key
			}
			path.leafByte = key[0]
			return navFoundLeaf, path, nil
		}

		if len(key) == 0 {
			if cur.hasEOS {
				return navFoundEOS, path, nil
			}
			return navNotFound, path, nil
		}

		fo := asFanout[V](cur)
		edgeByte := key[0]
		e, ok := fo.entryFor(edgeByte)
		if !ok {
			return navNotFound, path, key
		}
		child := e.child.Load()
		if child == nil {
			return navNotFound, path, key
		}
		if child.poisoned {
			return navRestart, path, key
		}
		key = key[1:]
		cur = child
		path.steps = append(path.steps, navStep[V]{n: cur, version: cur.loadVersion(), edge: edgeByte})
	}
}

// revalidate re-checks every captured (node, version) pair in p. Called
// under the writer lock by insert/erase commit phases before mutating;
// any mismatch means the tree changed since the probe and the caller must
// restart.
func (p *navPath[V]) revalidate() bool {
	for _, s := range p.steps {
		if s.n.loadVersion() != s.version || s.n.poisoned {
			return false
		}
	}
	return true
}
