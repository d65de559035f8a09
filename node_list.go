package cart

// listNode is the LIST shape: fan-out of at most seven, indexed through the
// SWAR-accelerated sorted byte list (bytelist7.go).
type listNode[V any] struct {
	node[V]
	keys byteList7
	ent  [7]entry[V]
}

func (l *listNode[V]) count() int    { return l.keys.count() }
func (l *listNode[V]) capacity() int { return 7 }

func (l *listNode[V]) entryFor(c byte) (*entry[V], bool) {
	pos := l.keys.find(c)
	if pos == 0 {
		return nil, false
	}
	return &l.ent[pos-1], true
}

func (l *listNode[V]) bytes() []byte {
	n := l.keys.count()
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = l.keys.byteAt(i)
	}
	return out
}

func (l *listNode[V]) hasRoom() bool { return l.keys.count() < 7 }

// addInPlace adds byte c (not already present) to the node, bumping its
// version and shifting entries to keep the parallel array sorted like the
// key list.
func (l *listNode[V]) addInPlace(c byte) *entry[V] {
	l.bumpVersion()
	idx := l.keys.insert(c)
	n := l.keys.count()
	for i := n; i > idx; i-- {
		l.ent[i] = l.ent[i-1]
	}
	l.keys = l.keys.withInsertedAt(idx, c)
	return &l.ent[idx]
}

func (l *listNode[V]) removeInPlace(c byte) bool {
	pos := l.keys.find(c)
	if pos == 0 {
		return false
	}
	l.bumpVersion()
	idx := pos - 1
	n := l.keys.count()
	for i := idx; i < n-1; i++ {
		l.ent[i] = l.ent[i+1]
	}
	l.keys = l.keys.withRemovedAt(idx)
	return true
}
