package cart

// iterator.go: snapshot iterators. An Iterator captures its key and value
// at the moment Find/Begin produced it; it does not track subsequent
// mutations of the map. Incrementing an iterator always yields End() -
// ordered forward scanning across the byte-lexicographic key space is out
// of scope for this engine.

// Iterator is a snapshot of one (key, value) pair, or the end marker.
type Iterator[V any] struct {
	key   []byte
	value V
	ok    bool
}

// Valid reports whether the iterator refers to a real entry (as opposed
// to End()).
func (it Iterator[V]) Valid() bool { return it.ok }

// Key returns the key bytes captured at construction. Empty and
// meaningless when !Valid().
func (it Iterator[V]) Key() []byte { return it.key }

// Value returns the value captured at construction. Zero value when
// !Valid().
func (it Iterator[V]) Value() V { return it.value }

// Next is defined to always return End(): this engine does not support
// ordered traversal.
func (it Iterator[V]) Next() Iterator[V] {
	var zero Iterator[V]
	return zero
}

func endIterator[V any]() Iterator[V] {
	var zero Iterator[V]
	return zero
}
