package cart

// skipNode is the SKIP shape: fan-out of exactly one. An interior SKIP node
// has one child reachable only by fully consuming its skip bytes; a leaf
// SKIP node holds one value for the key equal to its accumulated path plus
// its skip bytes. This is the node produced by the empty-root and
// split/extend/prefix-skip-leaf insert cases.
type skipNode[V any] struct {
	node[V]
	ent entry[V]
	// edge is the byte that must follow the skip run to reach ent.child.
	// Meaningful only when !isLeaf; a SKIP leaf has no outgoing edge at all.
	edge byte
}

func (s *skipNode[V]) count() int {
	if s.isLeaf {
		if _, present, _ := s.ent.value.tryRead(); present {
			return 1
		}
		return 0
	}
	if s.ent.child.Load() != nil {
		return 1
	}
	return 0
}

func (s *skipNode[V]) capacity() int { return 1 }

// entryFor on a SKIP leaf ignores c: its single entry is reached purely
// by the skip bytes being fully consumed, with no byte-indexed fan-out.
// On a SKIP interior, the one child is reached only by the specific edge
// byte recorded at construction - any other byte is not present, even
// though count() is still 1.
func (s *skipNode[V]) entryFor(c byte) (*entry[V], bool) {
	if s.isLeaf {
		return &s.ent, s.count() == 1
	}
	return &s.ent, c == s.edge && s.ent.child.Load() != nil
}

// bytes reports the one key byte present on a SKIP interior (its edge), or
// none at all on a SKIP leaf, which has no byte-indexed fan-out to report.
// Generic copy/grow machinery (copyEntriesInto, cloneDeep's entry loop)
// relies on this to see the interior's one edge like any other shape.
func (s *skipNode[V]) bytes() []byte {
	if s.isLeaf || s.ent.child.Load() == nil {
		return nil
	}
	return []byte{s.edge}
}
