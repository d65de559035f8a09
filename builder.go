package cart

// builder.go: shape constructors, deep-copy, and recursive deallocation.
// Deep-copy preserves each node's shape; deallocation
// short-circuits on the poisoned flag because a poisoned node was
// allocated speculatively and borrows its descendant children - walking
// into them during free would double-free the live tree.

func newSkipLeaf[V any](skip []byte, v V) *skipNode[V] {
	n := &skipNode[V]{}
	n.shp = shapeSkip
	n.isLeaf = true
	n.setSkip(skip)
	n.ent.value.write(v)
	return n
}

func newSkipInterior[V any](skip []byte, edge byte, child *node[V]) *skipNode[V] {
	n := &skipNode[V]{}
	n.shp = shapeSkip
	n.isLeaf = false
	n.setSkip(skip)
	n.edge = edge
	n.ent.child.Store(child)
	return n
}

func newBinaryNode[V any](skip []byte, isLeaf bool) *binaryNode[V] {
	n := &binaryNode[V]{}
	n.shp = shapeBinary
	n.isLeaf = isLeaf
	n.setSkip(skip)
	return n
}

func newListNode[V any](skip []byte, isLeaf bool) *listNode[V] {
	n := &listNode[V]{}
	n.shp = shapeList
	n.isLeaf = isLeaf
	n.setSkip(skip)
	return n
}

func newPopNode[V any](skip []byte, isLeaf bool) *popNode[V] {
	n := &popNode[V]{}
	n.shp = shapePop
	n.isLeaf = isLeaf
	n.setSkip(skip)
	return n
}

func newFullNode[V any](skip []byte, isLeaf bool) *fullNode[V] {
	n := &fullNode[V]{}
	n.shp = shapeFull
	n.isLeaf = isLeaf
	n.setSkip(skip)
	return n
}

// growFrom allocates the next-larger shape for n (whatever shape it is),
// copying over its skip bytes, EOS value, and entries. The returned node is
// marked poisoned: it is not yet installed in the tree and its child
// pointers are borrowed from n, so it must not be walked recursively by a
// free pass until it is fully committed and unpoisoned.
func growFrom[V any](n *node[V]) *node[V] {
	next, ok := nextShape(n.shp)
	if !ok {
		invariantViolation("growFrom called on a node with no larger shape")
	}
	var out *node[V]
	switch next {
	case shapeBinary:
		g := newBinaryNode[V](n.skipBytes(), n.isLeaf)
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	case shapeList:
		g := newListNode[V](n.skipBytes(), n.isLeaf)
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	case shapePop:
		g := newPopNode[V](n.skipBytes(), n.isLeaf)
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	case shapeFull:
		g := newFullNode[V](n.skipBytes(), n.isLeaf)
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	default:
		invariantViolation("unreachable shape in growFrom")
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

// shrinkInto allocates the next-smaller shape for n, copying its remaining
// entries. Used by the erase engine's shape-shrink path.
func shrinkInto[V any](n *node[V]) *node[V] {
	prev, ok := prevShape(n.shp)
	if !ok {
		invariantViolation("shrinkInto called on a node with no smaller shape")
	}
	src := asFanout[V](n)
	if prev == shapeSkip {
		// BINARY (2 entries) shrinking to 1 remaining entry becomes a SKIP
		// node: a leaf's skip absorbs the surviving byte, while an
		// interior keeps its skip and takes the surviving byte as its edge.
		bs := src.bytes()
		if len(bs) != 1 {
			invariantViolation("shrink to SKIP requires exactly one surviving entry")
		}
		e, _ := src.entryFor(bs[0])
		newSkip := append(append([]byte{}, n.skipBytes()...), bs[0])
		var out *node[V]
		if n.isLeaf {
			v, _, _ := e.value.tryRead()
			out = newSkipLeaf[V](newSkip, v).asNode()
		} else {
			out = newSkipInterior[V](n.skipBytes(), bs[0], e.child.Load()).asNode()
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

	var out *node[V]
	switch prev {
	case shapeBinary:
		g := newBinaryNode[V](n.skipBytes(), n.isLeaf)
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	case shapeList:
		g := newListNode[V](n.skipBytes(), n.isLeaf)
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	case shapePop:
		g := newPopNode[V](n.skipBytes(), n.isLeaf)
		copyEntriesInto[V](n, g.addInPlace)
		out = g.asNode()
	default:
		invariantViolation("unreachable shape in shrinkInto")
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

// copyEntriesInto copies every (byte, entry) pair from src into dst via
// dst's addInPlace, which is shared by growFrom and shrinkInto regardless
// of target shape.
func copyEntriesInto[V any](src *node[V], add func(byte) *entry[V]) {
	fo := asFanout[V](src)
	for _, b := range fo.bytes() {
		srcEntry, _ := fo.entryFor(b)
		dstEntry := add(b)
		if src.isLeaf {
			if v, present, _ := srcEntry.value.tryRead(); present {
				dstEntry.value.write(v)
			}
		} else {
			dstEntry.child.Store(srcEntry.child.Load())
		}
	}
}

// promoteLeafToInterior rebuilds a multi-entry leaf as an interior node
// carrying the same skip: every (byte, value) entry becomes a singleton SKIP
// leaf hanging off that byte's edge. Used when an inserted key's path ends
// exactly at a leaf's accumulated path, so the leaf's own entries must move
// one level deeper to make room for the new key's EOS value at this node.
func promoteLeafToInterior[V any](leaf *node[V], skip []byte) *node[V] {
	src := asFanout[V](leaf)
	bs := src.bytes()
	var out *node[V]
	switch leaf.shp {
	case shapeBinary:
		out = newBinaryNode[V](skip, false).asNode()
	case shapeList:
		out = newListNode[V](skip, false).asNode()
	case shapePop:
		out = newPopNode[V](skip, false).asNode()
	case shapeFull:
		out = newFullNode[V](skip, false).asNode()
	default:
		invariantViolation("promoteLeafToInterior called on SKIP leaf")
	}
	adder := entryAdder[V](out)
	for _, b := range bs {
		srcEntry, _ := src.entryFor(b)
		v, _, _ := srcEntry.value.tryRead()
		child := newSkipLeaf[V](nil, v)
		dstEntry := adder(b)
		dstEntry.child.Store(child.asNode())
	}
	return out
}

// soleChild returns the one (edge byte, child) pair out of an interior
// node known to hold exactly one child, regardless of shape.
func soleChild[V any](n *node[V]) (byte, *node[V]) {
	if n.shp == shapeSkip {
		s := n.asSkip()
		return s.edge, s.ent.child.Load()
	}
	fo := asFanout[V](n)
	bs := fo.bytes()
	if len(bs) != 1 {
		invariantViolation("soleChild called on a node without exactly one child")
	}
	e, _ := fo.entryFor(bs[0])
	return bs[0], e.child.Load()
}

// fuseWithChild merges an interior node down into its one remaining child
// now that the interior no longer has an EOS of its own to justify
// staying alive as a separate node (an interior node with one child and
// no EOS is not a legal standalone state). The result takes over child's
// shape, leaf-status and entries wholesale under an extended skip
// (parentSkip + edge + child's own skip); both the interior and the old
// child are retired by the caller once this is published.
func fuseWithChild[V any](parentSkip []byte, edge byte, child *node[V]) *node[V] {
	newSkip := append(append(append([]byte{}, parentSkip...), edge), child.skipBytes()...)
	var out *node[V]
	switch child.shp {
	case shapeSkip:
		cs := child.asSkip()
		if child.isLeaf {
			out = newSkipLeaf[V](newSkip, mustRead(&cs.ent.value)).asNode()
		} else {
			out = newSkipInterior[V](newSkip, cs.edge, cs.ent.child.Load()).asNode()
		}
	case shapeBinary:
		out = newBinaryNode[V](newSkip, child.isLeaf).asNode()
	case shapeList:
		out = newListNode[V](newSkip, child.isLeaf).asNode()
	case shapePop:
		out = newPopNode[V](newSkip, child.isLeaf).asNode()
	case shapeFull:
		out = newFullNode[V](newSkip, child.isLeaf).asNode()
	default:
		invariantViolation("fuseWithChild: unknown shape")
	}
	if child.shp != shapeSkip {
		fo := asFanout[V](child)
		adder := entryAdder[V](out)
		for _, b := range fo.bytes() {
			src, _ := fo.entryFor(b)
			dst := adder(b)
			if child.isLeaf {
				if v, present, _ := src.value.tryRead(); present {
					dst.value.write(v)
				}
			} else {
				dst.child.Store(src.child.Load())
			}
		}
	}
	out.hasEOS = child.hasEOS
	if child.hasEOS {
		if v, present, _ := child.eos.tryRead(); present {
			out.eos.write(v)
		}
	}
	out.poisoned = true
	return out
}

// cloneDeep returns an independent deep copy of the subtree rooted at n:
// every descendant is itself freshly allocated.
func cloneDeep[V any](n *node[V]) *node[V] {
	if n == nil {
		return nil
	}
	fo := asFanout[V](n)
	var out *node[V]
	switch n.shp {
	case shapeSkip:
		if n.isLeaf {
			v, _, _ := n.asSkip().ent.value.tryRead()
			out = newSkipLeaf[V](n.skipBytes(), v).asNode()
		} else {
			s := n.asSkip()
			out = newSkipInterior[V](n.skipBytes(), s.edge, cloneDeep(s.ent.child.Load())).asNode()
		}
	case shapeBinary:
		out = newBinaryNode[V](n.skipBytes(), n.isLeaf).asNode()
	case shapeList:
		out = newListNode[V](n.skipBytes(), n.isLeaf).asNode()
	case shapePop:
		out = newPopNode[V](n.skipBytes(), n.isLeaf).asNode()
	case shapeFull:
		out = newFullNode[V](n.skipBytes(), n.isLeaf).asNode()
	}
	if n.shp != shapeSkip {
		adder := entryAdder[V](out)
		for _, b := range fo.bytes() {
			srcEntry, _ := fo.entryFor(b)
			dstEntry := adder(b)
			if n.isLeaf {
				v, _, _ := srcEntry.value.tryRead()
				dstEntry.value.write(v)
			} else {
				dstEntry.child.Store(cloneDeep(srcEntry.child.Load()))
			}
		}
	}
	out.hasEOS = n.hasEOS
	if n.hasEOS {
		if v, present, _ := n.eos.tryRead(); present {
			out.eos.write(v)
		}
	}
	return out
}

// entryAdder returns the shape-specific addInPlace method for n, used by
// generic copy/clone helpers that only hold a *node[V].
func entryAdder[V any](n *node[V]) func(byte) *entry[V] {
	switch n.shp {
	case shapeBinary:
		return n.asBinary().addInPlace
	case shapeList:
		return n.asList().addInPlace
	case shapePop:
		return n.asPop().addInPlace
	case shapeFull:
		return n.asFull().addInPlace
	default:
		invariantViolation("entryAdder called on SKIP node")
		return nil
	}
}

// freeNode recursively walks n and, unless n is poisoned, its children.
// A poisoned node's children are borrowed from a still-live victim node and
// are not walked. The walk releases and modifies nothing; pooled nodes are
// returned through freeSubtree instead.
func freeNode[V any](n *node[V]) {
	if n == nil || n.poisoned {
		return
	}
	if !n.isLeaf {
		fo := asFanout[V](n)
		for _, b := range fo.bytes() {
			e, _ := fo.entryFor(b)
			freeNode(e.child.Load())
		}
	}
}
