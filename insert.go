package cart

// insert.go: the insert engine's probe/validate/commit pipeline, handling
// every structural transition a new key can trigger against the existing
// tree shape.

// insertProbe is the outcome of walking from the root toward where key
// would live. It captures exactly what commit needs: the ancestor chain
// (for revalidation and for patching the parent's slot), the node the key
// either matches or diverges from, and how far it got.
type insertProbe[V any] struct {
	ancestors []navStep[V] // every node from the root down to, but excluding, target
	target    *node[V]     // nil only when the tree is empty
	targetVer uint32
	edge      byte // byte in the parent's fan-out that led to target; unused at the root
	m         int  // length of the common prefix between target.skipBytes() and remainder
	remainder []byte
	exists    bool // true if key is already present (navFoundLeaf/navFoundEOS equivalent)
	leafByte  byte // valid when exists && target.isLeaf && target.shp != shapeSkip
}

func probeForInsert[V any](root *atomicSlot[V], key []byte) (*insertProbe[V], bool) {
	p := &insertProbe[V]{remainder: key}
	cur := root.load()
	if cur == nil {
		return p, true
	}
	if cur.poisoned {
		return nil, false
	}

	for {
		skip := cur.skipBytes()
		m := LongestCommonPrefix(skip, p.remainder)

		if m < len(skip) {
			p.target, p.targetVer, p.m = cur, cur.loadVersion(), m
			return p, true
		}
		rem := p.remainder[m:]

		if cur.isLeaf {
			if cur.shp == shapeSkip {
				if len(rem) == 0 {
					p.target, p.targetVer, p.m, p.remainder = cur, cur.loadVersion(), m, nil
					p.exists = true
					return p, true
				}
				p.target, p.targetVer, p.m, p.remainder = cur, cur.loadVersion(), m, rem
				return p, true
			}
			// multi-entry leaf: matches only by consuming exactly one more byte
			p.target, p.targetVer, p.m, p.remainder = cur, cur.loadVersion(), m, rem
			if len(rem) == 1 {
				if fo := asFanout[V](cur); true {
					if _, ok := fo.entryFor(rem[0]); ok {
						p.exists = true
						p.leafByte = rem[0]
					}
				}
			}
			return p, true
		}

		if len(rem) == 0 {
			p.target, p.targetVer, p.m, p.remainder = cur, cur.loadVersion(), m, nil
			p.exists = cur.hasEOS
			return p, true
		}

		fo := asFanout[V](cur)
		e, ok := fo.entryFor(rem[0])
		if !ok {
			p.target, p.targetVer, p.m, p.remainder = cur, cur.loadVersion(), m, rem
			return p, true
		}
		child := e.child.Load()
		if child == nil {
			p.target, p.targetVer, p.m, p.remainder = cur, cur.loadVersion(), m, rem
			return p, true
		}
		if child.poisoned {
			return nil, false
		}
		p.ancestors = append(p.ancestors, navStep[V]{n: cur, version: cur.loadVersion(), edge: p.edge})
		p.edge = rem[0]
		p.remainder = rem[1:]
		cur = child
	}
}

// revalidate re-checks every ancestor plus the target node itself.
func (p *insertProbe[V]) revalidate() bool {
	for _, s := range p.ancestors {
		if s.n.loadVersion() != s.version || s.n.poisoned {
			return false
		}
	}
	if p.target != nil && (p.target.loadVersion() != p.targetVer || p.target.poisoned) {
		return false
	}
	return true
}

// parentSlot returns the atomic pointer field insert must update to swap
// target for its replacement: the root slot if target has no ancestors,
// otherwise the entry.child of the deepest ancestor at p.edge.
func (m *Map[V]) parentSlot(p *insertProbe[V]) *atomicNodeField[V] {
	if len(p.ancestors) == 0 {
		return &atomicNodeField[V]{root: &m.root}
	}
	parent := p.ancestors[len(p.ancestors)-1].n
	fo := asFanout[V](parent)
	e, ok := fo.entryFor(p.edge)
	if !ok {
		invariantViolation("parent lost the edge leading to target between probe and commit")
	}
	return &atomicNodeField[V]{parent: parent, entry: e}
}

// atomicNodeField abstracts over "the root slot" and "some entry's child
// pointer" so commit code has one update path regardless of depth.
type atomicNodeField[V any] struct {
	root   *atomicSlot[V]
	parent *node[V]
	entry  *entry[V]
}

func (f *atomicNodeField[V]) store(n *node[V]) {
	if f.root != nil {
		f.root.store(n)
		return
	}
	f.parent.bumpVersion()
	f.entry.child.Store(n)
}

// Insert adds key -> val if absent. Returns an iterator to the resulting
// entry and whether it was newly inserted (false means key already had a
// value and was left untouched - this engine does not overwrite on
// insert).
func (m *Map[V]) Insert(key []byte, val V) (Iterator[V], bool) {
	for attempt := 0; attempt < maxProbeRetries; attempt++ {
		it, inserted, ok := m.tryInsert(key, val, false)
		if ok {
			return it, inserted
		}
		m.metrics.probeRetries.Add(1)
	}
	m.metrics.pessimisticFallbacks.Add(1)
	it, inserted, _ := m.tryInsert(key, val, true)
	return it, inserted
}

// tryInsert runs one attempt of the probe/build/validate/publish pipeline.
// ok is false only when a speculative (non-pessimistic) attempt lost a
// race and must be retried by the caller.
func (m *Map[V]) tryInsert(key []byte, val V, pessimistic bool) (Iterator[V], bool, bool) {
	g := m.enterGuard()
	defer m.exitGuard(g)

	if pessimistic {
		m.mu.Lock()
		defer m.mu.Unlock()
	}

	probe, ok := probeForInsert[V](&m.root, key)
	if !ok {
		return endIterator[V](), false, pessimistic // poisoned mid-descent: only a real retry loop can fix this
	}

	if probe.exists {
		it, _ := m.Find(key)
		return it, false, true
	}

	// Every replacement node this insert might need is allocated here,
	// entirely out of the writer lock, from data the probe already read.
	// If the probe turns out stale once the lock is taken, whatever was
	// built is simply abandoned (returned to its pool when pool-backed) -
	// nothing it touched was ever published or mutated in place.
	plan := m.buildInsertPlan(probe, key, val)

	if !pessimistic {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !probe.revalidate() {
			plan.abandon(m.pools)
			return endIterator[V](), false, false
		}
	}

	m.publishInsert(probe, plan)
	m.size.Add(1)
	m.metrics.inserts.Add(1)
	return Iterator[V]{key: append([]byte(nil), key...), value: val, ok: true}, true, true
}

// insertPlan is the outcome of buildInsertPlan: either a fully-built
// replacement node ready to be swapped into the tree, or a closure that
// performs a direct in-place mutation of the live target node (no new
// node needed, so nothing to pre-allocate). Exactly one of the two is
// set.
type insertPlan[V any] struct {
	replacement *node[V]
	pooled      bool // replacement came from nodePools and should be released, not dropped, on abandon
	grew        bool
	inPlace     func(target *node[V])
}

// abandon discards a plan that was built speculatively but never
// published because the probe it was based on went stale. A pool-backed
// replacement is returned to its pool instead of left for the GC; a
// plain one is simply dropped - either way its possibly-shared child
// pointers are never walked, so the still-live tree they came from is
// untouched.
func (p *insertPlan[V]) abandon(pools *nodePools[V]) {
	if p.replacement != nil && p.pooled {
		release[V](pools, p.replacement)
	}
}

// buildInsertPlan decides, from p alone, exactly what tryInsert will
// install or mutate - without touching the live tree. p.target (if any)
// is only ever read here, never written.
func (m *Map[V]) buildInsertPlan(p *insertProbe[V], key []byte, val V) *insertPlan[V] {
	if p.target == nil {
		// empty-root
		return &insertPlan[V]{replacement: newSkipLeaf[V](key, val).asNode()}
	}

	target := p.target
	skip := target.skipBytes()
	rem := p.remainder
	mlen := p.m

	switch {
	case target.isLeaf && target.shp == shapeSkip:
		switch {
		case mlen < len(skip) && mlen < len(rem):
			// split-skip-leaf
			common := skip[:mlen]
			oldTail := skip[mlen:]
			newTail := rem[mlen:]
			oldLeaf := newSkipLeaf[V](oldTail[1:], mustRead(&target.asSkip().ent.value))
			newLeaf := newSkipLeaf[V](newTail[1:], val)
			parent := newBinaryNode[V](common, false)
			e1 := parent.addInPlace(oldTail[0])
			e1.child.Store(oldLeaf.asNode())
			e2 := parent.addInPlace(newTail[0])
			e2.child.Store(newLeaf.asNode())
			return &insertPlan[V]{replacement: parent.asNode(), grew: true}
		case mlen == len(rem) && mlen < len(skip):
			// prefix-skip-leaf
			remainingOldTail := skip[mlen:]
			oldLeaf := newSkipLeaf[V](remainingOldTail[1:], mustRead(&target.asSkip().ent.value))
			parent := newSkipInterior[V](rem, remainingOldTail[0], oldLeaf.asNode())
			parent.hasEOS = true
			parent.eos.write(val)
			return &insertPlan[V]{replacement: parent.asNode()}
		case mlen == len(skip) && len(rem) > 0:
			// extend-skip-leaf: rem is already trimmed past skip at this
			// point in the probe, so it is used directly rather than
			// re-sliced by mlen a second time
			newLeaf := newSkipLeaf[V](rem[1:], val)
			parent := newSkipInterior[V](skip, rem[0], newLeaf.asNode())
			parent.hasEOS = true
			parent.eos.write(mustRead(&target.asSkip().ent.value))
			return &insertPlan[V]{replacement: parent.asNode()}
		case mlen == len(skip) && mlen == len(rem):
			invariantViolation("buildInsertPlan reached exists-shaped state for a SKIP leaf")
			return nil
		default:
			invariantViolation("unreachable SKIP-leaf insert case")
			return nil
		}

	case target.isLeaf:
		// LIST/POP/FULL (or BINARY-as-leaf) leaf
		switch {
		case mlen < len(skip) && mlen < len(rem):
			// split-leaf-multi
			common := skip[:mlen]
			oldTail := skip[mlen:]
			newTail := rem[mlen:]
			clonedOld := cloneLeafWithTruncatedSkip[V](target, oldTail[1:])
			newLeaf := newSkipLeaf[V](newTail[1:], val)
			parent := newBinaryNode[V](common, false)
			e1 := parent.addInPlace(oldTail[0])
			e1.child.Store(clonedOld)
			e2 := parent.addInPlace(newTail[0])
			e2.child.Store(newLeaf.asNode())
			return &insertPlan[V]{replacement: parent.asNode(), grew: true}
		case mlen == len(rem) && mlen < len(skip):
			// new key is a strict prefix of this leaf's path: the leaf
			// keeps all its entries under a truncated skip, hanging off
			// one edge of a new interior whose EOS is the new value.
			oldTail := skip[mlen:]
			clonedOld := cloneLeafWithTruncatedSkip[V](target, oldTail[1:])
			parent := newBinaryNode[V](rem, false)
			e1 := parent.addInPlace(oldTail[0])
			e1.child.Store(clonedOld)
			parent.hasEOS = true
			parent.eos.write(val)
			return &insertPlan[V]{replacement: parent.asNode(), grew: true}
		case mlen == len(skip) && len(rem) == 0:
			// new key is exactly this leaf's accumulated path: the leaf's
			// byte-valued entries become singleton SKIP-leaf children of a
			// new interior that carries the new value as its EOS.
			parent := promoteLeafToInterior[V](target, skip)
			parent.hasEOS = true
			parent.eos.write(val)
			return &insertPlan[V]{replacement: parent, grew: true}
		case len(rem) == 1:
			return buildAddByteToLeaf[V](m.pools, target, rem[0], val)
		case mlen == len(skip) && len(rem) >= 2:
			// new key runs past this leaf's accumulated path by more than
			// one byte: promote the leaf to an interior (no EOS of its own)
			// and hang a fresh SKIP-leaf child off the new byte.
			parent := promoteLeafToInterior[V](target, skip)
			newLeaf := newSkipLeaf[V](rem[1:], val)
			e := entryAdder[V](parent)(rem[0])
			e.child.Store(newLeaf.asNode())
			return &insertPlan[V]{replacement: parent, grew: true}
		default:
			invariantViolation("unreachable multi-entry leaf insert case")
			return nil
		}

	default:
		// interior node
		if mlen < len(skip) {
			// skip mismatch at an interior: split the interior's skip
			common := skip[:mlen]
			oldTail := skip[mlen:]
			clonedOld := cloneInteriorWithTruncatedSkip[V](target, oldTail[1:])
			parent := newBinaryNode[V](common, false)
			e1 := parent.addInPlace(oldTail[0])
			e1.child.Store(clonedOld)
			if mlen == len(rem) {
				parent.hasEOS = true
				parent.eos.write(val)
			} else {
				newTail := rem[mlen:]
				newLeaf := newSkipLeaf[V](newTail[1:], val)
				e2 := parent.addInPlace(newTail[0])
				e2.child.Store(newLeaf.asNode())
			}
			return &insertPlan[V]{replacement: parent.asNode(), grew: true}
		}
		if len(rem) == 0 {
			// target already matched skip exactly and lacks an EOS: add
			// one directly to the live node once published - no new node
			// to allocate.
			return &insertPlan[V]{inPlace: func(t *node[V]) {
				t.bumpVersion()
				t.hasEOS = true
				t.eos.write(val)
			}}
		}
		// add-child-to-interior
		return buildAddChildToInterior[V](m.pools, target, rem[0], rem[1:], val)
	}
}

// publishInsert installs plan's outcome once the writer lock is held and
// p has been revalidated: either a pointer swap plus retiring the
// superseded node, or the in-place mutation of p.target itself.
func (m *Map[V]) publishInsert(p *insertProbe[V], plan *insertPlan[V]) {
	if plan.replacement == nil {
		plan.inPlace(p.target)
		return
	}
	slot := m.parentSlot(p)
	plan.replacement.poisoned = false
	slot.store(plan.replacement)
	if p.target != nil {
		m.retireOne(p.target)
	}
	if plan.grew {
		m.metrics.shapeGrowths.Add(1)
	}
}

// buildAddByteToLeaf decides how to add byte b (mapping to val) to a
// multi-entry leaf: in place if it has room, or via a freshly grown
// (pool-allocated) replacement otherwise.
func buildAddByteToLeaf[V any](pools *nodePools[V], target *node[V], b byte, val V) *insertPlan[V] {
	if hasRoomFor[V](target) {
		return &insertPlan[V]{inPlace: func(t *node[V]) {
			t.bumpVersion()
			e := addEntryInPlace[V](t, b)
			e.value.write(val)
		}}
	}
	grown := allocGrown[V](pools, target)
	e := entryAdder[V](grown)(b)
	e.value.write(val)
	return &insertPlan[V]{replacement: grown, pooled: true, grew: true}
}

// buildAddChildToInterior decides how to add a new SKIP-leaf child (for
// tail = [b]+rest) to an interior node: in place if it has room, or via a
// freshly grown (pool-allocated) replacement otherwise.
func buildAddChildToInterior[V any](pools *nodePools[V], target *node[V], b byte, rest []byte, val V) *insertPlan[V] {
	newLeaf := newSkipLeaf[V](rest, val)
	if hasRoomFor[V](target) {
		return &insertPlan[V]{inPlace: func(t *node[V]) {
			t.bumpVersion()
			e := addEntryInPlace[V](t, b)
			e.child.Store(newLeaf.asNode())
		}}
	}
	grown := allocGrown[V](pools, target)
	e := entryAdder[V](grown)(b)
	e.child.Store(newLeaf.asNode())
	return &insertPlan[V]{replacement: grown, pooled: true, grew: true}
}

func hasRoomFor[V any](n *node[V]) bool {
	switch n.shp {
	case shapeSkip:
		// a SKIP interior's one fan-out slot is always already occupied by
		// the child it was built with; addByteToLeaf/addChildToInterior only
		// reach here to add a second edge, which always means "must grow".
		return false
	case shapeBinary:
		return n.asBinary().hasRoom()
	case shapeList:
		return n.asList().hasRoom()
	case shapePop:
		return n.asPop().hasRoom()
	case shapeFull:
		return n.asFull().hasRoom()
	default:
		invariantViolation("hasRoomFor: unknown shape")
		return false
	}
}

func addEntryInPlace[V any](n *node[V], b byte) *entry[V] {
	switch n.shp {
	case shapeBinary:
		return n.asBinary().addInPlace(b)
	case shapeList:
		return n.asList().addInPlace(b)
	case shapePop:
		return n.asPop().addInPlace(b)
	case shapeFull:
		return n.asFull().addInPlace(b)
	default:
		invariantViolation("addEntryInPlace called on SKIP node")
		return nil
	}
}

// cloneLeafWithTruncatedSkip builds a fresh copy of a multi-entry leaf
// with its skip replaced (the bytes consumed by the new parent's skip are
// stripped off), preserving every entry's value.
func cloneLeafWithTruncatedSkip[V any](n *node[V], newSkip []byte) *node[V] {
	fo := asFanout[V](n)
	var out *node[V]
	switch n.shp {
	case shapeBinary:
		g := newBinaryNode[V](newSkip, true)
		out = g.asNode()
	case shapeList:
		g := newListNode[V](newSkip, true)
		out = g.asNode()
	case shapePop:
		g := newPopNode[V](newSkip, true)
		out = g.asNode()
	case shapeFull:
		g := newFullNode[V](newSkip, true)
		out = g.asNode()
	default:
		invariantViolation("cloneLeafWithTruncatedSkip called on SKIP node")
	}
	adder := entryAdder[V](out)
	for _, b := range fo.bytes() {
		src, _ := fo.entryFor(b)
		dst := adder(b)
		if v, present, _ := src.value.tryRead(); present {
			dst.value.write(v)
		}
	}
	return out
}

// cloneInteriorWithTruncatedSkip is the interior-node counterpart: child
// pointers are shared with the original (not cloned), since the original
// interior node itself is being retired, not its subtrees.
func cloneInteriorWithTruncatedSkip[V any](n *node[V], newSkip []byte) *node[V] {
	fo := asFanout[V](n)
	var out *node[V]
	switch n.shp {
	case shapeSkip:
		s := n.asSkip()
		g := newSkipInterior[V](newSkip, s.edge, s.ent.child.Load())
		g.hasEOS = n.hasEOS
		if n.hasEOS {
			if v, present, _ := n.eos.tryRead(); present {
				g.eos.write(v)
			}
		}
		return g.asNode()
	case shapeBinary:
		out = newBinaryNode[V](newSkip, false).asNode()
	case shapeList:
		out = newListNode[V](newSkip, false).asNode()
	case shapePop:
		out = newPopNode[V](newSkip, false).asNode()
	case shapeFull:
		out = newFullNode[V](newSkip, false).asNode()
	default:
		invariantViolation("cloneInteriorWithTruncatedSkip: unknown shape")
	}
	adder := entryAdder[V](out)
	for _, b := range fo.bytes() {
		src, _ := fo.entryFor(b)
		dst := adder(b)
		dst.child.Store(src.child.Load())
	}
	out.hasEOS = n.hasEOS
	if n.hasEOS {
		if v, present, _ := n.eos.tryRead(); present {
			out.eos.write(v)
		}
	}
	return out
}

func mustRead[V any](c *atomicCell[V]) V {
	v, present, _ := c.tryRead()
	if !present {
		invariantViolation("mustRead on an empty value cell")
	}
	return v
}
