package cart

// erase.go: the erase engine. Reuses nav.go's descend for the probe phase
// (lookup and erase need to agree on exactly what counts as a match) and
// cascades shape shrinks/node removals up the ancestor chain captured by
// that descent.

// shapeCapacity returns the fan-out capacity of a shape without needing a
// concrete node instance, so shrink decisions can be made from a shape
// value alone.
func shapeCapacity(s shape) int {
	switch s {
	case shapeSkip:
		return 1
	case shapeBinary:
		return 2
	case shapeList:
		return 7
	case shapePop:
		return 32
	case shapeFull:
		return 256
	default:
		return 0
	}
}

// shouldShrink reports whether n, now holding countAfter children/values,
// fits within the capacity of the next-smaller shape and should therefore
// shrink - one step at a time, mirroring the insert engine's one-step
// growth. Not used to decide the count()==1-and-no-EOS case on an interior
// node: that one is a fuse (see buildErasePlan), not a shape shrink, since
// a one-step shrink there would still leave an interior node with exactly
// one child and no EOS alive, which is not a legal standalone state.
func shouldShrink[V any](n *node[V], countAfter int) bool {
	prev, ok := prevShape(n.shp)
	if !ok {
		return false
	}
	if prev == shapeSkip && countAfter != 1 {
		// shrinking to SKIP absorbs exactly one surviving byte into the
		// skip run; 0 (kept alive only by EOS) can't take that path.
		return false
	}
	return countAfter <= shapeCapacity(prev)
}

func removeEntryInPlace[V any](n *node[V], b byte) bool {
	switch n.shp {
	case shapeBinary:
		return n.asBinary().removeInPlace(b)
	case shapeList:
		return n.asList().removeInPlace(b)
	case shapePop:
		return n.asPop().removeInPlace(b)
	case shapeFull:
		return n.asFull().removeInPlace(b)
	default:
		invariantViolation("removeEntryInPlace called on SKIP node")
		return false
	}
}

// Erase removes key if present, reporting whether anything was removed.
func (m *Map[V]) Erase(key []byte) bool {
	for attempt := 0; attempt < maxProbeRetries; attempt++ {
		removed, ok := m.tryErase(key, false)
		if ok {
			return removed
		}
		m.metrics.probeRetries.Add(1)
	}
	m.metrics.pessimisticFallbacks.Add(1)
	removed, _ := m.tryErase(key, true)
	return removed
}

func (m *Map[V]) tryErase(key []byte, pessimistic bool) (removed bool, ok bool) {
	g := m.enterGuard()
	defer m.exitGuard(g)

	if pessimistic {
		m.mu.Lock()
		defer m.mu.Unlock()
	}

	res, path, _ := descend[V](&m.root, key)
	if res == navRestart {
		return false, pessimistic
	}
	if res != navFoundLeaf && res != navFoundEOS {
		return false, true
	}

	// Every replacement node the shrink/collapse cascade might need is
	// built here, entirely out of the writer lock, from the path the
	// probe already walked. If the path turns out stale once the lock is
	// taken, the built replacements are returned to their pools unused
	// and nothing about the live tree is touched.
	plan := m.buildErasePlan(path, res)

	if !pessimistic {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !path.revalidate() {
			plan.abandon(m.pools)
			return false, false
		}
	}

	m.publishErase(path, plan)
	m.size.Add(-1)
	m.metrics.erases.Add(1)
	return true, true
}

// erStepKind distinguishes the three corrections buildErasePlan's cascade
// can apply at one level.
type erStepKind int

const (
	stepDrop erStepKind = iota
	stepFuse
	stepShrink
)

// eraseStep is one precomputed correction at path.steps[idx], built before
// the writer lock is taken and applied by publishErase once it is.
type eraseStep[V any] struct {
	idx         int
	kind        erStepKind
	replacement *node[V] // fuse, shrink
	retireChild *node[V] // fuse only: the absorbed child, retired alongside the fused-away parent
	pooled      bool     // replacement came from nodePools (shrink); fuse's does not
}

// erasePlan is the outcome of buildErasePlan: the leaf-level mutation (if
// any) plus zero or more cascaded ancestor corrections, all built from
// data the probe already read.
type erasePlan[V any] struct {
	leafOp func(target *node[V])
	steps  []eraseStep[V]
}

// abandon discards a plan that was built speculatively but never
// published because the path it was based on went stale. Pool-sourced
// replacements go back to their pool; fuse's plain-allocated replacement
// is simply dropped.
func (p *erasePlan[V]) abandon(pools *nodePools[V]) {
	for _, s := range p.steps {
		if s.replacement != nil && s.pooled {
			release[V](pools, s.replacement)
		}
	}
}

// buildErasePlan decides, from path and res alone, exactly what
// publishErase will mutate or install - without touching the live tree.
// Each level's child count is derived arithmetically (one less than the
// live node's current count) instead of being read back after a real
// mutation, since no real mutation has happened yet.
func (m *Map[V]) buildErasePlan(path *navPath[V], res navResult) *erasePlan[V] {
	idx := len(path.steps) - 1
	target := path.steps[idx].n
	plan := &erasePlan[V]{}

	var countAfter int
	switch {
	case res == navFoundEOS:
		// delete-eos-interior
		plan.leafOp = func(t *node[V]) {
			t.bumpVersion()
			t.hasEOS = false
			t.eos.clear()
		}
		countAfter = asFanout[V](target).count()

	case target.shp == shapeSkip && target.isLeaf:
		// delete-leaf: a SKIP leaf holds exactly one value: the whole node
		// is the match and disappears entirely.
		countAfter = 0

	default:
		// in-place-leaf: drop one byte entry out of a multi-entry leaf
		b := path.leafByte
		plan.leafOp = func(t *node[V]) { removeEntryInPlace[V](t, b) }
		countAfter = asFanout[V](target).count() - 1
	}

	eosGone := res == navFoundEOS
	gone, dropsByte := path.leafByte, plan.leafOp != nil && !eosGone
	for {
		n := path.steps[idx].n
		hasEOS := n.hasEOS && !eosGone
		if countAfter == 0 && !hasEOS {
			plan.steps = append(plan.steps, eraseStep[V]{idx: idx, kind: stepDrop})
			if idx == 0 {
				return plan
			}
			gone, dropsByte, eosGone = path.steps[idx].edge, true, false
			idx--
			countAfter = asFanout[V](path.steps[idx].n).count() - 1
			continue
		}
		fuse := !n.isLeaf && countAfter == 1 && !hasEOS
		if !fuse && !shouldShrink[V](n, countAfter) {
			return plan
		}
		// replacements are built from a copy of n as it will stand once
		// the erase lands, not from the live node, which still holds the
		// removed entry or EOS
		src := n
		if dropsByte || eosGone {
			if n.isLeaf {
				src = cloneLeafWithTruncatedSkip[V](n, n.skipBytes())
			} else {
				src = cloneInteriorWithTruncatedSkip[V](n, n.skipBytes())
			}
			if dropsByte {
				removeEntryInPlace[V](src, gone)
			}
			src.hasEOS = hasEOS
		}
		if fuse {
			edge, child := soleChild[V](src)
			replacement := fuseWithChild[V](n.skipBytes(), edge, child)
			plan.steps = append(plan.steps, eraseStep[V]{idx: idx, kind: stepFuse, replacement: replacement, retireChild: child})
			return plan
		}
		replacement := allocShrunk[V](m.pools, src)
		plan.steps = append(plan.steps, eraseStep[V]{idx: idx, kind: stepShrink, replacement: replacement, pooled: true})
		return plan
	}
}

// publishErase applies plan's leaf-level mutation and cascaded corrections
// once the writer lock is held and path has been revalidated.
func (m *Map[V]) publishErase(path *navPath[V], plan *erasePlan[V]) {
	idx := len(path.steps) - 1
	if plan.leafOp != nil {
		plan.leafOp(path.steps[idx].n)
	}
	for _, s := range plan.steps {
		target := path.steps[s.idx].n
		switch s.kind {
		case stepDrop:
			m.dropChild(path, s.idx)
			m.retireOne(target)
		case stepFuse:
			s.replacement.poisoned = false
			m.slotAt(path, s.idx).store(s.replacement)
			m.retireOne(target)
			m.retireOne(s.retireChild)
			m.metrics.shapeShrinks.Add(1)
		case stepShrink:
			s.replacement.poisoned = false
			m.slotAt(path, s.idx).store(s.replacement)
			m.retireOne(target)
			m.metrics.shapeShrinks.Add(1)
		}
	}
}

// slotAt returns the atomic field that holds path.steps[idx].n: the root
// slot if idx is 0, otherwise the parent's entry.child for the edge byte
// that leads to it.
func (m *Map[V]) slotAt(path *navPath[V], idx int) *atomicNodeField[V] {
	if idx == 0 {
		return &atomicNodeField[V]{root: &m.root}
	}
	parent := path.steps[idx-1].n
	edge := path.steps[idx].edge
	fo := asFanout[V](parent)
	e, ok := fo.entryFor(edge)
	if !ok {
		invariantViolation("parent lost the edge leading to target during erase commit")
	}
	return &atomicNodeField[V]{parent: parent, entry: e}
}

// dropChild removes path.steps[idx].n entirely from its parent's fan-out
// (or nils the root, if idx is 0).
func (m *Map[V]) dropChild(path *navPath[V], idx int) {
	if idx == 0 {
		m.root.store(nil)
		return
	}
	parent := path.steps[idx-1].n
	if parent.shp == shapeSkip {
		parent.bumpVersion()
		parent.asSkip().ent.child.Store(nil)
		return
	}
	edge := path.steps[idx].edge
	removeEntryInPlace[V](parent, edge)
}

