// Package ebr implements epoch-based reclamation for a single shared
// structure: readers announce the epoch they are operating in, writers
// retire garbage into that epoch's bin instead of freeing it immediately,
// and a reclaim pass frees a bin only once no announced reader can still
// see it.
package ebr

import (
	"sync"
	"sync/atomic"
)

// Domain owns the global epoch counter and the retire bins. One Domain is
// shared by every goroutine that reads or writes the guarded structure.
type Domain struct {
	epoch atomic.Uint64

	mu    sync.Mutex
	slots []*slot

	binsMu sync.Mutex
	bins   [3][]func()
}

// slot tracks one goroutine's (or worker's) current participation: epoch
// holds the global epoch it last announced, or zero while inactive; depth
// counts nested Enter calls so recursive use of the same Guard doesn't
// prematurely announce "inactive".
type slot struct {
	epoch atomic.Uint64
	depth atomic.Int32
}

// NewDomain returns an empty reclamation domain starting at epoch 1. Epoch
// zero is reserved to mean "not participating".
func NewDomain() *Domain {
	d := &Domain{}
	d.epoch.Store(1)
	return d
}

// Guard is a per-goroutine handle into a Domain. Guards must not be shared
// across goroutines; each goroutine that touches the guarded structure
// should hold its own.
type Guard struct {
	dom *Domain
	s   *slot
}

// NewGuard registers a new participant slot in dom and returns a handle
// for it. The slot is never removed - a Domain is meant to be created once
// per long-lived shared structure, with Guards created once per worker
// goroutine and reused across many Enter/Exit pairs.
func (d *Domain) NewGuard() *Guard {
	s := &slot{}
	d.mu.Lock()
	d.slots = append(d.slots, s)
	d.mu.Unlock()
	return &Guard{dom: d, s: s}
}

// Enter announces that the calling goroutine is about to read the guarded
// structure and must not have any of its nodes reclaimed until a matching
// Exit. Enter/Exit pairs may nest; only the outermost Enter announces the
// epoch.
func (g *Guard) Enter() {
	if g.s.depth.Add(1) == 1 {
		g.s.epoch.Store(g.dom.epoch.Load())
	}
}

// Exit ends one level of participation begun by Enter. Once the outermost
// Exit runs, the slot no longer pins any epoch.
func (g *Guard) Exit() {
	if g.s.depth.Add(-1) == 0 {
		g.s.epoch.Store(0)
	}
}

// Retire schedules fn to run once every reader active at the moment of the
// call has exited - typically a closure that frees a node or subtree. It
// does not block; reclamation happens lazily on a later Retire or
// TryReclaim call once the epoch has advanced far enough.
func (d *Domain) Retire(fn func()) {
	cur := d.epoch.Load()
	bin := cur % 3
	d.binsMu.Lock()
	d.bins[bin] = append(d.bins[bin], fn)
	d.binsMu.Unlock()
	d.tryAdvance()
}

// TryReclaim attempts to advance the epoch and free anything that becomes
// reclaimable as a result. Safe to call opportunistically (e.g. after every
// N writes) or from a background goroutine; it never blocks on readers,
// it simply does nothing useful if none have caught up yet.
func (d *Domain) TryReclaim() {
	d.tryAdvance()
}

// tryAdvance bumps the global epoch if every registered slot is either
// inactive or already caught up to the current epoch, then frees the bin
// that is now guaranteed unreachable.
func (d *Domain) tryAdvance() {
	cur := d.epoch.Load()
	d.mu.Lock()
	slots := d.slots
	d.mu.Unlock()

	for _, s := range slots {
		e := s.epoch.Load()
		if e != 0 && e != cur {
			return
		}
	}

	next := cur + 1
	if !d.epoch.CompareAndSwap(cur, next) {
		return
	}

	// Everything retired two epochs behind `next` is now safe: every slot
	// that could have observed it has either exited or advanced past it.
	staleBin := (next + 1) % 3
	d.binsMu.Lock()
	toFree := d.bins[staleBin]
	d.bins[staleBin] = nil
	d.binsMu.Unlock()

	for _, fn := range toFree {
		fn()
	}
}

// Flush forces every pending retirement to run, regardless of whether any
// reader might still be in an old epoch. Intended for shutdown/test
// teardown only - calling it while readers are active is unsafe.
func (d *Domain) Flush() {
	d.binsMu.Lock()
	pending := append(append(append([]func(){}, d.bins[0]...), d.bins[1]...), d.bins[2]...)
	d.bins[0], d.bins[1], d.bins[2] = nil, nil, nil
	d.binsMu.Unlock()
	for _, fn := range pending {
		fn()
	}
}
