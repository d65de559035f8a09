package cart

import "errors"

// ErrAllocation identifies an allocation failure in a panic raised when a
// caller-supplied Allocator returns nil. The built-in pooled and direct
// allocators never do this (new never returns nil); it exists for
// allocators backed by a bounded arena that can genuinely run out.
var ErrAllocation = errors.New("cart: allocation failure")

// invariantViolation panics with a message identifying the broken invariant.
// Reaching this indicates a bug in the engine, not a caller error - it is
// never used for not-found/already-present, which are plain booleans.
func invariantViolation(msg string) {
	panic("cart: invariant violation: " + msg)
}
