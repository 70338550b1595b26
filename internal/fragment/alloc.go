package fragment

import "strconv"

// Allocator hands out fresh element identities. Each allocator is an
// independent arena, so two engines (or two tests) never collide and
// unification stays deterministic for a given allocator state.
//
// An Allocator is not safe for concurrent use.
type Allocator struct {
	prefix string
	next   uint64
}

// NewAllocator creates an allocator whose identities start with prefix.
func NewAllocator(prefix string) *Allocator {
	if prefix == "" {
		prefix = "u"
	}
	return &Allocator{prefix: prefix}
}

// Fresh returns a new identity.
func (a *Allocator) Fresh() string {
	a.next++
	return a.prefix + strconv.FormatUint(a.next, 10)
}

// Issued returns how many identities have been handed out.
func (a *Allocator) Issued() uint64 {
	return a.next
}
