package cart

// popNode is the POP shape: fan-out of at most 32, using a 256-bit presence
// bitmap plus a packed array indexed by the bitmap's rank (the same
// popcount-compression technique gaissmai-bart's internal/sparse package
// uses for its level arrays).
type popNode[V any] struct {
	node[V]
	present bitset256
	n       uint8
	ent     [32]entry[V]
}

func (p *popNode[V]) count() int    { return int(p.n) }
func (p *popNode[V]) capacity() int { return 32 }

func (p *popNode[V]) entryFor(c byte) (*entry[V], bool) {
	if !p.present.Test(c) {
		return nil, false
	}
	return &p.ent[p.present.Rank0(c)], true
}

func (p *popNode[V]) bytes() []byte {
	out := make([]byte, 0, p.n)
	p.present.All(func(b byte) bool {
		out = append(out, b)
		return true
	})
	return out
}

func (p *popNode[V]) hasRoom() bool { return p.n < 32 }

func (p *popNode[V]) addInPlace(c byte) *entry[V] {
	p.bumpVersion()
	rank := p.present.Rank0(c)
	n := int(p.n)
	for i := n; i > rank; i-- {
		p.ent[i] = p.ent[i-1]
	}
	p.present.Set(c)
	p.n++
	return &p.ent[rank]
}

func (p *popNode[V]) removeInPlace(c byte) bool {
	if !p.present.Test(c) {
		return false
	}
	p.bumpVersion()
	rank := p.present.Rank0(c)
	n := int(p.n)
	for i := rank; i < n-1; i++ {
		p.ent[i] = p.ent[i+1]
	}
	p.present.Clear(c)
	p.n--
	return true
}
