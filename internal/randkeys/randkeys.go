// Package randkeys generates byte-slice key corpora for cart's tests,
// fuzzing, and cmd/cartbench. It hashes a counter through maphash.Hasher
// instead of reaching for math/rand, keeping generation allocation-light
// and avoiding any dependency on global rand state.
package randkeys

import (
	"encoding/binary"

	"github.com/dolthub/maphash"
)

// Generator emits a stream of byte-slice keys with lengths uniformly
// distributed over [minLen, maxLen]. The zero value is not usable; build
// one with New.
//
// Key bytes are derived from maphash.Hasher, whose own seed is chosen
// randomly per process by the library, not by Generator's seed argument.
// seed only perturbs the counter mixing within one Generator, so a given
// (seed, call count) pair reproduces the same key sequence within one
// process run, but not across separate runs - fine for deduping a corpus
// and for repeat-within-a-benchmark use, not for cross-run golden output.
type Generator struct {
	seed    uint64
	counter uint64
	hasher  maphash.Hasher[uint64]
	minLen  int
	maxLen  int
}

// New constructs a Generator producing keys of length [minLen, maxLen].
func New(seed uint64, minLen, maxLen int) *Generator {
	if minLen < 1 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	return &Generator{
		seed:   seed,
		hasher: maphash.NewHasher[uint64](),
		minLen: minLen,
		maxLen: maxLen,
	}
}

const mixConstant uint64 = 0x9E3779B97F4A7C15

// Next returns the next key in the stream.
func (g *Generator) Next() []byte {
	g.counter++
	mixed := g.seed ^ g.counter*mixConstant

	length := g.minLen
	if span := g.maxLen - g.minLen; span > 0 {
		length += int(g.hasher.Hash(mixed) % uint64(span+1))
	}

	out := make([]byte, 0, length+8)
	block := mixed
	for len(out) < length {
		block = block*mixConstant + 1
		h := g.hasher.Hash(block)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], h)
		out = append(out, b[:]...)
	}
	return out[:length]
}

// NextN returns n freshly generated keys, which may contain duplicates.
func (g *Generator) NextN(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// Distinct returns n pairwise-distinct keys, drawing extra from the stream
// to replace any collisions.
func (g *Generator) Distinct(n int) [][]byte {
	seen := make(map[string]struct{}, n)
	out := make([][]byte, 0, n)
	for len(out) < n {
		k := g.Next()
		ks := string(k)
		if _, dup := seen[ks]; dup {
			continue
		}
		seen[ks] = struct{}{}
		out = append(out, k)
	}
	return out
}
