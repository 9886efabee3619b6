// Package coverage implements the bit-set coverage map (component C): a
// fixed-size bit-set over [0, size) with an inclusive range-add operation
// and maximal-hole enumeration. It is used to track which bytes of
// .debug_str were actually referenced by a strp attribute.
package coverage

import "github.com/dwarflint/dwarflint/pkg/utils"

const wordBits = 64

// Map is a bit-set over [0, size) of some section. Bits start cleared;
// Add marks an inclusive range as covered.
type Map struct {
	words []uint64
	size  uint64
}

// New returns a Map covering bit indices [0, size).
func New(size uint64) *Map {
	words := make([]uint64, size/wordBits+1)
	return &Map{words: words, size: size}
}

// Add marks the inclusive bit range [begin, end] as covered, using a
// precomputed mask for each boundary word and a memset-equivalent loop for
// interior words.
func (m *Map) Add(begin, end uint64) {
	bi := begin / wordBits
	ei := end / wordBits

	bb := begin % wordBits
	eb := end % wordBits

	bm := utils.AllOnes[uint64](int(wordBits - bb))
	em := ^utils.AllOnes[uint64](int(wordBits - 1 - eb))

	if bi == ei {
		m.words[bi] |= bm & em
	} else {
		m.words[bi] |= bm
		m.words[ei] |= em
		for i := bi + 1; i < ei; i++ {
			m.words[i] = ^uint64(0)
		}
	}
}

// ForEachHole calls cb once per maximal run of uncovered bits, as inclusive
// [begin, end] pairs (end == begin for a single uncovered bit).
func (m *Map) ForEachHole(cb func(begin, end uint64)) {
	hole := false
	var holeStart uint64

	beginHole := func(a uint64) {
		holeStart = a
		hole = true
	}
	endHole := func(a uint64) {
		if a != holeStart {
			cb(holeStart, a-1)
		}
		hole = false
	}

	beginHole(0)
	for i, word := range m.words {
		if word == ^uint64(0) {
			if hole {
				endHole(uint64(i) * wordBits)
			}
			continue
		}

		for j := uint64(1); j <= wordBits; j++ {
			mask := uint64(1) << (wordBits - j)
			addr := uint64(i)*wordBits + j - 1
			if addr > m.size {
				break
			}
			switch {
			case !hole && word&mask == 0:
				beginHole(addr)
			case hole && word&mask != 0:
				endHole(addr)
			}
		}
	}
	if hole {
		endHole(m.size)
	}
}
