// Package refs implements component D: a sorted set of DIE offsets with
// binary-search lookup, and an append-only list of (referee, referrer)
// reference records.
package refs

import "sort"

// AddrSet is a sorted set of section-absolute DIE offsets. Inserting an
// offset already present is a no-op; lookups are O(log n).
type AddrSet struct {
	offsets []uint64
}

// Add inserts offset if not already present, keeping the set sorted.
func (s *AddrSet) Add(offset uint64) {
	i := sort.Search(len(s.offsets), func(i int) bool { return s.offsets[i] >= offset })
	if i < len(s.offsets) && s.offsets[i] == offset {
		return
	}
	s.offsets = append(s.offsets, 0)
	copy(s.offsets[i+1:], s.offsets[i:])
	s.offsets[i] = offset
}

// Has reports whether offset is in the set.
func (s *AddrSet) Has(offset uint64) bool {
	i := sort.Search(len(s.offsets), func(i int) bool { return s.offsets[i] >= offset })
	return i < len(s.offsets) && s.offsets[i] == offset
}

// Len returns the number of distinct offsets recorded.
func (s *AddrSet) Len() int { return len(s.offsets) }

// Offsets returns the sorted offsets; the caller must not mutate it.
func (s *AddrSet) Offsets() []uint64 { return s.offsets }

// Locality distinguishes a CU-local reference (rebased to section-absolute
// before being recorded) from a global one.
type Locality int

const (
	Local Locality = iota
	Global
)

// Ref is a single recorded reference: the referee's section-absolute
// offset, the offset of the DIE that emitted it, and its locality.
type Ref struct {
	Referee  uint64
	Referrer uint64
	Locality Locality
}

// RefList is an append-only list of reference records.
type RefList struct {
	refs []Ref
}

// Add appends a reference record.
func (l *RefList) Add(referee, referrer uint64, locality Locality) {
	l.refs = append(l.refs, Ref{Referee: referee, Referrer: referrer, Locality: locality})
}

// All returns every recorded reference, in insertion order.
func (l *RefList) All() []Ref { return l.refs }

// Len returns the number of recorded references.
func (l *RefList) Len() int { return len(l.refs) }
