package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collectHoles(m *Map) [][2]uint64 {
	var holes [][2]uint64
	m.ForEachHole(func(begin, end uint64) { holes = append(holes, [2]uint64{begin, end}) })
	return holes
}

func TestMap_Add_SingleWordRange(t *testing.T) {
	m := New(64)
	m.Add(4, 9)

	holes := collectHoles(m)
	assert.Equal(t, [][2]uint64{{0, 3}, {10, 63}}, holes)
}

func TestMap_Add_SpansMultipleWords(t *testing.T) {
	m := New(200)
	m.Add(10, 150)

	holes := collectHoles(m)
	assert.Equal(t, [][2]uint64{{0, 9}, {151, 199}}, holes)
}

func TestMap_Add_FullyCoveredHasNoHoles(t *testing.T) {
	m := New(64)
	m.Add(0, 63)

	assert.Empty(t, collectHoles(m))
}

func TestMap_Add_MultipleDisjointRanges(t *testing.T) {
	m := New(100)
	m.Add(0, 9)
	m.Add(20, 29)

	holes := collectHoles(m)
	assert.Equal(t, [][2]uint64{{10, 19}, {30, 99}}, holes)
}
