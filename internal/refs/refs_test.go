package refs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddrSet_AddAndHas(t *testing.T) {
	var s AddrSet
	s.Add(0x20)
	s.Add(0x10)
	s.Add(0x30)
	s.Add(0x20) // duplicate, no-op

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has(0x10))
	assert.True(t, s.Has(0x20))
	assert.True(t, s.Has(0x30))
	assert.False(t, s.Has(0x25))
	assert.Equal(t, []uint64{0x10, 0x20, 0x30}, s.Offsets())
}

func TestRefList_Add(t *testing.T) {
	var l RefList
	l.Add(0x10, 0x04, Local)
	l.Add(0x200, 0x14, Global)

	assert.Equal(t, 2, l.Len())
	all := l.All()
	assert.Equal(t, Ref{Referee: 0x10, Referrer: 0x04, Locality: Local}, all[0])
	assert.Equal(t, Ref{Referee: 0x200, Referrer: 0x14, Locality: Global}, all[1])
}
