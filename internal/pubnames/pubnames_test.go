package pubnames

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/dieinfo"
)

func TestParse_SingleEntry(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x00, // unit length, filled below
		0x02, 0x00, // version 2
		0x00, 0x00, 0x00, 0x00, // debug_info offset 0
		0x0c, 0x00, 0x00, 0x00, // debug_info length 12 (matches CU below)
		0x0b, 0x00, 0x00, 0x00, // DIE offset 0x0b == 11
		'm', 'a', 'i', 'n', 0x00, // name
		0x00, 0x00, 0x00, 0x00, // terminator
	}
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(data)-4))

	var out bytes.Buffer
	d := diag.New(&out)
	cus := []dieinfo.CU{{Offset: 0, Length: 8, DWARF64: false}}
	defined := func(offset uint64) bool { return offset == 11 }

	sets, err := Parse(data, 0, binary.LittleEndian, cus, defined, d)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	require.Len(t, sets[0].Entries, 1)
	assert.Equal(t, "main", sets[0].Entries[0].Name)
	assert.Equal(t, uint64(11), sets[0].Entries[0].DIEOffset)
	assert.Equal(t, 0, d.ErrorCount())
}

func TestParse_LengthMismatchIsFatalForSetButOthersContinue(t *testing.T) {
	set1 := []byte{
		0x00, 0x00, 0x00, 0x00, // unit length, filled below
		0x02, 0x00, // version 2
		0x00, 0x00, 0x00, 0x00, // debug_info offset 0
		0x10, 0x00, 0x00, 0x00, // debug_info length 0x10, doesn't match CU's actual length 0xc
		0x0b, 0x00, 0x00, 0x00, // an entry that must never be parsed
		'x', 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	binary.LittleEndian.PutUint32(set1[0:4], uint32(len(set1)-4))

	set2 := []byte{
		0x00, 0x00, 0x00, 0x00, // unit length, filled below
		0x02, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x0c, 0x00, 0x00, 0x00, // debug_info length 12, matches the CU
		0x0b, 0x00, 0x00, 0x00,
		'm', 'a', 'i', 'n', 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	binary.LittleEndian.PutUint32(set2[0:4], uint32(len(set2)-4))

	data := append(append([]byte{}, set1...), set2...)

	var out bytes.Buffer
	d := diag.New(&out)
	cus := []dieinfo.CU{{Offset: 0, Length: 8, DWARF64: false}}
	defined := func(offset uint64) bool { return offset == 11 }

	sets, err := Parse(data, 0, binary.LittleEndian, cus, defined, d)
	require.NoError(t, err)
	require.Len(t, sets, 2, "the mismatched set and the following valid set must both be recorded")
	assert.Empty(t, sets[0].Entries, "a set with a mismatched debug_info_length must have its entries abandoned entirely")
	require.Len(t, sets[1].Entries, 1, "a later, valid set must still be parsed")
	assert.Equal(t, "main", sets[1].Entries[0].Name)
	assert.Equal(t, 1, d.ErrorCount())
	assert.Contains(t, out.String(), "doesn't match CU's actual length")
}

func TestParse_NameToNonexistentDIEReported(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x00,
		0x02, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x0c, 0x00, 0x00, 0x00,
		0x0b, 0x00, 0x00, 0x00,
		'x', 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(data)-4))

	var out bytes.Buffer
	d := diag.New(&out)
	cus := []dieinfo.CU{{Offset: 0, Length: 8}}
	defined := func(uint64) bool { return false }

	_, err := Parse(data, 0, binary.LittleEndian, cus, defined, d)
	require.NoError(t, err)
	assert.Equal(t, 1, d.ErrorCount())
	assert.Contains(t, out.String(), "nonexistent DIE")
}
