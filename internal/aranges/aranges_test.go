package aranges

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/dieinfo"
)

func TestParse_SingleTupleTable(t *testing.T) {
	// header: version(2) + debug_info_offset(4) + address_size(1) + segment_size(1) = 8 bytes,
	// already aligned to 2*address_size (8), so no padding.
	data := []byte{
		0x00, 0x00, 0x00, 0x00, // unit length, filled below
		0x02, 0x00, // version 2
		0x00, 0x00, 0x00, 0x00, // debug_info offset 0
		0x04, // address size 4
		0x00, // segment size 0
		0x10, 0x00, 0x00, 0x00, // tuple address 0x10
		0x20, 0x00, 0x00, 0x00, // tuple length 0x20
		0x00, 0x00, 0x00, 0x00, // terminator address
		0x00, 0x00, 0x00, 0x00, // terminator length
	}
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(data)-4))

	var out bytes.Buffer
	d := diag.New(&out)
	cus := []dieinfo.CU{{Offset: 0, Length: 10}}

	tables, err := Parse(data, 0, binary.LittleEndian, cus, d)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	require.Len(t, tables[0].Tuples, 1)
	assert.Equal(t, Tuple{Address: 0x10, Length: 0x20}, tables[0].Tuples[0])
	assert.Equal(t, 0, d.ErrorCount())
}

func TestParse_InvalidAddressSizeReportedAndTableSkipped(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x00, // unit length, filled below
		0x02, 0x00, // version 2
		0x00, 0x00, 0x00, 0x00, // debug_info offset 0
		0x03, // address size 3: not one of {2,4,8}
		0x00, // segment size 0
	}
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(data)-4))

	var out bytes.Buffer
	d := diag.New(&out)
	cus := []dieinfo.CU{{Offset: 0, Length: 10}}

	tables, err := Parse(data, 0, binary.LittleEndian, cus, d)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Empty(t, tables[0].Tuples, "a table with an invalid address size must not be read for tuples")
	assert.Equal(t, 1, d.ErrorCount())
	assert.Contains(t, out.String(), "invalid address size 3")
}

func TestParse_NonZeroSegmentSizeReportedAndTableSkipped(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x00, // unit length, filled below
		0x02, 0x00, // version 2
		0x00, 0x00, 0x00, 0x00, // debug_info offset 0
		0x04, // address size 4
		0x02, // segment size 2: unsupported
	}
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(data)-4))

	var out bytes.Buffer
	d := diag.New(&out)
	cus := []dieinfo.CU{{Offset: 0, Length: 10}}

	tables, err := Parse(data, 0, binary.LittleEndian, cus, d)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Empty(t, tables[0].Tuples)
	assert.Equal(t, 1, d.ErrorCount())
	assert.Contains(t, out.String(), "unsupported non-zero segment size 2")
}

func TestParse_UnknownCUReported(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x00,
		0x02, 0x00,
		0xff, 0x00, 0x00, 0x00, // debug_info offset 0xff, no such CU
		0x04,
		0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	binary.LittleEndian.PutUint32(data[0:4], uint32(len(data)-4))

	var out bytes.Buffer
	d := diag.New(&out)

	_, err := Parse(data, 0, binary.LittleEndian, nil, d)
	require.NoError(t, err)
	assert.Equal(t, 1, d.ErrorCount())
	assert.Contains(t, out.String(), "doesn't exist in .debug_info")
}
