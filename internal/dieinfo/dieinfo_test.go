package dieinfo

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarflint/dwarflint/internal/abbrev"
	"github.com/dwarflint/dwarflint/internal/diag"
)

func loadTables(t *testing.T, data []byte, d *diag.State) []*abbrev.Table {
	t.Helper()
	tables, err := abbrev.LoadTables(data, 0, binary.LittleEndian, d)
	require.NoError(t, err)
	return tables
}

func TestParse_SingleChildlessCU(t *testing.T) {
	abbrevData := []byte{
		0x01, 0x11, 0x00, // code 1, tag, has_children = no
		0x00, 0x00, // attribute list terminator (no attributes)
		0x00, // table terminator
	}

	cuData := []byte{
		0x08, 0x00, 0x00, 0x00, // unit length = 8
		0x02, 0x00, // version 2
		0x00, 0x00, 0x00, 0x00, // abbrev offset 0
		0x04, // address size 4
		0x01, // DIE: abbrev code 1
	}

	var out bytes.Buffer
	d := diag.New(&out)
	tables := loadTables(t, abbrevData, d)

	info, err := Parse(cuData, 0, binary.LittleEndian, tables, 0, d)
	require.NoError(t, err)
	require.Len(t, info.CUs, 1)
	assert.Equal(t, uint16(2), info.CUs[0].Version)
	assert.Equal(t, 4, info.CUs[0].AddressSize)
	assert.True(t, info.Defined.Has(11), "the CU DIE's offset should be recorded as defined")
	assert.Equal(t, 0, d.ErrorCount())
}

func TestParse_OutOfRangeLocalReferenceReportedAndDropped(t *testing.T) {
	abbrevData := []byte{
		0x01, 0x11, 0x00, // code 1, tag, has_children = no
		0x49, 0x11, // attribute: name 0x49, form DW_FORM_ref1
		0x00, 0x00, // attribute list terminator
		0x00, // table terminator
	}

	cuData := []byte{
		0x09, 0x00, 0x00, 0x00, // unit length = 9, total CU size = 13
		0x02, 0x00, // version 2
		0x00, 0x00, 0x00, 0x00, // abbrev offset 0
		0x04, // address size 4
		0x01, // DIE: abbrev code 1
		0x99, // DW_FORM_ref1 value 0x99, far outside the 13-byte CU
	}

	var out bytes.Buffer
	d := diag.New(&out)
	tables := loadTables(t, abbrevData, d)

	_, err := Parse(cuData, 0, binary.LittleEndian, tables, 0, d)
	require.NoError(t, err)
	assert.Equal(t, 1, d.ErrorCount())
	assert.Contains(t, out.String(), "invalid reference outside the CU: 0x99")
	assert.NotContains(t, out.String(), "unresolved reference",
		"a dropped out-of-range reference must never also be reported as unresolved")
}

func TestParse_DanglingInRangeLocalReferenceReported(t *testing.T) {
	abbrevData := []byte{
		0x01, 0x11, 0x00, // code 1, tag, has_children = no
		0x49, 0x11, // attribute: name 0x49, form DW_FORM_ref1
		0x00, 0x00, // attribute list terminator
		0x00, // table terminator
	}

	cuData := []byte{
		0x09, 0x00, 0x00, 0x00, // unit length = 9, total CU size = 13
		0x02, 0x00, // version 2
		0x00, 0x00, 0x00, 0x00, // abbrev offset 0
		0x04, // address size 4
		0x01, // DIE: abbrev code 1
		0x05, // DW_FORM_ref1 value 0x05: in range, but no DIE starts there
	}

	var out bytes.Buffer
	d := diag.New(&out)
	tables := loadTables(t, abbrevData, d)

	_, err := Parse(cuData, 0, binary.LittleEndian, tables, 0, d)
	require.NoError(t, err)
	assert.Equal(t, 1, d.ErrorCount())
	assert.Contains(t, out.String(), "unresolved reference to 0x5")
}

func TestParse_UnknownAbbrevTableReportedButOtherCUsContinue(t *testing.T) {
	abbrevData := []byte{
		0x01, 0x11, 0x00, // code 1, tag, has_children = no
		0x00, 0x00,
		0x00,
	}

	cuData := []byte{
		// First CU: refers to a nonexistent abbrev table.
		0x08, 0x00, 0x00, 0x00,
		0x02, 0x00,
		0x10, 0x00, 0x00, 0x00, // abbrev offset 0x10, no such table
		0x04,
		0x01,
		// Second CU: valid, uses the real abbrev table at offset 0.
		0x08, 0x00, 0x00, 0x00,
		0x02, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x04,
		0x01,
	}

	var out bytes.Buffer
	d := diag.New(&out)
	tables := loadTables(t, abbrevData, d)

	info, err := Parse(cuData, 0, binary.LittleEndian, tables, 0, d)
	require.NoError(t, err)
	require.Len(t, info.CUs, 2, "the second CU must still be parsed after the first CU's fatal error")
	assert.Contains(t, out.String(), "couldn't find abbrev table")
}

func TestParse_TrailingZeroPadEndsSilently(t *testing.T) {
	abbrevData := []byte{
		0x01, 0x11, 0x00,
		0x00, 0x00,
		0x00,
	}

	cuData := []byte{
		0x08, 0x00, 0x00, 0x00,
		0x02, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x04,
		0x01,
		// Trailing padding: a "unit length" of zero with nothing after it.
		0x00, 0x00, 0x00, 0x00,
	}

	var out bytes.Buffer
	d := diag.New(&out)
	tables := loadTables(t, abbrevData, d)

	info, err := Parse(cuData, 0, binary.LittleEndian, tables, 0, d)
	require.NoError(t, err)
	require.Len(t, info.CUs, 1)
	assert.Equal(t, 0, d.ErrorCount())
}
