package abbrev

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarflint/dwarflint/internal/diag"
)

func TestLoadTables_SingleAbbrev(t *testing.T) {
	data := []byte{
		0x01,       // code 1
		0x11,       // tag
		0x01,       // has_children = yes
		0x03, 0x08, // attribute: name=0x03, form=0x08 (string)
		0x00, 0x00, // attribute list terminator
		0x00, // table terminator
	}

	var out bytes.Buffer
	d := diag.New(&out)

	tables, err := LoadTables(data, 0, binary.LittleEndian, d)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	table := tables[0]
	assert.Equal(t, uint64(0), table.Offset)
	require.Len(t, table.Abbrevs, 1)

	ab := table.Abbrevs[0]
	assert.Equal(t, uint64(1), ab.Code)
	assert.Equal(t, uint64(0x11), ab.Tag)
	assert.True(t, ab.HasChildren)
	require.Len(t, ab.Attribs, 1)
	assert.Equal(t, uint64(0x03), ab.Attribs[0].Name)
	assert.Equal(t, uint64(0x08), ab.Attribs[0].Form)

	found, ok := table.Find(1)
	assert.True(t, ok)
	assert.Same(t, &table.Abbrevs[0], found)

	_, ok = table.Find(2)
	assert.False(t, ok)
}

func TestLoadTables_SiblingAtChildlessAbbrevWarns(t *testing.T) {
	data := []byte{
		0x01,       // code 1
		0x11,       // tag
		0x00,       // has_children = no
		0x01, 0x13, // DW_AT_sibling, DW_FORM_ref4
		0x00, 0x00, // terminator
		0x00, // table terminator
	}

	var out bytes.Buffer
	d := diag.New(&out)

	_, err := LoadTables(data, 0, binary.LittleEndian, d)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "childless abbrev")
}

func TestLoadTables_InvalidTagIsFatal(t *testing.T) {
	data := []byte{
		0x01, // code 1
		0x80, 0x80, 0x80, 0x80, 0x80, 0x01, // an absurdly large ULEB128 tag
		0x00,
	}

	var out bytes.Buffer
	d := diag.New(&out)

	_, err := LoadTables(data, 0, binary.LittleEndian, d)
	assert.Error(t, err)
}

func TestLoadTables_PaddingBetweenTablesWarns(t *testing.T) {
	data := []byte{
		0x01, 0x11, 0x00, 0x00, 0x00, 0x00, // one abbrev, table closes
		0x00, 0x00, 0x00, // extra zero padding
		0x01, 0x22, 0x00, 0x00, 0x00, 0x00, // second table
	}

	var out bytes.Buffer
	d := diag.New(&out)

	tables, err := LoadTables(data, 0, binary.LittleEndian, d)
	require.NoError(t, err)
	assert.Len(t, tables, 2)
	assert.Contains(t, out.String(), "unnecessary padding")
}
