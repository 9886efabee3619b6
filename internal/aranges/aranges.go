// Package aranges implements component G: it parses .debug_aranges into a
// set of per-CU address-range tables and validates each table's header and
// alignment against the CU it claims to cover.
package aranges

import (
	"encoding/binary"

	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/dieinfo"
	"github.com/dwarflint/dwarflint/internal/perr"
	"github.com/dwarflint/dwarflint/internal/reader"
)

const sectionName = ".debug_aranges"

// Tuple is one (address, length) pair from an arange table, terminated by
// a (0, 0) tuple which is not itself recorded.
type Tuple struct {
	Address uint64
	Length  uint64
}

// Table is one arange table, covering the CU at DebugInfoOffset.
type Table struct {
	Offset          uint64
	DWARF64         bool
	Version         uint16
	DebugInfoOffset uint64
	AddressSize     int
	SegmentSize     int
	Tuples          []Tuple
}

// Parse reads every arange table in data, cross-checking each one's
// debug_info_offset field against cus.
func Parse(data []byte, base uint64, order binary.ByteOrder, cus []dieinfo.CU, d *diag.State) ([]*Table, error) {
	r := reader.New(data, base, order)
	where := diag.NewWhere(sectionName)

	var tables []*Table

	for !r.Eof() {
		tableOffset := r.Offset()
		tWhere := where.ArangeTable(tableOffset)

		length, dwarf64, err := r.ReadInitialLength()
		if err != nil {
			return nil, perr.Fatal(err, "%s: can't read table length", tWhere)
		}
		end := r.Offset() + length

		sub, err := r.Sub(r.Offset(), end)
		if err != nil {
			return nil, perr.Fatal(err, "%s: table extends past end of section", tWhere)
		}

		version, err := sub.ReadU16()
		if err != nil {
			return nil, perr.Fatal(err, "%s: can't read version", tWhere)
		}
		if version != 2 {
			d.Emit(diag.AreaAranges|diag.ErrorFlag, tWhere, "unexpected arange table version %d", version)
		}

		infoOffset, err := sub.ReadOffset(dwarf64)
		if err != nil {
			return nil, perr.Fatal(err, "%s: can't read debug_info offset", tWhere)
		}

		addressSize, err := sub.ReadU8()
		if err != nil {
			return nil, perr.Fatal(err, "%s: can't read address size", tWhere)
		}
		segmentSize, err := sub.ReadU8()
		if err != nil {
			return nil, perr.Fatal(err, "%s: can't read segment size", tWhere)
		}

		if !findCU(cus, infoOffset) {
			d.Emit(diag.AreaAranges|diag.ErrorFlag, tWhere,
				"table covers CU at 0x%x, which doesn't exist in .debug_info", infoOffset)
		}

		t := &Table{
			Offset:          tableOffset,
			DWARF64:         dwarf64,
			Version:         version,
			DebugInfoOffset: infoOffset,
			AddressSize:     int(addressSize),
			SegmentSize:     int(segmentSize),
		}

		// address_size must be one of the widths ReadVar can actually decode,
		// and segment_size must be zero: this tool doesn't support segmented
		// addressing. Either violation makes the tuple layout itself
		// unreadable, so the whole table is diagnosed and skipped rather than
		// risking a crash by reading tuples with a bogus width.
		validAddressSize := addressSize == 2 || addressSize == 4 || addressSize == 8
		if !validAddressSize {
			d.Emit(diag.AreaAranges|diag.ErrorFlag, tWhere, "invalid address size %d", addressSize)
		}
		if segmentSize != 0 {
			d.Emit(diag.AreaAranges|diag.ErrorFlag, tWhere, "unsupported non-zero segment size %d", segmentSize)
		}
		if !validAddressSize || segmentSize != 0 {
			tables = append(tables, t)
			if err := r.Skip(int(length)); err != nil {
				return nil, perr.Fatal(err, "%s: couldn't seek past table", tWhere)
			}
			continue
		}

		headerSize := 2 + int(offsetSize(dwarf64)) + 2
		alignTo := 2 * int(addressSize)
		if pad := (alignTo - headerSize%alignTo) % alignTo; pad > 0 {
			if err := sub.Skip(pad); err != nil {
				return nil, perr.Fatal(err, "%s: can't skip header alignment padding", tWhere)
			}
		}

		for {
			recOffset := sub.Offset()
			addr, err := sub.ReadVar(int(addressSize))
			if err != nil {
				return nil, perr.Fatal(err, "%s: can't read tuple address", tWhere.Record(recOffset))
			}
			size, err := sub.ReadVar(int(addressSize))
			if err != nil {
				return nil, perr.Fatal(err, "%s: can't read tuple length", tWhere.Record(recOffset))
			}

			if addr == 0 && size == 0 {
				break
			}
			t.Tuples = append(t.Tuples, Tuple{Address: addr, Length: size})

			if sub.Eof() {
				d.Emit(diag.AreaAranges|diag.ErrorFlag, tWhere, "table is missing its terminating (0, 0) tuple")
				break
			}
		}

		if !sub.Eof() {
			d.Emit(diag.AreaAranges|diag.Suboptimal|diag.Impact2, tWhere,
				"0x%x bytes of unconsumed data at end of table", sub.Remaining())
		}

		tables = append(tables, t)

		if err := r.Skip(int(length)); err != nil {
			return nil, perr.Fatal(err, "%s: couldn't seek past table", tWhere)
		}
	}

	return tables, nil
}

func findCU(cus []dieinfo.CU, offset uint64) bool {
	for _, cu := range cus {
		if cu.Offset == offset {
			return true
		}
	}
	return false
}

func offsetSize(dwarf64 bool) uint64 {
	if dwarf64 {
		return 8
	}
	return 4
}
