// Package pubnames implements component H: it parses .debug_pubnames into
// per-CU name tables and validates each table's covered-length field
// against the CU it names.
package pubnames

import (
	"encoding/binary"

	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/dieinfo"
	"github.com/dwarflint/dwarflint/internal/perr"
	"github.com/dwarflint/dwarflint/internal/reader"
)

const sectionName = ".debug_pubnames"

// Entry is one (offset, name) pair, terminated by a zero offset which is
// not itself recorded.
type Entry struct {
	DIEOffset uint64
	Name      string
}

// Set is one pubname set, naming DIEs within the CU at DebugInfoOffset.
type Set struct {
	Offset          uint64
	DWARF64         bool
	Version         uint16
	DebugInfoOffset uint64
	DebugInfoLength uint64
	Entries         []Entry
}

// Parse reads every pubname set in data, cross-checking each set's
// debug_info_length field against the CU it claims to cover.
func Parse(data []byte, base uint64, order binary.ByteOrder, cus []dieinfo.CU, defined func(offset uint64) bool, d *diag.State) ([]*Set, error) {
	r := reader.New(data, base, order)
	where := diag.NewWhere(sectionName)

	var sets []*Set

	for !r.Eof() {
		setOffset := r.Offset()
		sWhere := where.PubnameSet(setOffset)

		length, dwarf64, err := r.ReadInitialLength()
		if err != nil {
			return nil, perr.Fatal(err, "%s: can't read set length", sWhere)
		}
		end := r.Offset() + length

		sub, err := r.Sub(r.Offset(), end)
		if err != nil {
			return nil, perr.Fatal(err, "%s: set extends past end of section", sWhere)
		}

		version, err := sub.ReadU16()
		if err != nil {
			return nil, perr.Fatal(err, "%s: can't read version", sWhere)
		}
		if version != 2 {
			d.Emit(diag.AreaPubnames|diag.ErrorFlag, sWhere, "unexpected pubname set version %d", version)
		}

		infoOffset, err := sub.ReadOffset(dwarf64)
		if err != nil {
			return nil, perr.Fatal(err, "%s: can't read debug_info offset", sWhere)
		}

		infoLength, err := sub.ReadOffset(dwarf64)
		if err != nil {
			return nil, perr.Fatal(err, "%s: can't read debug_info length", sWhere)
		}

		s := &Set{
			Offset:          setOffset,
			DWARF64:         dwarf64,
			Version:         version,
			DebugInfoOffset: infoOffset,
			DebugInfoLength: infoLength,
		}

		if cu, ok := findCU(cus, infoOffset); !ok {
			d.Emit(diag.AreaPubnames|diag.ErrorFlag, sWhere,
				"set covers CU at 0x%x, which doesn't exist in .debug_info", infoOffset)
		} else if infoLength != cu.Length+initialLengthSize(cu.DWARF64) {
			// A covered-length mismatch means the entries below can't be
			// trusted to name DIEs in the CU they claim to: fatal for this
			// set, so its entries are never parsed, but the section as a
			// whole continues with the next set.
			d.Emit(diag.AreaPubnames|diag.ErrorFlag, sWhere,
				"set's debug_info_length 0x%x doesn't match CU's actual length 0x%x",
				infoLength, cu.Length+initialLengthSize(cu.DWARF64))
			sets = append(sets, s)
			if err := r.Skip(int(length)); err != nil {
				return nil, perr.Fatal(err, "%s: couldn't seek past set", sWhere)
			}
			continue
		}

		for {
			entOffset := sub.Offset()
			dieOffset, err := sub.ReadOffset(dwarf64)
			if err != nil {
				return nil, perr.Fatal(err, "%s: can't read DIE offset", sWhere.Record(entOffset))
			}
			if dieOffset == 0 {
				break
			}

			name, err := readCString(sub)
			if err != nil {
				return nil, perr.Fatal(err, "%s: can't read name", sWhere.Record(entOffset))
			}

			globalOffset := infoOffset + dieOffset
			if defined != nil && !defined(globalOffset) {
				d.Emit(diag.AreaPubnames|diag.ErrorFlag, sWhere.Record(entOffset),
					"name %q refers to nonexistent DIE at 0x%x", name, globalOffset)
			}

			s.Entries = append(s.Entries, Entry{DIEOffset: globalOffset, Name: name})

			if sub.Eof() {
				d.Emit(diag.AreaPubnames|diag.ErrorFlag, sWhere, "set is missing its terminating zero offset")
				break
			}
		}

		if !sub.Eof() {
			d.Emit(diag.AreaPubnames|diag.Suboptimal|diag.Impact2, sWhere,
				"0x%x bytes of unconsumed data at end of set", sub.Remaining())
		}

		sets = append(sets, s)

		if err := r.Skip(int(length)); err != nil {
			return nil, perr.Fatal(err, "%s: couldn't seek past set", sWhere)
		}
	}

	return sets, nil
}

func findCU(cus []dieinfo.CU, offset uint64) (dieinfo.CU, bool) {
	for _, cu := range cus {
		if cu.Offset == offset {
			return cu, true
		}
	}
	return dieinfo.CU{}, false
}

func initialLengthSize(dwarf64 bool) uint64 {
	if dwarf64 {
		return 12
	}
	return 4
}

func readCString(r *reader.Reader) (string, error) {
	var b []byte
	for {
		c, err := r.ReadU8()
		if err != nil {
			return "", err
		}
		if c == 0 {
			return string(b), nil
		}
		b = append(b, c)
	}
}
