// Package abbrev implements component E: it loads .debug_abbrev into a set
// of abbreviation tables keyed by their starting section offset, resolving
// a DIE's numeric abbrev code to its tag and attribute-form list.
package abbrev

import (
	"encoding/binary"
	"sort"

	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/dwconst"
	"github.com/dwarflint/dwarflint/internal/perr"
	"github.com/dwarflint/dwarflint/internal/reader"
)

const sectionName = ".debug_abbrev"

// AttribDescriptor is a (name, form) pair, with the offset it was parsed
// at. A 0/0 pair terminates an abbreviation's attribute list and is not
// itself recorded.
type AttribDescriptor struct {
	Name   uint64
	Form   uint64
	Offset uint64
}

// Abbrev is one abbreviation: a tag and ordered attribute-form list keyed
// by a numeric code, with a mutable Used flag set once a DIE references it.
type Abbrev struct {
	Code        uint64
	Tag         uint64
	HasChildren bool
	Attribs     []AttribDescriptor
	Offset      uint64
	Used        bool
}

// Table is a contiguous run of abbreviations terminated by a zero code,
// identified by its starting section offset.
type Table struct {
	Offset  uint64
	Abbrevs []Abbrev
	Used    bool
}

// Find resolves a numeric abbrev code to its Abbrev by binary search; the
// table's Abbrevs slice is kept sorted ascending by code after loading.
func (t *Table) Find(code uint64) (*Abbrev, bool) {
	i := sort.Search(len(t.Abbrevs), func(i int) bool { return t.Abbrevs[i].Code >= code })
	if i < len(t.Abbrevs) && t.Abbrevs[i].Code == code {
		return &t.Abbrevs[i], true
	}
	return nil, false
}

// LoadTables parses every abbreviation table in data. A structural error
// that makes further parsing unreliable (a bad tag, a bad has_children
// byte, a truncated read) aborts the whole section, since every CU depends
// on it.
func LoadTables(data []byte, base uint64, order binary.ByteOrder, d *diag.State) ([]*Table, error) {
	r := reader.New(data, base, order)
	where := diag.NewWhere(sectionName)

	var tables []*Table
	var current *Table

	for !r.Eof() {
		var zeroSeqStart uint64
		haveZeroSeq := false
		prevCode := ^uint64(0)
		prevOff := ^uint64(0)
		var abbrOff, abbrCode uint64

		for !r.Eof() {
			abbrOff = r.Offset()
			code, _, err := r.ReadULEB128()
			if err != nil {
				return nil, perr.Fatal(err, "%s: can't read abbrev code at 0x%x", sectionName, abbrOff)
			}
			abbrCode = code

			if abbrCode == 0 && prevCode == 0 && !haveZeroSeq {
				zeroSeqStart = prevOff
				haveZeroSeq = true
			}

			if abbrCode != 0 {
				break
			}
			current = nil
			prevCode, prevOff = abbrCode, abbrOff
		}

		if haveZeroSeq {
			d.Emit(diag.AreaAbbrevs|diag.Bloat|diag.Impact1, where.Abbrev(currentOrOffset(tables, abbrOff)),
				"0x%x..0x%x: unnecessary padding with zero bytes", zeroSeqStart, prevOff)
		}

		if r.Eof() {
			break
		}

		if current == nil {
			current = &Table{Offset: abbrOff}
			tables = append(tables, current)
		}

		ab, err := parseOne(r, abbrOff, abbrCode, where, d)
		if err != nil {
			return nil, err
		}
		current.Abbrevs = append(current.Abbrevs, *ab)
	}

	for _, t := range tables {
		sort.Slice(t.Abbrevs, func(i, j int) bool { return t.Abbrevs[i].Code < t.Abbrevs[j].Code })
	}

	return tables, nil
}

// currentOrOffset picks the table offset to blame a padding run on: the
// table that's about to be opened at abbrOff, when none was open before it.
func currentOrOffset(tables []*Table, abbrOff uint64) uint64 {
	if len(tables) > 0 {
		return tables[len(tables)-1].Offset
	}
	return abbrOff
}

func parseOne(r *reader.Reader, abbrOff, code uint64, where diag.Where, d *diag.State) (*Abbrev, error) {
	ab := &Abbrev{Code: code, Offset: abbrOff}
	abbrWhere := where.Abbrev(abbrOff)

	tag, _, err := r.ReadULEB128()
	if err != nil {
		return nil, perr.Fatal(err, "%s: can't read abbrev tag", abbrWhere)
	}
	if tag > dwconst.TagHiUser {
		return nil, perr.Fatal(nil, "%s: invalid abbrev tag 0x%x", abbrWhere, tag)
	}
	ab.Tag = tag

	hasChildren, err := r.ReadU8()
	if err != nil {
		return nil, perr.Fatal(err, "%s: can't read abbrev has_children", abbrWhere)
	}
	if hasChildren != dwconst.ChildrenNo && hasChildren != dwconst.ChildrenYes {
		return nil, perr.Fatal(nil, "%s: invalid has_children value 0x%x", abbrWhere, hasChildren)
	}
	ab.HasChildren = hasChildren == dwconst.ChildrenYes

	var siblingAttrOffset uint64

	for {
		attrOff := r.Offset()
		name, _, err := r.ReadULEB128()
		if err != nil {
			return nil, perr.Fatal(err, "%s, attribute 0x%x: can't read attribute name", abbrWhere, attrOff)
		}
		form, _, err := r.ReadULEB128()
		if err != nil {
			return nil, perr.Fatal(err, "%s, attribute 0x%x: can't read attribute form", abbrWhere, attrOff)
		}

		if name == 0 && form == 0 {
			break
		}

		attrWhere := abbrWhere.Attribute(attrOff)

		if name > dwconst.AttrHiUser {
			return nil, perr.Fatal(nil, "%s: invalid name 0x%x", attrWhere, name)
		}
		if !(form > 0 && form <= dwconst.FormIndirect) {
			return nil, perr.Fatal(nil, "%s: invalid form 0x%x", attrWhere, form)
		}

		if name == dwconst.AttrSibling {
			if siblingAttrOffset != 0 {
				d.Emit(diag.AreaDIESibling|diag.ErrorFlag, attrWhere,
					"another DW_AT_sibling attribute in one abbreviation (first was 0x%x)", siblingAttrOffset)
			} else {
				siblingAttrOffset = attrOff
				if !ab.HasChildren {
					d.Emit(diag.AreaDIESibling|diag.Bloat|diag.Impact1, attrWhere,
						"excessive DW_AT_sibling attribute at childless abbrev")
				}
			}

			switch {
			case form == dwconst.FormRefAddr:
				d.Emit(diag.AreaDIESibling|diag.Impact2, attrWhere,
					"DW_AT_sibling attribute with form DW_FORM_ref_addr")
			case !dwconst.IsReferenceForm(form):
				d.Emit(diag.AreaDIESibling|diag.ErrorFlag, attrWhere,
					"DW_AT_sibling attribute with non-reference form 0x%x", form)
			}
		}

		ab.Attribs = append(ab.Attribs, AttribDescriptor{Name: name, Form: form, Offset: attrOff})
	}

	return ab, nil
}

// WarnUnused reports every abbreviation in table that was never used by a
// CU, per spec.md §4.F's per-CU resolution step.
func WarnUnused(t *Table, where diag.Where, d *diag.State) {
	tWhere := where.Abbrev(t.Offset)
	for _, ab := range t.Abbrevs {
		if !ab.Used {
			d.Emit(diag.AreaAbbrevs|diag.Bloat|diag.Impact3, tWhere,
				"abbreviation at 0x%x is never used", ab.Offset)
		}
	}
}
