// Package dieinfo implements component F: it parses .debug_info's sequence
// of compilation units, walks each unit's DIE tree against the abbreviation
// tables loaded by component E, and records every reference and every
// .debug_str offset a DW_FORM_strp attribute touches.
package dieinfo

import (
	"encoding/binary"
	"fmt"

	"github.com/dwarflint/dwarflint/internal/abbrev"
	"github.com/dwarflint/dwarflint/internal/coverage"
	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/dwconst"
	"github.com/dwarflint/dwarflint/internal/perr"
	"github.com/dwarflint/dwarflint/internal/reader"
	"github.com/dwarflint/dwarflint/internal/refs"
)

const sectionName = ".debug_info"

// CU is one parsed compilation unit header, kept around so aranges and
// pubnames can cross-check their "covered length" fields against it.
type CU struct {
	Offset       uint64
	Length       uint64
	HeaderSize   uint64
	DWARF64      bool
	Version      uint16
	AbbrevOffset uint64
	AddressSize  int
}

// End returns the CU's section-absolute end offset (one past its last
// byte): the unit length field counts every byte following itself.
func (c CU) End() uint64 { return c.Offset + initialLengthSize(c.DWARF64) + c.Length }

func initialLengthSize(dwarf64 bool) uint64 {
	if dwarf64 {
		return 12
	}
	return 4
}

// Info is the result of parsing every CU in .debug_info: the unit headers,
// a set of every DIE offset actually defined anywhere (for global reference
// resolution), every recorded global (DW_FORM_ref_addr) reference, and the
// coverage of .debug_str a strp form touched. CU-local references are
// resolved per-CU while walking and never deferred here.
type Info struct {
	CUs         []CU
	Defined     refs.AddrSet
	GlobalRefs  refs.RefList
	StrCoverage *coverage.Map
}

// Parse walks every compilation unit in data. tables is indexed by abbrev
// table offset via lookupTable; strSize is the size of .debug_str, used to
// size the string coverage map.
//
// A Fatal error while parsing one CU's header or DIE tree abandons that CU
// only: it is recorded as a diagnostic and parsing resumes at the next CU,
// per spec's error propagation rules. Only a header so badly truncated that
// its extent can't be determined aborts the whole section.
func Parse(data []byte, base uint64, order binary.ByteOrder, tables []*abbrev.Table, strSize uint64, d *diag.State) (*Info, error) {
	r := reader.New(data, base, order)
	where := diag.NewWhere(sectionName)
	info := &Info{StrCoverage: coverage.New(strSize)}

	for !r.Eof() {
		// A zero unit length followed only by zero bytes to the end of the
		// section is trailing padding, not a malformed CU: stop silently.
		if r.RestIsZero() {
			break
		}

		cuOffset := r.Offset()
		cuWhere := where.CU(cuOffset)

		cu, knownEnd, err := parseCUHeader(r, cuOffset)
		if err != nil {
			d.Emit(diag.AreaDIEOther|diag.ErrorFlag, cuWhere, "%v", err)
			if knownEnd <= cuOffset {
				// The unit length itself couldn't be read or trusted: there's
				// no way to locate the next CU, so the rest of the section
				// can't be parsed either.
				return nil, err
			}
			if err := skipTo(r, knownEnd); err != nil {
				return nil, perr.Fatal(err, "%s: couldn't seek past malformed CU", cuWhere)
			}
			continue
		}

		table := lookupTable(tables, cu.AbbrevOffset)
		if table == nil {
			d.Emit(diag.AreaDIEOther|diag.ErrorFlag, cuWhere,
				"couldn't find abbrev table at offset 0x%x", cu.AbbrevOffset)
			info.CUs = append(info.CUs, cu)
			end := cu.End()
			if err := skipTo(r, end); err != nil {
				return nil, perr.Fatal(err, "%s: couldn't seek past CU", cuWhere)
			}
			continue
		}
		table.Used = true

		end := cu.End()
		sub, err := r.Sub(r.Offset(), end)
		if err != nil {
			d.Emit(diag.AreaDIEOther|diag.ErrorFlag, cuWhere, "CU extends past end of section: %v", err)
			info.CUs = append(info.CUs, cu)
			break
		}

		w := &walker{
			r:     sub,
			cu:    cu,
			table: table,
			where: where,
			d:     d,
			info:  info,
		}
		_, walkErr := w.walkChain(1)
		if walkErr != nil {
			d.Emit(diag.AreaDIEOther|diag.ErrorFlag, cuWhere, "%v", walkErr)
		} else {
			if !sub.Eof() {
				d.Emit(diag.AreaDIEOther|diag.Suboptimal|diag.Impact2, cuWhere,
					"CU has 0x%x bytes of unconsumed data after its DIE tree", sub.Remaining())
			}
			resolveLocalReferences(w.localRefs, w.localDefined, where, d)
		}

		info.CUs = append(info.CUs, cu)
		if err := skipTo(r, end); err != nil {
			return nil, perr.Fatal(err, "%s: couldn't seek past CU", cuWhere)
		}
	}

	resolveGlobalReferences(info, where, d)
	reportUnusedAbbrevs(tables, d)

	return info, nil
}

func skipTo(r *reader.Reader, absOffset uint64) error {
	delta := int(absOffset - r.Offset())
	if delta < 0 {
		return fmt.Errorf("dieinfo: cannot seek backwards")
	}
	return r.Skip(delta)
}

func lookupTable(tables []*abbrev.Table, offset uint64) *abbrev.Table {
	for _, t := range tables {
		if t.Offset == offset {
			return t
		}
	}
	return nil
}

// parseCUHeader reads one CU header. knownEnd is the section-absolute end
// offset computed as soon as the initial length is read; it is returned
// even on error (except when the initial length itself couldn't be read),
// so the caller can skip past a malformed header and resume at the next CU.
func parseCUHeader(r *reader.Reader, cuOffset uint64) (cu CU, knownEnd uint64, err error) {
	cuWhere := diag.NewWhere(sectionName).CU(cuOffset)

	length, dwarf64, err := r.ReadInitialLength()
	if err != nil {
		return CU{}, 0, perr.Fatal(err, "%s: can't read unit length", cuWhere)
	}

	end := cuOffset + initialLengthSize(dwarf64) + length

	version, err := r.ReadU16()
	if err != nil {
		return CU{}, end, perr.Fatal(err, "%s: can't read version", cuWhere)
	}
	if version != 2 && version != 3 {
		return CU{}, end, perr.Fatal(nil, "%s: unsupported CU version %d", cuWhere, version)
	}

	abbrevOffset, err := r.ReadOffset(dwarf64)
	if err != nil {
		return CU{}, end, perr.Fatal(err, "%s: can't read abbrev offset", cuWhere)
	}

	addressSize, err := r.ReadU8()
	if err != nil {
		return CU{}, end, perr.Fatal(err, "%s: can't read address size", cuWhere)
	}
	if addressSize != 4 && addressSize != 8 {
		return CU{}, end, perr.Fatal(nil, "%s: unsupported address size %d", cuWhere, addressSize)
	}

	headerSize := initialLengthSize(dwarf64) + 2 + offsetSize(dwarf64) + 1

	return CU{
		Offset:       cuOffset,
		Length:       length,
		HeaderSize:   headerSize,
		DWARF64:      dwarf64,
		Version:      version,
		AbbrevOffset: abbrevOffset,
		AddressSize:  int(addressSize),
	}, end, nil
}

func offsetSize(dwarf64 bool) uint64 {
	if dwarf64 {
		return 8
	}
	return 4
}

// walker carries the state needed to walk one CU's DIE tree: the bounded
// reader over just that CU, its header, the abbrev table it resolves
// against, the shared diagnostic/recording sinks, and the CU-local
// bookkeeping (defined DIE offsets and recorded local references) that is
// resolved immediately after this CU finishes, not deferred to file scope.
type walker struct {
	r     *reader.Reader
	cu    CU
	table *abbrev.Table
	where diag.Where
	d     *diag.State
	info  *Info

	localDefined refs.AddrSet
	localRefs    []refs.Ref
}

// walkChain reads a run of sibling DIEs at the given depth (1 == top level
// of the CU) until a null abbrev code or end of CU, recursing into
// children for abbreviations with has_children set. It mirrors the
// original tool's read_die_chain and returns the number of DIEs read at
// this depth, so a caller can detect a has_children abbrev whose child
// chain turned out empty.
func (w *walker) walkChain(depth int) (int, error) {
	count := 0

	for !w.r.Eof() {
		dieOffset := w.r.Offset()
		code, _, err := w.r.ReadULEB128()
		if err != nil {
			return count, perr.Fatal(err, "%s: can't read abbrev code", w.where.DIE(dieOffset))
		}
		if code == 0 {
			return count, nil
		}

		dieWhere := w.where.DIE(dieOffset)

		ab, ok := w.table.Find(code)
		if !ok {
			return count, perr.Fatal(nil, "%s: DIE references unknown abbreviation %d", dieWhere, code)
		}
		ab.Used = true
		count++

		w.info.Defined.Add(dieOffset)
		w.localDefined.Add(dieOffset)

		var siblingTarget uint64
		haveSibling := false

		for _, attr := range ab.Attribs {
			val, err := w.decodeForm(attr.Form, dieWhere)
			if err != nil {
				return count, err
			}

			if attr.Name == dwconst.AttrSibling && val.isRef {
				siblingTarget = val.refTarget
				haveSibling = true
			}

			if val.isRef {
				if val.refAddr {
					w.info.GlobalRefs.Add(val.refTarget, dieOffset, refs.Global)
				} else {
					w.localRefs = append(w.localRefs, refs.Ref{Referee: val.refTarget, Referrer: dieOffset, Locality: refs.Local})
				}
			}

			if val.isStrp {
				w.info.StrCoverage.Add(val.strpOffset, val.strpOffset+val.strpLen)
			}
		}

		if ab.HasChildren && !haveSibling {
			w.d.Emit(diag.AreaDIESibling|diag.Suboptimal|diag.Impact4, dieWhere,
				"DIE has children but no DW_AT_sibling attribute")
		}

		if ab.HasChildren {
			n, err := w.walkChain(depth + 1)
			if err != nil {
				return count, err
			}
			if n == 0 {
				w.d.Emit(diag.AreaDIEChild|diag.Suboptimal|diag.Impact3, dieWhere,
					"DIE has has_children set but no children follow")
			}
		}

		if haveSibling {
			next := w.r.Offset()
			switch {
			case w.r.Eof() && siblingTarget != next:
				w.d.Emit(diag.AreaDIESibling|diag.ErrorFlag, dieWhere,
					"chain ended at 0x%x before the expected sibling at 0x%x", next, siblingTarget)
			case !w.r.Eof() && siblingTarget != next:
				w.d.Emit(diag.AreaDIESibling|diag.ErrorFlag, dieWhere,
					"DW_AT_sibling points to 0x%x, but next DIE is at 0x%x", siblingTarget, next)
			}
		}
	}
	return count, nil
}

// formValue is the minimal decode result dieinfo needs: whether the value
// is a reference (and whether it's global, i.e. ref_addr), or a strp into
// .debug_str. strpLen is always 0: the decoder has no reader over
// .debug_str, so only the strp offset itself is marked as covered.
type formValue struct {
	isRef      bool
	refAddr    bool
	refTarget  uint64
	isStrp     bool
	strpOffset uint64
	strpLen    uint64
}

func (w *walker) decodeForm(form uint64, where diag.Where) (formValue, error) {
	for {
		switch form {
		case dwconst.FormAddr:
			_, err := w.r.ReadVar(w.cu.AddressSize)
			return formValue{}, wrapRead(err, where, "address")

		case dwconst.FormBlock1, dwconst.FormBlock2, dwconst.FormBlock4, dwconst.FormBlock:
			n, err := w.blockLen(form)
			if err != nil {
				return formValue{}, wrapRead(err, where, "block length")
			}
			if err := w.r.Skip(int(n)); err != nil {
				return formValue{}, wrapRead(err, where, "block contents")
			}
			return formValue{}, nil

		case dwconst.FormData1:
			_, err := w.r.ReadU8()
			return formValue{}, wrapRead(err, where, "data1")
		case dwconst.FormData2:
			_, err := w.r.ReadU16()
			return formValue{}, wrapRead(err, where, "data2")
		case dwconst.FormData4:
			_, err := w.r.ReadU32()
			return formValue{}, wrapRead(err, where, "data4")
		case dwconst.FormData8:
			_, err := w.r.ReadU64()
			return formValue{}, wrapRead(err, where, "data8")

		case dwconst.FormString:
			_, err := readCString(w.r)
			return formValue{}, wrapRead(err, where, "inline string")

		case dwconst.FormFlag:
			_, err := w.r.ReadU8()
			return formValue{}, wrapRead(err, where, "flag")

		case dwconst.FormSdata:
			_, _, err := w.r.ReadSLEB128()
			return formValue{}, wrapRead(err, where, "sdata")

		case dwconst.FormUdata:
			_, _, err := w.r.ReadULEB128()
			return formValue{}, wrapRead(err, where, "udata")

		case dwconst.FormStrp:
			off, err := w.r.ReadOffset(w.cu.DWARF64)
			if err != nil {
				return formValue{}, wrapRead(err, where, "strp")
			}
			return formValue{isStrp: true, strpOffset: off, strpLen: 0}, nil

		case dwconst.FormRefAddr:
			off, err := w.r.ReadOffset(w.cu.DWARF64)
			if err != nil {
				return formValue{}, wrapRead(err, where, "ref_addr")
			}
			return formValue{isRef: true, refAddr: true, refTarget: off}, nil

		case dwconst.FormRef1:
			v, err := w.r.ReadU8()
			return w.cuRef(uint64(v), err, where)
		case dwconst.FormRef2:
			v, err := w.r.ReadU16()
			return w.cuRef(uint64(v), err, where)
		case dwconst.FormRef4:
			v, err := w.r.ReadU32()
			return w.cuRef(uint64(v), err, where)
		case dwconst.FormRef8:
			v, err := w.r.ReadU64()
			return w.cuRef(v, err, where)
		case dwconst.FormRefUdata:
			v, _, err := w.r.ReadULEB128()
			return w.cuRef(v, err, where)

		case dwconst.FormIndirect:
			next, _, err := w.r.ReadULEB128()
			if err != nil {
				return formValue{}, wrapRead(err, where, "indirect form")
			}
			if next == dwconst.FormIndirect {
				return formValue{}, perr.Fatal(nil, "%s: DW_FORM_indirect referring to itself", where)
			}
			form = next
			continue

		default:
			return formValue{}, perr.Fatal(nil, "%s: unhandled form 0x%x", where, form)
		}
	}
}

// cuRef turns a decoded CU-local reference value into a rebased,
// section-absolute formValue, after validating it falls within the CU's
// own byte extent. An out-of-range value is reported immediately and
// dropped: it is never recorded as a reference, so it can't surface again
// as "unresolved" during later resolution.
func (w *walker) cuRef(v uint64, err error, where diag.Where) (formValue, error) {
	if err != nil {
		return formValue{}, wrapRead(err, where, "CU-local reference")
	}

	cuSize := w.cu.End() - w.cu.Offset
	if v >= cuSize {
		w.d.Emit(diag.AreaDIERef|diag.ErrorFlag, where, "invalid reference outside the CU: 0x%x", v)
		return formValue{}, nil
	}

	return formValue{isRef: true, refTarget: w.cu.Offset + v}, nil
}

func (w *walker) blockLen(form uint64) (uint64, error) {
	switch form {
	case dwconst.FormBlock1:
		v, err := w.r.ReadU8()
		return uint64(v), err
	case dwconst.FormBlock2:
		v, err := w.r.ReadU16()
		return uint64(v), err
	case dwconst.FormBlock4:
		v, err := w.r.ReadU32()
		return uint64(v), err
	default:
		v, _, err := w.r.ReadULEB128()
		return v, err
	}
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

func wrapRead(err error, where diag.Where, what string) error {
	if err == nil {
		return nil
	}
	return perr.Fatal(err, "%s: can't read %s", where, what)
}

// resolveLocalReferences checks one CU's local references against that
// same CU's own defined-DIE set only, immediately after the CU is walked,
// so local-reference diagnostics appear in parse order interleaved with
// the CU that produced them rather than batched at the end of the section.
func resolveLocalReferences(localRefs []refs.Ref, localDefined refs.AddrSet, where diag.Where, d *diag.State) {
	for _, ref := range localRefs {
		if !localDefined.Has(ref.Referee) {
			d.Emit(diag.AreaDIERef|diag.Impact2|diag.ErrorFlag, where.DIE(ref.Referrer),
				"unresolved reference to 0x%x", ref.Referee)
		}
	}
}

// resolveGlobalReferences checks every DW_FORM_ref_addr reference against
// the file-wide set of defined DIE offsets, once, after every CU has been
// walked. A global-form reference that happens to resolve inside its own
// emitting CU is flagged separately: it should have used a cheaper
// CU-local form instead.
func resolveGlobalReferences(info *Info, where diag.Where, d *diag.State) {
	for _, ref := range info.GlobalRefs.All() {
		if !info.Defined.Has(ref.Referee) {
			d.Emit(diag.AreaDIERef|diag.Impact3|diag.ErrorFlag, where.DIE(ref.Referrer),
				"unresolved non-CU-local reference to 0x%x", ref.Referee)
			continue
		}

		if cu := cuContaining(info.CUs, ref.Referrer); cu != nil && ref.Referee >= cu.Offset && ref.Referee < cu.End() {
			d.Emit(diag.AreaDIERef|diag.Suboptimal|diag.Impact1, where.DIE(ref.Referrer),
				"local reference formed as global (DW_FORM_ref_addr) to 0x%x", ref.Referee)
		}
	}
}

func cuContaining(cus []CU, dieOffset uint64) *CU {
	for i := range cus {
		if dieOffset >= cus[i].Offset && dieOffset < cus[i].End() {
			return &cus[i]
		}
	}
	return nil
}

func reportUnusedAbbrevs(tables []*abbrev.Table, d *diag.State) {
	where := diag.NewWhere(".debug_abbrev")
	for _, t := range tables {
		if !t.Used {
			d.Emit(diag.AreaAbbrevs|diag.Bloat|diag.Impact2, where.Abbrev(t.Offset),
				"abbreviation table is never used by any CU")
			continue
		}
		abbrev.WarnUnused(t, where, d)
	}
}
