// Package dwconst holds the small set of raw DWARF constant values this
// repository's structural checks need to recognize. It intentionally does
// not import the standard library's debug/dwarf package: that package
// parses DWARF semantically, which is precisely the shortcut this tool
// must not take (see internal/objfile for the one place debug/elf, not
// debug/dwarf, is used for raw section enumeration).
package dwconst

// Highest valid attribute-name and tag codes (the top of each
// user-reserved range, DW_AT_hi_user and DW_TAG_hi_user); any code above
// them is invalid in a conforming producer.
const (
	AttrHiUser uint64 = 0x3fff
	TagHiUser  uint64 = 0xffff

	AttrSibling uint64 = 0x01
)

// Abbreviation has_children byte values.
const (
	ChildrenNo  uint8 = 0
	ChildrenYes uint8 = 1
)

// Form encodings of DWARF 2 and 3 (the versions this checker accepts per
// spec.md §4.F CU header rule: version must be 2 or 3).
const (
	FormAddr      uint64 = 0x01
	FormBlock2    uint64 = 0x03
	FormBlock4    uint64 = 0x04
	FormData2     uint64 = 0x05
	FormData4     uint64 = 0x06
	FormData8     uint64 = 0x07
	FormString    uint64 = 0x08
	FormBlock     uint64 = 0x09
	FormBlock1    uint64 = 0x0a
	FormData1     uint64 = 0x0b
	FormFlag      uint64 = 0x0c
	FormSdata     uint64 = 0x0d
	FormStrp      uint64 = 0x0e
	FormUdata     uint64 = 0x0f
	FormRefAddr   uint64 = 0x10
	FormRef1      uint64 = 0x11
	FormRef2      uint64 = 0x12
	FormRef4      uint64 = 0x13
	FormRef8      uint64 = 0x14
	FormRefUdata  uint64 = 0x15
	FormIndirect  uint64 = 0x16
)

// IsReferenceForm reports whether form is one of the CU-local reference
// classes (ref1/2/4/8/udata) or the indirect escape, i.e. every reference
// form other than ref_addr (which is global).
func IsReferenceForm(form uint64) bool {
	switch form {
	case FormRef1, FormRef2, FormRef4, FormRef8, FormRefUdata, FormIndirect:
		return true
	default:
		return false
	}
}
