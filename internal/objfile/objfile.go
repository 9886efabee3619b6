// Package objfile loads the raw bytes of the DWARF sections this tool
// checks out of an ELF object file. It uses the standard library's
// debug/elf package only to enumerate sections and read their raw bytes;
// it deliberately does not use debug/dwarf, since that package would parse
// the very structure this tool exists to validate independently.
package objfile

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// Section is one loaded DWARF section: its raw bytes, its starting file
// offset, and whether it was present at all. The checkers read each
// section from offset 0, so the offsets they report and compare are
// section-relative, as DWARF's own cross-section offsets are.
type Section struct {
	Name    string
	Data    []byte
	Offset  uint64
	Present bool
}

// Sections holds every DWARF section this tool inspects.
type Sections struct {
	Abbrev    Section
	Info      Section
	Str       Section
	Aranges   Section
	Pubnames  Section
	ByteOrder binary.ByteOrder
}

var wantedSections = []string{
	".debug_abbrev",
	".debug_info",
	".debug_str",
	".debug_aranges",
	".debug_pubnames",
}

// Load opens path as an ELF object and extracts the DWARF sections it
// understands. Sections absent from the file are returned with
// Present == false rather than as an error; callers decide whether that's
// fatal via -i/--ignore-missing.
func Load(path string) (*Sections, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("objfile: %w", err)
	}
	defer f.Close()

	out := &Sections{ByteOrder: f.ByteOrder}

	for _, name := range wantedSections {
		sec := f.Section(name)
		if sec == nil {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			return nil, fmt.Errorf("objfile: %s: can't read section %s: %w", path, name, err)
		}

		loaded := Section{Name: name, Data: data, Offset: sec.Offset, Present: true}
		switch name {
		case ".debug_abbrev":
			out.Abbrev = loaded
		case ".debug_info":
			out.Info = loaded
		case ".debug_str":
			out.Str = loaded
		case ".debug_aranges":
			out.Aranges = loaded
		case ".debug_pubnames":
			out.Pubnames = loaded
		}
	}

	return out, nil
}
