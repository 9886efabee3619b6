package diag

import (
	"fmt"
	"strings"
)

// Where is a location tag: the enclosing section plus an ordered chain of
// nested offsets (unit, DIE, abbrev, attribute, ...). It is not part of the
// parsed data — it is built up as parsing descends, and each step returns a
// new value rather than mutating the parent, so a caller can fan out to
// several children from the same prefix.
type Where struct {
	section string
	parts   []wherePart
}

type wherePart struct {
	label string
	value uint64
}

// NewWhere starts a location tag rooted at the given section name, e.g.
// ".debug_info" or ".debug_aranges".
func NewWhere(section string) Where {
	return Where{section: section}
}

// With returns a new Where with one more nested offset appended.
func (w Where) With(label string, value uint64) Where {
	parts := make([]wherePart, len(w.parts)+1)
	copy(parts, w.parts)
	parts[len(w.parts)] = wherePart{label, value}
	return Where{section: w.section, parts: parts}
}

// CU appends a "CU 0x..." offset.
func (w Where) CU(offset uint64) Where { return w.With("CU", offset) }

// DIE appends a "DIE 0x..." offset.
func (w Where) DIE(offset uint64) Where { return w.With("DIE", offset) }

// Abbrev appends an "abbrev 0x..." offset.
func (w Where) Abbrev(offset uint64) Where { return w.With("abbrev", offset) }

// Attribute appends an "attribute 0x..." offset.
func (w Where) Attribute(offset uint64) Where { return w.With("attribute", offset) }

// ArangeTable appends an "arange table 0x..." offset.
func (w Where) ArangeTable(offset uint64) Where { return w.With("arange table", offset) }

// Record appends a "record 0x..." offset.
func (w Where) Record(offset uint64) Where { return w.With("record", offset) }

// PubnameSet appends a "pubname set 0x..." offset.
func (w Where) PubnameSet(offset uint64) Where { return w.With("pubname set", offset) }

func (w Where) String() string {
	var b strings.Builder
	b.WriteString(w.section)
	for i, p := range w.parts {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s 0x%x", p.label, p.value)
	}
	return b.String()
}
