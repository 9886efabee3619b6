// Package diag implements the classified diagnostic subsystem described by
// component B: every message carries a category bitmask (severity, accuracy,
// area, error flag) and a process-wide State decides whether the message is
// emitted and whether it counts towards the process error count.
package diag

import (
	"fmt"
	"io"
	"sort"
)

// Category is a bitmask combining severity, accuracy and area flags plus the
// error flag, following the layout of the original tool's message_category.
type Category uint32

const (
	Impact1 Category = 1 << iota
	Impact2
	Impact3
	Impact4

	Bloat
	Suboptimal

	ErrorFlag

	AreaLEB128
	AreaAbbrevs
	AreaDIESibling
	AreaDIEChild
	AreaDIERef
	AreaDIEOther
	AreaStrings
	AreaAranges
	AreaELF
	AreaPubnames
	AreaOther
)

var severityNames = map[Category]string{
	Impact1: "impact-1",
	Impact2: "impact-2",
	Impact3: "impact-3",
	Impact4: "impact-4",
}

var areaMask = AreaLEB128 | AreaAbbrevs | AreaDIESibling | AreaDIEChild |
	AreaDIERef | AreaDIEOther | AreaStrings | AreaAranges | AreaELF |
	AreaPubnames | AreaOther

// allAreasButStrings is the default accepted area set: every area is
// reported by default except strings-section bloat, which --strict opts in.
const allAreasButStrings = AreaLEB128 | AreaAbbrevs | AreaDIESibling |
	AreaDIEChild | AreaDIERef | AreaDIEOther | AreaAranges | AreaELF |
	AreaPubnames | AreaOther

const defaultAccept = allAreasButStrings

// defaultErrorCriteria classifies a message as contributing to the process
// error count: impact-4 severity, or an explicit error flag.
const defaultErrorCriteria = Impact4 | ErrorFlag

// Message is a single classified diagnostic, already formatted.
type Message struct {
	Category Category
	Where    string
	Text     string
}

func (m Message) String() string {
	if m.Where == "" {
		return m.Text
	}
	return m.Where + ": " + m.Text
}

// State is the process-wide diagnostic state: two filter masks plus an error
// counter. It is constructed once before parsing and its filter masks are
// never mutated after option parsing, per spec.
type State struct {
	WarningAccept Category
	WarningReject Category
	ErrorCriteria Category

	out         io.Writer
	quiet       bool
	color       func(level string) (prefix string, reset string)
	errorCount  int
	messages    []Message
	anyMessages bool
}

// New returns a State with the tool's default filters: every area except
// strings is accepted, nothing is rejected, and impact-4/error-flagged
// messages count as errors.
func New(out io.Writer) *State {
	return &State{
		WarningAccept: defaultAccept,
		WarningReject: 0,
		ErrorCriteria: defaultErrorCriteria,
		out:           out,
	}
}

// ApplyStrict implements the --strict flag: add the strings area to the
// accepted set.
func (s *State) ApplyStrict() { s.WarningAccept |= AreaStrings }

// ApplyGNU implements the --gnu flag: reject bloat-classified messages.
func (s *State) ApplyGNU() { s.WarningReject |= Bloat }

// ApplyIgnoreMissing implements -i/--ignore-missing: reject the elf area.
func (s *State) ApplyIgnoreMissing() { s.WarningReject |= AreaELF }

// ApplyQuiet implements -q/--quiet: suppress the "No errors" summary line.
func (s *State) ApplyQuiet() { s.quiet = true }

// SetColor installs a function returning ANSI-ish prefix/reset strings for
// "error" or "warning"; nil disables colorization.
func (s *State) SetColor(f func(level string) (string, string)) { s.color = f }

// Skip folds an additional area into the reject mask, used by --skip.
func (s *State) Skip(area Category) { s.WarningReject |= area }

// Emit classifies and conditionally prints a message. It is the single path
// through which every diagnostic in this repository is produced.
func (s *State) Emit(category Category, where Where, format string, args ...any) {
	msg := Message{Category: category, Where: where.String(), Text: fmt.Sprintf(format, args...)}

	accepted := (category&s.WarningAccept) != 0 && (category&s.WarningReject) == 0
	if !accepted {
		return
	}

	s.anyMessages = true
	isError := (category & s.ErrorCriteria) != 0
	if isError {
		s.errorCount++
	}

	level := "warning"
	if isError {
		level = "error"
	}

	prefix, reset := level+":", ""
	if s.color != nil {
		prefix, reset = s.color(level)
	}

	fmt.Fprintf(s.out, "%s %s%s\n", prefix, msg.String(), reset)
	s.messages = append(s.messages, msg)
}

// ErrorCount returns the number of emitted messages classified as errors.
func (s *State) ErrorCount() int { return s.errorCount }

// Messages returns every emitted message, in emission order.
func (s *State) Messages() []Message { return append([]Message(nil), s.messages...) }

// Summarize prints the "No errors" line when appropriate: quiet mode and
// files that produced any message at all both suppress it.
func (s *State) Summarize() {
	if s.quiet || s.anyMessages {
		return
	}
	fmt.Fprintln(s.out, "No errors")
}

// AreaByName resolves a --skip flag value to its Category, for command-line
// wiring; it returns false for unknown names.
func AreaByName(name string) (Category, bool) {
	switch name {
	case "leb128":
		return AreaLEB128, true
	case "abbrevs":
		return AreaAbbrevs, true
	case "die-sibling":
		return AreaDIESibling, true
	case "die-child":
		return AreaDIEChild, true
	case "die-ref":
		return AreaDIERef, true
	case "die-other":
		return AreaDIEOther, true
	case "strings":
		return AreaStrings, true
	case "aranges":
		return AreaAranges, true
	case "elf":
		return AreaELF, true
	case "pubnames":
		return AreaPubnames, true
	case "other":
		return AreaOther, true
	default:
		return 0, false
	}
}

// AreaNames returns the names accepted by AreaByName, sorted, for help text.
func AreaNames() []string {
	names := []string{"leb128", "abbrevs", "die-sibling", "die-child", "die-ref",
		"die-other", "strings", "aranges", "elf", "pubnames", "other"}
	sort.Strings(names)
	return names
}
