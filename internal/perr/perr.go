// Package perr implements the three error kinds from spec.md §7: Ok (plain
// nil), Fatal (abandon the containing unit) and NoHighLevel (continue
// parsing locally, but skip higher-level semantic checks on this unit).
package perr

import (
	"errors"
	"fmt"
)

// ErrFatal is the sentinel matched by errors.Is for unrecoverable errors
// that abandon the section, CU or table currently being parsed.
var ErrFatal = errors.New("fatal parse error")

// ErrNoHighLevel is the sentinel matched by errors.Is for errors where a
// low-level read was salvaged but semantic checks on the enclosing unit
// must be skipped.
var ErrNoHighLevel = errors.New("no-high-level parse error")

type wrapped struct {
	sentinel error
	cause    error
	msg      string
}

func (w *wrapped) Error() string {
	if w.cause != nil {
		return fmt.Sprintf("%s: %v", w.msg, w.cause)
	}
	return w.msg
}

func (w *wrapped) Unwrap() []error {
	if w.cause != nil {
		return []error{w.sentinel, w.cause}
	}
	return []error{w.sentinel}
}

// Fatal builds an error satisfying errors.Is(err, ErrFatal).
func Fatal(cause error, format string, args ...any) error {
	return &wrapped{sentinel: ErrFatal, cause: cause, msg: fmt.Sprintf(format, args...)}
}

// NoHighLevel builds an error satisfying errors.Is(err, ErrNoHighLevel).
func NoHighLevel(cause error, format string, args ...any) error {
	return &wrapped{sentinel: ErrNoHighLevel, cause: cause, msg: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err abandons the containing unit.
func IsFatal(err error) bool { return errors.Is(err, ErrFatal) }

// IsNoHighLevel reports whether err permits continuing with low-level
// parsing but skipping semantic checks on the unit.
func IsNoHighLevel(err error) bool { return errors.Is(err, ErrNoHighLevel) }
