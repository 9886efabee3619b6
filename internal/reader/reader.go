// Package reader implements the bounds-checked cursor over a DWARF section
// buffer (component A): every typed read advances the cursor iff it
// succeeds, and on failure the cursor is left untouched and the call fails
// with ErrTruncatedRead. The current offset is always reported relative to
// the file, not the current view, so sub-readers created with Sub keep
// absolute offsets.
package reader

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncatedRead is returned whenever a read would go past the cursor's
// end, or an LEB128 value overflows 64 bits.
var ErrTruncatedRead = errors.New("truncated read")

// ErrUnknownLengthEscape is returned by ReadInitialLength when a 32-bit
// initial-length value falls in the reserved escape range.
var ErrUnknownLengthEscape = errors.New("unknown length escape value")

// Reader is a read-only cursor over a byte slice. Offsets it reports are
// always absolute to `base`, so a Reader built via Sub still reports the
// same offsets a reader over the whole file would.
type Reader struct {
	data  []byte
	base  uint64
	pos   int
	end   int
	order binary.ByteOrder
}

// New returns a Reader over data, whose first byte is at absolute offset
// base within the section (or file) it came from.
func New(data []byte, base uint64, order binary.ByteOrder) *Reader {
	return &Reader{data: data, base: base, pos: 0, end: len(data), order: order}
}

// Offset returns the absolute offset of the cursor's current position.
func (r *Reader) Offset() uint64 { return r.base + uint64(r.pos) }

// Remaining returns the number of unread bytes in the current view.
func (r *Reader) Remaining() int { return r.end - r.pos }

// Eof reports whether the cursor has consumed the entire view.
func (r *Reader) Eof() bool { return r.pos >= r.end }

// RestIsZero reports whether every remaining byte in the current view is
// zero, without moving the cursor. Used to recognize trailing zero padding.
func (r *Reader) RestIsZero() bool {
	for _, b := range r.data[r.pos:r.end] {
		if b != 0 {
			return false
		}
	}
	return true
}

// Sub returns a new cursor bounded to the absolute range [beginAbs, endAbs)
// of the same underlying buffer. Offsets reported by the sub-cursor remain
// absolute, not reset to zero.
func (r *Reader) Sub(beginAbs, endAbs uint64) (*Reader, error) {
	if beginAbs < r.base || endAbs < beginAbs || endAbs > r.base+uint64(len(r.data)) {
		return nil, fmt.Errorf("reader: sub-range [0x%x, 0x%x) outside buffer", beginAbs, endAbs)
	}
	return &Reader{
		data:  r.data,
		base:  r.base,
		pos:   int(beginAbs - r.base),
		end:   int(endAbs - r.base),
		order: r.order,
	}, nil
}

func (r *Reader) need(n int) bool {
	end := r.pos + n
	return end <= r.end && end >= r.pos
}

// Skip advances the cursor by n bytes, failing (and leaving the cursor
// unchanged) if there isn't enough data left.
func (r *Reader) Skip(n int) error {
	if n < 0 || !r.need(n) {
		return ErrTruncatedRead
	}
	r.pos += n
	return nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	if !r.need(1) {
		return 0, ErrTruncatedRead
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

// ReadU16 reads a 16-bit integer in the reader's byte order.
func (r *Reader) ReadU16() (uint16, error) {
	if !r.need(2) {
		return 0, ErrTruncatedRead
	}
	v := r.order.Uint16(r.data[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

// ReadU32 reads a 32-bit integer in the reader's byte order.
func (r *Reader) ReadU32() (uint32, error) {
	if !r.need(4) {
		return 0, ErrTruncatedRead
	}
	v := r.order.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

// ReadU64 reads a 64-bit integer in the reader's byte order.
func (r *Reader) ReadU64() (uint64, error) {
	if !r.need(8) {
		return 0, ErrTruncatedRead
	}
	v := r.order.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

// ReadVar reads a fixed-width unsigned integer of the given byte width,
// which must be one of 1, 2, 4 or 8; any other width is a programming
// error and panics rather than failing softly.
func (r *Reader) ReadVar(width int) (uint64, error) {
	switch width {
	case 1:
		v, err := r.ReadU8()
		return uint64(v), err
	case 2:
		v, err := r.ReadU16()
		return uint64(v), err
	case 4:
		v, err := r.ReadU32()
		return uint64(v), err
	case 8:
		return r.ReadU64()
	default:
		panic(fmt.Sprintf("reader: invalid fixed-width size %d", width))
	}
}

// ReadOffset reads a DWARF offset: 8 bytes if dwarf64, else 4.
func (r *Reader) ReadOffset(dwarf64 bool) (uint64, error) {
	if dwarf64 {
		return r.ReadU64()
	}
	v, err := r.ReadU32()
	return uint64(v), err
}

const uleb128MaxBits = 64

// ReadULEB128 reads an unsigned LEB128 integer. The returned bool is true
// when the final continuation byte's payload was redundant — an all-zero
// payload that could have been omitted, meaning the same value could be
// encoded with one fewer byte.
func (r *Reader) ReadULEB128() (uint64, bool, error) {
	start := r.pos
	var result uint64
	shift := 0
	redundant := false

	for {
		b, err := r.ReadU8()
		if err != nil {
			r.pos = start
			return 0, false, ErrTruncatedRead
		}

		payload := uint64(b & 0x7f)
		if shift >= uleb128MaxBits || (shift == uleb128MaxBits-1 && payload > 1) {
			r.pos = start
			return 0, false, ErrTruncatedRead
		}
		redundant = payload == 0 && shift > 0
		result |= payload << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}

	return result, redundant, nil
}

// ReadSLEB128 reads a signed LEB128 integer, with the same redundant-tail
// reporting as ReadULEB128 (the all-ones payload for a negative value, or
// all-zero for a non-negative one).
func (r *Reader) ReadSLEB128() (int64, bool, error) {
	start := r.pos
	var result int64
	shift := 0
	redundant := false
	sign := false

	for {
		b, err := r.ReadU8()
		if err != nil {
			r.pos = start
			return 0, false, ErrTruncatedRead
		}

		payload := int64(b & 0x7f)
		redundant = shift > 0 && ((payload == 0x7f && sign) || (payload == 0 && !sign))
		sign = b&0x40 != 0
		result |= payload << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < uleb128MaxBits && sign {
				result |= -(int64(1) << shift)
			}
			break
		}
		if shift > uleb128MaxBits {
			r.pos = start
			return 0, false, ErrTruncatedRead
		}
	}

	return result, redundant, nil
}

// Initial-length escape values, DWARF3+ §7.4.
const (
	lengthEscape64Bit  = 0xffffffff
	lengthEscapeMinCode = 0xfffffff0
)

// ReadInitialLength reads a DWARF initial-length field: a plain 32-bit
// value, or the dwarf64 escape (0xffffffff followed by a 64-bit length).
// Values in [0xfffffff0, 0xfffffffe] are reserved and rejected with
// ErrUnknownLengthEscape.
func (r *Reader) ReadInitialLength() (length uint64, dwarf64 bool, err error) {
	start := r.pos
	size32, err := r.ReadU32()
	if err != nil {
		return 0, false, err
	}

	switch {
	case size32 == lengthEscape64Bit:
		length, err = r.ReadU64()
		if err != nil {
			r.pos = start
			return 0, false, err
		}
		return length, true, nil
	case size32 >= lengthEscapeMinCode:
		r.pos = start
		return 0, false, fmt.Errorf("%w: 0x%x", ErrUnknownLengthEscape, size32)
	default:
		return uint64(size32), false, nil
	}
}
