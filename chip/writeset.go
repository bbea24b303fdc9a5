package chip

import (
	"fmt"
	"math/bits"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// Setting describes a bit field of one register.
type Setting struct {
	Address uint16
	Mask    uint8
}

// Shift is the position of the lowest bit of the field.
func (s Setting) Shift() int {
	if s.Mask == 0 {
		return 0
	}
	return bits.TrailingZeros8(s.Mask)
}

// Field shifts a field value into place. Bits that do not fit are an error.
func (s Setting) Field(v uint8) (WriteSet, error) {
	return NewWriteSet(s, v<<s.Shift())
}

// WriteSet is a masked write: only bits inside Setting.Mask are touched, and
// Value is already shifted into position.
type WriteSet struct {
	Setting
	Value uint8
}

func NewWriteSet(s Setting, value uint8) (WriteSet, error) {
	if value&^s.Mask != 0 {
		return WriteSet{}, fault.Wrap(ErrValueOutsideMask,
			fmsg.With(fmt.Sprintf("register %#04x: value %#02x mask %#02x", s.Address, value, s.Mask)),
			ftag.With(KindRegister))
	}
	return WriteSet{Setting: s, Value: value}, nil
}

// MustWriteSet is NewWriteSet for constant tables.
func MustWriteSet(s Setting, value uint8) WriteSet {
	w, err := NewWriteSet(s, value)
	if err != nil {
		panic(err)
	}
	return w
}

// Merge combines two writes to the same register. Masks are OR'd; where both
// masks cover a bit, b wins.
func Merge(a, b WriteSet) (WriteSet, error) {
	if a.Address != b.Address {
		return WriteSet{}, fault.Wrap(ErrAddressMismatch,
			fmsg.With(fmt.Sprintf("merge %#04x with %#04x", a.Address, b.Address)),
			ftag.With(KindRegister))
	}
	return a.merge(b), nil
}

func (a WriteSet) merge(b WriteSet) WriteSet {
	return WriteSet{
		Setting: Setting{Address: a.Address, Mask: a.Mask | b.Mask},
		Value:   (a.Value &^ b.Mask) | (b.Value & b.Mask),
	}
}

// Apply returns reg with the write's bits replaced.
func (a WriteSet) Apply(reg uint8) uint8 {
	return (reg &^ a.Mask) | (a.Value & a.Mask)
}

func (a WriteSet) String() string {
	return fmt.Sprintf("[%#04x] %08b/%08b", a.Address, a.Value, a.Mask)
}
