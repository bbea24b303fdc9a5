package chip

import (
	"errors"

	"github.com/Southclaws/fault/ftag"
)

const (
	KindSchedulingOutOfRange ftag.Kind = "SCHEDULING_OUT_OF_RANGE"
	KindRegister             ftag.Kind = "REGISTER"
)

var (
	ErrSchedulingOutOfRange = errors.New("scheduling offset out of range")
	ErrSlotFull             = errors.New("ring slot full")
	ErrAddressMismatch      = errors.New("writes target different addresses")
	ErrValueOutsideMask     = errors.New("value has bits outside its mask")
	ErrBadAddress           = errors.New("register address out of range")
	ErrBusClosed            = errors.New("register bus closed")
)
