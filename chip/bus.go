package chip

import "errors"

// RegisterBus is where committed writes land: an emulated chip, a real chip
// behind some transport, or several of them.
type RegisterBus interface {
	WriteRegister(w WriteSet) error
}

// MultiBus forwards every write to all of its buses.
type MultiBus []RegisterBus

func (m MultiBus) WriteRegister(w WriteSet) error {
	var errs error
	for _, b := range m {
		if err := b.WriteRegister(w); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// BusFunc adapts a function to RegisterBus.
type BusFunc func(w WriteSet) error

func (f BusFunc) WriteRegister(w WriteSet) error {
	return f(w)
}
