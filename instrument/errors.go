package instrument

import (
	"context"
	"errors"
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

const KindProgramFault ftag.Kind = "PROGRAM_FAULT"

var (
	ErrProgramFault  = errors.New("instrument program fault")
	ErrNoPressEntry  = errors.New("program defines no press function")
	ErrTooManyWrites = errors.New("too many writes in one trigger")
	ErrNegativeWait  = errors.New("negative wait")
	ErrOverBudget    = errors.New("trigger ran past its time budget")
)

// overBudget marks err as caused by ctx running out, if it did.
func overBudget(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrOverBudget, err)
	}
	return err
}

// programFault tags err so callers can tell a misbehaving program from a
// scheduling problem.
func programFault(name string, err error) error {
	return fault.Wrap(fmt.Errorf("%w: %w", ErrProgramFault, err),
		fmsg.With(name),
		ftag.With(KindProgramFault))
}
