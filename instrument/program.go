package instrument

import (
	"errors"
	"fmt"
	"time"

	"github.com/JeanRibes/chiptracker/chip"
	"github.com/JeanRibes/chiptracker/music"
)

// Program turns one note event into register writes through a Cursor.
type Program interface {
	Trigger(c *Cursor, ev music.NoteEvent) error
	Close() error
}

// ProgramFunc is a Program without resources, used for built-in instruments
// and in tests.
type ProgramFunc func(c *Cursor, ev music.NoteEvent) error

func (f ProgramFunc) Trigger(c *Cursor, ev music.NoteEvent) error {
	return f(c, ev)
}

func (f ProgramFunc) Close() error {
	return nil
}

// Scheduler receives the writes of a successful trigger, all of them or
// none. *chip.Ring is one.
type Scheduler interface {
	ScheduleAll(batch []chip.Scheduled) error
	Len() int
}

// CallBudget bounds how long one trigger of a script or module may run on
// the audio thread.
const CallBudget = 3 * time.Millisecond

// MaxStagedWrites bounds the writes one trigger may produce.
const MaxStagedWrites = 4 * chip.SlotCapacity

// Cursor is the program's view of time during one trigger. Wait moves only
// this cursor, never the ring, so programs triggered in the same frame do
// not see each other's waits. Writes are held until Commit.
type Cursor struct {
	voice  int
	offset int
	writes []chip.Scheduled
	err    error
}

func NewCursor() *Cursor {
	return &Cursor{writes: make([]chip.Scheduled, 0, MaxStagedWrites)}
}

func (c *Cursor) reset(voice int) {
	c.voice = voice
	c.offset = 0
	c.writes = c.writes[:0]
	c.err = nil
}

// Voice is the chip voice the instrument was assigned.
func (c *Cursor) Voice() int {
	return c.voice
}

// Offset is how many frames from now the next write lands.
func (c *Cursor) Offset() int {
	return c.offset
}

// Write stages a masked write at the current offset. The value is already
// shifted into the mask.
func (c *Cursor) Write(addr uint16, mask, value uint8) error {
	w, err := chip.NewWriteSet(chip.Setting{Address: addr, Mask: mask}, value)
	if err != nil {
		return c.fail(err)
	}
	if len(c.writes) == cap(c.writes) {
		return c.fail(ErrTooManyWrites)
	}
	c.writes = append(c.writes, chip.Scheduled{Offset: c.offset, Write: w})
	return nil
}

func (c *Cursor) Wait(frames int) error {
	if frames < 0 {
		return c.fail(fmt.Errorf("%w: %d frames", ErrNegativeWait, frames))
	}
	c.offset += frames
	return nil
}

// Err is the first error a host call reported during this trigger.
func (c *Cursor) Err() error {
	return c.err
}

func (c *Cursor) fail(err error) error {
	if c.err == nil {
		c.err = err
	}
	return err
}

// Staged returns the pending writes of the current trigger.
func (c *Cursor) Staged() []chip.WriteSet {
	out := make([]chip.WriteSet, len(c.writes))
	for i, s := range c.writes {
		out[i] = s.Write
	}
	return out
}

// Discard drops everything staged.
func (c *Cursor) Discard() {
	c.writes = c.writes[:0]
}

// Commit hands the staged writes to s in order and empties the cursor. When
// s cannot take all of them none is scheduled.
func (c *Cursor) Commit(s Scheduler) error {
	err := s.ScheduleAll(c.writes)
	c.writes = c.writes[:0]
	return err
}

type entry struct {
	name    string
	voice   int
	program Program
}

// Table maps instrument ids to programs. A slot whose definition failed to
// compile has no program and its notes are skipped.
type Table struct {
	entries []entry
}

func NewTable(n int) *Table {
	return &Table{entries: make([]entry, n)}
}

func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) Set(i int, name string, voice int, p Program) {
	if i >= len(t.entries) {
		grown := make([]entry, i+1)
		copy(grown, t.entries)
		t.entries = grown
	}
	t.entries[i] = entry{name: name, voice: voice, program: p}
}

func (t *Table) Name(i int) string {
	if i < 0 || i >= len(t.entries) {
		return ""
	}
	return t.entries[i].name
}

func (t *Table) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.name
	}
	return names
}

// Loaded counts instruments that have a program.
func (t *Table) Loaded() int {
	n := 0
	for _, e := range t.entries {
		if e.program != nil {
			n++
		}
	}
	return n
}

// Trigger runs the instrument's program for ev with c reset to offset zero.
// It reports whether a program ran. On error the staged writes are dropped
// and the error is tagged KindProgramFault.
func (t *Table) Trigger(c *Cursor, ev music.NoteEvent) (bool, error) {
	if t == nil || ev.Instrument < 0 || ev.Instrument >= len(t.entries) {
		return false, nil
	}
	e := &t.entries[ev.Instrument]
	if e.program == nil {
		return false, nil
	}
	c.reset(e.voice)
	err := e.program.Trigger(c, ev)
	if err == nil {
		err = c.Err()
	}
	if err != nil {
		c.Discard()
		return true, programFault(e.name, err)
	}
	return true, nil
}

func (t *Table) Close() error {
	if t == nil {
		return nil
	}
	var errs error
	for _, e := range t.entries {
		if e.program != nil {
			errs = errors.Join(errs, e.program.Close())
		}
	}
	return errs
}
