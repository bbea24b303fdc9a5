package engine

import (
	"github.com/JeanRibes/chiptracker/chip"
	"github.com/JeanRibes/chiptracker/instrument"
	"github.com/JeanRibes/chiptracker/music"
)

// Synth turns note events into scheduled register writes and renders the
// chip. Everything here runs on the audio thread.
type Synth struct {
	ring   *chip.Ring
	table  *instrument.Table
	cursor *instrument.Cursor
	chip   *chip.Emulator
	bus    chip.RegisterBus

	apply  func(chip.WriteSet)
	busErr error
	frame  []float32
}

// NewSynth renders through emu; every committed write also goes to extra
// (a serial chip, a logger).
func NewSynth(emu *chip.Emulator, ringLength int, table *instrument.Table, extra ...chip.RegisterBus) *Synth {
	s := &Synth{
		ring:   chip.NewRing(ringLength),
		table:  table,
		cursor: instrument.NewCursor(),
		chip:   emu,
		bus:    emu,
	}
	if len(extra) > 0 {
		s.bus = append(chip.MultiBus{emu}, extra...)
	}
	s.apply = func(w chip.WriteSet) {
		if err := s.bus.WriteRegister(w); err != nil && s.busErr == nil {
			s.busErr = err
		}
	}
	return s
}

// Trigger runs ev's instrument and schedules what it wrote. A faulting
// program leaves the ring untouched.
func (s *Synth) Trigger(ev music.NoteEvent) error {
	ran, err := s.table.Trigger(s.cursor, ev)
	if err != nil || !ran {
		return err
	}
	return s.cursor.Commit(s.ring)
}

// SetTable swaps the instrument table and returns the previous one. Writes
// already in the ring stay scheduled.
func (s *Synth) SetTable(t *instrument.Table) *instrument.Table {
	old := s.table
	s.table = t
	return old
}

func (s *Synth) Table() *instrument.Table {
	return s.table
}

// Commit applies the current ring slot to the bus and advances the ring.
// The first bus error of the frame is returned.
func (s *Synth) Commit() error {
	s.busErr = nil
	s.ring.CommitAndAdvance(s.apply)
	return s.busErr
}

// Render produces one frame of mono samples. The slice is reused.
func (s *Synth) Render() []float32 {
	s.frame = s.chip.RenderFrame(s.frame[:0])
	return s.frame
}

func (s *Synth) Ring() *chip.Ring {
	return s.ring
}

func (s *Synth) Chip() *chip.Emulator {
	return s.chip
}

// Silence drops everything scheduled and gates every voice off.
func (s *Synth) Silence() {
	s.ring.Reset()
	for v := 0; v < chip.NumVoices; v++ {
		s.bus.WriteRegister(chip.WriteSet{Setting: chip.Gate(v), Value: 0})
	}
}
