package music

import (
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

const (
	StepsPerBar     = 16
	BarsPerPattern  = 4
	StepsPerPattern = StepsPerBar * BarsPerPattern
)

// Param is an optional instrument-specific modulation value.
type Param struct {
	Value int
	Valid bool
}

func P(v int) Param {
	return Param{Value: v, Valid: true}
}

// Step is one instrument's slot in a pattern.
type Step struct {
	Press   bool
	Release bool
	Note    midi.Note
	Param0  Param
	Param1  Param
}

func (s Step) Empty() bool {
	return !s.Press && !s.Release
}

// Pattern holds StepsPerPattern steps for every instrument.
type Pattern struct {
	Tracks [][StepsPerPattern]Step
}

func NewPattern(instruments int) *Pattern {
	return &Pattern{Tracks: make([][StepsPerPattern]Step, instruments)}
}

type Settings struct {
	InstrumentsFile string
	Sync            bool
}

// Song is the pattern order plus the patterns it references. Several order
// entries may reference the same pattern.
type Song struct {
	Order       []int
	Patterns    []*Pattern
	Instruments int
	Settings    Settings
}

// NewSong returns a song with one empty pattern played once.
func NewSong(instruments int) *Song {
	return &Song{
		Order:       []int{0},
		Patterns:    []*Pattern{NewPattern(instruments)},
		Instruments: instruments,
	}
}

func (s *Song) Validate() error {
	var errs error
	if len(s.Order) == 0 {
		errs = errors.Join(errs, errors.New("empty song order"))
	}
	for i, p := range s.Order {
		if p < 0 || p >= len(s.Patterns) {
			errs = errors.Join(errs, fmt.Errorf("order %d: no pattern %d", i, p))
		}
	}
	for i, p := range s.Patterns {
		if p == nil || len(p.Tracks) != s.Instruments {
			errs = errors.Join(errs, fmt.Errorf("pattern %d: want %d instrument tracks", i, s.Instruments))
		}
	}
	return errs
}

func (s *Song) TotalSteps() int {
	return len(s.Order) * StepsPerPattern
}

func (s *Song) Bars() int {
	return s.TotalSteps() / StepsPerBar
}

// locate maps a song-wide step index to its pattern and index in it.
func (s *Song) locate(global int) (*Pattern, int) {
	if global < 0 || global >= s.TotalSteps() {
		return nil, 0
	}
	p := s.Order[global/StepsPerPattern]
	if p < 0 || p >= len(s.Patterns) {
		return nil, 0
	}
	return s.Patterns[p], global % StepsPerPattern
}

func (s *Song) StepAt(global, instrument int) Step {
	p, i := s.locate(global)
	if p == nil || instrument < 0 || instrument >= len(p.Tracks) {
		return Step{}
	}
	return p.Tracks[instrument][i]
}

func (s *Song) SetStep(global, instrument int, st Step) bool {
	p, i := s.locate(global)
	if p == nil || instrument < 0 || instrument >= len(p.Tracks) {
		return false
	}
	p.Tracks[instrument][i] = st
	return true
}

// LoadTrack writes steps for one instrument starting at the song's first step.
// Steps past the end of the song are dropped; the count written is returned.
func (s *Song) LoadTrack(instrument int, steps []Step) int {
	n := 0
	for i, st := range steps {
		if !s.SetStep(i, instrument, st) {
			break
		}
		n++
	}
	return n
}

// Clone deep-copies the song; the copy shares nothing with s.
func (s *Song) Clone() *Song {
	c := &Song{
		Order:       append([]int(nil), s.Order...),
		Patterns:    make([]*Pattern, len(s.Patterns)),
		Instruments: s.Instruments,
		Settings:    s.Settings,
	}
	for i, p := range s.Patterns {
		if p == nil {
			continue
		}
		cp := &Pattern{Tracks: make([][StepsPerPattern]Step, len(p.Tracks))}
		copy(cp.Tracks, p.Tracks)
		c.Patterns[i] = cp
	}
	return c
}

// SongFromTracks lays imported tracks out over as many patterns as the
// longest one needs, one instrument per track. Tracks past instruments are
// dropped.
func SongFromTracks(tracks [][]Step, instruments int) *Song {
	longest := 0
	for _, tr := range tracks {
		longest = max(longest, len(tr))
	}
	patterns := max(1, (longest+StepsPerPattern-1)/StepsPerPattern)
	s := &Song{Instruments: instruments}
	for i := 0; i < patterns; i++ {
		s.Patterns = append(s.Patterns, NewPattern(instruments))
		s.Order = append(s.Order, i)
	}
	for i, tr := range tracks {
		if i >= instruments {
			break
		}
		s.LoadTrack(i, tr)
	}
	return s
}
