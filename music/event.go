package music

import (
	"math"

	"gitlab.com/gomidi/midi/v2"
)

type NoteKind uint8

const (
	Press NoteKind = iota
	Release
)

func (k NoteKind) String() string {
	if k == Release {
		return "release"
	}
	return "press"
}

// NoteEvent is handed from the sequencer to the synth within one frame.
type NoteEvent struct {
	Instrument int
	Kind       NoteKind
	Note       midi.Note
	Step       int
	Param0     Param
	Param1     Param
}

func (e NoteEvent) Frequency() float64 {
	return Frequency(e.Note)
}

// Frequency is the equal-tempered pitch of n with A4 at 440 Hz.
func Frequency(n midi.Note) float64 {
	return 440 * math.Pow(2, (float64(n)-69)/12)
}
