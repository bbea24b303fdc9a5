package shared

import "fmt"

// Event is the kind of a Message published by the audio thread.
type Event int

const (
	Quit Event = iota
	// StepRecorded: Number is the step, Number2 the note, Instrument the track.
	StepRecorded
	// InstrumentsReloaded: Number programs compiled out of Number2.
	InstrumentsReloaded
	// ProgramFault: Instrument faulted at step Number; String is the error.
	ProgramFault
	Error
	// PlayState: Number is a music.State, Number2 the locked bar.
	PlayState
	// SongReplaced: the engine now plays the song sent to it.
	SongReplaced
	ControlClosed
)

func (e Event) String() string {
	switch e {
	case Quit:
		return "quit"
	case StepRecorded:
		return "step recorded"
	case InstrumentsReloaded:
		return "instruments reloaded"
	case ProgramFault:
		return "program fault"
	case Error:
		return "error"
	case PlayState:
		return "play state"
	case SongReplaced:
		return "song replaced"
	case ControlClosed:
		return "control closed"
	}
	return fmt.Sprintf("event %d", int(e))
}

type Message struct {
	Type       Event
	Number     int
	Boolean    bool
	String     string
	Number2    int
	Instrument int
}

// NumInstruments is how many tracks a new song gets; one per chip voice.
const NumInstruments = 4

func InstrumentName(i int) string {
	switch i {
	case 0:
		return "lead"
	case 1:
		return "bass"
	case 2:
		return "arp"
	case 3:
		return "drums"
	default:
		return fmt.Sprintf("instrument %d", i)
	}
}
