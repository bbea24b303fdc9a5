package music

import "gitlab.com/gomidi/midi/v2"

// NoBar is the LockedBar value when playback is not looping a bar.
const NoBar = -1

type State int

const (
	Stopped State = iota
	Playing
	Recording
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Recording:
		return "recording"
	}
	return "stopped"
}

// Playhead is the sequencer's position. Only the audio thread mutates it.
type Playhead struct {
	Frame     uint64
	Step      int
	Playing   bool
	Recording bool
	LockedBar int
}

func (p Playhead) State() State {
	switch {
	case p.Recording:
		return Recording
	case p.Playing:
		return Playing
	}
	return Stopped
}

// Sequencer advances musical time one audio frame at a time and emits the
// notes of each step it lands on.
type Sequencer struct {
	song         *Song
	ticksPerStep int
	tick         int
	// the next boundary plays head.Step instead of moving past it
	rearm bool

	head       Playhead
	lockReq    int
	instrument int
	scale      KeySignature

	events []NoteEvent
}

func NewSequencer(song *Song, ticksPerStep int) *Sequencer {
	if ticksPerStep < 1 {
		ticksPerStep = 1
	}
	return &Sequencer{
		song:         song,
		ticksPerStep: ticksPerStep,
		head:         Playhead{LockedBar: NoBar},
		lockReq:      NoBar,
		events:       make([]NoteEvent, 0, 2*song.Instruments),
	}
}

func (s *Sequencer) Playhead() Playhead {
	return s.head
}

func (s *Sequencer) Song() *Song {
	return s.song
}

func (s *Sequencer) TicksPerStep() int {
	return s.ticksPerStep
}

// SetTicksPerStep changes tempo; the current step keeps its phase only if it
// is still shorter than the new step length.
func (s *Sequencer) SetTicksPerStep(n int) {
	if n < 1 {
		return
	}
	s.ticksPerStep = n
	if s.tick >= n {
		s.tick = 0
	}
}

func (s *Sequencer) SetPlaying(on bool) {
	if on == s.head.Playing {
		return
	}
	s.head.Playing = on
	if on {
		s.tick = 0
		s.rearm = true
		return
	}
	s.head.Recording = false
}

// SetRecording starts playback when needed; recording implies playing.
func (s *Sequencer) SetRecording(on bool) {
	if on {
		s.SetPlaying(true)
	}
	s.head.Recording = on
}

// SetLockedBar loops playback inside bar (NoBar unlocks). The change is
// picked up at the next step boundary.
func (s *Sequencer) SetLockedBar(bar int) bool {
	if bar != NoBar && (bar < 0 || bar >= s.song.Bars()) {
		return false
	}
	s.lockReq = bar
	return true
}

// SetCurrentStep moves the playhead; the step is played at the next boundary.
// While a bar is locked a step outside it lands on the bar's first step.
func (s *Sequencer) SetCurrentStep(step int) bool {
	if step < 0 || step >= s.song.TotalSteps() {
		return false
	}
	s.head.Step = s.clamp(step)
	s.tick = 0
	s.rearm = true
	return true
}

func (s *Sequencer) SelectInstrument(i int) bool {
	if i < 0 || i >= s.song.Instruments {
		return false
	}
	s.instrument = i
	return true
}

func (s *Sequencer) Instrument() int {
	return s.instrument
}

func (s *Sequencer) SetKeySignature(k KeySignature) {
	s.scale = k
}

// SetSong swaps the song being played, keeping the playhead when it still
// fits.
func (s *Sequencer) SetSong(song *Song) {
	s.song = song
	if s.head.Step >= song.TotalSteps() {
		s.head.Step = 0
		s.rearm = true
	}
	if s.lockReq >= song.Bars() {
		s.lockReq = NoBar
	}
	if s.head.LockedBar >= song.Bars() {
		s.head.LockedBar = NoBar
	}
	if s.instrument >= song.Instruments {
		s.instrument = 0
	}
	if cap(s.events) < 2*song.Instruments {
		s.events = make([]NoteEvent, 0, 2*song.Instruments)
	}
}

// AdvanceFrame moves time forward one frame. On a step boundary it returns
// the step's note events and true. The returned slice is reused by the next
// call.
func (s *Sequencer) AdvanceFrame() ([]NoteEvent, bool) {
	if !s.head.Playing || s.song.TotalSteps() == 0 {
		return nil, false
	}
	s.head.Frame++
	boundary := s.tick == 0
	s.tick = (s.tick + 1) % s.ticksPerStep
	if !boundary {
		return nil, false
	}

	s.head.LockedBar = s.lockReq
	if s.rearm {
		s.rearm = false
		s.head.Step = s.clamp(s.head.Step)
	} else {
		s.head.Step = s.clamp(s.head.Step + 1)
	}
	return s.emit(), true
}

// clamp wraps step into the song, or into the locked bar.
func (s *Sequencer) clamp(step int) int {
	if bar := s.head.LockedBar; bar != NoBar {
		lo := bar * StepsPerBar
		if step < lo || step >= lo+StepsPerBar {
			return lo
		}
		return step
	}
	return step % s.song.TotalSteps()
}

func (s *Sequencer) emit() []NoteEvent {
	s.events = s.events[:0]
	for i := 0; i < s.song.Instruments; i++ {
		st := s.song.StepAt(s.head.Step, i)
		ev := NoteEvent{
			Instrument: i,
			Note:       st.Note,
			Step:       s.head.Step,
			Param0:     st.Param0,
			Param1:     st.Param1,
		}
		if st.Press {
			ev.Kind = Press
			s.events = append(s.events, ev)
		}
		if st.Release {
			ev.Kind = Release
			s.events = append(s.events, ev)
		}
	}
	return s.events
}

// Record writes a pressed note into the current step of the selected
// instrument. It does nothing unless recording.
func (s *Sequencer) Record(note midi.Note) (NoteEvent, bool) {
	if !s.head.Recording {
		return NoteEvent{}, false
	}
	note = s.scale.Apply(note)
	if !s.song.SetStep(s.head.Step, s.instrument, Step{Press: true, Note: note}) {
		return NoteEvent{}, false
	}
	return NoteEvent{
		Instrument: s.instrument,
		Kind:       Press,
		Note:       note,
		Step:       s.head.Step,
	}, true
}
