package engine

import (
	"errors"
	"time"

	"github.com/JeanRibes/chiptracker/chip"
	"github.com/JeanRibes/chiptracker/instrument"
	"github.com/JeanRibes/chiptracker/music"
	"github.com/JeanRibes/chiptracker/shared"
	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
)

type Config struct {
	SampleRate   int
	FrameRate    int
	TicksPerStep int
	RingLength   int
	VizPoints    int
	Gain         float32

	Sync          bool
	SyncDivision  int
	SyncPulse     time.Duration
	SyncAmplitude float32

	// Buses receive every committed write next to the emulated chip.
	Buses []chip.RegisterBus
}

func DefaultConfig() Config {
	return Config{
		SampleRate:    44100,
		FrameRate:     60,
		TicksPerStep:  6,
		RingLength:    64,
		VizPoints:     128,
		Gain:          0.8,
		SyncDivision:  1,
		SyncPulse:     2 * time.Millisecond,
		SyncAmplitude: 0.9,
	}
}

// SamplesPerFrame is the approximate number of sample frames rendered per
// engine frame.
func (c Config) SamplesPerFrame() int {
	return c.SampleRate / c.FrameRate
}

func (c Config) StepsPerSecond() float64 {
	return float64(c.FrameRate) / float64(c.TicksPerStep)
}

// Links are the engine's connections to the control thread. Any may be nil.
type Links struct {
	Control   *Receiver
	Reload    <-chan *instrument.Table
	Notify    chan<- shared.Message
	Snapshots *SnapshotSlot
	Logger    *log.Logger
}

// SoundEngine owns the sequencer and the synth. It belongs to the audio
// thread: other threads reach it only through Commands.
type SoundEngine struct {
	cfg   Config
	seq   *music.Sequencer
	synth *Synth
	pulse SyncPulse
	sync  bool
	out   *OutputData
	links Links

	logger       *log.Logger
	disconnected bool
	busFailing   bool
	dropped      int
	lastState    music.State
	lastBar      int
}

// NewSoundEngine takes ownership of song and table.
func NewSoundEngine(cfg Config, song *music.Song, table *instrument.Table, links Links) *SoundEngine {
	logger := links.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("engine")
	}
	emu := chip.NewEmulator(cfg.SampleRate, cfg.FrameRate)
	pulseLen := int(cfg.SyncPulse.Seconds() * float64(cfg.SampleRate))
	return &SoundEngine{
		cfg:     cfg,
		seq:     music.NewSequencer(song, cfg.TicksPerStep),
		synth:   NewSynth(emu, cfg.RingLength, table, cfg.Buses...),
		pulse:   NewSyncPulse(cfg.SyncDivision, pulseLen, cfg.SyncAmplitude),
		sync:    cfg.Sync || song.Settings.Sync,
		out:     NewOutputData(16*cfg.SamplesPerFrame()*2, cfg.VizPoints, cfg.Gain),
		links:   links,
		logger:  logger,
		lastBar: music.NoBar,
	}
}

// AdvanceFrame renders one frame: pending commands first, then a pending
// instrument reload, the sequencer tick, triggers, the ring commit and
// finally the chip output.
func (e *SoundEngine) AdvanceFrame() {
	e.drainControl()
	e.pollReload()

	events, boundary := e.seq.AdvanceFrame()
	for _, ev := range events {
		if err := e.synth.Trigger(ev); err != nil {
			e.fault(ev, err)
		}
	}

	if err := e.synth.Commit(); err != nil {
		if !e.busFailing {
			e.logger.Error("register bus", "err", err)
		}
		e.busFailing = true
	} else {
		e.busFailing = false
	}

	frame := e.synth.Render()
	if boundary && e.sync {
		e.pulse.Step()
	}
	gain := e.out.Gain()
	for _, v := range frame {
		left := v * gain
		right := left
		if e.sync {
			right = e.pulse.Next()
		}
		e.out.push(left, right)
	}
	e.out.setViz(frame)

	if e.links.Snapshots != nil {
		e.links.Snapshots.publish(e.out.Viz(), e.seq.Playhead())
	}
	e.notifyState()
}

func (e *SoundEngine) drainControl() {
	if e.links.Control == nil || e.disconnected {
		return
	}
	if _, err := e.links.Control.Drain(e); errors.Is(err, ErrChannelDisconnected) {
		e.disconnected = true
		e.logger.Warn("control channel closed, rendering on")
		e.publish(shared.Message{Type: shared.ControlClosed})
	}
}

func (e *SoundEngine) pollReload() {
	if e.links.Reload == nil {
		return
	}
	select {
	case t := <-e.links.Reload:
		e.ReloadInstruments(t)
	default:
	}
}

func (e *SoundEngine) fault(ev music.NoteEvent, err error) {
	if errors.Is(err, chip.ErrSchedulingOutOfRange) {
		e.logger.Warn("write scheduled past the ring", "instrument", ev.Instrument, "err", err)
		return
	}
	e.logger.Error("trigger", "instrument", ev.Instrument, "kind", ev.Kind, "step", ev.Step, "err", err)
	e.publish(shared.Message{
		Type:       shared.ProgramFault,
		Instrument: ev.Instrument,
		Number:     ev.Step,
		String:     err.Error(),
	})
}

// publish never blocks; a full notification queue drops the message.
func (e *SoundEngine) publish(m shared.Message) {
	if e.links.Notify == nil {
		return
	}
	select {
	case e.links.Notify <- m:
	default:
		e.dropped++
	}
}

func (e *SoundEngine) notifyState() {
	ph := e.seq.Playhead()
	if st := ph.State(); st != e.lastState || ph.LockedBar != e.lastBar {
		e.lastState, e.lastBar = st, ph.LockedBar
		e.publish(shared.Message{Type: shared.PlayState, Number: int(st), Number2: ph.LockedBar})
	}
}

// Dropped counts notifications lost to a full queue.
func (e *SoundEngine) Dropped() int {
	return e.dropped
}

func (e *SoundEngine) Playhead() music.Playhead {
	return e.seq.Playhead()
}

func (e *SoundEngine) Sequencer() *music.Sequencer {
	return e.seq
}

func (e *SoundEngine) Synth() *Synth {
	return e.synth
}

func (e *SoundEngine) Output() *OutputData {
	return e.out
}

func (e *SoundEngine) Config() Config {
	return e.cfg
}

func (e *SoundEngine) SetPlaying(on bool) {
	e.seq.SetPlaying(on)
	if !on {
		e.synth.Silence()
		e.pulse.Reset()
	}
}

func (e *SoundEngine) SetRecording(on bool) {
	e.seq.SetRecording(on)
}

func (e *SoundEngine) SetLockedBar(bar int) bool {
	return e.seq.SetLockedBar(bar)
}

func (e *SoundEngine) SetCurrentStep(step int) bool {
	return e.seq.SetCurrentStep(step)
}

func (e *SoundEngine) SelectInstrument(i int) bool {
	return e.seq.SelectInstrument(i)
}

func (e *SoundEngine) SetKeySignature(k music.KeySignature) {
	e.seq.SetKeySignature(k)
}

func (e *SoundEngine) SetTicksPerStep(n int) {
	e.seq.SetTicksPerStep(n)
}

func (e *SoundEngine) SetSync(on bool) {
	e.sync = on
	e.pulse.Reset()
}

// NotePressed plays note on the selected instrument right away and, while
// recording, writes it into the current step.
func (e *SoundEngine) NotePressed(note midi.Note) {
	ev := music.NoteEvent{
		Instrument: e.seq.Instrument(),
		Kind:       music.Press,
		Note:       note,
		Step:       e.seq.Playhead().Step,
	}
	if rec, ok := e.seq.Record(note); ok {
		ev = rec
		e.publish(shared.Message{
			Type:       shared.StepRecorded,
			Number:     rec.Step,
			Number2:    int(rec.Note),
			Instrument: rec.Instrument,
		})
	}
	if err := e.synth.Trigger(ev); err != nil {
		e.fault(ev, err)
	}
}

func (e *SoundEngine) NoteReleased(note midi.Note) {
	ev := music.NoteEvent{
		Instrument: e.seq.Instrument(),
		Kind:       music.Release,
		Note:       note,
		Step:       e.seq.Playhead().Step,
	}
	if err := e.synth.Trigger(ev); err != nil {
		e.fault(ev, err)
	}
}

// SetSong replaces the song being played. The engine owns song from now on.
func (e *SoundEngine) SetSong(song *music.Song) {
	e.seq.SetSong(song)
	e.publish(shared.Message{Type: shared.SongReplaced, Number: song.TotalSteps()})
}

func (e *SoundEngine) EditStep(step, instrument int, st music.Step) bool {
	return e.seq.Song().SetStep(step, instrument, st)
}

// ReloadInstruments swaps in t. The old table is closed off the audio
// thread; its writes already in the ring still play.
func (e *SoundEngine) ReloadInstruments(t *instrument.Table) {
	if t == nil {
		return
	}
	old := e.synth.SetTable(t)
	if old != nil {
		go old.Close()
	}
	e.publish(shared.Message{Type: shared.InstrumentsReloaded, Number: t.Loaded(), Number2: t.Len()})
}

// Close releases the instrument programs. The engine must not be used
// afterwards.
func (e *SoundEngine) Close() error {
	return e.synth.SetTable(nil).Close()
}
