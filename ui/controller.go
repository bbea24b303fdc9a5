package ui

import (
	"context"
	"os"
	"sync"

	"github.com/JeanRibes/chiptracker/engine"
	"github.com/JeanRibes/chiptracker/music"
	"github.com/JeanRibes/chiptracker/shared"
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
)

// Controller is the control thread's side of the engine. It keeps its own
// copy of the song, updated from the engine's notifications, and turns user
// actions into engine commands.
type Controller struct {
	host   *engine.Host
	prefs  *Preferences
	logger *log.Logger

	mu         sync.Mutex
	song       *music.Song
	names      []string
	state      music.State
	lockedBar  int
	step       int
	instrument int
	lastError  string
}

func NewController(ctx context.Context, host *engine.Host, song *music.Song, prefs *Preferences) *Controller {
	names := make([]string, song.Instruments)
	for i := range names {
		names[i] = shared.InstrumentName(i)
	}
	return &Controller{
		host:      host,
		prefs:     prefs,
		logger:    log.FromContext(ctx).WithPrefix("ui"),
		song:      song.Clone(),
		names:     names,
		lockedBar: music.NoBar,
	}
}

func (c *Controller) SetInstrumentNames(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range names {
		if i < len(c.names) && n != "" {
			c.names[i] = n
		}
	}
}

func (c *Controller) TogglePlay() error {
	c.mu.Lock()
	on := c.state == music.Stopped
	c.mu.Unlock()
	return c.host.Invoke(func(e *engine.SoundEngine) { e.SetPlaying(on) })
}

func (c *Controller) ToggleRecord() error {
	c.mu.Lock()
	on := c.state != music.Recording
	c.mu.Unlock()
	return c.host.Invoke(func(e *engine.SoundEngine) { e.SetRecording(on) })
}

// ToggleLockBar loops the bar under the playhead, or unlocks.
func (c *Controller) ToggleLockBar() error {
	return c.host.Invoke(func(e *engine.SoundEngine) {
		ph := e.Playhead()
		if ph.LockedBar != music.NoBar {
			e.SetLockedBar(music.NoBar)
			return
		}
		e.SetLockedBar(ph.Step / music.StepsPerBar)
	})
}

func (c *Controller) SelectInstrument(i int) error {
	c.mu.Lock()
	if i < 0 || i >= c.song.Instruments {
		c.mu.Unlock()
		return nil
	}
	c.instrument = i
	c.mu.Unlock()
	return c.host.Invoke(func(e *engine.SoundEngine) { e.SelectInstrument(i) })
}

func (c *Controller) NoteOn(n midi.Note) error {
	return c.host.Invoke(func(e *engine.SoundEngine) { e.NotePressed(n) })
}

func (c *Controller) NoteOff(n midi.Note) error {
	return c.host.Invoke(func(e *engine.SoundEngine) { e.NoteReleased(n) })
}

// LoadSong replaces the song on both sides.
func (c *Controller) LoadSong(song *music.Song) error {
	if err := song.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.song = song.Clone()
	c.mu.Unlock()
	return c.host.SetSong(song)
}

// ExportSMF writes the control-side song, which includes every step the
// engine reported as recorded.
func (c *Controller) ExportSMF(path string) error {
	c.mu.Lock()
	song := c.song.Clone()
	names := append([]string(nil), c.names...)
	c.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fault.Wrap(err, fmsg.With("create "+path))
	}
	if err := music.ExportSMF(f, song, c.host.Config().StepsPerSecond(), names); err != nil {
		f.Close()
		return fault.Wrap(err, fmsg.With("export "+path))
	}
	if err := f.Close(); err != nil {
		return err
	}
	c.logger.Info("exported", "path", path)
	if c.prefs != nil {
		c.prefs.AddSong(path)
		if err := c.prefs.Save(); err != nil {
			c.logger.Warn("save preferences", "err", err)
		}
	}
	return nil
}

// Song returns a copy of the control-side song.
func (c *Controller) Song() *music.Song {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.song.Clone()
}
