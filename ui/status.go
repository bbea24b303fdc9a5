package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JeanRibes/chiptracker/engine"
	"github.com/JeanRibes/chiptracker/music"
	"github.com/JeanRibes/chiptracker/shared"
	"gitlab.com/gomidi/midi/v2"
)

const statusInterval = 100 * time.Millisecond

// Run consumes engine notifications until ctx is done, and redraws a one
// line status on w (if not nil) from the engine's snapshots.
func (c *Controller) Run(ctx context.Context, w io.Writer) error {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	var snap engine.Snapshot

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("context done, quitting")
			if w != nil {
				fmt.Fprint(w, "\r\n")
			}
			return ctx.Err()
		case msg := <-c.host.Notifications():
			c.apply(msg)
		case <-ticker.C:
			if !c.host.Snapshot(&snap) {
				continue
			}
			c.mu.Lock()
			c.step = snap.Playhead.Step
			c.mu.Unlock()
			if w != nil {
				fmt.Fprint(w, "\r"+c.statusLine(snap))
			}
		}
	}
}

func (c *Controller) apply(msg shared.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Type {
	case shared.StepRecorded:
		c.song.SetStep(msg.Number, msg.Instrument, music.Step{Press: true, Note: midi.Note(msg.Number2)})
		c.logger.Debug("recorded", "step", msg.Number, "instrument", msg.Instrument, "note", midi.Note(msg.Number2))
	case shared.PlayState:
		c.state = music.State(msg.Number)
		c.lockedBar = msg.Number2
		c.logger.Debug("state", "state", c.state, "bar", c.lockedBar)
	case shared.InstrumentsReloaded:
		c.logger.Info("instruments reloaded", "loaded", msg.Number, "of", msg.Number2)
	case shared.ProgramFault:
		c.lastError = fmt.Sprintf("%s: %s", c.name(msg.Instrument), msg.String)
		c.logger.Error("program fault", "instrument", c.name(msg.Instrument), "step", msg.Number, "err", msg.String)
	case shared.Error:
		c.lastError = msg.String
		c.logger.Error(msg.String)
	case shared.ControlClosed:
		c.logger.Warn("engine lost its control channel")
	}
}

func (c *Controller) name(i int) string {
	if i >= 0 && i < len(c.names) {
		return c.names[i]
	}
	return shared.InstrumentName(i)
}

func (c *Controller) statusLine(snap engine.Snapshot) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ph := snap.Playhead
	bar := "    "
	if ph.LockedBar != music.NoBar {
		bar = fmt.Sprintf("L%-3d", ph.LockedBar)
	}
	var peak float32
	for _, v := range snap.Viz {
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}
	meter := strings.Repeat("#", int(peak*16))
	return fmt.Sprintf("%-9s step %3d/%-3d %s %-6s |%-16s| %s",
		ph.State(), ph.Step, c.song.TotalSteps(), bar, c.name(c.instrument), meter, c.lastError)
}
