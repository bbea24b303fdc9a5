package engine

import (
	"context"

	"github.com/JeanRibes/chiptracker/instrument"
	"github.com/JeanRibes/chiptracker/music"
	"github.com/JeanRibes/chiptracker/shared"
	"github.com/charmbracelet/log"
)

const notifyQueue = 256

// Host connects the control thread to a SoundEngine that exists only inside
// the audio callback. The engine is built on the first Render call, on the
// audio thread, at cfg.SampleRate; NewOtoSink opens the device at that rate.
type Host struct {
	cfg   Config
	song  *music.Song
	table *instrument.Table

	sender   *Sender
	receiver *Receiver
	reload   chan *instrument.Table
	notify   chan shared.Message
	snap     *SnapshotSlot
	logger   *log.Logger

	// audio thread only
	engine *SoundEngine
}

// NewHost takes a copy of song and ownership of table.
func NewHost(ctx context.Context, cfg Config, song *music.Song, table *instrument.Table) *Host {
	sender, receiver := NewControlChannel()
	return &Host{
		cfg:      cfg,
		song:     song.Clone(),
		table:    table,
		sender:   sender,
		receiver: receiver,
		reload:   make(chan *instrument.Table, 1),
		notify:   make(chan shared.Message, notifyQueue),
		snap:     newSnapshotSlot(cfg.VizPoints),
		logger:   log.FromContext(ctx).WithPrefix("engine"),
	}
}

func (h *Host) Config() Config {
	return h.cfg
}

// Invoke queues fn to run on the audio thread before the next frame.
func (h *Host) Invoke(fn func(e *SoundEngine)) error {
	return h.sender.Send(fn)
}

// SetSong sends a copy of song to the engine.
func (h *Host) SetSong(song *music.Song) error {
	c := song.Clone()
	return h.Invoke(func(e *SoundEngine) { e.SetSong(c) })
}

// Reload hands a compiled table to the engine. A table still waiting from a
// previous call is replaced and closed. Only one goroutine may call Reload.
func (h *Host) Reload(t *instrument.Table) {
	for {
		select {
		case h.reload <- t:
			return
		default:
		}
		select {
		case old := <-h.reload:
			old.Close()
		default:
		}
	}
}

// Snapshot copies the latest visualization and playhead into dst if the
// engine published one since the last call.
func (h *Host) Snapshot(dst *Snapshot) bool {
	return h.snap.Take(dst)
}

func (h *Host) Notifications() <-chan shared.Message {
	return h.notify
}

// Render fills dst with interleaved stereo samples. It is the audio
// callback: it never blocks and zero-fills whatever it cannot produce.
func (h *Host) Render(dst []float32) {
	if h.engine == nil {
		h.engine = NewSoundEngine(h.cfg, h.song, h.table, Links{
			Control:   h.receiver,
			Reload:    h.reload,
			Notify:    h.notify,
			Snapshots: h.snap,
			Logger:    h.logger,
		})
		h.song, h.table = nil, nil
		h.logger.Info("engine started", "rate", h.cfg.SampleRate)
	}

	out := h.engine.Output()
	limit := len(dst)/(2*max(1, h.cfg.SamplesPerFrame())) + 2
	for i := 0; out.Queued() < len(dst) && i < limit; i++ {
		h.engine.AdvanceFrame()
	}
	n := out.Pull(dst)
	clear(dst[n:])
}

// Close disconnects the control channel and releases the instruments. Call
// it once the sink has stopped pulling.
func (h *Host) Close() error {
	h.sender.Close()
	select {
	case t := <-h.reload:
		t.Close()
	default:
	}
	if h.engine != nil {
		return h.engine.Close()
	}
	return h.table.Close()
}
