package engine

import (
	"sync/atomic"

	"github.com/JeanRibes/chiptracker/music"
)

// OutputData is what the audio thread produces: interleaved stereo PCM
// waiting to be pulled by the sink, and the latest downsampled frame for
// display.
type OutputData struct {
	pcm  []float32
	viz  []float32
	gain float32
}

func NewOutputData(capacity, vizPoints int, gain float32) *OutputData {
	return &OutputData{
		pcm:  make([]float32, 0, capacity),
		viz:  make([]float32, vizPoints),
		gain: gain,
	}
}

// Queued is the number of samples (not frames) waiting.
func (o *OutputData) Queued() int {
	return len(o.pcm)
}

func (o *OutputData) Gain() float32 {
	return o.gain
}

func (o *OutputData) SetGain(g float32) {
	o.gain = g
}

// push appends one stereo sample pair. The queue grows only when a pull
// asks for more than it ever held.
func (o *OutputData) push(left, right float32) {
	o.pcm = append(o.pcm, clamp(left), clamp(right))
}

// Pull moves up to len(dst) samples into dst and returns how many.
func (o *OutputData) Pull(dst []float32) int {
	n := copy(dst, o.pcm)
	rest := copy(o.pcm, o.pcm[n:])
	o.pcm = o.pcm[:rest]
	return n
}

// setViz replaces the visualization with frame reduced to len(viz) points.
func (o *OutputData) setViz(frame []float32) {
	if len(frame) == 0 || len(o.viz) == 0 {
		return
	}
	for i := range o.viz {
		o.viz[i] = frame[i*len(frame)/len(o.viz)] * o.gain
	}
}

func (o *OutputData) Viz() []float32 {
	return o.viz
}

func clamp(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// Snapshot is the lossy status the audio thread hands to the control
// thread.
type Snapshot struct {
	Viz      []float32
	Playhead music.Playhead
}

// SnapshotSlot is a one-entry mailbox between the audio thread, which
// publishes only when the previous snapshot was taken, and the control
// thread. Neither side waits.
type SnapshotSlot struct {
	ready atomic.Bool
	snap  Snapshot
}

func newSnapshotSlot(vizPoints int) *SnapshotSlot {
	return &SnapshotSlot{snap: Snapshot{Viz: make([]float32, vizPoints)}}
}

// publish is called from the audio thread and reports whether the slot was
// free.
func (s *SnapshotSlot) publish(viz []float32, ph music.Playhead) bool {
	if s.ready.Load() {
		return false
	}
	copy(s.snap.Viz, viz)
	s.snap.Playhead = ph
	s.ready.Store(true)
	return true
}

// Take copies the pending snapshot into dst and frees the slot.
func (s *SnapshotSlot) Take(dst *Snapshot) bool {
	if !s.ready.Load() {
		return false
	}
	dst.Viz = append(dst.Viz[:0], s.snap.Viz...)
	dst.Playhead = s.snap.Playhead
	s.ready.Store(false)
	return true
}
