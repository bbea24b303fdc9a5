package engine

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays a Host through the platform audio device. oto pulls bytes
// from its Read on its own goroutine, which makes that goroutine the audio
// thread.
type OtoSink struct {
	ctx    *oto.Context
	player *oto.Player
	host   *Host
	buf    []float32
	mu     sync.Mutex
}

// NewOtoSink opens the device at the host's sample rate.
func NewOtoSink(h *Host, bufferSize time.Duration) (*OtoSink, error) {
	op := &oto.NewContextOptions{
		SampleRate:   h.Config().SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	s := &OtoSink{ctx: ctx, host: h, buf: make([]float32, 4096)}
	s.player = ctx.NewPlayer(s)
	return s, nil
}

func (s *OtoSink) Read(p []byte) (int, error) {
	n := len(p) / 8 * 2
	if len(s.buf) < n {
		s.buf = make([]float32, n)
	}
	samples := s.buf[:n]
	s.host.Render(samples)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return n * 4, nil
}

func (s *OtoSink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Play()
}

func (s *OtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Close()
}
