package engine

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// RenderWAV runs e for the given number of seconds and writes the result as
// a 16-bit stereo WAV file.
func RenderWAV(e *SoundEngine, w io.WriteSeeker, seconds float64) error {
	rate := e.Config().SampleRate
	enc := wav.NewEncoder(w, rate, 16, 2, 1)

	total := int(seconds*float64(rate)) * 2
	chunk := make([]float32, 2*e.Config().SamplesPerFrame()*8)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		Data:           make([]int, 0, len(chunk)),
		SourceBitDepth: 16,
	}

	out := e.Output()
	for written := 0; written < total; {
		n := min(len(chunk), total-written)
		for out.Queued() < n {
			e.AdvanceFrame()
		}
		out.Pull(chunk[:n])
		buf.Data = buf.Data[:0]
		for _, v := range chunk[:n] {
			buf.Data = append(buf.Data, int(v*32767))
		}
		if err := enc.Write(buf); err != nil {
			return err
		}
		written += n
	}
	return enc.Close()
}
