package chip

import (
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/arl/blip"
)

const (
	lfsrSeed = 0x4000
	// frames are rendered in slices of at most 10 ms so any frame rate fits
	// the blip buffer, which holds 100 ms
	sliceClocks = ChipClock / 100
	// per voice, so four voices at full volume stay inside int16
	ampUnit = 8000 / (15 * 15)
)

type voice struct {
	next int // clock of the next edge, relative to the frame start
	amp  int32
	high bool
	lfsr uint16
}

// Emulator is a four voice square/pulse/noise chip. Registers follow the
// layout in registers.go; output is band limited through blip.
type Emulator struct {
	regs   [RegisterCount]uint8
	voices [NumVoices]voice

	buf            *blip.Buffer
	clocksPerFrame float64
	clockFrac      float64
	tmp            []int16
}

func NewEmulator(sampleRate, frameRate int) *Emulator {
	e := &Emulator{
		buf:            blip.NewBuffer(sampleRate / 10),
		clocksPerFrame: float64(ChipClock) / float64(frameRate),
		tmp:            make([]int16, sampleRate/10),
	}
	e.buf.SetRates(float64(ChipClock), float64(sampleRate))
	e.Reset()
	return e
}

func (e *Emulator) Reset() {
	e.regs = [RegisterCount]uint8{}
	e.regs[RegMasterVol] = 0x0F
	for i := range e.voices {
		e.voices[i] = voice{high: true, lfsr: lfsrSeed}
	}
}

func (e *Emulator) WriteRegister(w WriteSet) error {
	if int(w.Address) >= RegisterCount {
		return fault.Wrap(ErrBadAddress,
			fmsg.With(fmt.Sprintf("address %#04x", w.Address)),
			ftag.With(KindRegister))
	}
	e.regs[w.Address] = w.Apply(e.regs[w.Address])
	return nil
}

func (e *Emulator) Register(addr uint16) uint8 {
	if int(addr) >= RegisterCount {
		return 0
	}
	return e.regs[addr]
}

// RenderFrame runs the chip for one frame and appends the samples to dst.
func (e *Emulator) RenderFrame(dst []float32) []float32 {
	total := e.clocksPerFrame + e.clockFrac
	clocks := int(total)
	e.clockFrac = total - float64(clocks)

	for clocks > 0 {
		n := min(clocks, sliceClocks)
		dst = e.renderSlice(dst, n)
		clocks -= n
	}
	return dst
}

func (e *Emulator) renderSlice(dst []float32, clocks int) []float32 {
	for i := range e.voices {
		e.run(i, clocks)
	}
	e.buf.EndFrame(clocks)
	for i := range e.voices {
		e.voices[i].next -= clocks
	}

	for e.buf.SamplesAvailable() > 0 {
		n := e.buf.ReadSamples(e.tmp, len(e.tmp), blip.Mono)
		for _, s := range e.tmp[:n] {
			dst = append(dst, float32(s)/32768)
		}
	}
	return dst
}

func (e *Emulator) run(i, clocks int) {
	v := &e.voices[i]
	base := VoiceBase(i)
	period := int(e.regs[base+RegFreqLo]) | int(e.regs[base+RegFreqHi])<<8
	ctrl := e.regs[base+RegCtrl]
	vol := int32(e.regs[base+RegVol]&0x0F) * int32(e.regs[RegMasterVol]&0x0F) * ampUnit

	if ctrl&CtrlReset != 0 {
		v.high = true
		v.next = 0
		v.lfsr = lfsrSeed
		e.regs[base+RegCtrl] &^= CtrlReset
	}
	if ctrl&CtrlGate == 0 || period == 0 || vol == 0 {
		e.setAmp(v, 0, 0)
		if v.next < clocks {
			v.next = clocks
		}
		return
	}

	level := func() int32 {
		if v.high {
			return vol
		}
		return -vol
	}
	e.setAmp(v, 0, level())

	wave := (ctrl & CtrlWave) >> 1
	for v.next < clocks {
		t := v.next
		step := period
		switch wave {
		case WavePulse:
			v.high = !v.high
			if v.high {
				step = max(period/2, 1)
			} else {
				step = period * 3 / 2
			}
		case WaveNoise:
			bit := (v.lfsr ^ v.lfsr>>1) & 1
			v.lfsr = v.lfsr>>1 | bit<<14
			v.high = v.lfsr&1 == 1
		default:
			v.high = !v.high
		}
		e.setAmp(v, t, level())
		v.next += step
	}
}

func (e *Emulator) setAmp(v *voice, t int, target int32) {
	if target == v.amp {
		return
	}
	e.buf.AddDelta(uint64(t), target-v.amp)
	v.amp = target
}
