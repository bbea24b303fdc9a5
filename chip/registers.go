package chip

import "math"

// ChipClock is the emulated oscillator clock in Hz.
const ChipClock = 1_000_000

const (
	NumVoices   = 4
	VoiceStride = 4

	RegFreqLo = 0 // low byte of the half-period
	RegFreqHi = 1 // high byte of the half-period
	RegCtrl   = 2
	RegVol    = 3

	RegMasterVol  = NumVoices * VoiceStride
	RegisterCount = RegMasterVol + 1
)

// CTRL register bits
const (
	CtrlGate  = 0x01
	CtrlWave  = 0x06
	CtrlReset = 0x80
)

const (
	WaveSquare = 0
	WavePulse  = 1
	WaveNoise  = 2
)

// MinRingLength is the longest envelope, in frames, a program may spread over.
const MinRingLength = 16

// VoiceBase returns the first register address of a voice.
func VoiceBase(voice int) uint16 {
	return uint16(voice * VoiceStride)
}

func FreqLo(voice int) Setting {
	return Setting{Address: VoiceBase(voice) + RegFreqLo, Mask: 0xFF}
}

func FreqHi(voice int) Setting {
	return Setting{Address: VoiceBase(voice) + RegFreqHi, Mask: 0xFF}
}

func Gate(voice int) Setting {
	return Setting{Address: VoiceBase(voice) + RegCtrl, Mask: CtrlGate}
}

func Waveform(voice int) Setting {
	return Setting{Address: VoiceBase(voice) + RegCtrl, Mask: CtrlWave}
}

func PhaseReset(voice int) Setting {
	return Setting{Address: VoiceBase(voice) + RegCtrl, Mask: CtrlReset}
}

func Volume(voice int) Setting {
	return Setting{Address: VoiceBase(voice) + RegVol, Mask: 0x0F}
}

func MasterVolume() Setting {
	return Setting{Address: RegMasterVol, Mask: 0x0F}
}

// Period converts a frequency in Hz to the half-period register value.
func Period(freq float64) uint16 {
	if freq <= 0 {
		return 0xFFFF
	}
	p := math.Round(ChipClock / (2 * freq))
	switch {
	case p < 1:
		return 1
	case p > 0xFFFF:
		return 0xFFFF
	}
	return uint16(p)
}

// FrequencyWrites returns the two writes that tune a voice to freq.
func FrequencyWrites(voice int, freq float64) (lo, hi WriteSet) {
	p := Period(freq)
	lo = WriteSet{Setting: FreqLo(voice), Value: uint8(p)}
	hi = WriteSet{Setting: FreqHi(voice), Value: uint8(p >> 8)}
	return lo, hi
}
