package engine

type pulseState int

const (
	pulseIdle pulseState = iota
	pulseRising
	pulseFalling
)

// SyncPulse emits a square blip on step boundaries so external gear can
// follow the tempo: Length samples at +Amplitude, Length samples at
// -Amplitude, then silence. Only every Division-th step pulses.
type SyncPulse struct {
	Division  int
	Length    int
	Amplitude float32

	state     pulseState
	remaining int
	steps     int
}

func NewSyncPulse(division, length int, amplitude float32) SyncPulse {
	if division < 1 {
		division = 1
	}
	if length < 1 {
		length = 1
	}
	return SyncPulse{Division: division, Length: length, Amplitude: amplitude}
}

// Step counts a step boundary, starting a pulse on every Division-th one.
func (p *SyncPulse) Step() {
	if p.steps%p.Division == 0 {
		p.state = pulseRising
		p.remaining = p.Length
	}
	p.steps++
}

// Reset realigns the division with the next boundary.
func (p *SyncPulse) Reset() {
	p.steps = 0
	p.state = pulseIdle
}

// Next returns the next output sample.
func (p *SyncPulse) Next() float32 {
	switch p.state {
	case pulseRising:
		p.remaining--
		if p.remaining == 0 {
			p.state = pulseFalling
			p.remaining = p.Length
		}
		return p.Amplitude
	case pulseFalling:
		p.remaining--
		if p.remaining == 0 {
			p.state = pulseIdle
		}
		return -p.Amplitude
	}
	return 0
}

func (p *SyncPulse) Active() bool {
	return p.state != pulseIdle
}
