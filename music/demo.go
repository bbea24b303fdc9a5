package music

import "gitlab.com/gomidi/midi/v2"

// DemoSong is a one-pattern loop for four instruments: lead, bass, arp and
// percussion.
func DemoSong() *Song {
	s := NewSong(4)
	p := s.Patterns[0]

	lead := []midi.Note{76, 79, 81, 79} // E5 G5 A5 G5
	for bar := 0; bar < BarsPerPattern; bar++ {
		base := bar * StepsPerBar
		p.Tracks[0][base] = Step{Press: true, Note: lead[bar]}
		p.Tracks[0][base+6] = Step{Release: true}
		p.Tracks[0][base+8] = Step{Press: true, Note: lead[bar] - 2}
		p.Tracks[0][base+14] = Step{Release: true}
	}

	bass := []midi.Note{45, 41, 48, 43} // A2 F2 C3 G2
	for bar := 0; bar < BarsPerPattern; bar++ {
		for beat := 0; beat < 4; beat++ {
			i := bar*StepsPerBar + beat*4
			p.Tracks[1][i] = Step{Press: true, Note: bass[bar]}
			p.Tracks[1][i+2] = Step{Release: true}
		}
	}

	for i := 0; i < StepsPerPattern; i += 2 {
		p.Tracks[2][i] = Step{Press: true, Note: bass[i/StepsPerBar] + 24, Param0: P(i / 2 % 3)}
	}

	for i := 0; i < StepsPerPattern; i += 4 {
		st := Step{Press: true, Note: 36}
		if i%8 == 4 {
			st.Note = 62
			st.Param0 = P(1)
		}
		p.Tracks[3][i] = st
	}
	return s
}
