package music

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"gitlab.com/gomidi/quantizer/lib/quantizer"
)

const ticks = smf.MetricTicks(960)

// ticksPerStep: a step is a sixteenth note.
func ticksPerStep(tf smf.MetricTicks) uint32 {
	return tf.Ticks4th() / 4
}

// ExportSMF writes the song as a standard MIDI file, one track per
// instrument, at the tempo implied by stepsPerSecond.
func ExportSMF(w io.Writer, song *Song, stepsPerSecond float64, names []string) error {
	f := smf.New()
	f.TimeFormat = ticks
	bpm := stepsPerSecond * 60 / 4
	per := ticksPerStep(ticks)

	var errs error
	for inst := 0; inst < song.Instruments; inst++ {
		var tr smf.Track
		name := fmt.Sprintf("instrument %d", inst)
		if inst < len(names) && names[inst] != "" {
			name = names[inst]
		}
		tr.Add(0, smf.MetaTrackSequenceName(name))
		if inst == 0 {
			tr.Add(0, smf.MetaTempo(bpm))
		}

		ch := uint8(inst % 16)
		sounding := -1
		var last uint32
		add := func(step int, msg midi.Message) {
			abs := uint32(step) * per
			tr.Add(abs-last, msg)
			last = abs
		}
		for step := 0; step < song.TotalSteps(); step++ {
			st := song.StepAt(step, inst)
			if st.Press {
				if sounding >= 0 {
					add(step, midi.NoteOff(ch, uint8(sounding)))
				}
				add(step, midi.NoteOn(ch, uint8(st.Note), 100))
				sounding = int(st.Note)
			}
			if st.Release && sounding >= 0 {
				// a release on the press step still lets the note speak for one step
				at := step
				if st.Press {
					at++
				}
				add(at, midi.NoteOff(ch, uint8(sounding)))
				sounding = -1
			}
		}
		if sounding >= 0 {
			add(song.TotalSteps(), midi.NoteOff(ch, uint8(sounding)))
		}
		tr.Close(0)
		if err := f.Add(tr); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if errs != nil {
		return errs
	}
	_, err := f.WriteTo(w)
	return err
}

// ImportSMF maps the notes of every track of a MIDI file onto steps. A note
// lands on the step its start falls in; its end becomes a release. When
// quantize is set the file is first snapped to the grid, which suits
// recordings played by hand.
func ImportSMF(r io.Reader, quantize bool) ([][]Step, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if quantize {
		var out bytes.Buffer
		if err := quantizer.Quantize(bytes.NewReader(data), &out); err != nil {
			return nil, fmt.Errorf("quantize: %w", err)
		}
		data = out.Bytes()
	}

	f, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	tf, ok := f.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.New("SMPTE time format not supported")
	}
	per := ticksPerStep(tf)
	if per == 0 {
		return nil, errors.New("time format resolution too low")
	}

	var tracks [][]Step
	for _, tr := range f.Tracks {
		steps := trackToSteps(tr, per)
		if len(steps) > 0 {
			tracks = append(tracks, steps)
		}
	}
	return tracks, nil
}

func trackToSteps(tr smf.Track, per uint32) []Step {
	var steps []Step
	at := func(i int) *Step {
		for len(steps) <= i {
			steps = append(steps, Step{})
		}
		return &steps[i]
	}

	var ch, key, vel uint8
	var abs uint32
	sounding, onStep := -1, 0
	for _, ev := range tr {
		abs += ev.Delta
		msg := midi.Message(ev.Message)
		step := int((abs + per/2) / per)
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			s := at(step)
			// a note cut by this one ended here; the press implies it
			*s = Step{Press: true, Note: midi.Note(key)}
			sounding, onStep = int(key), step
		case msg.GetNoteEnd(&ch, &key):
			if int(key) != sounding {
				continue
			}
			if step <= onStep {
				step = onStep + 1
			}
			if s := at(step); !s.Press {
				s.Release = true
			}
			sounding = -1
		}
	}
	return steps
}
