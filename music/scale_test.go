package music

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

func midiNote(n uint8) midi.Note { return midi.Note(n) }

func TestKeySignature_Apply(t *testing.T) {
	tests := []struct {
		key  KeySignature
		in   uint8
		want uint8
	}{
		{CMajor, 71, 71},
		{FMajor, 71, 70},
		{FMajor, 64, 64},
		{BFlatMajor, 64, 63},
		{GMajor, 65, 66},
		{GMajor, 60, 60},
		{DMajor, 72, 73},
		{EMinor, 77, 78},
		{DMinor, 59, 58},
		{GFlatMajor, 0, 0}, // C-1 has nowhere to go
		{FSharpMajor, 127, 127},
		{KeySignature(99), 61, 61},
	}
	for _, tt := range tests {
		if got := tt.key.Apply(midiNote(tt.in)); got != midiNote(tt.want) {
			t.Errorf("%d.Apply(%d) = %d, want %d", tt.key, tt.in, got, tt.want)
		}
	}
}

func TestKeySignature_SharpsOnlyRaise(t *testing.T) {
	for _, k := range []KeySignature{GMajor, DMajor, AMajor, EMajor, BMajor, FSharpMajor} {
		for n := 0; n < 127; n++ {
			got := int(k.Apply(midiNote(uint8(n))))
			if got != n && got != n+1 {
				t.Fatalf("%d.Apply(%d) = %d", k, n, got)
			}
		}
	}
}
